// Package server exposes the pipeline over HTTP and WebSocket.
package server

import "time"

// Server configuration constants
const (
	// Text truncation limit for API responses
	TextPreviewLimit = 500

	// Default and maximum entries for /api/history
	DefaultHistoryEntries = 20
	MaxHistoryEntries     = 120

	// Per-connection inbound WebSocket message budget
	WSMessageRate  = 5 // messages per second
	WSMessageBurst = 10

	// Queued events per WebSocket client before new ones are dropped
	WSSendBuffer = 64

	// Deadline for a single outbound WebSocket write
	WSWriteTimeout = 5 * time.Second
)
