package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Per-call deadlines, applied when the caller's context has none
	DefaultRecognizeTimeout = 20 * time.Second
	DefaultIndexTimeout     = 10 * time.Second
)

// Service and method names
const (
	ServiceName = "vision.v1.Recognition"

	methodRecognize  = "/" + ServiceName + "/Recognize"
	methodIndexBatch = "/" + ServiceName + "/IndexBatch"
)
