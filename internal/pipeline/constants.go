package pipeline

import "time"

// Pipeline defaults
const (
	DefaultCaptureTimeout = 5 * time.Second

	// History
	HistoryMaxEntries  = 120
	HistoryEventBuffer = 64

	// Index batcher
	DefaultBatchSize  = 20
	DefaultFlushDelay = 5 * time.Second

	// Frames with fewer characters of new text are not indexed
	MinIndexTextLength = 3
)

// Event types
const (
	EventFrame    = "frame"
	EventKeyframe = "keyframe"
	EventOCRError = "ocr_error"
)
