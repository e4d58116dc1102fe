package pipeline

import (
	"sync"
	"time"
)

// Event is published for every processed frame and keyframe window.
type Event struct {
	Type      string    `json:"type"`
	Session   string    `json:"session"`
	Frame     uint64    `json:"frame"`
	Score     float64   `json:"score"`
	Text      string    `json:"text,omitempty"`
	NewLines  []string  `json:"new_lines,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Entry is one frame's text as kept in history.
type Entry struct {
	Frame     uint64
	Timestamp time.Time
	Text      string
	Lines     []string
	NewLines  []string
	Score     float64
}

// History keeps the most recent OCR'd frames and fans out events.
type History struct {
	mu       sync.RWMutex
	entries  []Entry
	maxSize  int
	eventsCh chan Event
}

// NewHistory creates a history holding up to maxEntries frames.
func NewHistory(maxEntries, eventBuffer int) *History {
	if maxEntries <= 0 {
		maxEntries = HistoryMaxEntries
	}
	return &History{
		entries:  make([]Entry, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan Event, eventBuffer),
	}
}

// Add stores an entry, dropping the oldest beyond capacity.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Entry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// Since returns entries captured at or after t.
func (h *History) Since(t time.Time) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Entry
	for _, e := range h.entries {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Events returns the event channel.
func (h *History) Events() <-chan Event {
	return h.eventsCh
}

// Emit publishes an event without blocking; events are dropped when nobody keeps up.
func (h *History) Emit(e Event) {
	select {
	case h.eventsCh <- e:
	default:
	}
}
