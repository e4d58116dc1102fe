// Package tracker remembers the frame with the largest observed change in a window.
package tracker

import "time"

// Keyframe is the frame with the highest change score seen since the last Reset.
type Keyframe struct {
	Ordinal    uint64
	Score      float64
	ObservedAt time.Time
}

// Tracker owns both the current keyframe and the running maximum score.
// It is not safe for concurrent use: observations must arrive from one goroutine
// in increasing ordinal order.
type Tracker struct {
	max          *Keyframe
	observations int
	now          func() time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{now: time.Now}
}

// Observe records one frame's score and reports whether it became the keyframe.
// Ties go to the most recent frame.
func (t *Tracker) Observe(ordinal uint64, score float64) bool {
	t.observations++
	if t.max != nil && score < t.max.Score {
		return false
	}
	t.max = &Keyframe{Ordinal: ordinal, Score: score, ObservedAt: t.now()}
	return true
}

// Max returns the current keyframe, if any.
func (t *Tracker) Max() (Keyframe, bool) {
	if t.max == nil {
		return Keyframe{}, false
	}
	return *t.max, true
}

// MaxOrdinal returns the keyframe's ordinal, or 0 when nothing was observed.
func (t *Tracker) MaxOrdinal() uint64 {
	if t.max == nil {
		return 0
	}
	return t.max.Ordinal
}

// MaxScore returns the running maximum score, or 0 when nothing was observed.
func (t *Tracker) MaxScore() float64 {
	if t.max == nil {
		return 0
	}
	return t.max.Score
}

// Observations returns the number of Observe calls since the last Reset.
func (t *Tracker) Observations() int {
	return t.observations
}

// Reset starts a new window.
func (t *Tracker) Reset() {
	t.max = nil
	t.observations = 0
}
