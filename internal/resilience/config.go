package resilience

import "time"

// Circuit breaker configuration constants
const (
	// Recognition calls sit on the frame path: trip quickly so OCR falls back to
	// the next frame instead of stalling capture.
	DefaultThreshold         = 3
	DefaultResetTimeout      = 15 * time.Second
	DefaultHalfOpenSuccesses = 2

	// Indexing runs in the background and tolerates a flaky downstream longer.
	IndexThreshold         = 10
	IndexResetTimeout      = 60 * time.Second
	IndexHalfOpenSuccesses = 3
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // shows up in state change logs
	Threshold         int           // consecutive failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// DefaultConfig returns settings for the recognition path.
func DefaultConfig() Config {
	return Config{
		Name:              "recognize",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// IndexConfig returns lenient settings for background indexing.
func IndexConfig() Config {
	return Config{
		Name:              "index",
		Threshold:         IndexThreshold,
		ResetTimeout:      IndexResetTimeout,
		HalfOpenSuccesses: IndexHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
