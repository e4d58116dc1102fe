package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

func TestBreakerInitialState(t *testing.T) {
	b := New(DefaultConfig())
	if b.State() != Closed {
		t.Errorf("initial state = %v, want Closed", b.State())
	}
	if b.Name() != "recognize" {
		t.Errorf("Name() = %q, want recognize", b.Name())
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New(Config{Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 2})

	for i := 0; i < 3; i++ {
		b.Failure()
	}

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
}

func TestBreakerRejectsWhenOpen(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	b.Failure()

	err := b.Allow()
	if err != ErrOpen {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("ErrOpen code = %v, want UNAVAILABLE", apperrors.CodeOf(err))
	}
}

func TestBreakerHalfOpenCycle(t *testing.T) {
	tests := []struct {
		name  string
		probe func(b *Breaker)
		want  State
	}{
		{
			name:  "closes after successes",
			probe: func(b *Breaker) { b.Success(); b.Success() },
			want:  Closed,
		},
		{
			name:  "reopens on failure",
			probe: func(b *Breaker) { b.Failure() },
			want:  Open,
		},
		{
			name:  "stays half-open below success target",
			probe: func(b *Breaker) { b.Success() },
			want:  HalfOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 2})
			b.Failure()
			time.Sleep(5 * time.Millisecond)

			if err := b.Allow(); err != nil {
				t.Fatalf("Allow() after reset timeout = %v, want nil", err)
			}
			if b.State() != HalfOpen {
				t.Fatalf("state = %v, want HalfOpen", b.State())
			}

			tt.probe(b)
			if b.State() != tt.want {
				t.Errorf("state = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestBreakerReset(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	b.Failure()
	if b.State() != Open {
		t.Fatal("expected open state")
	}

	b.Reset()
	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerExecute(t *testing.T) {
	b := New(Config{Threshold: 2, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute success = %v, want nil", err)
	}

	testErr := errors.New("sidecar down")
	for i := 0; i < 2; i++ {
		if err := b.Execute(func() error { return testErr }); err != testErr {
			t.Errorf("Execute failure = %v, want %v", err, testErr)
		}
	}
	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}

	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != ErrOpen {
		t.Errorf("Execute while open = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn should not run while the breaker is open")
	}
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	badInput := apperrors.New(apperrors.CodeIncompatibleInput, "empty image")
	if err := b.Execute(func() error { return badInput }); err != badInput {
		t.Fatalf("Execute = %v, want %v", err, badInput)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want Closed after a caller error", b.State())
	}
}

func TestBreakerExecuteWithResult(t *testing.T) {
	b := New(DefaultConfig())

	result, err := ExecuteWithResult(b, func() (string, error) {
		return "text", nil
	})
	if err != nil || result != "text" {
		t.Errorf("ExecuteWithResult = (%q, %v), want (text, nil)", result, err)
	}
}

func TestBreakerHook(t *testing.T) {
	var transitions []struct{ from, to State }
	b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 1})
	b.WithHook(func(from, to State) {
		transitions = append(transitions, struct{ from, to State }{from, to})
	})

	b.Failure()
	time.Sleep(5 * time.Millisecond)
	_ = b.Allow()
	b.Success()

	want := []struct{ from, to State }{{Closed, Open}, {Open, HalfOpen}, {HalfOpen, Closed}}
	if len(transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(transitions), len(want))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := New(Config{Threshold: 100, ResetTimeout: time.Second, HalfOpenSuccesses: 10})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}()
	}
	wg.Wait()

	if s := b.State(); s.String() == "unknown" {
		t.Errorf("invalid state %d", s)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(9), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Name != "default" {
		t.Errorf("Name = %q, want default", cfg.Name)
	}
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", cfg.Threshold, DefaultThreshold)
	}
	if cfg.ResetTimeout != DefaultResetTimeout {
		t.Errorf("ResetTimeout = %v, want %v", cfg.ResetTimeout, DefaultResetTimeout)
	}
	if cfg.HalfOpenSuccesses != DefaultHalfOpenSuccesses {
		t.Errorf("HalfOpenSuccesses = %d, want %d", cfg.HalfOpenSuccesses, DefaultHalfOpenSuccesses)
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	b := New(Config{Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}
