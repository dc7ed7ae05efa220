package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stayscout/stayscout/pkg/fn"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 1, Burst: 2})
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst tokens should be available immediately")
	}
	if l.Allow() {
		t.Error("third call should be limited")
	}
}

func TestLimiterRefill(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 10, Burst: 1})
	base := time.Now()
	l.now = func() time.Time { return base }
	if !l.Allow() {
		t.Fatal("first token")
	}
	if l.Allow() {
		t.Fatal("bucket should be empty")
	}
	l.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	if !l.Allow() {
		t.Error("token should have refilled after 150ms at rate 10/s")
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	l := NewLimiter(LimiterOpts{Rate: 0.001, Burst: 1})
	l.Allow() // drain
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestBreakerTripsAndRecovers(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Minute, HalfOpenMax: 1})
	base := time.Now()
	b.now = func() time.Time { return base }

	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }

	ctx := context.Background()
	b.Call(ctx, fail)
	b.Call(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := b.Call(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker should reject, got %v", err)
	}

	b.now = func() time.Time { return base.Add(2 * time.Minute) }
	if err := b.Call(ctx, ok); err != nil {
		t.Fatalf("half-open probe should run, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after probe = %v, want closed", b.State())
	}
}

func TestBreakerStageRejectsWhenOpen(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Hour})
	stage := BreakerStage(b, func(_ context.Context, n int) fn.Result[int] {
		return fn.Errf[int]("always fails")
	})

	ctx := context.Background()
	stage(ctx, 1) // trips the breaker
	r := stage(ctx, 2)
	_, err := r.Unwrap()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}
