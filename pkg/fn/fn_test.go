package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultOkErr(t *testing.T) {
	ok := Ok(42)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok result misreports state")
	}
	if v, _ := ok.Unwrap(); v != 42 {
		t.Errorf("unwrap = %d", v)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Error("Err result reports ok")
	}
	if e.UnwrapOr(7) != 7 {
		t.Error("UnwrapOr did not fall back")
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Error("nil error should be ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Error("non-nil error should be err")
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, n int) Result[int] { return Err[int](boom) }
	called := false
	second := func(_ context.Context, n int) Result[string] {
		called = true
		return Ok("never")
	}

	r := Then(first, second)(context.Background(), 1)
	if called {
		t.Error("second stage ran after first failed")
	}
	_, err := r.Unwrap()
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestTapStagePassesThrough(t *testing.T) {
	var seen int
	tap := TapStage(func(_ context.Context, n int) { seen = n })
	r := tap(context.Background(), 9)
	if v, _ := r.Unwrap(); v != 9 || seen != 9 {
		t.Errorf("tap: v=%d seen=%d", v, seen)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Errf[int]("attempt %d", attempts)
		}
		return Ok(attempts)
	})
	if v, _ := r.Unwrap(); v != 3 {
		t.Errorf("v = %d, attempts = %d", v, attempts)
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Errf[int]("always fails")
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
