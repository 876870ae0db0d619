package recorder

import (
	"context"
	"time"
)

// TimeWindow is the [Start, End) wall-clock interval in which recording is
// allowed. Zero bounds are open.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// IsOpen reports whether now has not yet passed End.
func (w TimeWindow) IsOpen(now time.Time) bool {
	return w.End.IsZero() || !now.After(w.End)
}

// ShouldWait reports whether now is still before Start.
func (w TimeWindow) ShouldWait(now time.Time) bool {
	return now.Before(w.Start)
}

// Clock abstracts wall-clock time so pacing and gating can be driven by tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitForWindow blocks while the window has not started. It returns false if
// the window has already closed (including while waiting) or ctx is done,
// and true once recording may proceed.
func waitForWindow(ctx context.Context, clock Clock, w TimeWindow, step time.Duration, onWait func()) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		now := clock.Now()
		if !w.IsOpen(now) {
			return false
		}
		if !w.ShouldWait(now) {
			return true
		}
		if onWait != nil {
			onWait()
		}
		if err := clock.Sleep(ctx, step); err != nil {
			return false
		}
	}
}
