package recorder

import (
	"context"
	"testing"
	"time"
)

func TestTimeWindow(t *testing.T) {
	w := TimeWindow{Start: t0, End: t0.Add(time.Hour)}
	tests := []struct {
		name     string
		now      time.Time
		wantOpen bool
		wantWait bool
	}{
		{"before start", t0.Add(-time.Second), true, true},
		{"at start", t0, true, false},
		{"inside", t0.Add(time.Minute), true, false},
		{"at end", t0.Add(time.Hour), true, false},
		{"after end", t0.Add(time.Hour + time.Nanosecond), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.IsOpen(tt.now); got != tt.wantOpen {
				t.Errorf("IsOpen = %v, want %v", got, tt.wantOpen)
			}
			if got := w.ShouldWait(tt.now); got != tt.wantWait {
				t.Errorf("ShouldWait = %v, want %v", got, tt.wantWait)
			}
		})
	}
}

func TestTimeWindow_unbounded(t *testing.T) {
	var w TimeWindow
	far := time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)
	if !w.IsOpen(far) || w.ShouldWait(far) {
		t.Error("zero window should be open immediately and forever")
	}
}

func TestSystemClock_Sleep_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SystemClock.Sleep(ctx, time.Minute); err == nil {
		t.Error("expected ctx error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep should return promptly")
	}
}
