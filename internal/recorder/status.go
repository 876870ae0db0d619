package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// tracker accumulates the Status of one recorder. Counters are updated from
// download goroutines; the rest changes only on the driving goroutine.
type tracker struct {
	name string
	mode Mode

	polls      atomic.Int64
	saved      atomic.Int64
	duplicates atomic.Int64
	empty      atomic.Int64
	failed     atomic.Int64
	bytes      atomic.Int64

	mu        sync.Mutex
	state     State
	sessionID string
	dir       string
	startedAt time.Time
	stoppedAt time.Time
}

func newTracker(name string, mode Mode) *tracker {
	return &tracker{name: name, mode: mode, state: StateIdle}
}

func (t *tracker) begin(dir string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = uuid.NewString()
	t.dir = dir
	t.startedAt = now
	t.stoppedAt = time.Time{}
}

func (t *tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *tracker) stop(now time.Time) {
	t.mu.Lock()
	t.state = StateStopped
	t.stoppedAt = now
	t.mu.Unlock()
}

func (t *tracker) record(r SaveResult, n int) {
	switch r {
	case Saved:
		t.saved.Add(1)
		t.bytes.Add(int64(n))
	case Duplicate:
		t.duplicates.Add(1)
	case Empty:
		t.empty.Add(1)
	default:
		t.failed.Add(1)
	}
}

func (t *tracker) snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := Status{
		Name:       t.name,
		SessionID:  t.sessionID,
		Mode:       t.mode,
		State:      t.state,
		Dir:        t.dir,
		Polls:      t.polls.Load(),
		Saved:      t.saved.Load(),
		Duplicates: t.duplicates.Load(),
		Empty:      t.empty.Load(),
		Failed:     t.failed.Load(),
		Bytes:      t.bytes.Load(),
	}
	st.BytesHuman = humanize.Bytes(uint64(st.Bytes))
	if !t.startedAt.IsZero() {
		started := t.startedAt
		st.StartedAt = &started
	}
	if !t.stoppedAt.IsZero() {
		stopped := t.stoppedAt
		st.StoppedAt = &stopped
	}
	return st
}
