package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock only moves when Sleep is called, Advance is called, or, if step
// is set, by step on every Now.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	step    time.Duration
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

var errUnreachable = errors.New("connection refused")

// fakeFetcher serves canned bodies by URL; unknown URLs fail like a
// transport error.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     map[string]int
	failFirst map[string]int
	onGet     func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		calls:     make(map[string]int),
		failFirst: make(map[string]int),
	}
}

func (f *fakeFetcher) set(url, body string) {
	f.mu.Lock()
	f.responses[url] = []byte(body)
	f.mu.Unlock()
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	n := f.calls[url]
	body, ok := f.responses[url]
	fail := f.failFirst[url]
	hook := f.onGet
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if n <= fail || !ok {
		return nil, errUnreachable
	}
	return append([]byte(nil), body...), nil
}

func (f *fakeFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// failingStore rejects the first n writes.
type failingStore struct {
	*MemoryStore
	mu   sync.Mutex
	fail int
}

func (s *failingStore) Write(name string, data []byte) error {
	s.mu.Lock()
	if s.fail > 0 {
		s.fail--
		s.mu.Unlock()
		return errors.New("disk full")
	}
	s.mu.Unlock()
	return s.MemoryStore.Write(name, data)
}

// blockingFetcher serves the playlist straight away but holds every other
// Get until release is closed, tracking how many are held at once.
type blockingFetcher struct {
	*fakeFetcher
	playlist string
	release  chan struct{}

	mu       sync.Mutex
	inFlight int
	peak     int
	done     int
}

func newBlockingFetcher(f *fakeFetcher, playlist string) *blockingFetcher {
	return &blockingFetcher{fakeFetcher: f, playlist: playlist, release: make(chan struct{})}
}

func (b *blockingFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if url == b.playlist {
		return b.fakeFetcher.Get(ctx, url)
	}
	b.mu.Lock()
	b.inFlight++
	b.peak = max(b.peak, b.inFlight)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.done++
		b.mu.Unlock()
	}()
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.fakeFetcher.Get(ctx, url)
}

// counts returns the held, peak and finished segment Gets.
func (b *blockingFetcher) counts() (inFlight, peak, done int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight, b.peak, b.done
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
