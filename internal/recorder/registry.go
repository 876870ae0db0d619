package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runner is a recording that can be started and observed. Recorder and
// RawRecorder implement it.
type Runner interface {
	Name() string
	Status() Status
	Run(ctx context.Context) (Status, error)
}

// ErrDuplicateName is returned when two recordings share a stream name.
var ErrDuplicateName = errors.New("recording with this name already registered")

// Registry is the concurrency-safe set of recordings run by the process.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Add registers r. Names must be unique since they key the status API and
// the output directory.
func (g *Registry) Add(r Runner) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.runners[r.Name()]; exists {
		return fmt.Errorf("%s: %w", r.Name(), ErrDuplicateName)
	}
	g.runners[r.Name()] = r
	g.order = append(g.order, r.Name())
	return nil
}

// Get returns the recording registered under name.
func (g *Registry) Get(name string) (Runner, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.runners[name]
	return r, ok
}

// Statuses returns the status of every recording in registration order.
func (g *Registry) Statuses() []Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Status, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.runners[name].Status())
	}
	return out
}

// ActiveCount returns the number of recordings that have not stopped.
// Used for metrics.
func (g *Registry) ActiveCount() int {
	n := 0
	for _, st := range g.Statuses() {
		if st.State != StateStopped {
			n++
		}
	}
	return n
}

// RunAll runs every registered recording concurrently and returns once all
// have stopped. A setup failure in one recording does not stop the others;
// the first such error is returned.
func (g *Registry) RunAll(ctx context.Context) error {
	g.mu.RLock()
	runners := make([]Runner, 0, len(g.order))
	for _, name := range g.order {
		runners = append(runners, g.runners[name])
	}
	g.mu.RUnlock()

	var eg errgroup.Group
	for _, r := range runners {
		eg.Go(func() error {
			_, err := r.Run(ctx)
			return err
		})
	}
	return eg.Wait()
}
