package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"iptv-recorder/internal/platform/logger"
	"iptv-recorder/internal/platform/metrics"
)

// pacingMargin is added to the target duration so the next poll does not
// race the origin's playlist refresh.
const pacingMargin = time.Second

// Option customises a Recorder or RawRecorder.
type Option func(*options)

type options struct {
	clock   Clock
	log     *slog.Logger
	metrics *metrics.Metrics
	store   SegmentStore
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger; records are tagged with the stream name.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics enables Prometheus metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithStore writes segments to s instead of a fresh session directory.
func WithStore(s SegmentStore) Option {
	return func(o *options) { o.store = s }
}

func buildOptions(name string, opts []Option) options {
	o := options{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	o.log = o.log.With(slog.String("stream", name))
	return o
}

// Recorder records an HLS live stream by polling its playlist until the
// recording window closes.
//
// Each poll fetches the playlist, hands every listed segment to a
// SegmentFetcher (on a bounded worker group when Concurrent is set, inline
// otherwise) and then sleeps until one second after the playlist's target
// duration has elapsed since the poll began. Downloads from one poll may
// still be running when the next begins; file names are unique per poll and
// index so completion order does not matter.
type Recorder struct {
	cfg     Config
	fetcher Fetcher
	opts    options
	track   *tracker
}

// New returns a Recorder for cfg that fetches through f.
func New(cfg Config, f Fetcher, opts ...Option) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Recorder{
		cfg:     cfg,
		fetcher: f,
		opts:    buildOptions(cfg.Name, opts),
		track:   newTracker(cfg.Name, ModeHLS),
	}, nil
}

// Name returns the stream name.
func (r *Recorder) Name() string {
	return r.cfg.Name
}

// Status returns the current recording status.
func (r *Recorder) Status() Status {
	return r.track.snapshot()
}

// Run records until the window closes or ctx is cancelled, then waits for
// in-flight segment downloads and returns the final status. Only session
// setup failures are returned as errors; fetch problems are logged and
// counted.
func (r *Recorder) Run(ctx context.Context) (Status, error) {
	clock := r.opts.clock
	window := r.cfg.Window()

	store, dir, err := r.openSession(clock.Now())
	if err != nil {
		r.track.stop(clock.Now())
		return r.Status(), err
	}
	r.track.begin(dir, clock.Now())
	log := r.opts.log.With(slog.String("session", r.Status().SessionID))
	log.Info("recording started",
		slog.String("url", r.cfg.URL),
		slog.String("dir", dir),
		slog.Bool("concurrent", r.cfg.Concurrent))

	cache := NewDedupCache(r.cfg.MaxHashes)
	sf := NewSegmentFetcher(r.cfg, r.fetcher, cache, store, clock, log, r.opts.metrics)
	var index *SessionIndex
	if r.cfg.WriteIndex {
		index = &SessionIndex{}
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.MaxWorkers)

	gate := func() { r.track.setState(StateGated) }
	for seq := 1; waitForWindow(ctx, clock, window, r.cfg.GateInterval, gate); seq++ {
		started := clock.Now()
		target := r.poll(ctx, seq, sf, &g, index, log)
		r.writeIndex(store, index, false, log)

		delay := PacingDelay(target, clock.Now().Sub(started))
		if delay <= 0 {
			continue
		}
		r.track.setState(StatePacing)
		if err := clock.Sleep(ctx, delay); err != nil {
			break
		}
	}

	_ = g.Wait()
	r.writeIndex(store, index, true, log)
	r.track.stop(clock.Now())

	st := r.Status()
	log.Info("recording stopped",
		slog.Int64("polls", st.Polls),
		slog.Int64("saved", st.Saved),
		slog.Int64("duplicates", st.Duplicates),
		slog.Int64("failed", st.Failed),
		slog.String("written", humanize.Bytes(uint64(st.Bytes))),
		slog.Bool("cancelled", ctx.Err() != nil))
	return st, nil
}

// poll performs one playlist fetch and dispatches its segments. It returns
// the playlist's target duration in seconds (0 if unknown).
func (r *Recorder) poll(ctx context.Context, seq int, sf *SegmentFetcher, g *errgroup.Group, index *SessionIndex, log *slog.Logger) float64 {
	r.track.setState(StatePolling)
	r.track.polls.Add(1)
	if r.opts.metrics != nil {
		r.opts.metrics.IncPolls(r.cfg.Name)
	}

	text, ok := sf.Fetch(ctx, r.cfg.URL)
	if !ok {
		log.Warn("playlist unavailable", slog.Int("poll", seq))
		return 0
	}
	pl := ParsePlaylist(string(text), r.cfg.URL)
	target := pl.TargetDuration()

	n := 0
	for uri := range pl.Segments {
		n++
		name := SegmentFileName(seq, n)
		if r.cfg.Concurrent {
			g.Go(func() error {
				r.save(ctx, sf, uri, name, target, index)
				return nil
			})
		} else {
			r.save(ctx, sf, uri, name, target, index)
		}
	}

	log.Debug("poll dispatched",
		slog.Int("poll", seq),
		slog.Int("segments", n),
		slog.Float64("target_duration", target))
	return target
}

func (r *Recorder) save(ctx context.Context, sf *SegmentFetcher, uri, name string, duration float64, index *SessionIndex) {
	res, n := sf.Save(ctx, uri, name)
	r.track.record(res, n)
	if res == Saved && index != nil {
		index.Add(name, duration)
	}
	if r.opts.metrics != nil {
		r.opts.metrics.IncSegments(r.cfg.Name, res.String())
		if n > 0 {
			r.opts.metrics.AddBytes(r.cfg.Name, n)
		}
	}
}

func (r *Recorder) writeIndex(store SegmentStore, index *SessionIndex, ended bool, log *slog.Logger) {
	if index == nil {
		return
	}
	data := BuildSessionPlaylist(index.Entries(), ended)
	if err := store.Write(IndexFileName, []byte(data)); err != nil {
		log.Error("index write failed", slog.String("error", err.Error()))
	}
}

func (r *Recorder) openSession(now time.Time) (SegmentStore, string, error) {
	if r.opts.store != nil {
		return r.opts.store, "", nil
	}
	ds, err := NewSession(r.cfg.OutputDir, r.cfg.Name, now)
	if err != nil {
		return nil, "", fmt.Errorf("recorder %s: %w", r.cfg.Name, err)
	}
	return ds, ds.Dir(), nil
}

// PacingDelay returns how long to sleep after a poll that took elapsed,
// given the playlist's target duration in seconds: target + 1s - elapsed,
// or 0 if that is not positive.
func PacingDelay(targetDuration float64, elapsed time.Duration) time.Duration {
	d := time.Duration(targetDuration*float64(time.Second)) + pacingMargin - elapsed
	if d <= 0 {
		return 0
	}
	return d
}
