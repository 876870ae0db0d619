package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// Streamer opens a long-lived GET and returns its body. *httpclient.Client
// implements it.
type Streamer interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

const rawChunkSize = 32 * 1024

// RawRecorder records a plain (non-HLS) stream by appending one response
// body to <session>/<name>.ts until the window closes, the body ends or ctx
// is cancelled. The window is checked between chunks.
type RawRecorder struct {
	cfg      Config
	streamer Streamer
	opts     options
	track    *tracker
}

// NewRaw returns a RawRecorder for cfg that opens the stream through s.
func NewRaw(cfg Config, s Streamer, opts ...Option) (*RawRecorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	cfg.Mode = ModeRaw
	return &RawRecorder{
		cfg:      cfg,
		streamer: s,
		opts:     buildOptions(cfg.Name, opts),
		track:    newTracker(cfg.Name, ModeRaw),
	}, nil
}

// Name returns the stream name.
func (r *RawRecorder) Name() string {
	return r.cfg.Name
}

// Status returns the current recording status.
func (r *RawRecorder) Status() Status {
	return r.track.snapshot()
}

// Run records the stream. Session setup and output file errors are
// returned; a stream that cannot be opened after all retries is logged and
// ends the recording without error.
func (r *RawRecorder) Run(ctx context.Context) (Status, error) {
	err := r.run(ctx)
	r.track.stop(r.opts.clock.Now())
	return r.Status(), err
}

func (r *RawRecorder) run(ctx context.Context) error {
	clock := r.opts.clock
	window := r.cfg.Window()

	gate := func() { r.track.setState(StateGated) }
	if !waitForWindow(ctx, clock, window, r.cfg.GateInterval, gate) {
		return nil
	}

	session, err := NewSession(r.cfg.OutputDir, r.cfg.Name, clock.Now())
	if err != nil {
		return fmt.Errorf("recorder %s: %w", r.cfg.Name, err)
	}
	r.track.begin(session.Dir(), clock.Now())
	log := r.opts.log.With(slog.String("session", r.Status().SessionID))

	body, err := r.open(ctx, log)
	if err != nil {
		r.track.failed.Add(1)
		log.Warn("stream unavailable", slog.String("url", r.cfg.URL), slog.String("error", err.Error()))
		return nil
	}
	defer body.Close()

	out, err := os.Create(filepath.Join(session.Dir(), r.cfg.Name+".ts"))
	if err != nil {
		return fmt.Errorf("recorder %s: create output: %w", r.cfg.Name, err)
	}
	defer out.Close()

	r.track.setState(StateStreaming)
	log.Info("raw recording started", slog.String("url", r.cfg.URL), slog.String("file", out.Name()))

	buf := make([]byte, rawChunkSize)
	for window.IsOpen(clock.Now()) {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("recorder %s: write: %w", r.cfg.Name, werr)
			}
			r.track.bytes.Add(int64(n))
			if r.opts.metrics != nil {
				r.opts.metrics.AddBytes(r.cfg.Name, n)
			}
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && ctx.Err() == nil {
				log.Warn("stream read failed", slog.String("error", rerr.Error()))
			}
			break
		}
	}

	log.Info("raw recording stopped", slog.String("written", humanize.Bytes(uint64(r.track.bytes.Load()))))
	return nil
}

func (r *RawRecorder) open(ctx context.Context, log *slog.Logger) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.RetryCount; attempt++ {
		body, err := r.streamer.Open(ctx, r.cfg.URL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if r.opts.metrics != nil {
			r.opts.metrics.IncFetchErrors(r.cfg.Name)
		}
		log.Debug("stream open failed", slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
	}
	return nil, lastErr
}
