package recorder

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"iptv-recorder/internal/platform/metrics"
)

// Fetcher is the HTTP capability recorders depend on. Get returns the whole
// body of a successful response; any transport failure or non-2xx status is
// an error. *httpclient.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// SaveResult is the outcome of SegmentFetcher.Save.
type SaveResult int

const (
	Saved SaveResult = iota
	Duplicate
	Empty
	Failed
)

func (r SaveResult) String() string {
	switch r {
	case Saved:
		return metrics.ResultSaved
	case Duplicate:
		return metrics.ResultDuplicate
	case Empty:
		return metrics.ResultEmpty
	default:
		return metrics.ResultFailed
	}
}

// SegmentFetcher downloads URLs with bounded retries and writes each
// distinct segment to a SegmentStore once.
type SegmentFetcher struct {
	fetcher   Fetcher
	cache     *DedupCache
	store     SegmentStore
	retries   int
	backoff   time.Duration
	saveEmpty bool
	clock     Clock
	log       *slog.Logger
	metrics   *metrics.Metrics
	stream    string
}

// NewSegmentFetcher returns a SegmentFetcher configured from cfg.
// m may be nil to disable metric recording.
func NewSegmentFetcher(cfg Config, f Fetcher, cache *DedupCache, store SegmentStore, clock Clock, log *slog.Logger, m *metrics.Metrics) *SegmentFetcher {
	if clock == nil {
		clock = SystemClock
	}
	retries := cfg.RetryCount
	if retries < 0 {
		retries = 0
	}
	return &SegmentFetcher{
		fetcher:   f,
		cache:     cache,
		store:     store,
		retries:   retries,
		backoff:   cfg.RetryBackoff,
		saveEmpty: cfg.SaveEmpty,
		clock:     clock,
		log:       log,
		metrics:   m,
		stream:    cfg.Name,
	}
}

// Fetch GETs url, retrying failed attempts up to the configured count.
// The second result is false once every attempt has failed or ctx is done.
func (f *SegmentFetcher) Fetch(ctx context.Context, url string) ([]byte, bool) {
	for attempt := 0; ; attempt++ {
		data, err := f.fetcher.Get(ctx, url)
		if err == nil {
			return data, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		if f.metrics != nil {
			f.metrics.IncFetchErrors(f.stream)
		}
		if attempt >= f.retries {
			f.log.Warn("fetch failed, giving up",
				slog.String("url", url),
				slog.Int("attempts", attempt+1),
				slog.String("error", err.Error()))
			return nil, false
		}
		f.log.Debug("fetch failed, retrying",
			slog.String("url", url),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
		if f.backoff > 0 {
			if err := f.clock.Sleep(ctx, retryDelay(f.backoff, attempt)); err != nil {
				return nil, false
			}
		}
	}
}

// Save fetches url and writes it to the store as name unless the content is
// empty (and empty segments are not kept) or was already saved in the
// current cache epoch. The second return value is the number of bytes written.
func (f *SegmentFetcher) Save(ctx context.Context, url, name string) (SaveResult, int) {
	data, ok := f.Fetch(ctx, url)
	if !ok {
		return Failed, 0
	}
	if len(data) == 0 && !f.saveEmpty {
		f.log.Debug("empty segment discarded", slog.String("url", url))
		return Empty, 0
	}

	fp := FingerprintOf(data)
	if f.cache.SeenOrRecord(fp) {
		f.log.Debug("duplicate segment skipped", slog.String("url", url))
		return Duplicate, 0
	}
	if err := f.store.Write(name, data); err != nil {
		f.cache.Forget(fp)
		f.log.Error("segment write failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return Failed, 0
	}
	f.log.Debug("segment saved",
		slog.String("file", name),
		slog.Int("size", len(data)))
	return Saved, len(data)
}

// retryDelay grows linearly with the attempt number and adds up to half a
// base step of jitter.
func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base * time.Duration(attempt+1)
	return d + time.Duration(rand.Int64N(int64(base)/2+1))
}
