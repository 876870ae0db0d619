package recorder

import (
	"errors"
	"time"
)

// Mode selects how a stream is captured.
type Mode string

const (
	// ModeHLS polls a live playlist and saves each new segment.
	ModeHLS Mode = "hls"
	// ModeRaw keeps one GET open and appends the body to a single file.
	ModeRaw Mode = "raw"
)

// Defaults applied by DefaultConfig and Config.withDefaults.
const (
	DefaultRetryCount   = 3
	DefaultMaxHashes    = 500
	DefaultMaxWorkers   = 8
	DefaultGateInterval = time.Second
)

var (
	// ErrMissingName is returned when a recorder is configured without a stream name.
	ErrMissingName = errors.New("stream name is required")

	// ErrMissingURL is returned when a recorder is configured without a URL.
	ErrMissingURL = errors.New("stream url is required")
)

// Config is the immutable configuration of one recording.
type Config struct {
	Name      string
	URL       string
	OutputDir string
	Mode      Mode

	// Start and End bound the recording window. A zero Start means
	// "immediately" and a zero End means "never stop".
	Start time.Time
	End   time.Time

	// RetryCount is the number of extra attempts after a failed fetch.
	RetryCount int
	// RetryBackoff is the base delay between attempts. Zero retries immediately.
	RetryBackoff time.Duration
	// Concurrent dispatches segment downloads without waiting for them.
	Concurrent bool
	// MaxWorkers caps in-flight segment downloads when Concurrent is set.
	MaxWorkers int
	// SaveEmpty keeps zero-length segments instead of discarding them.
	SaveEmpty bool
	// MaxHashes bounds the dedup cache; it is cleared once exceeded.
	MaxHashes int
	// GateInterval is the re-check step while waiting for Start.
	GateInterval time.Duration
	// WriteIndex keeps an index.m3u8 of saved segments in the session.
	WriteIndex bool
}

// DefaultConfig returns a Config for name and url with every tunable at its
// default: record now and forever, 3 retries, concurrent dispatch, empty
// segments dropped, 500 remembered fingerprints.
func DefaultConfig(name, url string) Config {
	return Config{
		Name:         name,
		URL:          url,
		OutputDir:    ".",
		Mode:         ModeHLS,
		RetryCount:   DefaultRetryCount,
		Concurrent:   true,
		MaxWorkers:   DefaultMaxWorkers,
		MaxHashes:    DefaultMaxHashes,
		GateInterval: DefaultGateInterval,
	}
}

// Validate reports configuration that cannot be recorded.
func (c Config) Validate() error {
	if c.Name == "" {
		return ErrMissingName
	}
	if c.URL == "" {
		return ErrMissingURL
	}
	return nil
}

// Window returns the recording window described by Start and End.
func (c Config) Window() TimeWindow {
	return TimeWindow{Start: c.Start, End: c.End}
}

func (c Config) withDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Mode == "" {
		c.Mode = ModeHLS
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.MaxHashes <= 0 {
		c.MaxHashes = DefaultMaxHashes
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.GateInterval <= 0 {
		c.GateInterval = DefaultGateInterval
	}
	return c
}

// State is the position of a recorder in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateGated     State = "gated"
	StatePolling   State = "polling"
	StatePacing    State = "pacing"
	StateStreaming State = "streaming"
	StateStopped   State = "stopped"
)

// Status is a point-in-time view of a recording, served by the status API.
type Status struct {
	Name       string     `json:"name"`
	SessionID  string     `json:"session_id,omitempty"`
	Mode       Mode       `json:"mode"`
	State      State      `json:"state"`
	Dir        string     `json:"dir,omitempty"`
	Polls      int64      `json:"polls"`
	Saved      int64      `json:"saved"`
	Duplicates int64      `json:"duplicates"`
	Empty      int64      `json:"empty"`
	Failed     int64      `json:"failed"`
	Bytes      int64      `json:"bytes"`
	BytesHuman string     `json:"bytes_human"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
}
