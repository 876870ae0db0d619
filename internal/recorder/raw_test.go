package recorder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"iptv-recorder/internal/platform/httpclient"
)

func TestRawRecorder_Run_untilEOF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != httpclient.BrowserUserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("transport-stream-bytes"))
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := DefaultConfig("radio", srv.URL+"/udp/stream")
	cfg.OutputDir = root
	client := httpclient.New(httpclient.Options{}).WithHeaders(map[string]string{"User-Agent": httpclient.BrowserUserAgent})

	rec, err := NewRaw(cfg, client, WithClock(newFakeClock(t0)))
	if err != nil {
		t.Fatal(err)
	}
	st, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "radio", t0.Format(SessionTimeFormat), "radio.ts"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "transport-stream-bytes" {
		t.Errorf("recorded %q", data)
	}
	if st.Mode != ModeRaw || st.State != StateStopped || st.Bytes != int64(len(data)) {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestRawRecorder_Run_stopsAtWindowEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write([]byte("chunk")); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer srv.Close()

	clock := newFakeClock(t0)
	clock.step = time.Second
	cfg := DefaultConfig("radio", srv.URL)
	cfg.OutputDir = t.TempDir()
	cfg.End = t0.Add(10 * time.Second)

	rec, _ := NewRaw(cfg, httpclient.New(httpclient.Options{}), WithClock(clock))

	done := make(chan Status, 1)
	go func() {
		st, _ := rec.Run(context.Background())
		done <- st
	}()

	select {
	case st := <-done:
		if st.Bytes == 0 {
			t.Error("expected some bytes before the window closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("raw recording did not stop at window end")
	}
}

type failingStreamer struct {
	attempts int
}

func (s *failingStreamer) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	s.attempts++
	return nil, errors.New("no route to host")
}

func TestRawRecorder_Run_openRetries(t *testing.T) {
	s := &failingStreamer{}
	cfg := DefaultConfig("radio", "http://example.com/stream")
	cfg.OutputDir = t.TempDir()

	rec, _ := NewRaw(cfg, s, WithClock(newFakeClock(t0)))
	st, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("unavailable stream is not a setup error: %v", err)
	}
	if s.attempts != cfg.RetryCount+1 {
		t.Errorf("attempts = %d, want %d", s.attempts, cfg.RetryCount+1)
	}
	if st.Failed != 1 {
		t.Errorf("failed = %d, want 1", st.Failed)
	}
	if _, err := os.Stat(filepath.Join(st.Dir, "radio.ts")); !os.IsNotExist(err) {
		t.Errorf("no output file expected for an unavailable stream, stat err = %v", err)
	}
}

func TestRawRecorder_Run_windowClosed(t *testing.T) {
	s := &failingStreamer{}
	cfg := DefaultConfig("radio", "http://example.com/stream")
	cfg.OutputDir = t.TempDir()
	cfg.End = t0.Add(-time.Second)

	rec, _ := NewRaw(cfg, s, WithClock(newFakeClock(t0)))
	st, _ := rec.Run(context.Background())
	if s.attempts != 0 {
		t.Errorf("closed window should not connect, attempts = %d", s.attempts)
	}
	if st.State != StateStopped {
		t.Errorf("state = %s, want stopped", st.State)
	}
}
