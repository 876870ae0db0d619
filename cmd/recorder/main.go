package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iptv-recorder/internal/platform/config"
	"iptv-recorder/internal/platform/httpclient"
	"iptv-recorder/internal/platform/logger"
	"iptv-recorder/internal/platform/metrics"
	"iptv-recorder/internal/recorder"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	streams, err := loadStreams()
	if err != nil {
		log.Error("load streams", "error", err)
		os.Exit(1)
	}

	client := httpclient.New(httpclient.Options{
		Timeout:           config.GetEnvDuration("HTTP_TIMEOUT", httpclient.DefaultTimeout),
		Headers:           map[string]string{"User-Agent": config.GetEnv("USER_AGENT", "iptv-recorder")},
		RequestsPerSecond: config.GetEnvFloat("REQUESTS_PER_SECOND", 0),
		Burst:             config.GetEnvInt("REQUESTS_BURST", 4),
	})
	met := metrics.New()
	registry := recorder.NewRegistry()

	for _, s := range streams {
		r, err := newRunner(s, client, log, met)
		if err != nil {
			log.Error("invalid stream", "stream", s.Name, "error", err)
			os.Exit(1)
		}
		if err := registry.Add(r); err != nil {
			log.Error("invalid stream", "stream", s.Name, "error", err)
			os.Exit(1)
		}
	}

	h := recorder.NewHandler(registry, log)
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRecordings(registry.ActiveCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("recorder starting",
		"port", port,
		"streams", len(streams),
		"log_level", logLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := registry.RunAll(ctx)
	if runErr != nil {
		log.Error("recording failed", "error", runErr)
	}
	if ctx.Err() != nil {
		log.Info("shutdown signal received, recordings stopped")
	} else {
		log.Info("all recording windows closed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

// loadStreams reads STREAMS_FILE when set, otherwise a single stream from
// the STREAM_NAME / PLAYLIST_URL family of variables.
func loadStreams() ([]config.Stream, error) {
	if path := config.GetEnv("STREAMS_FILE", ""); path != "" {
		return config.LoadStreams(path)
	}
	s := config.StreamFromEnv()
	if s.URL == "" {
		return nil, errors.New("set STREAMS_FILE or PLAYLIST_URL")
	}
	return []config.Stream{s}, nil
}

func newRunner(s config.Stream, client *httpclient.Client, log *slog.Logger, met *metrics.Metrics) (recorder.Runner, error) {
	cfg := recorder.DefaultConfig(s.Name, s.URL)
	if s.OutputDir != "" {
		cfg.OutputDir = s.OutputDir
	}
	cfg.Start = s.Start
	cfg.End = s.End
	cfg.SaveEmpty = s.SaveEmpty
	cfg.WriteIndex = s.WriteIndex
	if s.RetryCount != nil {
		cfg.RetryCount = *s.RetryCount
	}
	if s.Concurrent != nil {
		cfg.Concurrent = *s.Concurrent
	}
	if s.MaxHashes > 0 {
		cfg.MaxHashes = s.MaxHashes
	}
	if s.MaxWorkers > 0 {
		cfg.MaxWorkers = s.MaxWorkers
	}
	cfg.RetryBackoff = config.GetEnvDuration("RETRY_BACKOFF", 0)

	opts := []recorder.Option{recorder.WithLogger(log), recorder.WithMetrics(met)}
	switch recorder.Mode(s.Mode) {
	case recorder.ModeRaw:
		browser := client.WithHeaders(map[string]string{"User-Agent": httpclient.BrowserUserAgent})
		return recorder.NewRaw(cfg, browser, opts...)
	case recorder.ModeHLS, "":
		return recorder.New(cfg, client, opts...)
	default:
		return nil, fmt.Errorf("unknown record mode %q", s.Mode)
	}
}
