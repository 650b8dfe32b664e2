package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/mediadesk/internal/api"
	"github.com/nikhilbhutani/mediadesk/internal/api/handlers"
	"github.com/nikhilbhutani/mediadesk/internal/audit"
	"github.com/nikhilbhutani/mediadesk/internal/cache"
	"github.com/nikhilbhutani/mediadesk/internal/config"
	"github.com/nikhilbhutani/mediadesk/internal/database"
	"github.com/nikhilbhutani/mediadesk/internal/llm"
	"github.com/nikhilbhutani/mediadesk/internal/metrics"
	"github.com/nikhilbhutani/mediadesk/internal/multimodal/stt"
	"github.com/nikhilbhutani/mediadesk/internal/ocr"
	"github.com/nikhilbhutani/mediadesk/internal/scratch"
	"github.com/nikhilbhutani/mediadesk/internal/translate"
)

func serveCmd() *cobra.Command {
	var (
		host       string
		port       int
		scratchDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Configuration comes from the environment (and a .env file if present);
flags override the matching variables.

Examples:
  mediadesk serve
  mediadesk serve --port=8080 --scratch-dir=/var/tmp/mediadesk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if scratchDir != "" {
				cfg.Upload.ScratchDir = scratchDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from SERVER_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from SERVER_PORT)")
	cmd.Flags().StringVar(&scratchDir, "scratch-dir", "", "Directory for in-flight uploads (default from SCRATCH_DIR)")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)

	store, err := scratch.New(cfg.Upload.ScratchDir, scratch.WithCleanupCounter(m.CleanupFailures))
	if err != nil {
		return err
	}
	if n, err := store.Sweep(cfg.Upload.MaxAge); err != nil {
		slog.Warn("scratch sweep failed", "dir", store.Dir(), "error", err)
	} else if n > 0 {
		slog.Info("removed stale uploads", "dir", store.Dir(), "count", n)
	}

	var caps handlers.Capabilities

	transcriber, err := stt.New(cfg.STT)
	if err != nil {
		slog.Warn("speech-to-text unavailable", "error", err)
		transcriber = unavailableSTT{err: err}
	} else {
		caps.Whisper = true
	}

	tess := ocr.NewTesseractService(cfg.OCR.TesseractPath, cfg.OCR.Languages)
	caps.OCR = tess.IsAvailable()
	if !caps.OCR {
		slog.Warn("tesseract not found, OCR requests will fail")
	}

	gw := llm.NewGateway(cfg.Translate)
	caps.Translator = gw.Ready()
	if !caps.Translator {
		slog.Warn("translation provider not configured", "provider", cfg.Translate.Provider)
	}
	var translator translate.Translator = translate.NewLLMTranslator(gw, cfg.Translate.Model)

	backends := map[string]handlers.Pinger{}

	// Redis translation cache (optional)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		c := cache.NewCache(rdb)
		if err := c.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, running without translation cache", "error", err)
		} else {
			translator = translate.NewCachedTranslator(translator, c, cfg.Redis.CacheTTL)
			backends["redis"] = c
		}
	}

	// Processing log (optional)
	var recorder handlers.Recorder
	pool, err := database.NewPool(ctx, cfg.Database)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
	case err != nil:
		slog.Warn("database unavailable, running without processing log", "error", err)
	default:
		defer pool.Close()
		if err := database.RunMigrations(ctx, pool); err != nil {
			slog.Warn("migrations failed, running without processing log", "error", err)
		} else {
			recorder = audit.NewService(pool)
			backends["database"] = pool
		}
	}

	router := api.NewRouter(cfg, api.Deps{
		Processing: handlers.ProcessingDeps{
			Scratch:    store,
			STT:        transcriber,
			OCR:        tess,
			Translator: translator,
			Recorder:   recorder,
		},
		Caps:     caps,
		Backends: backends,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
	})

	// Adapter calls carry no deadline of their own, so writes are unbounded.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(ctx),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "scratch_dir", store.Dir(),
			"whisper", caps.Whisper, "ocr", caps.OCR, "translator", caps.Translator)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// unavailableSTT stands in when no speech-to-text backend could be built so
// audio requests fail with the configuration error instead of a nil panic.
type unavailableSTT struct{ err error }

func (u unavailableSTT) Name() string { return "unavailable" }

func (u unavailableSTT) Transcribe(context.Context, stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	return nil, fmt.Errorf("speech-to-text not configured: %w", u.err)
}
