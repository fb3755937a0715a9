package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/mapsgpx/internal/api"
	"github.com/dgallion1/mapsgpx/internal/cache"
	"github.com/dgallion1/mapsgpx/internal/config"
	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/pipeline"
	"github.com/dgallion1/mapsgpx/internal/stats"
)

func main() {
	dotenvErr := config.LoadDotEnv()

	cfg := config.Load()
	log := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if dotenvErr != nil {
		log.Warn("ignoring unreadable .env file", "error", dotenvErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize result cache.
	resultCache, err := newCache(ctx, cfg, log)
	if err != nil {
		log.Error("cache init failed", "error", err)
		os.Exit(1)
	}
	defer resultCache.Close()

	svc := convert.NewService(resultCache, cfg.CacheTTL, stats.NewTracker(time.Hour), log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, svc, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(svc, orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting mapsgpx", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}

// newCache selects Valkey when VALKEY_ADDR is set, otherwise an in-process
// cache swept on a timer.
func newCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	if cfg.ValkeyAddr != "" {
		vc, err := cache.NewValkey(cfg.ValkeyAddr)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := vc.Ping(pingCtx); err != nil {
			vc.Close()
			return nil, err
		}
		log.Info("using valkey result cache", "addr", cfg.ValkeyAddr)
		return vc, nil
	}

	mem := cache.NewMemory()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mem.Cleanup()
			}
		}
	}()
	log.Info("using in-memory result cache")
	return mem, nil
}
