package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/davekyte/docdock/internal/cache"
	"github.com/davekyte/docdock/internal/cachekey"
	"github.com/davekyte/docdock/internal/config"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/metrics"
	"github.com/davekyte/docdock/internal/reconciler"
	"github.com/davekyte/docdock/internal/repo"
	"github.com/davekyte/docdock/internal/resolver"
	"github.com/davekyte/docdock/internal/router"
	"github.com/davekyte/docdock/internal/service"
)

func main() {
	cfg := config.FromEnv()

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	logger := slog.New(slog.NewJSONHandler(out, nil))

	metrics.Register()

	disk, err := cache.NewDisk(cfg.CacheDir)
	if err != nil {
		logger.Error("init cache", "err", err)
		os.Exit(1)
	}
	cleaner := cache.NewCleaner(logger, disk.Dir(), cfg.CleanInterval, cfg.MaxFileAge, cfg.MaxCacheBytes)

	var store repo.ResolutionRepo
	switch cfg.Repo {
	case "postgres":
		pg, err := repo.NewPostgresRepoFromEnv()
		if err != nil {
			logger.Error("init postgres repo", "err", err)
			os.Exit(1)
		}
		defer func() {
			_ = pg.Close()
		}()
		store = pg
	default:
		store = repo.NewInMemoryResolutionRepo()
	}

	events := make(chan fetch.Event, 64)
	broker := fetch.NewBroker()
	rec := reconciler.New(logger, store, events)
	rec.Run()

	// No client timeout: cancellation is layered by the caller, never
	// imposed here.
	dispatcher := fetch.NewDispatcher(&http.Client{}, os.DirFS(cfg.AssetDir))
	newManager := func() *resolver.Manager {
		return resolver.New(logger, disk, cachekey.SHA256{}, dispatcher)
	}

	resolutionSvc := service.NewResolution(store,
		fetch.MultiReporter{fetch.NewChanReporter(events), broker}, newManager)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.New(logger, resolutionSvc, broker),
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting docdock API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received terminate, graceful shutdown", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	rec.Stop()
	cleaner.Stop()
}
