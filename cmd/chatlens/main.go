// Package main contains the entrypoint for the ChatLens service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/lexical"
	"github.com/chatlens/chatlens/internal/logger"
	"github.com/chatlens/chatlens/internal/pipeline"
	"github.com/chatlens/chatlens/internal/progress"
	"github.com/chatlens/chatlens/internal/runner"
	"github.com/chatlens/chatlens/internal/scheduler"
	"github.com/chatlens/chatlens/internal/server"
	"github.com/chatlens/chatlens/internal/wordcloud"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, pipeline, workers, HTTP server, scheduler), handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	loc := time.Local
	if cfg.Analysis.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Analysis.Timezone); err != nil {
			log.Error("Failed to load timezone", "timezone", cfg.Analysis.Timezone, "error", err)
			return 1
		}
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	renderer, err := wordcloud.New()
	if err != nil {
		log.Error("Failed to initialize word cloud renderer", "error", err)
		return 1
	}

	cache := progress.NewCache(cfg.Analysis.ProgressTTL)
	analyzer := pipeline.New(log, cache, lexical.NewSuffixMorph(), renderer)
	workers := runner.New(log, store, analyzer, cache, loc, cfg.Analysis.Workers, cfg.Analysis.QueueSize)
	srv := server.New(log, cfg.Server, store, workers, cache, cfg.Analysis.Language)

	sched, err := scheduler.New(log, map[string]scheduler.Task{
		"progress_purge": {
			Schedule: cfg.Scheduler.ProgressPurge,
			Run: func(context.Context) error {
				removed := cache.Purge()
				log.Debug("Purged expired progress tokens", "removed", removed)
				return nil
			},
		},
		"sql_maintenance": {
			Schedule: cfg.Scheduler.SQLMaintenance,
			Run: func(taskCtx context.Context) error {
				return store.RunSQLMaintenance(taskCtx)
			},
		},
	})
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	if err := sched.Start(); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		return 1
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error("Failed to stop scheduler", "error", err)
		}
	}()

	log.Info("Starting ChatLens...")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return workers.Run(groupCtx) })
	group.Go(func() error { return srv.Run(groupCtx) })

	runErr := group.Wait()
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
