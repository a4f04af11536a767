package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/mathtermind/internal/api"
	"github.com/vytor/mathtermind/internal/cache"
	"github.com/vytor/mathtermind/internal/catalog"
	"github.com/vytor/mathtermind/internal/config"
	"github.com/vytor/mathtermind/internal/db"
	"github.com/vytor/mathtermind/internal/logger"
	"github.com/vytor/mathtermind/internal/outbox"
	"github.com/vytor/mathtermind/internal/repository/sqlite"
	"github.com/vytor/mathtermind/internal/services"
)

func main() {
	cfg := config.Load()

	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(cfg.LogFile == ""),
	}
	var logFile io.WriteCloser
	if cfg.LogFile != "" {
		logFile = logger.NewFileWriter(logger.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		})
		opts = append(opts, logger.WithOutput(io.MultiWriter(os.Stdout, logFile)))
	}
	log := logger.New(opts...)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Mathtermind Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("cache_backend=%s", cfg.CacheBackend)
	log.Debug("cache_ttl=%s", cfg.CacheTTL)
	log.Debug("outbox_max_attempts=%d", cfg.OutboxMaxAttempts)
	log.Debug("outbox_sweep_interval=%s", cfg.OutboxSweepInterval)

	ctx, cancel := context.WithCancel(logger.NewContext(context.Background(), log))
	defer cancel()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	var backend cache.Cache
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.CacheTTL)
		if err != nil {
			log.Error("failed to connect to redis: %v", err)
			os.Exit(1)
		}
		defer r.Close()
		backend = r
	default:
		backend = cache.NewMemory(cache.WithMaxEntries(cfg.CacheMaxEntries), cache.WithDefaultTTL(cfg.CacheTTL))
	}
	log.Info("cache ready: backend=%s", cfg.CacheBackend)
	loader := cache.NewLoader(backend)

	store := sqlite.NewStore(database.DB)
	rewardsService := services.NewRewardsService(store, loader)
	achievementService := services.NewAchievementService(store, loader)
	dispatcher := outbox.NewDispatcher(store, cfg.OutboxMaxAttempts,
		services.NewRewardsConsumer(rewardsService),
		services.NewAchievementsConsumer(achievementService, store),
	)
	progressService := services.NewProgressService(store, loader, dispatcher)

	seed, err := catalog.Load(cfg.AchievementCatalog)
	if err != nil {
		log.Error("failed to load achievement catalog: %v", err)
		os.Exit(1)
	}
	for _, skipped := range seed.Skipped {
		log.Warn("skipping catalog entry %q: %v", skipped.Name, skipped.Reason)
	}
	if _, err := achievementService.SeedCatalog(ctx, seed.Achievements); err != nil {
		log.Error("failed to seed achievements: %v", err)
		os.Exit(1)
	}

	// events left over from a crash are delivered before serving
	if summary, err := dispatcher.Dispatch(ctx); err != nil {
		log.Warn("startup outbox dispatch failed: %v", err)
	} else if summary.Processed+summary.Failed > 0 {
		log.Info("startup outbox dispatch: processed=%d, failed=%d", summary.Processed, summary.Failed)
	}

	var sweeper *outbox.Sweeper
	if cfg.OutboxSweepInterval > 0 {
		sweeper = outbox.NewSweeper(dispatcher, cfg.OutboxSweepInterval)
		sweeper.Start(ctx)
	}

	srv := &api.Server{
		Progress:     progressService,
		Achievements: achievementService,
		Rewards:      rewardsService,
		Dispatcher:   dispatcher,
		DB:           database,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	if sweeper != nil {
		log.Debug("stopping outbox sweeper")
		sweeper.Stop()
	}
	cancel()

	log.Info("===========================================")
	log.Info("Mathtermind Server Stopped")
	log.Info("===========================================")
	if logFile != nil {
		_ = logFile.Close()
	}
}
