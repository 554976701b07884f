package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
	goredis "github.com/redis/go-redis/v9"

	"github.com/agalitsyn/tareas/internal/app"
	"github.com/agalitsyn/tareas/internal/httpapi"
	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/metrics"
	"github.com/agalitsyn/tareas/internal/storage/redis"
	"github.com/agalitsyn/tareas/internal/storage/sqlite"
	"github.com/agalitsyn/tareas/internal/tasks"
	"github.com/agalitsyn/tareas/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ParseFlags()
	logger := setupLogger(cfg)

	if cfg.Debug {
		logger.Logf("[DEBUG] running with config")
		fmt.Fprintln(os.Stdout, cfg.String())
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Logf("[ERROR] %v", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(cfg Config) lgr.L {
	opts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	switch cfg.Log.Level {
	case "trace":
		opts = append(opts, lgr.Trace, lgr.CallerFile, lgr.CallerFunc)
	case "debug":
		opts = append(opts, lgr.Debug)
	}
	lgr.Setup(opts...)
	return lgr.New(opts...)
}

func run(ctx context.Context, cfg Config, logger lgr.L) error {
	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer db.Close()

	repo := sqlite.NewTaskStorage(db)
	if cfg.DB.Seed {
		if err := sqlite.Seed(ctx, repo, time.Now(), logger); err != nil {
			return fmt.Errorf("could not seed database: %w", err)
		}
	}

	var (
		source      listing.Source = repo
		invalidator tasks.Invalidator
		redisCheck  httpapi.HealthCheck
	)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		cache := redis.NewSnapshotCache(client, repo, cfg.Redis.TTL, logger)
		if err := cache.Ping(ctx); err != nil {
			logger.Logf("[WARN] redis at %s is unavailable, listings will read the database: %v", cfg.Redis.Addr, err)
		}
		source, invalidator, redisCheck = cache, cache, cache.Ping
		logger.Logf("[INFO] caching listings in redis at %s for %s", cfg.Redis.Addr, cfg.Redis.TTL)
	}

	m := metrics.New()
	lister := listing.NewLister(source, logger, m)

	if cfg.List.Flow != "" {
		flow, _ := listing.FlowByName(cfg.List.Flow)
		printPage(os.Stdout, flow, lister.List(ctx, flow, cfg.listQuery()))
		return nil
	}

	svc := tasks.NewService(repo, invalidator, logger)
	api := httpapi.NewServer(lister, svc, logger).
		WithMetrics(m.Handler()).
		WithHealthCheck("database", db.PingContext)
	if redisCheck != nil {
		api.WithHealthCheck("redis", redisCheck)
	}

	if token := cfg.Token.Unmask(); token != "" {
		bot, err := app.NewBot(app.BotConfig{UpdateTimeout: 60}, token, logger, lister)
		if err != nil {
			return fmt.Errorf("could not init bot: %w", err)
		}
		bot.SetDebug(cfg.Log.Level == "trace")
		logger.Logf("[INFO] authorized on account %s", bot.GetSelf().UserName)
		go bot.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logf("[INFO] listening on %s, version %s", cfg.HTTP.Addr, version.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Logf("[DEBUG] shutting down: %s", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down http server: %w", err)
	}
	return nil
}
