package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/cache"
	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/db"
	httpx "github.com/geocoder89/habithub/internal/http"
	"github.com/geocoder89/habithub/internal/http/handlers"
	"github.com/geocoder89/habithub/internal/observability"
	"github.com/geocoder89/habithub/internal/redisclient"
	"github.com/geocoder89/habithub/internal/repo/memory"
	"github.com/geocoder89/habithub/internal/repo/postgres"
	"github.com/geocoder89/habithub/internal/security"
	"github.com/geocoder89/habithub/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	if err := auth.CheckSecret(cfg.JWTSecret); err != nil {
		if cfg.IsProd() {
			return err
		}
		log.Warn("weak JWT secret, do not use outside development", "min_length", auth.MinSecretLength)
	}

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.OTELEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTELEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.PingFunc{}

	var (
		users  services.UserDirectory
		habits services.HabitRepository
	)

	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		users = memory.NewUsersRepo()
		habits = memory.NewHabitsRepo()
	default:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool, db.MigrateUp); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}

		checks["postgres"] = pool.Ping
		users = postgres.NewUsersRepo(pool, prom)
		habits = postgres.NewHabitsRepo(pool, prom)
	}

	var listCache services.ListCache
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		checks["redis"] = rc.Ping
		listCache = cache.NewRedis(rc.Raw(), cfg.CacheTTL, log)
	} else {
		listCache = cache.New(cfg.CacheTTL)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	hasher := security.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)

	authSvc := services.NewAuthService(users, hasher, tokens, log).WithMetrics(prom)
	habitSvc := services.NewHabitService(habits, listCache, log).WithMetrics(prom)

	seedCtx, cancelSeed := config.WithTimeout(ctx, 5*time.Second)
	err = db.EnsureSeedUser(seedCtx, authSvc, cfg, log)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	var shuttingDown atomic.Bool

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Auth:     authSvc,
		Habits:   habitSvc,
		Tokens:   tokens,
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,

		ShuttingDown: shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")
	shuttingDown.Store(true)

	sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
