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

	"github.com/geocoder89/changepassword/internal/admin"
	"github.com/geocoder89/changepassword/internal/auth"
	"github.com/geocoder89/changepassword/internal/config"
	"github.com/geocoder89/changepassword/internal/db"
	httpx "github.com/geocoder89/changepassword/internal/http"
	"github.com/geocoder89/changepassword/internal/observability"
	"github.com/geocoder89/changepassword/internal/redisclient"
	"github.com/geocoder89/changepassword/internal/repo/memory"
	"github.com/geocoder89/changepassword/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	deps := httpx.Deps{
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Prom:   prom,
	}

	var pings []func(context.Context) error

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory user store, data is lost on restart")
		deps.Users = memory.NewUsersRepo()
	case "postgres":
		if err := db.Migrate(ctx, cfg.DBURL); err != nil {
			return err
		}

		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		deps.Users = postgres.NewUsersRepo(pool, prom)
		pings = append(pings, pool.Ping)
	default:
		return fmt.Errorf("unknown USER_STORE %q", cfg.Store)
	}

	if created, err := db.EnsureAdminUser(ctx, deps.Users, cfg); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	} else if created {
		log.Info("admin user created", "username", cfg.AdminUsername)
	}

	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rc.Close()

		deps.Flashes = admin.NewRedisFlashStore(rc.Raw(), 5*time.Minute)
		pings = append(pings, rc.Ping)
	}

	deps.Ping = func(ctx context.Context) error {
		for _, ping := range pings {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	router, err := httpx.NewRouter(log, cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
