package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront/internal/janitor"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const lockKeyFormat = "sf:janitor:lock:%s"

// The cron worker purges expired session state rows for the sql state
// driver. Redis expires keys natively and the memory driver is purged by
// the api process itself.
func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.State.Driver != config.StateDriverSQL {
		logg.Warn(context.Background(), fmt.Sprintf("state driver %q needs no purge worker; exiting", cfg.State.Driver))
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock janitor.Lock = &janitor.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = janitor.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.State.PurgeInterval)
		if err != nil {
			logg.Error(context.Background(), "failed to create janitor lock", err)
			os.Exit(1)
		}
	}

	janitorMetrics := metrics.NewJanitorMetrics(prometheus.DefaultRegisterer)
	job, err := janitor.NewStatePurgeJob(state.NewSQLStore(dbClient.DB(), cfg.State.TTL), logg, janitorMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create purge job", err)
		os.Exit(1)
	}

	service, err := janitor.NewService(janitor.ServiceParams{
		Logger:   logg,
		Registry: janitor.NewRegistry(job),
		Lock:     lock,
		Metrics:  janitorMetrics,
		Interval: cfg.State.PurgeInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create janitor service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.State.PurgeInterval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
