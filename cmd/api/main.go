package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/customers"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/janitor"
	"github.com/angelmondragon/storefront/internal/state"
	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	deps := routes.Dependencies{Gatherer: registry}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.RateLimiter = redisClient
		deps.Idempotency = redisClient
		deps.Health = append(deps.Health, controllers.Dependency{Name: "redis", Pinger: redisClient})
	} else {
		logg.Warn(context.Background(), "redis not configured; rate limiting, idempotency and catalog cache disabled")
		deps.Health = append(deps.Health, controllers.Dependency{Name: "redis"})
	}

	var gormDB *gorm.DB
	if cfg.State.Driver == config.StateDriverSQL {
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
		gormDB = dbClient.DB()
		deps.Health = append(deps.Health, controllers.Dependency{Name: "database", Pinger: dbClient})
	}

	stateStore, err := state.Open(cfg.State.Driver, cfg.State.TTL, redisClient, gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to open state store", err)
		os.Exit(1)
	}

	commerceClient, err := commerce.NewClient(cfg.Commerce,
		commerce.WithLogger(logg),
		commerce.WithMetrics(metrics.NewCommerceMetrics(registry)),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create commerce client", err)
		os.Exit(1)
	}

	bus := events.NewBus(logg)

	cartStore, err := cart.NewStore(stateStore, bus, logg, storefrontMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	deps.Cart = cartStore

	customerService, err := customers.NewService(commerceClient, stateStore, bus, cfg.Auth, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}
	deps.Customers = customerService

	resolvers := checkout.NewRegistry(commerceClient, bus, logg, storefrontMetrics)
	defer resolvers.Close()
	checkoutService, err := checkout.NewService(resolvers, cartStore, customerService, commerceClient, logg, storefrontMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	deps.Checkout = checkoutService

	var cache catalog.Cache
	if redisClient != nil {
		cache = redisClient
	}
	catalogService, err := catalog.NewService(commerceClient, cache, cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	deps.Catalog = catalogService

	addr := ":" + cfg.App.Port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"state_driver": cfg.State.Driver,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	janitorMetrics := metrics.NewJanitorMetrics(registry)
	evictJob, err := janitor.NewResolverEvictJob(resolvers, cfg.Checkout.IdleTTL, logg, janitorMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create resolver eviction job", err)
		os.Exit(1)
	}
	type scheduledJob struct {
		job      janitor.Job
		interval time.Duration
	}
	janitors := []scheduledJob{{evictJob, cfg.Checkout.SweepInterval}}

	if purger, ok := stateStore.(*state.MemoryStore); ok {
		purgeJob, err := janitor.NewStatePurgeJob(purger, logg, janitorMetrics)
		if err != nil {
			logg.Error(ctx, "failed to create state purge job", err)
			os.Exit(1)
		}
		janitors = append(janitors, scheduledJob{purgeJob, cfg.State.PurgeInterval})
	}

	for _, j := range janitors {
		svc, err := newJanitor(logg, janitorMetrics, j.interval, j.job)
		if err != nil {
			logg.Error(ctx, "failed to create janitor", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := svc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// newJanitor runs jobs on one interval. Each instance keeps its own
// resolvers and memory state, so a local lock is enough.
func newJanitor(logg *logger.Logger, m *metrics.JanitorMetrics, interval time.Duration, jobs ...janitor.Job) (*janitor.Service, error) {
	return janitor.NewService(janitor.ServiceParams{
		Logger:   logg,
		Registry: janitor.NewRegistry(jobs...),
		Lock:     &janitor.LocalLock{},
		Metrics:  m,
		Interval: interval,
	})
}
