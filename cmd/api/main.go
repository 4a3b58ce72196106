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

	"github.com/truckflow/dispatch-core/api/routes"
	"github.com/truckflow/dispatch-core/internal/cron"
	"github.com/truckflow/dispatch-core/internal/fleet"
	"github.com/truckflow/dispatch-core/internal/pricing"
	"github.com/truckflow/dispatch-core/internal/statements"
	"github.com/truckflow/dispatch-core/pkg/auth/session"
	"github.com/truckflow/dispatch-core/pkg/config"
	"github.com/truckflow/dispatch-core/pkg/db"
	"github.com/truckflow/dispatch-core/pkg/instance"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/metrics"
	"github.com/truckflow/dispatch-core/pkg/migrate"
	"github.com/truckflow/dispatch-core/pkg/pubsub"
	"github.com/truckflow/dispatch-core/pkg/redis"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	upstream, err := truckflow.NewClient(cfg.Upstream.BaseURL, truckflow.WithTimeout(cfg.Upstream.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, upstream, cfg.Upstream)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}
	upstream.OnUnauthorized(func(ctx context.Context) {
		if err := sessionManager.Clear(ctx); err != nil {
			logg.WarnErr(ctx, "failed to clear cached session", err)
		}
	})

	pricingService, err := pricing.NewService(upstream, metrics.NewPricingMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	fleetParams := fleet.ServiceParams{
		Upstream:         upstream,
		Metrics:          metrics.NewFleetMetrics(prometheus.DefaultRegisterer),
		Logger:           logg,
		EventConcurrency: cfg.Fleet.EventConcurrency,
		GeocodeMissing:   cfg.Fleet.GeocodeMissing,
		LockTTL:          cfg.Fleet.LockTTL,
		Locks: func(scope string) (fleet.Lock, error) {
			lock, err := cron.NewRedisLock(redisClient, redisClient.FleetLockKey(scope), cfg.Fleet.LockTTL)
			if err != nil {
				return nil, err
			}
			return lock, nil
		},
	}
	fleetParams.Store, err = fleet.NewRedisSnapshotStore(redisClient, cfg.Fleet.SnapshotTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot store", err)
		os.Exit(1)
	}

	if cfg.PubSub.Enabled(cfg.GCP) {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err := pubsub.NewEventPublisher(psClient.FleetPublisher())
		if err != nil {
			logg.Error(context.Background(), "failed to create fleet publisher", err)
			os.Exit(1)
		}
		fleetParams.Publisher = publisher
	}

	fleetService, err := fleet.NewService(fleetParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create fleet service", err)
		os.Exit(1)
	}

	notesService, err := statements.NewService(statements.NewRepository(dbClient.DB()), upstream, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create statement notes service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			pricingService,
			fleetService,
			upstream,
			notesService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
