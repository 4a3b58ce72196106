package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/truckflow/dispatch-core/internal/cron"
	"github.com/truckflow/dispatch-core/internal/fleet"
	"github.com/truckflow/dispatch-core/pkg/auth/session"
	"github.com/truckflow/dispatch-core/pkg/config"
	"github.com/truckflow/dispatch-core/pkg/instance"
	"github.com/truckflow/dispatch-core/pkg/logger"
	"github.com/truckflow/dispatch-core/pkg/metrics"
	"github.com/truckflow/dispatch-core/pkg/pubsub"
	"github.com/truckflow/dispatch-core/pkg/redis"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// workerLockScope names the worker-level lock. Org scopes always carry a prefix,
// so it cannot collide with a per-scope refresh lock.
const workerLockScope = "worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "fleet-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "fleet-worker"

	logg = logger.New(logger.Options{
		ServiceName: "fleet-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Upstream.HasServiceCredentials() {
		logg.Error(context.Background(), "fleet worker requires upstream service credentials", errors.New("TRUCKFLOW_UPSTREAM_EMAIL and TRUCKFLOW_UPSTREAM_PASSWORD must be set"))
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

	refreshJob, err := cron.NewFleetRefreshJob(cron.FleetRefreshJobParams{
		Logger:      logg,
		Fleet:       fleetService,
		Credentials: sessionManager,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fleet refresh job", err)
		os.Exit(1)
	}

	workerLock, err := cron.NewRedisLock(redisClient, redisClient.FleetLockKey(workerLockScope), cfg.Fleet.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(refreshJob),
		Lock:     workerLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Fleet.RefreshInterval,
		// the worker lock shares the scope lock TTL
		CycleTimeout: fleet.PassTimeout(cfg.Fleet.LockTTL),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Fleet.RefreshInterval.String(),
		"instance":    instance.GetID(),
	})

	if !cfg.Fleet.AutoRefresh {
		logg.Info(ctx, "auto refresh disabled, running a single pass")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "fleet refresh pass failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting fleet worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "fleet worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "fleet worker shutting down gracefully")
}
