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
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/internal/autobill"
	"github.com/billfold/billfold-backend/internal/cron"
	"github.com/billfold/billfold-backend/internal/events"
	"github.com/billfold/billfold-backend/internal/gateway"
	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/config"
	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/metrics"
	"github.com/billfold/billfold-backend/pkg/migrate"
	"github.com/billfold/billfold-backend/pkg/pubsub"
	"github.com/billfold/billfold-backend/pkg/redis"
	"github.com/billfold/billfold-backend/pkg/square"
)

const lockKeyFormat = "bf:cron-worker:lock:%s"

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
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(ctx, cfg.Gateway, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gateway client", err)
		os.Exit(1)
	}
	charger, err := gateway.NewSquareCharger(squareClient, cfg.Gateway.Timeout)
	if err != nil {
		logg.Error(ctx, "failed to create charger", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
		publisher = events.NewPubSubPublisher(pubsubClient, logg)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		DB:   dbClient,
		Repo: ledger.NewRepository(dbClient.DB()),
		Log:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}
	if cfg.Reconcile.Tolerance != "" {
		tol, err := decimal.NewFromString(cfg.Reconcile.Tolerance)
		if err != nil {
			logg.Error(ctx, "invalid reconcile tolerance", err)
			os.Exit(1)
		}
		ledgerService.SetTolerance(tol)
	}

	billingService, err := autobill.NewService(autobill.ServiceParams{
		DB:      dbClient,
		Repo:    autobill.NewRepository(dbClient.DB()),
		Ledger:  ledgerService,
		Charger: charger,
		Events:  publisher,
		Log:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create billing service", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewAutoBillSweepJob(cron.AutoBillSweepJobParams{
		Logger:      logg,
		Billing:     billingService,
		Concurrency: cfg.Worker.Concurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auto-bill sweep job", err)
		os.Exit(1)
	}
	reconcileJob, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger: logg,
		Ledger: ledgerService,
		Fix:    cfg.Reconcile.Fix,
	})
	if err != nil {
		logg.Error(ctx, "failed to create reconcile job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, reconcileJob),
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
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
