package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billfold/billfold-backend/internal/autobill"
	"github.com/billfold/billfold-backend/internal/events"
	"github.com/billfold/billfold-backend/internal/gateway"
	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/config"
	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/metrics"
	"github.com/billfold/billfold-backend/pkg/migrate"
	"github.com/billfold/billfold-backend/pkg/pubsub"
	"github.com/billfold/billfold-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "billing-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "billing-worker"

	logg = logger.New(logger.Options{
		ServiceName: "billing-worker",
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

	sweepMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Billing: billingService,
		Metrics: sweepMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting billing worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "billing worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "billing worker shutting down gracefully")
}
