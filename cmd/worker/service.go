package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/billfold/billfold-backend/internal/autobill"
	"github.com/billfold/billfold-backend/pkg/config"
	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/metrics"
)

const sweepJobLabel = "auto-bill-sweep"

// ServiceParams configure the billing worker.
type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Billing *autobill.Service
	Metrics *metrics.CronJobMetrics
}

// Service drives the periodic auto-bill sweep and serves health/metrics.
type Service struct {
	cfg     *config.Config
	logg    *logger.Logger
	db      *db.Client
	billing *autobill.Service
	metrics *metrics.CronJobMetrics
}

// NewService validates dependencies and builds the worker.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Billing == nil {
		return nil, errors.New("billing service is required")
	}
	return &Service{
		cfg:     params.Config,
		logg:    params.Logger,
		db:      params.DB,
		billing: params.Billing,
		metrics: params.Metrics,
	}, nil
}

// Run blocks until the context is canceled, sweeping on the configured cadence.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	srv := s.startHTTP(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logg.Error(ctx, "metrics server shutdown failed", err)
		}
	}()

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.Worker.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	start := time.Now()
	processed, err := s.billing.ProcessDue(ctx, start.UTC(), s.cfg.Worker.Concurrency)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveDuration(sweepJobLabel, duration)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(sweepJobLabel)
		}
		s.logg.Error(ctx, "auto-bill sweep failed", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncSuccess(sweepJobLabel)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"settled":     processed,
		"duration_ms": duration.Milliseconds(),
	})
	s.logg.Info(logCtx, "auto-bill sweep complete")
}

func (s *Service) startHTTP(ctx context.Context) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + s.cfg.Worker.MetricsPort,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return srv
}
