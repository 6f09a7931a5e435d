package cron

import (
	"context"
	"fmt"

	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/logger"
)

type reconciler interface {
	ReconcileAll(ctx context.Context, fix bool) (ledger.Report, error)
}

// ReconcileJobParams configure the nightly consistency check.
type ReconcileJobParams struct {
	Logger *logger.Logger
	Ledger reconciler
	Fix    bool
}

// NewReconcileJob builds the job that audits client balances against the ledger.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger reconciler required")
	}
	return &reconcileJob{
		logg:   params.Logger,
		ledger: params.Ledger,
		fix:    params.Fix,
	}, nil
}

type reconcileJob struct {
	logg   *logger.Logger
	ledger reconciler
	fix    bool
}

func (j *reconcileJob) Name() string { return "ledger-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	report, err := j.ledger.ReconcileAll(ctx, j.fix)
	if err != nil {
		return fmt.Errorf("ledger reconcile: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"clients_checked": report.ClientsChecked,
		"discrepancies":   len(report.Discrepancies),
		"uncorrected":     report.Uncorrected(),
	})
	if report.Uncorrected() > 0 {
		j.logg.Warn(logCtx, "consistency check found uncorrected discrepancies")
		return nil
	}
	j.logg.Info(logCtx, "consistency check clean")
	return nil
}
