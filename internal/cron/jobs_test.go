package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/logger"
)

type fakeDueProcessor struct {
	dueBy       time.Time
	concurrency int
	processed   int
	err         error
	calls       int
}

func (f *fakeDueProcessor) ProcessDue(_ context.Context, dueBy time.Time, concurrency int) (int, error) {
	f.calls++
	f.dueBy = dueBy
	f.concurrency = concurrency
	return f.processed, f.err
}

func TestAutoBillSweepJobPassesCutoffAndConcurrency(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	processor := &fakeDueProcessor{processed: 3}
	job, err := NewAutoBillSweepJob(AutoBillSweepJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "cron-test"}),
		Billing:     processor,
		Concurrency: 8,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*autoBillSweepJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if processor.calls != 1 {
		t.Fatalf("expected 1 call, got %d", processor.calls)
	}
	if !processor.dueBy.Equal(now) {
		t.Fatalf("unexpected cutoff: %s", processor.dueBy)
	}
	if processor.concurrency != 8 {
		t.Fatalf("unexpected concurrency: %d", processor.concurrency)
	}
}

func TestAutoBillSweepJobPropagatesError(t *testing.T) {
	processor := &fakeDueProcessor{err: errors.New("db down")}
	job, err := NewAutoBillSweepJob(AutoBillSweepJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Billing: processor,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeReconciler struct {
	report ledger.Report
	fix    bool
	err    error
}

func (f *fakeReconciler) ReconcileAll(_ context.Context, fix bool) (ledger.Report, error) {
	f.fix = fix
	return f.report, f.err
}

func TestReconcileJobForwardsFixFlag(t *testing.T) {
	rec := &fakeReconciler{report: ledger.Report{ClientsChecked: 5}}
	job, err := NewReconcileJob(ReconcileJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Ledger: rec,
		Fix:    true,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !rec.fix {
		t.Fatal("expected fix flag to be forwarded")
	}
}

func TestReconcileJobToleratesUncorrectedFindings(t *testing.T) {
	rec := &fakeReconciler{report: ledger.Report{
		ClientsChecked: 1,
		Discrepancies: []ledger.Discrepancy{{
			ClientID: uuid.New(),
			Kind:     enums.DiscrepancyMissingContact,
		}},
	}}
	job, err := NewReconcileJob(ReconcileJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Ledger: rec,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	// Structural findings are reported, not treated as job failures.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
