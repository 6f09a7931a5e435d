package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/billfold/billfold-backend/pkg/logger"
)

const defaultSweepConcurrency = 4

type dueProcessor interface {
	ProcessDue(ctx context.Context, dueBy time.Time, concurrency int) (int, error)
}

// AutoBillSweepJobParams configure the auto-bill sweep.
type AutoBillSweepJobParams struct {
	Logger      *logger.Logger
	Billing     dueProcessor
	Concurrency int
}

// NewAutoBillSweepJob builds the job that charges every due auto-billable invoice.
func NewAutoBillSweepJob(params AutoBillSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing processor required")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &autoBillSweepJob{
		logg:        params.Logger,
		billing:     params.Billing,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

type autoBillSweepJob struct {
	logg        *logger.Logger
	billing     dueProcessor
	concurrency int
	now         func() time.Time
}

func (j *autoBillSweepJob) Name() string { return "auto-bill-sweep" }

func (j *autoBillSweepJob) Run(ctx context.Context) error {
	processed, err := j.billing.ProcessDue(ctx, j.now().UTC(), j.concurrency)
	if err != nil {
		return fmt.Errorf("auto-bill sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"settled": processed})
	j.logg.Info(logCtx, "auto-bill sweep complete")
	return nil
}
