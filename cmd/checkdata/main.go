// checkdata audits client balances, paid-to-date rollups, and ledger snapshots
// against the stored invoices, payments, and credits. With --fix it appends
// corrective ledger entries for the monetary drifts it finds; structural
// problems are always report-only.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/config"
	"github.com/billfold/billfold-backend/pkg/db"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		clientID  string
		fix       bool
		tolerance string
	)

	cmd := &cobra.Command{
		Use:           "checkdata",
		Short:         "Audit client balances against the ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), clientID, fix, tolerance)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "audit a single client (default: all)")
	cmd.Flags().BoolVar(&fix, "fix", false, "append corrective ledger entries for monetary drifts")
	cmd.Flags().StringVar(&tolerance, "tolerance", "", "override the comparison tolerance (e.g. 0.005)")
	return cmd
}

func run(ctx context.Context, clientID string, fix bool, tolerance string) error {
	logg := logger.New(logger.Options{ServiceName: "checkdata"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "checkdata",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	service, err := ledger.NewService(ledger.ServiceParams{
		DB:   dbClient,
		Repo: ledger.NewRepository(dbClient.DB()),
		Log:  logg,
	})
	if err != nil {
		return fmt.Errorf("create ledger service: %w", err)
	}

	if tolerance == "" {
		tolerance = cfg.Reconcile.Tolerance
	}
	if tolerance != "" {
		tol, err := decimal.NewFromString(tolerance)
		if err != nil {
			return fmt.Errorf("invalid tolerance %q: %w", tolerance, err)
		}
		service.SetTolerance(tol)
	}

	report, err := buildReport(ctx, service, clientID, fix)
	if err != nil {
		return err
	}
	printReport(report)

	if n := report.Uncorrected(); n > 0 {
		return pkgerrors.New(pkgerrors.CodeLedgerInconsistency,
			fmt.Sprintf("%d uncorrected discrepancies", n))
	}
	return nil
}

func buildReport(ctx context.Context, service *ledger.Service, clientID string, fix bool) (ledger.Report, error) {
	if clientID == "" {
		report, err := service.ReconcileAll(ctx, fix)
		if err != nil {
			return ledger.Report{}, fmt.Errorf("reconcile all clients: %w", err)
		}
		return report, nil
	}

	id, err := uuid.Parse(clientID)
	if err != nil {
		return ledger.Report{}, fmt.Errorf("invalid client id %q: %w", clientID, err)
	}
	discrepancies, err := service.Reconcile(ctx, id, fix)
	if err != nil {
		return ledger.Report{}, fmt.Errorf("reconcile client %s: %w", id, err)
	}
	return ledger.Report{ClientsChecked: 1, Discrepancies: discrepancies}, nil
}

func printReport(report ledger.Report) {
	fmt.Printf("clients checked: %d\n", report.ClientsChecked)
	if len(report.Discrepancies) == 0 {
		fmt.Println("no discrepancies found")
		return
	}

	for kind, count := range report.CountsByKind() {
		fmt.Printf("%-28s %d\n", kind, count)
	}
	fmt.Println()
	for _, d := range report.Discrepancies {
		status := "found"
		if d.Corrected {
			status = "corrected"
		}
		fmt.Printf("client %s: %s expected=%s actual=%s [%s]", d.ClientID, d.Kind, d.Expected, d.Actual, status)
		if d.Detail != "" {
			fmt.Printf(" (%s)", d.Detail)
		}
		fmt.Println()
	}
}
