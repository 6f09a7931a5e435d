package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
)

// Discrepancy is one detected divergence between a stored figure and the value
// recomputed from first principles. Expected/Actual are zero for the
// structural kinds (missing contact, missing invitation, orphaned oauth id).
type Discrepancy struct {
	ClientID  uuid.UUID
	Kind      enums.DiscrepancyKind
	Expected  decimal.Decimal
	Actual    decimal.Decimal
	Detail    string
	Corrected bool
}

// Report aggregates discrepancies across one reconciliation run.
type Report struct {
	ClientsChecked int
	Discrepancies  []Discrepancy
}

// CountsByKind tallies discrepancies per kind, in the fixed report order.
func (r Report) CountsByKind() map[enums.DiscrepancyKind]int {
	counts := make(map[enums.DiscrepancyKind]int)
	for _, d := range r.Discrepancies {
		counts[d.Kind]++
	}
	return counts
}

// Uncorrected counts discrepancies that remain after any fix-mode writes.
func (r Report) Uncorrected() int {
	n := 0
	for _, d := range r.Discrepancies {
		if !d.Corrected {
			n++
		}
	}
	return n
}

// Reconcile recomputes a client's balances independently of the stored values
// and reports every divergence. With fix enabled, the monetary kinds are
// corrected by appending a corrective ledger entry and updating the stored
// figure; a second run with no intervening writes reports nothing.
func (s *Service) Reconcile(ctx context.Context, clientID uuid.UUID, fix bool) ([]Discrepancy, error) {
	var found []Discrepancy
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		list, err := s.reconcileClient(ctx, tx, clientID, fix)
		if err != nil {
			return err
		}
		found = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ReconcileAll runs Reconcile over every non-deleted client. Per-client
// failures do not stop the sweep; they are aggregated into the returned error.
func (s *Service) ReconcileAll(ctx context.Context, fix bool) (Report, error) {
	ids, err := s.repo.ListClientIDs(ctx)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clients")
	}

	report := Report{}
	var errs error
	for _, id := range ids {
		found, err := s.Reconcile(ctx, id, fix)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("client %s: %w", id, err))
			continue
		}
		report.ClientsChecked++
		report.Discrepancies = append(report.Discrepancies, found...)
	}
	return report, errs
}

func (s *Service) reconcileClient(ctx context.Context, tx *gorm.DB, clientID uuid.UUID, fix bool) ([]Discrepancy, error) {
	repo := s.repo.WithTx(tx)
	var found []Discrepancy

	client, err := repo.FindClient(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "client not found")
	}

	// client.balance vs Σ outstanding invoice balances
	expectedBalance, err := repo.SumOutstandingInvoiceBalances(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum invoice balances")
	}
	if s.beyondTolerance(expectedBalance, client.Balance) {
		d := Discrepancy{
			ClientID: clientID,
			Kind:     enums.DiscrepancyClientBalanceMismatch,
			Expected: expectedBalance,
			Actual:   client.Balance,
		}
		if fix {
			diff := expectedBalance.Sub(client.Balance)
			if _, err := s.Apply(ctx, tx, Adjustment{
				ClientID: clientID,
				Kind:     enums.AdjustmentKindCorrection,
				Delta:    diff,
				Notes:    "balance corrected to match outstanding invoices",
			}); err != nil {
				return nil, err
			}
			client.Balance = expectedBalance
			d.Corrected = true
		}
		found = append(found, d)
	}

	// client.paid_to_date vs payments applied plus credit-funded payments,
	// net of credits issued against existing invoices
	tokenApplied, err := repo.SumTokenPaymentsApplied(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments applied")
	}
	creditPayments, err := repo.SumCreditPayments(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum credit payments")
	}
	creditsAgainstInvoices, err := repo.SumCreditsAgainstInvoices(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum credits against invoices")
	}
	expectedPaid := tokenApplied.Add(creditPayments).Sub(creditsAgainstInvoices)
	if s.beyondTolerance(expectedPaid, client.PaidToDate) {
		d := Discrepancy{
			ClientID: clientID,
			Kind:     enums.DiscrepancyPaidToDateMismatch,
			Expected: expectedPaid,
			Actual:   client.PaidToDate,
		}
		if fix {
			if _, err := s.Apply(ctx, tx, Adjustment{
				ClientID:        clientID,
				Kind:            enums.AdjustmentKindCorrection,
				PaidToDateDelta: expectedPaid.Sub(client.PaidToDate),
				Notes:           "paid to date corrected to match payment history",
			}); err != nil {
				return nil, err
			}
			client.PaidToDate = expectedPaid
			d.Corrected = true
		}
		found = append(found, d)
	}

	// latest ledger snapshot vs client.balance
	last, err := repo.LastEntry(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last ledger entry")
	}
	snapshot := decimal.Zero
	if last != nil {
		snapshot = last.Balance
	}
	if (last != nil || !client.Balance.IsZero()) && s.beyondTolerance(snapshot, client.Balance) {
		d := Discrepancy{
			ClientID: clientID,
			Kind:     enums.DiscrepancyLedgerBalanceMismatch,
			Expected: client.Balance,
			Actual:   snapshot,
		}
		if fix {
			entry := &models.LedgerEntry{
				CompanyID:  client.CompanyID,
				ClientID:   clientID,
				Kind:       enums.AdjustmentKindCorrection,
				Adjustment: client.Balance.Sub(snapshot),
				Balance:    client.Balance,
				Notes:      "ledger snapshot realigned with client balance",
			}
			if err := repo.AppendEntry(ctx, entry); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append corrective entry")
			}
			d.Corrected = true
		}
		found = append(found, d)
	}

	structural, err := s.structuralChecks(ctx, repo, client)
	if err != nil {
		return nil, err
	}
	found = append(found, structural...)

	if len(found) > 0 {
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"client_id":     clientID.String(),
			"discrepancies": len(found),
			"fix":           fix,
		}), "reconciliation found discrepancies")
	}
	return found, nil
}

// structuralChecks covers the non-monetary integrity checks. These are never
// auto-corrected; they need operator attention.
func (s *Service) structuralChecks(ctx context.Context, repo Repository, client *models.Client) ([]Discrepancy, error) {
	var found []Discrepancy

	if !client.IsDeleted {
		contacts, err := repo.CountContacts(ctx, client.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contacts")
		}
		if contacts == 0 {
			found = append(found, Discrepancy{
				ClientID: client.ID,
				Kind:     enums.DiscrepancyMissingContact,
				Detail:   "client has no contacts",
			})
		}
	}

	missing, err := repo.ListInvoicesMissingInvitations(ctx, client.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices missing invitations")
	}
	for _, invoice := range missing {
		found = append(found, Discrepancy{
			ClientID: client.ID,
			Kind:     enums.DiscrepancyMissingInvitation,
			Detail:   fmt.Sprintf("invoice %s has no invitations", invoice.ID),
		})
	}

	drifted, err := repo.ListInvoicesWithCompanyDrift(ctx, client.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices with company drift")
	}
	for _, invoice := range drifted {
		found = append(found, Discrepancy{
			ClientID: client.ID,
			Kind:     enums.DiscrepancyInvoiceCompanyDrift,
			Detail:   fmt.Sprintf("invoice %s belongs to company %s, client belongs to %s", invoice.ID, invoice.CompanyID, client.CompanyID),
		})
	}

	orphans, err := repo.ListOrphanedOAuthContacts(ctx, client.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orphaned oauth contacts")
	}
	for _, contact := range orphans {
		found = append(found, Discrepancy{
			ClientID: client.ID,
			Kind:     enums.DiscrepancyOrphanedOAuthID,
			Detail:   fmt.Sprintf("contact %s keeps an oauth id on a deleted client", contact.ID),
		})
	}

	return found, nil
}

func (s *Service) beyondTolerance(expected, actual decimal.Decimal) bool {
	return expected.Sub(actual).Abs().GreaterThan(s.tolerance)
}
