// Package ledger is the single choke point for balance mutations. Every
// operation that changes an invoice or client balance goes through
// ApplyAdjustment, which mutates the balance and appends the matching ledger
// entry in one transaction.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/money"
	"github.com/billfold/billfold-backend/pkg/pagination"
)

// Adjustment describes one signed balance delta. Delta moves the client
// balance (and the invoice balance when InvoiceID is set); PaidToDateDelta
// moves the paid-to-date figures alongside it.
type Adjustment struct {
	ClientID        uuid.UUID
	InvoiceID       *uuid.UUID
	Kind            enums.AdjustmentKind
	Delta           decimal.Decimal
	PaidToDateDelta decimal.Decimal
	CreditDelta     decimal.Decimal
	Notes           string
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	DB   *db.Client
	Repo Repository
	Log  *logger.Logger
}

// Service applies adjustments and reconciles stored balances against the
// figures recomputed from first principles.
type Service struct {
	db        *db.Client
	repo      Repository
	log       *logger.Logger
	tolerance decimal.Decimal
}

// NewService builds a ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Log == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:        params.DB,
		repo:      params.Repo,
		log:       params.Log,
		tolerance: decimal.New(5, -3), // half a cent; differences below this are rounding noise
	}, nil
}

// SetTolerance overrides the reconciliation tolerance.
func (s *Service) SetTolerance(tolerance decimal.Decimal) {
	if tolerance.IsPositive() {
		s.tolerance = tolerance
	}
}

// ApplyAdjustment runs one adjustment in its own transaction.
func (s *Service) ApplyAdjustment(ctx context.Context, adj Adjustment) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.Apply(ctx, tx, adj)
		if err != nil {
			return err
		}
		entry = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Apply runs one adjustment inside an existing transaction so callers can
// batch several adjustments atomically. Balance fields are only ever written
// here; rollback leaves both the balance and the ledger untouched.
func (s *Service) Apply(ctx context.Context, tx *gorm.DB, adj Adjustment) (*models.LedgerEntry, error) {
	if !adj.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown adjustment kind")
	}
	if adj.Delta.IsZero() && adj.PaidToDateDelta.IsZero() && adj.CreditDelta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment has no effect")
	}

	repo := s.repo.WithTx(tx)

	client, err := repo.FindClient(ctx, adj.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "client not found")
	}

	if adj.InvoiceID != nil {
		invoice, err := repo.FindInvoice(ctx, *adj.InvoiceID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "invoice not found")
		}
		invoice.Balance = invoice.Balance.Add(adj.Delta)
		invoice.PaidToDate = invoice.PaidToDate.Add(adj.PaidToDateDelta)
		transitionStatus(invoice)
		if err := repo.UpdateInvoiceBalances(ctx, invoice); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invoice balances")
		}
	}

	client.Balance = client.Balance.Add(adj.Delta)
	client.PaidToDate = client.PaidToDate.Add(adj.PaidToDateDelta)
	client.CreditBalance = client.CreditBalance.Add(adj.CreditDelta)
	if err := repo.UpdateClientBalances(ctx, client); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update client balances")
	}

	entry := &models.LedgerEntry{
		CompanyID:  client.CompanyID,
		ClientID:   client.ID,
		InvoiceID:  adj.InvoiceID,
		Kind:       adj.Kind,
		Adjustment: adj.Delta,
		Balance:    client.Balance,
		Notes:      adj.Notes,
	}
	if err := repo.AppendEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"client_id":  client.ID.String(),
		"kind":       string(adj.Kind),
		"adjustment": adj.Delta.String(),
		"balance":    client.Balance.String(),
	}), "ledger adjustment applied")

	return entry, nil
}

// History returns one page of a client's ledger entries in chronological
// order, plus the cursor for the next page. An empty cursor means the page
// reached the end of the ledger.
func (s *Service) History(ctx context.Context, clientID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse ledger cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListEntriesPage(ctx, clientID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}

// transitionStatus moves an outstanding invoice's status as its balance
// changes. Drafts and cancelled invoices never transition here.
func transitionStatus(invoice *models.Invoice) {
	if !invoice.Status.IsOutstanding() {
		return
	}
	switch {
	case invoice.Balance.LessThanOrEqual(decimal.Zero):
		invoice.Status = enums.InvoiceStatusPaid
		invoice.Balance = money.Round(invoice.Balance)
	case invoice.Balance.LessThan(invoice.Amount):
		invoice.Status = enums.InvoiceStatusPartial
	}
}
