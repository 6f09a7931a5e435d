package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/pagination"
)

// Repository abstracts ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	UpdateClientBalances(ctx context.Context, client *models.Client) error
	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	UpdateInvoiceBalances(ctx context.Context, invoice *models.Invoice) error

	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	LastEntry(ctx context.Context, clientID uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, clientID uuid.UUID) ([]models.LedgerEntry, error)
	ListEntriesPage(ctx context.Context, clientID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)

	SumOutstandingInvoiceBalances(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	SumTokenPaymentsApplied(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	SumCreditPayments(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)
	SumCreditsAgainstInvoices(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error)

	CountContacts(ctx context.Context, clientID uuid.UUID) (int64, error)
	ListInvoicesMissingInvitations(ctx context.Context, clientID uuid.UUID) ([]models.Invoice, error)
	ListInvoicesWithCompanyDrift(ctx context.Context, clientID uuid.UUID) ([]models.Invoice, error)
	ListOrphanedOAuthContacts(ctx context.Context, clientID uuid.UUID) ([]models.ClientContact, error)

	ListClientIDs(ctx context.Context) ([]uuid.UUID, error)
}
