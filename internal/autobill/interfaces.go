package autobill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db/models"
)

// BillableToken pairs a stored client token with its gateway configuration so
// the selector can apply transaction limits and fee schedules.
type BillableToken struct {
	Token   models.ClientGatewayToken
	Gateway models.CompanyGateway
}

// Repository abstracts auto-bill persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	FindGroup(ctx context.Context, id uuid.UUID) (*models.ClientGroup, error)
	FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)

	// ListAvailableCredits returns the client's spendable credits ordered
	// oldest first.
	ListAvailableCredits(ctx context.Context, clientID uuid.UUID) ([]models.Credit, error)
	UpdateCreditBalance(ctx context.Context, credit *models.Credit) error

	// ListBillableTokens returns the client's tokens ordered default first,
	// then oldest first, each paired with its gateway.
	ListBillableTokens(ctx context.Context, clientID uuid.UUID) ([]BillableToken, error)

	UpdateInvoicePartial(ctx context.Context, invoiceID uuid.UUID, partial decimal.Decimal) error
	UpdateInvoiceAutoBill(ctx context.Context, invoiceID uuid.UUID, tries int, enabled bool) error

	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreatePaymentables(ctx context.Context, links []models.Paymentable) error

	// ListAutoBillableInvoiceIDs feeds the sweep: auto-bill enabled, payable,
	// due on or before the cutoff.
	ListAutoBillableInvoiceIDs(ctx context.Context, dueBy time.Time) ([]uuid.UUID, error)
}
