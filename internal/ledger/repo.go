package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/internal/repo"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/pagination"
)

type repository struct {
	base repo.Base
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.base.DB(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) UpdateClientBalances(ctx context.Context, client *models.Client) error {
	return r.base.DB(ctx).
		Model(&models.Client{}).
		Where("id = ?", client.ID).
		Updates(map[string]any{
			"balance":        client.Balance,
			"paid_to_date":   client.PaidToDate,
			"credit_balance": client.CreditBalance,
		}).Error
}

func (r *repository) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.base.DB(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) UpdateInvoiceBalances(ctx context.Context, invoice *models.Invoice) error {
	return r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"balance":           invoice.Balance,
			"paid_to_date":      invoice.PaidToDate,
			"partial":           invoice.Partial,
			"status":            invoice.Status,
			"auto_bill_tries":   invoice.AutoBillTries,
			"auto_bill_enabled": invoice.AutoBillEnabled,
		}).Error
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.base.DB(ctx).Create(entry).Error
}

func (r *repository) LastEntry(ctx context.Context, clientID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.base.DB(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, clientID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.base.DB(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListEntriesPage(ctx context.Context, clientID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	query := r.base.DB(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC, id ASC").
		Limit(limit)
	if cursor != nil {
		query = query.Where(
			"(created_at > ?) OR (created_at = ? AND id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumOutstandingInvoiceBalances(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.base.DB(ctx).
		Model(&models.Invoice{}).
		Select("COALESCE(SUM(balance), 0)").
		Where("client_id = ? AND is_deleted = ? AND status IN ?",
			clientID, false, []enums.InvoiceStatus{enums.InvoiceStatusSent, enums.InvoiceStatusPartial}))
}

func (r *repository) SumTokenPaymentsApplied(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.base.DB(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(applied), 0)").
		Where("client_id = ? AND is_deleted = ? AND type <> ? AND status IN ?",
			clientID, false, models.PaymentTypeCredit, countingPaymentStatuses()))
}

func (r *repository) SumCreditPayments(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.base.DB(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("client_id = ? AND is_deleted = ? AND type = ? AND status IN ?",
			clientID, false, models.PaymentTypeCredit, countingPaymentStatuses()))
}

func (r *repository) SumCreditsAgainstInvoices(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.base.DB(ctx).
		Model(&models.Credit{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("client_id = ? AND is_deleted = ? AND invoice_id IS NOT NULL", clientID, false))
}

func countingPaymentStatuses() []enums.PaymentStatus {
	return []enums.PaymentStatus{
		enums.PaymentStatusCompleted,
		enums.PaymentStatusPartiallyRefunded,
		enums.PaymentStatusRefunded,
	}
}

// sum scans an aggregate into a string first so numeric columns keep their
// exact decimal representation across drivers.
func (r *repository) sum(query *gorm.DB) (decimal.Decimal, error) {
	var raw string
	if err := query.Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (r *repository) CountContacts(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.ClientContact{}).
		Where("client_id = ?", clientID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListInvoicesMissingInvitations(ctx context.Context, clientID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.base.DB(ctx).
		Where("client_id = ? AND is_deleted = ? AND status <> ?", clientID, false, enums.InvoiceStatusDraft).
		Where("NOT EXISTS (SELECT 1 FROM invoice_invitations WHERE invoice_invitations.invoice_id = invoices.id)").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListInvoicesWithCompanyDrift(ctx context.Context, clientID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.base.DB(ctx).
		Joins("JOIN clients ON clients.id = invoices.client_id").
		Where("invoices.client_id = ? AND invoices.company_id <> clients.company_id", clientID).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repository) ListOrphanedOAuthContacts(ctx context.Context, clientID uuid.UUID) ([]models.ClientContact, error) {
	var contacts []models.ClientContact
	err := r.base.DB(ctx).
		Joins("JOIN clients ON clients.id = client_contacts.client_id").
		Where("client_contacts.client_id = ? AND client_contacts.oauth_user_id IS NOT NULL AND clients.is_deleted = ?", clientID, true).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *repository) ListClientIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.Client{}).
		Where("is_deleted = ?", false).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
