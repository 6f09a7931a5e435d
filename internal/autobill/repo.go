package autobill

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/internal/repo"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
)

type repository struct {
	base repo.Base
}

// NewRepository builds an auto-bill repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.base.DB(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.base.DB(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.ClientGroup, error) {
	var group models.ClientGroup
	if err := r.base.DB(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.base.DB(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) ListAvailableCredits(ctx context.Context, clientID uuid.UUID) ([]models.Credit, error) {
	var credits []models.Credit
	err := r.base.DB(ctx).
		Where("client_id = ? AND is_deleted = ? AND balance > 0", clientID, false).
		Where("status IN ?", []enums.InvoiceStatus{enums.InvoiceStatusSent, enums.InvoiceStatusPartial}).
		Order("created_at ASC").
		Find(&credits).Error
	if err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *repository) UpdateCreditBalance(ctx context.Context, credit *models.Credit) error {
	return r.base.DB(ctx).
		Model(&models.Credit{}).
		Where("id = ?", credit.ID).
		Updates(map[string]any{
			"balance":      credit.Balance,
			"paid_to_date": credit.PaidToDate,
			"status":       credit.Status,
		}).Error
}

func (r *repository) ListBillableTokens(ctx context.Context, clientID uuid.UUID) ([]BillableToken, error) {
	var tokens []models.ClientGatewayToken
	err := r.base.DB(ctx).
		Where("client_id = ? AND is_deleted = ?", clientID, false).
		Order("is_default DESC, created_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}

	billable := make([]BillableToken, 0, len(tokens))
	for _, token := range tokens {
		var gw models.CompanyGateway
		err := r.base.DB(ctx).
			Where("id = ? AND is_deleted = ? AND token_billing = ?", token.CompanyGatewayID, false, true).
			First(&gw).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		billable = append(billable, BillableToken{Token: token, Gateway: gw})
	}
	return billable, nil
}

func (r *repository) UpdateInvoicePartial(ctx context.Context, invoiceID uuid.UUID, partial decimal.Decimal) error {
	return r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("partial", partial).Error
}

func (r *repository) UpdateInvoiceAutoBill(ctx context.Context, invoiceID uuid.UUID, tries int, enabled bool) error {
	return r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Updates(map[string]any{
			"auto_bill_tries":   tries,
			"auto_bill_enabled": enabled,
		}).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.base.DB(ctx).Create(payment).Error
}

func (r *repository) CreatePaymentables(ctx context.Context, links []models.Paymentable) error {
	if len(links) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&links).Error
}

func (r *repository) ListAutoBillableInvoiceIDs(ctx context.Context, dueBy time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.Invoice{}).
		Where("auto_bill_enabled = ? AND is_deleted = ? AND balance > 0", true, false).
		Where("status IN ?", []enums.InvoiceStatus{enums.InvoiceStatusSent, enums.InvoiceStatusPartial}).
		Where("due_date IS NULL OR due_date <= ?", dueBy).
		Order("due_date ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
