package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/types"
)

// Invoice carries the line items plus the header-level discount, taxes, and
// surcharge slots the calculator consumes. Amount/Balance/PaidToDate move only
// through the ledger engine once the invoice leaves draft.
type Invoice struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	ClientID uuid.UUID  `gorm:"column:client_id;type:uuid;not null;index"`
	Number   string     `gorm:"column:number;not null"`

	Status enums.InvoiceStatus `gorm:"column:status;not null;default:'draft'"`

	LineItems types.LineItems `gorm:"column:line_items;type:jsonb"`

	Discount         decimal.Decimal `gorm:"column:discount;type:numeric(20,6);not null"`
	IsAmountDiscount bool            `gorm:"column:is_amount_discount;not null;default:false"`

	UsesInclusiveTaxes bool            `gorm:"column:uses_inclusive_taxes;not null;default:false"`
	TaxName1           string          `gorm:"column:tax_name1"`
	TaxRate1           decimal.Decimal `gorm:"column:tax_rate1;type:numeric(20,6);not null"`
	TaxName2           string          `gorm:"column:tax_name2"`
	TaxRate2           decimal.Decimal `gorm:"column:tax_rate2;type:numeric(20,6);not null"`

	CustomSurcharge1        decimal.Decimal `gorm:"column:custom_surcharge1;type:numeric(20,6);not null"`
	CustomSurcharge2        decimal.Decimal `gorm:"column:custom_surcharge2;type:numeric(20,6);not null"`
	CustomSurcharge3        decimal.Decimal `gorm:"column:custom_surcharge3;type:numeric(20,6);not null"`
	CustomSurcharge4        decimal.Decimal `gorm:"column:custom_surcharge4;type:numeric(20,6);not null"`
	CustomSurchargeTax1     bool            `gorm:"column:custom_surcharge_tax1;not null;default:false"`
	CustomSurchargeTax2     bool            `gorm:"column:custom_surcharge_tax2;not null;default:false"`
	CustomSurchargeTax3     bool            `gorm:"column:custom_surcharge_tax3;not null;default:false"`
	CustomSurchargeTax4     bool            `gorm:"column:custom_surcharge_tax4;not null;default:false"`

	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,6);not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,6);not null"`
	Partial    decimal.Decimal `gorm:"column:partial;type:numeric(20,6);not null"`
	PaidToDate decimal.Decimal `gorm:"column:paid_to_date;type:numeric(20,6);not null"`

	AutoBillEnabled bool `gorm:"column:auto_bill_enabled;not null;default:false"`
	AutoBillTries   int  `gorm:"column:auto_bill_tries;not null;default:0"`

	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	DueDate   *time.Time `gorm:"column:due_date"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPayable reports whether the auto-bill orchestrator may act on the invoice.
func (i Invoice) IsPayable() bool {
	if i.IsDeleted {
		return false
	}
	if !i.Status.IsOutstanding() {
		return false
	}
	return i.Balance.IsPositive()
}

// InvoiceInvitation links an invoice to the contact invited to view/pay it.
type InvoiceInvitation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID uuid.UUID `gorm:"column:invoice_id;type:uuid;not null;index"`
	ContactID uuid.UUID `gorm:"column:contact_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
