package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/types"
)

// Credit has the same shape as an invoice but its balance drains as it is
// applied against invoices or payments.
type Credit struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	ClientID  uuid.UUID `gorm:"column:client_id;type:uuid;not null;index"`
	Number    string    `gorm:"column:number;not null"`

	Status    enums.InvoiceStatus `gorm:"column:status;not null;default:'draft'"`
	LineItems types.LineItems     `gorm:"column:line_items;type:jsonb"`

	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(20,6);not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,6);not null"`
	PaidToDate decimal.Decimal `gorm:"column:paid_to_date;type:numeric(20,6);not null"`

	// InvoiceID is set when the credit was issued against an existing invoice;
	// reconciliation subtracts these from expected paid-to-date.
	InvoiceID *uuid.UUID `gorm:"column:invoice_id;type:uuid"`

	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
