package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/enums"
)

// PaymentTypeCredit marks payments funded entirely by credits (no gateway call).
const (
	PaymentTypeCredit = "credit"
	PaymentTypeToken  = "token"
)

// Payment records money received. Applied may be less than Amount when the
// client overpaid; the surplus sits on the client as a negative balance.
type Payment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	ClientID  uuid.UUID `gorm:"column:client_id;type:uuid;not null;index"`
	Number    string    `gorm:"column:number;not null"`

	Status enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	Type   string              `gorm:"column:type;not null;default:'token'"`

	Amount   decimal.Decimal `gorm:"column:amount;type:numeric(20,6);not null"`
	Applied  decimal.Decimal `gorm:"column:applied;type:numeric(20,6);not null"`
	Refunded decimal.Decimal `gorm:"column:refunded;type:numeric(20,6);not null"`

	CurrencyCode   string  `gorm:"column:currency_code;not null;default:'USD'"`
	TransactionRef *string `gorm:"column:transaction_ref"`

	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate fills the id when the dialect has no uuid default.
func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Paymentable join types.
const (
	PayableTypeInvoice = "invoice"
	PayableTypeCredit  = "credit"
)

// Paymentable links a payment to an invoice or credit with the per-link
// applied/refunded amounts.
type Paymentable struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID   uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	PayableID   uuid.UUID       `gorm:"column:payable_id;type:uuid;not null;index"`
	PayableType string          `gorm:"column:payable_type;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(20,6);not null"`
	Refunded    decimal.Decimal `gorm:"column:refunded;type:numeric(20,6);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate fills the id when the dialect has no uuid default.
func (p *Paymentable) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
