package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/types"
)

// Client owns the rolled-up balance figures. Balance, paid-to-date, and credit
// balance are mutated only through the ledger engine, never written directly.
type Client struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID     uuid.UUID       `gorm:"column:company_id;type:uuid;not null;index"`
	GroupID       *uuid.UUID      `gorm:"column:group_id;type:uuid"`
	Name          string          `gorm:"column:name;not null"`
	Number        string          `gorm:"column:number;not null"`
	CountryCode   string          `gorm:"column:country_code"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(20,6);not null"`
	PaidToDate    decimal.Decimal `gorm:"column:paid_to_date;type:numeric(20,6);not null"`
	CreditBalance decimal.Decimal `gorm:"column:credit_balance;type:numeric(20,6);not null"`
	IsTaxExempt   bool            `gorm:"column:is_tax_exempt;not null;default:false"`
	TaxID         string          `gorm:"column:tax_id"`
	HasValidTaxID bool            `gorm:"column:has_valid_tax_id;not null;default:false"`
	Settings      types.Settings  `gorm:"column:settings;type:jsonb"`
	IsDeleted     bool            `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ClientGroup batches clients sharing a settings overlay.
type ClientGroup struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string         `gorm:"column:name;not null"`
	Settings  types.Settings `gorm:"column:settings;type:jsonb"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// ClientContact is a billing contact. Every client needs at least one; the
// reconciliation engine reports clients without any as missing_contact.
type ClientContact struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID    uuid.UUID `gorm:"column:client_id;type:uuid;not null;index"`
	CompanyID   uuid.UUID `gorm:"column:company_id;type:uuid;not null"`
	Email       string    `gorm:"column:email"`
	Name        string    `gorm:"column:name"`
	IsPrimary   bool      `gorm:"column:is_primary;not null;default:false"`
	OAuthUserID *string   `gorm:"column:oauth_user_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
