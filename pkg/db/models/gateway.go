package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/enums"
)

// CompanyGateway is a configured payment processor with its transaction limits
// and optional surcharge fee schedule.
type CompanyGateway struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	Label     string    `gorm:"column:label;not null"`

	TokenBilling bool `gorm:"column:token_billing;not null;default:true"`

	MinLimit *decimal.Decimal `gorm:"column:min_limit;type:numeric(20,6)"`
	MaxLimit *decimal.Decimal `gorm:"column:max_limit;type:numeric(20,6)"`

	FeePercent decimal.Decimal `gorm:"column:fee_percent;type:numeric(20,6);not null"`
	FeeFixed   decimal.Decimal `gorm:"column:fee_fixed;type:numeric(20,6);not null"`
	FeeCap     decimal.Decimal `gorm:"column:fee_cap;type:numeric(20,6);not null"`

	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AcceptsAmount applies the gateway's min/max transaction limits.
func (g CompanyGateway) AcceptsAmount(amount decimal.Decimal) bool {
	if g.MinLimit != nil && amount.LessThan(*g.MinLimit) {
		return false
	}
	if g.MaxLimit != nil && amount.GreaterThan(*g.MaxLimit) {
		return false
	}
	return true
}

// Fee computes the surcharge for a charge of the given amount.
func (g CompanyGateway) Fee(amount decimal.Decimal) decimal.Decimal {
	fee := g.FeeFixed
	if g.FeePercent.IsPositive() {
		fee = fee.Add(amount.Mul(g.FeePercent).Div(decimal.NewFromInt(100)))
	}
	if g.FeeCap.IsPositive() && fee.GreaterThan(g.FeeCap) {
		fee = g.FeeCap
	}
	return fee
}

// ClientGatewayToken is a stored, reusable payment instrument reference for a
// client at a specific processor.
type ClientGatewayToken struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID        uuid.UUID              `gorm:"column:company_id;type:uuid;not null"`
	ClientID         uuid.UUID              `gorm:"column:client_id;type:uuid;not null;index"`
	CompanyGatewayID uuid.UUID              `gorm:"column:company_gateway_id;type:uuid;not null"`
	Token            string                 `gorm:"column:token;not null"`
	CustomerRef      string                 `gorm:"column:customer_ref"`
	Type             enums.GatewayTokenType `gorm:"column:type;not null;default:'card'"`
	IsDefault        bool                   `gorm:"column:is_default;not null;default:false"`
	IsDeleted        bool                   `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
