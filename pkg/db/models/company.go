package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/types"
)

// Company is the seller entity. Jurisdiction selects the tax rule variant at
// configuration time; TaxData carries the per-region rate tables.
type Company struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	CountryCode  string             `gorm:"column:country_code;not null"`
	CurrencyCode string             `gorm:"column:currency_code;not null;default:'USD'"`
	Jurisdiction enums.Jurisdiction `gorm:"column:jurisdiction;not null;default:'ZZ'"`
	RegionCodes  pq.StringArray     `gorm:"column:region_codes;type:text[]"`
	TaxData      types.TaxData      `gorm:"column:tax_data;type:jsonb"`
	Settings     types.Settings     `gorm:"column:settings;type:jsonb"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
