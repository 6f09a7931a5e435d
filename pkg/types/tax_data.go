package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SubregionRate is the configured rate pair for one sub-region (country/state).
type SubregionRate struct {
	TaxRate        decimal.Decimal `json:"tax_rate"`
	ReducedTaxRate decimal.Decimal `json:"reduced_tax_rate"`
	TaxName        string          `json:"tax_name"`
}

// RegionConfig holds the seller's configuration for one broad region.
type RegionConfig struct {
	HasSalesAboveThreshold   bool                     `json:"has_sales_above_threshold"`
	BusinessTaxExempt        bool                     `json:"business_tax_exempt"`
	ForeignConsumerTaxExempt bool                     `json:"foreign_consumer_tax_exempt"`
	ForeignBusinessTaxExempt bool                     `json:"foreign_business_tax_exempt"`
	Subregions               map[string]SubregionRate `json:"subregions"`
}

// TaxData is the seller-side tax configuration serialized on the company row.
type TaxData struct {
	SellerSubregion string                  `json:"seller_subregion"`
	Regions         map[string]RegionConfig `json:"regions"`
}

// SubregionRateFor looks up the configured rate for a sub-region within a region.
func (t TaxData) SubregionRateFor(region, subregion string) (SubregionRate, bool) {
	cfg, ok := t.Regions[region]
	if !ok {
		return SubregionRate{}, false
	}
	rate, ok := cfg.Subregions[subregion]
	return rate, ok
}

// Value implements driver.Valuer.
func (t TaxData) Value() (driver.Value, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tax data: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (t *TaxData) Scan(value any) error {
	if value == nil {
		*t = TaxData{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported tax data column type %T", value)
	}
	if len(raw) == 0 {
		*t = TaxData{}
		return nil
	}
	return json.Unmarshal(raw, t)
}
