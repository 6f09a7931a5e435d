package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/enums"
)

// LineItem is one invoice line. Items are immutable once handed to a
// calculation pass; mutation means replacing the whole slice on the invoice.
type LineItem struct {
	Key              string               `json:"key,omitempty"`
	Quantity         decimal.Decimal      `json:"quantity"`
	Cost             decimal.Decimal      `json:"cost"`
	ProductKey       string               `json:"product_key,omitempty"`
	ProductTaxType   enums.ProductTaxType `json:"product_tax_type,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	Discount         decimal.Decimal      `json:"discount"`
	IsAmountDiscount bool                 `json:"is_amount_discount"`
	TaxName1         string               `json:"tax_name1,omitempty"`
	TaxRate1         decimal.Decimal      `json:"tax_rate1"`
	TaxName2         string               `json:"tax_name2,omitempty"`
	TaxRate2         decimal.Decimal      `json:"tax_rate2"`
}

// LineItems serializes to a jsonb column.
type LineItems []LineItem

// Value implements driver.Valuer.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal line items: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *LineItems) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported line items column type %T", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}
