package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Settings is a sparse property bag stored per client, group, and company.
// Resolution happens in internal/settings with client > group > company priority;
// nil pointers mean "not set at this level".
type Settings struct {
	CurrencyCode      *string `json:"currency_code,omitempty"`
	UseCreditsPayment *string `json:"use_credits_payment,omitempty"` // on | off | option
	AutoBillRetries   *int    `json:"auto_bill_retries,omitempty"`
	GatewayFeeEnabled *bool   `json:"gateway_fee_enabled,omitempty"`
	PaymentTerms      *int    `json:"payment_terms,omitempty"`
}

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (s *Settings) Scan(value any) error {
	if value == nil {
		*s = Settings{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported settings column type %T", value)
	}
	if len(raw) == 0 {
		*s = Settings{}
		return nil
	}
	return json.Unmarshal(raw, s)
}
