// Package settings resolves the client > group > company settings cascade.
// Each level is a sparse bag; the first level that sets a key wins, and
// unresolved keys fall back to the documented defaults below.
package settings

import (
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/types"
)

// UseCredits values. "on" applies credits automatically during auto-bill,
// "option" leaves credits for manual application, "off" ignores them.
const (
	UseCreditsOn     = "on"
	UseCreditsOption = "option"
	UseCreditsOff    = "off"
)

// Defaults applied when no level of the cascade sets a key.
const (
	DefaultUseCreditsPayment = UseCreditsOn
	DefaultAutoBillRetries   = 3
	DefaultCurrencyCode      = "USD"
	DefaultPaymentTerms      = 30
)

// Resolved is the fully materialized settings view for one client. Every field
// has a value; callers never consult the raw bags.
type Resolved struct {
	CurrencyCode      string
	UseCreditsPayment string
	AutoBillRetries   int
	GatewayFeeEnabled bool
	PaymentTerms      int
}

// Resolve collapses the cascade for a client. group may be nil when the client
// is not assigned to one.
func Resolve(client models.Client, group *models.ClientGroup, company models.Company) Resolved {
	levels := []types.Settings{client.Settings}
	if group != nil {
		levels = append(levels, group.Settings)
	}
	levels = append(levels, company.Settings)

	out := Resolved{
		CurrencyCode:      DefaultCurrencyCode,
		UseCreditsPayment: DefaultUseCreditsPayment,
		AutoBillRetries:   DefaultAutoBillRetries,
		PaymentTerms:      DefaultPaymentTerms,
	}
	if company.CurrencyCode != "" {
		out.CurrencyCode = company.CurrencyCode
	}

	if v := firstString(levels, func(s types.Settings) *string { return s.CurrencyCode }); v != nil {
		out.CurrencyCode = *v
	}
	if v := firstString(levels, func(s types.Settings) *string { return s.UseCreditsPayment }); v != nil {
		out.UseCreditsPayment = *v
	}
	if v := firstInt(levels, func(s types.Settings) *int { return s.AutoBillRetries }); v != nil {
		out.AutoBillRetries = *v
	}
	if v := firstBool(levels, func(s types.Settings) *bool { return s.GatewayFeeEnabled }); v != nil {
		out.GatewayFeeEnabled = *v
	}
	if v := firstInt(levels, func(s types.Settings) *int { return s.PaymentTerms }); v != nil {
		out.PaymentTerms = *v
	}
	return out
}

func firstString(levels []types.Settings, pick func(types.Settings) *string) *string {
	for _, level := range levels {
		if v := pick(level); v != nil {
			return v
		}
	}
	return nil
}

func firstInt(levels []types.Settings, pick func(types.Settings) *int) *int {
	for _, level := range levels {
		if v := pick(level); v != nil {
			return v
		}
	}
	return nil
}

func firstBool(levels []types.Settings, pick func(types.Settings) *bool) *bool {
	for _, level := range levels {
		if v := pick(level); v != nil {
			return v
		}
	}
	return nil
}
