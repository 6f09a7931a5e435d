// Package tax resolves the (name, rate) pair to apply to a line item from the
// seller's jurisdiction configuration and the buyer's tax profile. Resolution
// is pure and stateless; each supported jurisdiction is one Provider variant
// selected at company-configuration time.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/types"
)

// RateSet is the resolved outcome: up to two named rates. Rate2 is unused by
// the current variants but kept so compound jurisdictions can fill it without
// an interface change.
type RateSet struct {
	Name1 string
	Rate1 decimal.Decimal
	Name2 string
	Rate2 decimal.Decimal
}

// Zero is the exempt outcome: no name, no rate.
var Zero = RateSet{}

// SellerProfile is the seller-side input, derived from the company row.
type SellerProfile struct {
	Region    string
	Subregion string
	// Subregions enumerates the sub-region codes that belong to the seller's
	// broad region for membership checks.
	Subregions []string
	TaxData    types.TaxData
}

// ClientProfile is the buyer-side input, derived from the client row.
type ClientProfile struct {
	Region        string
	Subregion     string
	IsTaxExempt   bool
	HasValidTaxID bool
	IsBusiness    bool
}

// Provider resolves tax for one jurisdiction. Implementations are pure.
type Provider interface {
	Jurisdiction() enums.Jurisdiction
	Resolve(seller SellerProfile, client ClientProfile, productType enums.ProductTaxType) RateSet
}

// NewSellerProfile derives the resolver input from a company row.
func NewSellerProfile(company models.Company) SellerProfile {
	return SellerProfile{
		Region:     regionForJurisdiction(company.Jurisdiction),
		Subregion:  company.TaxData.SellerSubregion,
		Subregions: company.RegionCodes,
		TaxData:    company.TaxData,
	}
}

// NewClientProfile derives the resolver input from a client row. The client's
// sub-region is its country code; the broad region is inferred from the
// seller's configured region membership at resolve time, so only exemption
// flags and codes are captured here.
func NewClientProfile(client models.Client) ClientProfile {
	return ClientProfile{
		Subregion:     client.CountryCode,
		IsTaxExempt:   client.IsTaxExempt,
		HasValidTaxID: client.HasValidTaxID,
		IsBusiness:    client.HasValidTaxID,
	}
}

func regionForJurisdiction(j enums.Jurisdiction) string {
	switch j {
	case enums.JurisdictionDE:
		return "EU"
	case enums.JurisdictionUS:
		return "US"
	case enums.JurisdictionAU:
		return "AU"
	default:
		return ""
	}
}

// ForJurisdiction returns the provider variant for a jurisdiction. Unknown
// values fall back to the zero-rate provider rather than failing, matching the
// treatment of sellers with no tax configuration.
func ForJurisdiction(j enums.Jurisdiction) Provider {
	switch j {
	case enums.JurisdictionDE:
		return euProvider{}
	case enums.JurisdictionUS:
		return usProvider{}
	case enums.JurisdictionAU:
		return auProvider{}
	default:
		return zeroProvider{}
	}
}

func (s SellerProfile) memberSubregion(code string) bool {
	for _, candidate := range s.Subregions {
		if candidate == code {
			return true
		}
	}
	return false
}

func (s SellerProfile) regionConfig() types.RegionConfig {
	return s.TaxData.Regions[s.Region]
}

func (s SellerProfile) ownRate() (types.SubregionRate, bool) {
	return s.TaxData.SubregionRateFor(s.Region, s.Subregion)
}

// resolveRegion runs the shared priority ladder. First matching case wins:
//
//  1. client marked exempt
//  2. in-region business with a valid tax ID, B2B exemption enabled
//  3. out-of-region client with the matching foreign exemption enabled
//  4. in-region consumer: destination rate once the seller crossed the sales
//     threshold, seller's own rate otherwise
//  5. seller's own rate
func resolveRegion(seller SellerProfile, client ClientProfile) (string, decimal.Decimal, types.SubregionRate) {
	cfg := seller.regionConfig()
	inRegion := seller.memberSubregion(client.Subregion)

	if client.IsTaxExempt {
		return "", decimal.Zero, types.SubregionRate{}
	}

	if inRegion && client.HasValidTaxID && cfg.BusinessTaxExempt && client.Subregion != seller.Subregion {
		return "", decimal.Zero, types.SubregionRate{}
	}

	if !inRegion {
		if client.IsBusiness && cfg.ForeignBusinessTaxExempt {
			return "", decimal.Zero, types.SubregionRate{}
		}
		if !client.IsBusiness && cfg.ForeignConsumerTaxExempt {
			return "", decimal.Zero, types.SubregionRate{}
		}
	}

	if inRegion && !client.HasValidTaxID && cfg.HasSalesAboveThreshold {
		if rate, ok := seller.TaxData.SubregionRateFor(seller.Region, client.Subregion); ok {
			return rate.TaxName, rate.TaxRate, rate
		}
	}

	if rate, ok := seller.ownRate(); ok {
		return rate.TaxName, rate.TaxRate, rate
	}
	return "", decimal.Zero, types.SubregionRate{}
}

// byType re-derives the applied pair from the product tag after the region
// logic has picked the base rate. It never re-runs region resolution.
func byType(name string, rate decimal.Decimal, source types.SubregionRate, productType enums.ProductTaxType) RateSet {
	switch productType {
	case enums.ProductTaxTypeExempt:
		return Zero
	case enums.ProductTaxTypeReduced:
		return RateSet{Name1: source.TaxName, Rate1: source.ReducedTaxRate}
	case enums.ProductTaxTypeOverride:
		return RateSet{Name1: name, Rate1: rate}
	default:
		return RateSet{Name1: name, Rate1: rate}
	}
}
