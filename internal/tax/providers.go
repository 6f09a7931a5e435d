package tax

import (
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/types"
)

// euProvider covers EU sellers (configured via the DE jurisdiction). It runs
// the full ladder including the intra-EU reverse-charge case for businesses
// holding a valid VAT ID.
type euProvider struct{}

func (euProvider) Jurisdiction() enums.Jurisdiction { return enums.JurisdictionDE }

func (euProvider) Resolve(seller SellerProfile, client ClientProfile, productType enums.ProductTaxType) RateSet {
	name, rate, source := resolveRegion(seller, client)
	return byType(name, rate, source, productType)
}

// usProvider resolves US sales tax. There is no reverse-charge concept, so the
// valid-tax-ID case never exempts; everything else follows the shared ladder
// (economic-nexus threshold picks the destination state's rate).
type usProvider struct{}

func (usProvider) Jurisdiction() enums.Jurisdiction { return enums.JurisdictionUS }

func (usProvider) Resolve(seller SellerProfile, client ClientProfile, productType enums.ProductTaxType) RateSet {
	cfg := seller.regionConfig()
	inRegion := seller.memberSubregion(client.Subregion)

	if client.IsTaxExempt {
		return Zero
	}
	if !inRegion {
		if client.IsBusiness && cfg.ForeignBusinessTaxExempt {
			return Zero
		}
		if !client.IsBusiness && cfg.ForeignConsumerTaxExempt {
			return Zero
		}
	}

	var name string
	var rate decimal.Decimal
	var source types.SubregionRate
	found := false
	if inRegion && cfg.HasSalesAboveThreshold {
		if dest, ok := seller.TaxData.SubregionRateFor(seller.Region, client.Subregion); ok {
			name, rate, source, found = dest.TaxName, dest.TaxRate, dest, true
		}
	}
	if !found {
		if own, ok := seller.ownRate(); ok {
			name, rate, source = own.TaxName, own.TaxRate, own
		}
	}
	return byType(name, rate, source, productType)
}

// auProvider resolves Australian GST: one flat rate for domestic sales, zero
// for exempt clients and for exports when the foreign exemptions are enabled.
type auProvider struct{}

func (auProvider) Jurisdiction() enums.Jurisdiction { return enums.JurisdictionAU }

func (auProvider) Resolve(seller SellerProfile, client ClientProfile, productType enums.ProductTaxType) RateSet {
	cfg := seller.regionConfig()

	if client.IsTaxExempt {
		return Zero
	}
	if !seller.memberSubregion(client.Subregion) {
		if client.IsBusiness && cfg.ForeignBusinessTaxExempt {
			return Zero
		}
		if !client.IsBusiness && cfg.ForeignConsumerTaxExempt {
			return Zero
		}
	}

	own, ok := seller.ownRate()
	if !ok {
		return Zero
	}
	return byType(own.TaxName, own.TaxRate, own, productType)
}

// zeroProvider is the fallback for unsupported jurisdictions: everything is
// untaxed until the seller configures a supported one.
type zeroProvider struct{}

func (zeroProvider) Jurisdiction() enums.Jurisdiction { return enums.JurisdictionZZ }

func (zeroProvider) Resolve(SellerProfile, ClientProfile, enums.ProductTaxType) RateSet {
	return Zero
}
