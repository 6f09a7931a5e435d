package enums

import "fmt"

// ProductTaxType tags a line item with the tax treatment its product demands.
type ProductTaxType string

const (
	ProductTaxTypePhysical ProductTaxType = "physical"
	ProductTaxTypeDigital  ProductTaxType = "digital"
	ProductTaxTypeService  ProductTaxType = "service"
	ProductTaxTypeShipping ProductTaxType = "shipping"
	ProductTaxTypeExempt   ProductTaxType = "exempt"
	ProductTaxTypeReduced  ProductTaxType = "reduced"
	ProductTaxTypeOverride ProductTaxType = "override"
)

var validProductTaxTypes = []ProductTaxType{
	ProductTaxTypePhysical,
	ProductTaxTypeDigital,
	ProductTaxTypeService,
	ProductTaxTypeShipping,
	ProductTaxTypeExempt,
	ProductTaxTypeReduced,
	ProductTaxTypeOverride,
}

// IsValid reports whether the value is known.
func (t ProductTaxType) IsValid() bool {
	for _, candidate := range validProductTaxTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseProductTaxType converts raw input into a ProductTaxType.
func ParseProductTaxType(value string) (ProductTaxType, error) {
	for _, candidate := range validProductTaxTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product tax type %q", value)
}
