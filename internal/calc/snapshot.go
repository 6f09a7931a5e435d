package calc

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/db/models"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/types"
)

// maxMagnitude bounds any single monetary input; values beyond it are treated
// as malformed rather than silently clamped.
var maxMagnitude = decimal.New(1, 12)

// Surcharge is one of the four custom surcharge slots.
type Surcharge struct {
	Amount  decimal.Decimal
	Taxable bool
}

// Snapshot is the immutable calculator input. Build it with NewSnapshot so the
// input is validated once up front; Build itself never fails.
type Snapshot struct {
	LineItems []types.LineItem

	Discount         decimal.Decimal
	IsAmountDiscount bool

	UsesInclusiveTaxes bool
	TaxName1           string
	TaxRate1           decimal.Decimal
	TaxName2           string
	TaxRate2           decimal.Decimal

	Surcharges [4]Surcharge

	PaidToDate decimal.Decimal
}

type lineItemInput struct {
	Quantity float64 `validate:"gte=0"`
	Cost     float64 `validate:"gte=-1000000000000,lte=1000000000000"`
	TaxRate1 float64 `validate:"gte=0,lte=100"`
	TaxRate2 float64 `validate:"gte=0,lte=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// NewSnapshot assembles and validates a calculator input from an invoice row.
// A malformed line item (negative quantity, out-of-range cost or rate) is
// rejected here, never inside Build.
func NewSnapshot(invoice models.Invoice) (Snapshot, error) {
	for i, item := range invoice.LineItems {
		input := lineItemInput{}
		input.Quantity, _ = item.Quantity.Float64()
		input.Cost, _ = item.Cost.Float64()
		input.TaxRate1, _ = item.TaxRate1.Float64()
		input.TaxRate2, _ = item.TaxRate2.Float64()
		if err := validate.Struct(input); err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err,
				fmt.Sprintf("line item %d is malformed", i))
		}
		if item.Cost.Abs().GreaterThan(maxMagnitude) || item.Quantity.GreaterThan(maxMagnitude) {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("line item %d exceeds magnitude bounds", i))
		}
	}

	items := make([]types.LineItem, len(invoice.LineItems))
	copy(items, invoice.LineItems)

	return Snapshot{
		LineItems:          items,
		Discount:           invoice.Discount,
		IsAmountDiscount:   invoice.IsAmountDiscount,
		UsesInclusiveTaxes: invoice.UsesInclusiveTaxes,
		TaxName1:           invoice.TaxName1,
		TaxRate1:           invoice.TaxRate1,
		TaxName2:           invoice.TaxName2,
		TaxRate2:           invoice.TaxRate2,
		Surcharges: [4]Surcharge{
			{Amount: invoice.CustomSurcharge1, Taxable: invoice.CustomSurchargeTax1},
			{Amount: invoice.CustomSurcharge2, Taxable: invoice.CustomSurchargeTax2},
			{Amount: invoice.CustomSurcharge3, Taxable: invoice.CustomSurchargeTax3},
			{Amount: invoice.CustomSurcharge4, Taxable: invoice.CustomSurchargeTax4},
		},
		PaidToDate: invoice.PaidToDate,
	}, nil
}
