// Package calc computes invoice totals, taxes, and balances from a line-item
// snapshot. Every function here is pure: no I/O, no persistence, no clock.
package calc

import (
	"github.com/shopspring/decimal"

	"github.com/billfold/billfold-backend/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// TaxMapEntry aggregates the taxable base and computed tax for one distinct
// (name, rate) pair. Entries keep first-occurrence order.
type TaxMapEntry struct {
	Name   string
	Rate   decimal.Decimal
	Base   decimal.Decimal
	Amount decimal.Decimal
}

// Result is the output of one calculation pass.
type Result struct {
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
	Balance    decimal.Decimal
	TotalTaxes decimal.Decimal
	TaxMap     []TaxMapEntry
	LineTotals []decimal.Decimal
}

type taxAccumulator struct {
	entries []TaxMapEntry
	index   map[string]int
}

func newTaxAccumulator() *taxAccumulator {
	return &taxAccumulator{index: map[string]int{}}
}

func (a *taxAccumulator) add(name string, rate, base, amount decimal.Decimal) {
	key := name + "|" + rate.String()
	if i, ok := a.index[key]; ok {
		a.entries[i].Base = a.entries[i].Base.Add(base)
		a.entries[i].Amount = a.entries[i].Amount.Add(amount)
		return
	}
	a.index[key] = len(a.entries)
	a.entries = append(a.entries, TaxMapEntry{Name: name, Rate: rate, Base: base, Amount: amount})
}

// Build runs the calculation pass over the snapshot. It never fails: malformed
// input is rejected when the snapshot is constructed.
func Build(snap Snapshot) Result {
	taxes := newTaxAccumulator()

	lineTotals := make([]decimal.Decimal, 0, len(snap.LineItems))
	subtotal := decimal.Zero
	itemTaxTotal := decimal.Zero

	for _, item := range snap.LineItems {
		lineTotal := item.Quantity.Mul(item.Cost)

		if item.Discount.IsPositive() {
			if item.IsAmountDiscount {
				lineTotal = lineTotal.Sub(item.Discount)
			} else {
				lineTotal = lineTotal.Sub(lineTotal.Mul(item.Discount).Div(hundred))
			}
		}

		for _, tax := range []struct {
			name string
			rate decimal.Decimal
		}{
			{item.TaxName1, item.TaxRate1},
			{item.TaxName2, item.TaxRate2},
		} {
			if !tax.rate.IsPositive() {
				continue
			}
			amount := lineTax(lineTotal, tax.rate, snap.UsesInclusiveTaxes)
			taxes.add(tax.name, tax.rate, lineTotal, amount)
			if !snap.UsesInclusiveTaxes {
				itemTaxTotal = itemTaxTotal.Add(amount)
			}
		}

		lineTotals = append(lineTotals, money.Round(lineTotal))
		subtotal = subtotal.Add(lineTotal)
	}

	subtotal = money.Round(subtotal)

	discount := decimal.Zero
	if snap.Discount.IsPositive() {
		if snap.IsAmountDiscount {
			discount = snap.Discount
		} else {
			discount = money.Round(subtotal.Mul(snap.Discount).Div(hundred))
		}
	}

	surchargeTotal := decimal.Zero
	taxableSurcharges := decimal.Zero
	for _, s := range snap.Surcharges {
		if s.Amount.IsZero() {
			continue
		}
		surchargeTotal = surchargeTotal.Add(s.Amount)
		if s.Taxable {
			taxableSurcharges = taxableSurcharges.Add(s.Amount)
		}
	}

	// Header taxes apply to the post-discount subtotal. Surcharges join the
	// base only when their per-slot taxable flag is set.
	headerBase := subtotal.Sub(discount).Add(taxableSurcharges)
	headerTaxTotal := decimal.Zero
	for _, tax := range []struct {
		name string
		rate decimal.Decimal
	}{
		{snap.TaxName1, snap.TaxRate1},
		{snap.TaxName2, snap.TaxRate2},
	} {
		if !tax.rate.IsPositive() {
			continue
		}
		amount := lineTax(headerBase, tax.rate, snap.UsesInclusiveTaxes)
		taxes.add(tax.name, tax.rate, headerBase, amount)
		if !snap.UsesInclusiveTaxes {
			headerTaxTotal = headerTaxTotal.Add(amount)
		}
	}

	total := subtotal.Sub(discount).Add(surchargeTotal)
	if !snap.UsesInclusiveTaxes {
		total = total.Add(itemTaxTotal).Add(headerTaxTotal)
	}
	total = money.Round(total)

	totalTaxes := decimal.Zero
	for _, entry := range taxes.entries {
		totalTaxes = totalTaxes.Add(entry.Amount)
	}

	return Result{
		Subtotal:   subtotal,
		Total:      total,
		Balance:    money.Round(total.Sub(snap.PaidToDate)),
		TotalTaxes: money.Round(totalTaxes),
		TaxMap:     taxes.entries,
		LineTotals: lineTotals,
	}
}

// lineTax computes the tax on base at rate. Inclusive mode backs the tax out
// of the gross figure; exclusive mode adds it on top. Each component rounds to
// cents independently so aggregate figures match what a line-by-line reading
// of the invoice shows.
func lineTax(base, rate decimal.Decimal, inclusive bool) decimal.Decimal {
	if inclusive {
		divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
		return money.Round(base.Sub(base.Div(divisor)))
	}
	return money.Round(base.Mul(rate).Div(hundred))
}
