package enums

import "fmt"

// AdjustmentKind classifies the balance-changing events recorded in the client ledger.
type AdjustmentKind string

const (
	AdjustmentKindPaymentApplied   AdjustmentKind = "payment_applied"
	AdjustmentKindCreditApplied    AdjustmentKind = "credit_applied"
	AdjustmentKindLateFee          AdjustmentKind = "late_fee"
	AdjustmentKindGatewayFee       AdjustmentKind = "gateway_fee"
	AdjustmentKindRefund           AdjustmentKind = "refund"
	AdjustmentKindManual           AdjustmentKind = "manual"
	AdjustmentKindCorrection       AdjustmentKind = "correction"
	AdjustmentKindInvoiceAdjusted  AdjustmentKind = "invoice_adjusted"
	AdjustmentKindFeeReversal      AdjustmentKind = "fee_reversal"
)

var validAdjustmentKinds = []AdjustmentKind{
	AdjustmentKindPaymentApplied,
	AdjustmentKindCreditApplied,
	AdjustmentKindLateFee,
	AdjustmentKindGatewayFee,
	AdjustmentKindRefund,
	AdjustmentKindManual,
	AdjustmentKindCorrection,
	AdjustmentKindInvoiceAdjusted,
	AdjustmentKindFeeReversal,
}

// IsValid reports whether the value is known.
func (k AdjustmentKind) IsValid() bool {
	for _, candidate := range validAdjustmentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAdjustmentKind converts raw input into an AdjustmentKind.
func ParseAdjustmentKind(value string) (AdjustmentKind, error) {
	for _, candidate := range validAdjustmentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment kind %q", value)
}
