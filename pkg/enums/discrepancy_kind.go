package enums

import "fmt"

// DiscrepancyKind names the integrity checks the reconciliation engine performs.
type DiscrepancyKind string

const (
	DiscrepancyPaidToDateMismatch    DiscrepancyKind = "paid_to_date_mismatch"
	DiscrepancyClientBalanceMismatch DiscrepancyKind = "client_balance_mismatch"
	DiscrepancyLedgerBalanceMismatch DiscrepancyKind = "ledger_balance_mismatch"
	DiscrepancyInvoiceCompanyDrift   DiscrepancyKind = "invoice_company_mismatch"
	DiscrepancyMissingContact        DiscrepancyKind = "missing_contact"
	DiscrepancyMissingInvitation     DiscrepancyKind = "missing_invitation"
	DiscrepancyOrphanedOAuthID       DiscrepancyKind = "orphaned_oauth_id"
)

var validDiscrepancyKinds = []DiscrepancyKind{
	DiscrepancyPaidToDateMismatch,
	DiscrepancyClientBalanceMismatch,
	DiscrepancyLedgerBalanceMismatch,
	DiscrepancyInvoiceCompanyDrift,
	DiscrepancyMissingContact,
	DiscrepancyMissingInvitation,
	DiscrepancyOrphanedOAuthID,
}

// String implements fmt.Stringer.
func (k DiscrepancyKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k DiscrepancyKind) IsValid() bool {
	for _, candidate := range validDiscrepancyKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// Correctable reports whether fix mode may write a corrective entry for this kind.
// Structural drift (foreign keys, contacts, invitations) needs operator attention.
func (k DiscrepancyKind) Correctable() bool {
	switch k {
	case DiscrepancyPaidToDateMismatch, DiscrepancyClientBalanceMismatch, DiscrepancyLedgerBalanceMismatch:
		return true
	default:
		return false
	}
}

// DiscrepancyKinds returns the full check list in report order.
func DiscrepancyKinds() []DiscrepancyKind {
	kinds := make([]DiscrepancyKind, len(validDiscrepancyKinds))
	copy(kinds, validDiscrepancyKinds)
	return kinds
}

// ParseDiscrepancyKind converts raw input into a DiscrepancyKind.
func ParseDiscrepancyKind(value string) (DiscrepancyKind, error) {
	for _, candidate := range validDiscrepancyKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discrepancy kind %q", value)
}
