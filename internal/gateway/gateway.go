// Package gateway defines the outbound payment capability the auto-bill
// orchestrator charges through. Concrete processors plug in behind Charger;
// auto-billing only sees declined/transport error codes and a transaction ref.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest is one charge against a stored payment instrument.
type ChargeRequest struct {
	Token       string
	CustomerRef string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
}

// ChargeResult reports a successful charge.
type ChargeResult struct {
	TransactionRef string
	RawResponse    string
}

// Charger is the capability interface a processor implements. A charge in
// flight cannot be cancelled; ctx cancellation is only honored before the
// call leaves the process.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
