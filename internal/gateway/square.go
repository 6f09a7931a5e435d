package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/square"
)

var hundred = decimal.NewFromInt(100)

// SquareCharger adapts the Square client to the Charger capability.
type SquareCharger struct {
	client  *square.Client
	timeout time.Duration
}

// NewSquareCharger wraps a Square client. timeout bounds each charge call; a
// timed-out charge is reported as a transport failure, never as success.
func NewSquareCharger(client *square.Client, timeout time.Duration) (*SquareCharger, error) {
	if client == nil {
		return nil, errors.New("square client is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SquareCharger{client: client, timeout: timeout}, nil
}

// Charge charges a stored card token for the requested amount.
func (s *SquareCharger) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge token is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payment, err := s.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: req.Amount.Mul(hundred).IntPart(),
		Currency:    req.Currency,
		CustomerID:  req.CustomerRef,
		SourceID:    req.Token,
		ReferenceID: req.Reference,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayTransport, err, "charge timed out")
		}
		return nil, err
	}

	raw, _ := json.Marshal(payment)
	result := &ChargeResult{RawResponse: string(raw)}
	if id := payment.GetID(); id != nil {
		result.TransactionRef = *id
	}
	return result, nil
}
