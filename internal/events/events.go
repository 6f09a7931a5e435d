// Package events publishes billing lifecycle events. Publishing is
// fire-and-forget from the orchestrator's perspective: a publish failure is
// logged and never fails the financial operation that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/pubsub"
)

// Event types emitted by the auto-bill orchestrator.
const (
	TypePaymentCreated        = "payment_created"
	TypeInvoicePaid           = "invoice_paid"
	TypePaymentFailed         = "payment_failed"
	TypeGatewayResponseLogged = "gateway_response_logged"
)

// Event is one billing lifecycle notification.
type Event struct {
	Type      string         `json:"type"`
	CompanyID uuid.UUID      `json:"company_id"`
	ClientID  uuid.UUID      `json:"client_id"`
	InvoiceID *uuid.UUID     `json:"invoice_id,omitempty"`
	PaymentID *uuid.UUID     `json:"payment_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	At        time.Time      `json:"at"`
}

// Publisher is the outbound event capability.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

const publishTimeout = 10 * time.Second

// PubSubPublisher emits events on the billing topic.
type PubSubPublisher struct {
	publisher *gcppubsub.Publisher
	log       *logger.Logger
}

// NewPubSubPublisher wires the billing topic publisher.
func NewPubSubPublisher(client *pubsub.Client, log *logger.Logger) *PubSubPublisher {
	return &PubSubPublisher{publisher: client.BillingPublisher(), log: log}
}

// Publish sends the event and logs failures without propagating them.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error(ctx, "marshal billing event", err)
		return
	}
	if p.publisher == nil {
		p.log.Warn(p.log.WithField(ctx, "event_type", event.Type), "billing topic not configured, dropping event")
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type": event.Type,
			"client_id":  event.ClientID.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		p.log.Error(p.log.WithField(ctx, "event_type", event.Type), "publish billing event", err)
	}
}

// NopPublisher drops events. Used when eventing is not configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) {}
