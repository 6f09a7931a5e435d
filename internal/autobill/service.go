// Package autobill settles payable invoices: available credits first, oldest
// first, then a stored gateway token for any remainder. Failures count toward
// a per-invoice retry limit; hitting it disables auto-billing for the invoice.
package autobill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/internal/events"
	"github.com/billfold/billfold-backend/internal/gateway"
	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/internal/settings"
	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/logger"
	"github.com/billfold/billfold-backend/pkg/money"
)

// CreditApplication records one credit consumption, in application order.
type CreditApplication struct {
	CreditID uuid.UUID
	Amount   decimal.Decimal
}

// Outcome reports what one auto-bill pass did to an invoice.
type Outcome struct {
	InvoiceID          uuid.UUID
	CreditApplications []CreditApplication
	CreditPayment      *models.Payment
	GatewayPayment     *models.Payment
	ChargedAmount      decimal.Decimal
	Settled            bool
}

// ServiceParams groups dependencies for the auto-bill orchestrator.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Ledger  *ledger.Service
	Charger gateway.Charger
	Events  events.Publisher
	Log     *logger.Logger
}

// Service runs the auto-bill state machine per invoice.
type Service struct {
	db      *db.Client
	repo    Repository
	ledger  *ledger.Service
	charger gateway.Charger
	events  events.Publisher
	log     *logger.Logger
}

// NewService builds the orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("ledger service is required")
	}
	if params.Charger == nil {
		return nil, errors.New("charger is required")
	}
	if params.Events == nil {
		params.Events = events.NopPublisher{}
	}
	if params.Log == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		db:      params.DB,
		repo:    params.Repo,
		ledger:  params.Ledger,
		charger: params.Charger,
		events:  params.Events,
		log:     params.Log,
	}, nil
}

// chargePlan is what the credit phase hands to the gateway phase.
type chargePlan struct {
	invoice   *models.Invoice
	client    *models.Client
	resolved  settings.Resolved
	remaining decimal.Decimal
	token     *BillableToken
	fee       decimal.Decimal
}

// ProcessInvoice runs one full auto-bill pass. Credit applications commit even
// when the gateway step later fails; the fee added before a failed charge is
// always unwound.
func (s *Service) ProcessInvoice(ctx context.Context, invoiceID uuid.UUID) (*Outcome, error) {
	ctx = s.log.WithInvoiceID(ctx, invoiceID.String())

	outcome := &Outcome{InvoiceID: invoiceID}
	var plan *chargePlan

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		p, err := s.applyCredits(ctx, tx, invoiceID, outcome)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plan.remaining.LessThanOrEqual(decimal.Zero) {
		outcome.Settled = true
		s.publishSettlement(ctx, plan, outcome)
		return outcome, nil
	}

	if plan.token == nil {
		s.events.Publish(ctx, events.Event{
			Type:      events.TypePaymentFailed,
			CompanyID: plan.invoice.CompanyID,
			ClientID:  plan.client.ID,
			InvoiceID: &plan.invoice.ID,
			Detail:    map[string]any{"reason": "no payment method"},
		})
		return outcome, pkgerrors.New(pkgerrors.CodeNoPaymentMethod, "no eligible payment method for invoice")
	}

	// Last cancellation point: a charge in flight cannot be taken back.
	if err := ctx.Err(); err != nil {
		if unwindErr := s.unwindFee(ctx, plan); unwindErr != nil {
			return nil, unwindErr
		}
		return nil, err
	}

	chargeAmount := plan.remaining.Add(plan.fee)
	result, chargeErr := s.charger.Charge(ctx, gateway.ChargeRequest{
		Token:       plan.token.Token.Token,
		CustomerRef: plan.token.Token.CustomerRef,
		Amount:      chargeAmount,
		Currency:    plan.resolved.CurrencyCode,
		Reference:   plan.invoice.Number,
	})
	if chargeErr != nil {
		return outcome, s.recordFailure(ctx, plan, chargeErr)
	}

	if err := s.recordSuccess(ctx, plan, result, chargeAmount, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// applyCredits covers the payable check, the greedy oldest-first credit pass,
// token selection, and the optional fee add. Runs inside one transaction.
func (s *Service) applyCredits(ctx context.Context, tx *gorm.DB, invoiceID uuid.UUID, outcome *Outcome) (*chargePlan, error) {
	repo := s.repo.WithTx(tx)

	invoice, err := repo.FindInvoice(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "invoice not found")
	}
	if !invoice.IsPayable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invoice is not in a payable state")
	}

	client, err := repo.FindClient(ctx, invoice.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "client not found")
	}
	company, err := repo.FindCompany(ctx, invoice.CompanyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "company not found")
	}
	var group *models.ClientGroup
	if client.GroupID != nil {
		group, err = repo.FindGroup(ctx, *client.GroupID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "client group not found")
		}
	}
	resolved := settings.Resolve(*client, group, *company)

	// Partial target takes precedence over the full balance.
	target := invoice.Balance
	partialTarget := invoice.Partial.IsPositive()
	if partialTarget {
		target = invoice.Partial
	}

	remaining := target
	if resolved.UseCreditsPayment == settings.UseCreditsOn {
		remaining, err = s.consumeCredits(ctx, tx, repo, invoice, client, target, outcome)
		if err != nil {
			return nil, err
		}
	}

	if partialTarget {
		if err := repo.UpdateInvoicePartial(ctx, invoice.ID, remaining); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update partial target")
		}
	}

	plan := &chargePlan{
		invoice:   invoice,
		client:    client,
		resolved:  resolved,
		remaining: remaining,
	}
	if remaining.LessThanOrEqual(decimal.Zero) {
		return plan, nil
	}

	tokens, err := repo.ListBillableTokens(ctx, client.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gateway tokens")
	}
	for i := range tokens {
		if tokens[i].Gateway.AcceptsAmount(remaining) {
			plan.token = &tokens[i]
			break
		}
	}
	if plan.token == nil {
		return plan, nil
	}

	if resolved.GatewayFeeEnabled {
		fee := money.Round(plan.token.Gateway.Fee(remaining))
		if fee.IsPositive() {
			if _, err := s.ledger.Apply(ctx, tx, ledger.Adjustment{
				ClientID:  client.ID,
				InvoiceID: &invoice.ID,
				Kind:      enums.AdjustmentKindGatewayFee,
				Delta:     fee,
				Notes:     "gateway fee added before charge",
			}); err != nil {
				return nil, err
			}
			plan.fee = fee
		}
	}
	return plan, nil
}

func (s *Service) consumeCredits(ctx context.Context, tx *gorm.DB, repo Repository, invoice *models.Invoice, client *models.Client, target decimal.Decimal, outcome *Outcome) (decimal.Decimal, error) {
	credits, err := repo.ListAvailableCredits(ctx, client.ID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credits")
	}

	remaining := target
	for i := range credits {
		if !remaining.IsPositive() {
			break
		}
		credit := &credits[i]
		applied := decimal.Min(credit.Balance, remaining)

		if _, err := s.ledger.Apply(ctx, tx, ledger.Adjustment{
			ClientID:        client.ID,
			InvoiceID:       &invoice.ID,
			Kind:            enums.AdjustmentKindCreditApplied,
			Delta:           applied.Neg(),
			PaidToDateDelta: applied,
			CreditDelta:     applied.Neg(),
			Notes:           fmt.Sprintf("credit %s applied", credit.Number),
		}); err != nil {
			return decimal.Zero, err
		}

		credit.Balance = credit.Balance.Sub(applied)
		credit.PaidToDate = credit.PaidToDate.Add(applied)
		if credit.Balance.IsZero() {
			credit.Status = enums.InvoiceStatusPaid
		}
		if err := repo.UpdateCreditBalance(ctx, credit); err != nil {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update credit balance")
		}

		outcome.CreditApplications = append(outcome.CreditApplications, CreditApplication{
			CreditID: credit.ID,
			Amount:   applied,
		})
		remaining = remaining.Sub(applied)
	}

	if len(outcome.CreditApplications) == 0 {
		return remaining, nil
	}

	total := decimal.Zero
	for _, application := range outcome.CreditApplications {
		total = total.Add(application.Amount)
	}

	payment := &models.Payment{
		CompanyID:    invoice.CompanyID,
		ClientID:     client.ID,
		Number:       fmt.Sprintf("PAY-%s", uuid.NewString()[:8]),
		Status:       enums.PaymentStatusCompleted,
		Type:         models.PaymentTypeCredit,
		Amount:       total,
		Applied:      total,
		CurrencyCode: clientCurrency(client),
	}
	if err := repo.CreatePayment(ctx, payment); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit payment")
	}

	links := []models.Paymentable{{
		PaymentID:   payment.ID,
		PayableID:   invoice.ID,
		PayableType: models.PayableTypeInvoice,
		Amount:      total,
	}}
	for _, application := range outcome.CreditApplications {
		links = append(links, models.Paymentable{
			PaymentID:   payment.ID,
			PayableID:   application.CreditID,
			PayableType: models.PayableTypeCredit,
			Amount:      application.Amount,
		})
	}
	if err := repo.CreatePaymentables(ctx, links); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link credit payment")
	}

	outcome.CreditPayment = payment
	return remaining, nil
}

func (s *Service) recordSuccess(ctx context.Context, plan *chargePlan, result *gateway.ChargeResult, chargeAmount decimal.Decimal, outcome *Outcome) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment := &models.Payment{
			CompanyID:    plan.invoice.CompanyID,
			ClientID:     plan.client.ID,
			Number:       fmt.Sprintf("PAY-%s", uuid.NewString()[:8]),
			Status:       enums.PaymentStatusCompleted,
			Type:         models.PaymentTypeToken,
			Amount:       chargeAmount,
			Applied:      chargeAmount,
			CurrencyCode: plan.resolved.CurrencyCode,
		}
		if result.TransactionRef != "" {
			ref := result.TransactionRef
			payment.TransactionRef = &ref
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := repo.CreatePaymentables(ctx, []models.Paymentable{{
			PaymentID:   payment.ID,
			PayableID:   plan.invoice.ID,
			PayableType: models.PayableTypeInvoice,
			Amount:      chargeAmount,
		}}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link payment")
		}

		if _, err := s.ledger.Apply(ctx, tx, ledger.Adjustment{
			ClientID:        plan.client.ID,
			InvoiceID:       &plan.invoice.ID,
			Kind:            enums.AdjustmentKindPaymentApplied,
			Delta:           chargeAmount.Neg(),
			PaidToDateDelta: chargeAmount,
			Notes:           fmt.Sprintf("payment %s applied", payment.Number),
		}); err != nil {
			return err
		}

		if plan.invoice.Partial.IsPositive() {
			if err := repo.UpdateInvoicePartial(ctx, plan.invoice.ID, decimal.Zero); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear partial target")
			}
		}
		// A clean charge restarts the failure budget.
		if err := repo.UpdateInvoiceAutoBill(ctx, plan.invoice.ID, 0, plan.invoice.AutoBillEnabled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset auto-bill tries")
		}

		outcome.GatewayPayment = payment
		outcome.ChargedAmount = chargeAmount
		outcome.Settled = true
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypeGatewayResponseLogged,
		CompanyID: plan.invoice.CompanyID,
		ClientID:  plan.client.ID,
		InvoiceID: &plan.invoice.ID,
		Detail:    map[string]any{"raw": result.RawResponse},
	})
	s.publishSettlement(ctx, plan, outcome)
	return nil
}

// recordFailure persists the deliberate side effects of a failed charge: the
// fee unwind and the tries increment. Everything else rolls back with the
// charge that never happened.
func (s *Service) recordFailure(ctx context.Context, plan *chargePlan, chargeErr error) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if plan.fee.IsPositive() {
			if _, err := s.ledger.Apply(ctx, tx, ledger.Adjustment{
				ClientID:  plan.client.ID,
				InvoiceID: &plan.invoice.ID,
				Kind:      enums.AdjustmentKindFeeReversal,
				Delta:     plan.fee.Neg(),
				Notes:     "gateway fee unwound after failed charge",
			}); err != nil {
				return err
			}
		}

		tries := plan.invoice.AutoBillTries + 1
		enabled := plan.invoice.AutoBillEnabled
		if tries >= plan.resolved.AutoBillRetries {
			enabled = false
			tries = 0
		}
		if err := repo.UpdateInvoiceAutoBill(ctx, plan.invoice.ID, tries, enabled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record auto-bill failure")
		}

		if !enabled {
			s.log.Warn(ctx, "auto-bill disabled after repeated gateway failures")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Publish(ctx, events.Event{
		Type:      events.TypePaymentFailed,
		CompanyID: plan.invoice.CompanyID,
		ClientID:  plan.client.ID,
		InvoiceID: &plan.invoice.ID,
		Detail:    map[string]any{"reason": chargeErr.Error()},
	})
	s.events.Publish(ctx, events.Event{
		Type:      events.TypeGatewayResponseLogged,
		CompanyID: plan.invoice.CompanyID,
		ClientID:  plan.client.ID,
		InvoiceID: &plan.invoice.ID,
		Detail:    map[string]any{"error": chargeErr.Error()},
	})
	return chargeErr
}

func (s *Service) unwindFee(ctx context.Context, plan *chargePlan) error {
	if !plan.fee.IsPositive() {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ledger.Apply(ctx, tx, ledger.Adjustment{
			ClientID:  plan.client.ID,
			InvoiceID: &plan.invoice.ID,
			Kind:      enums.AdjustmentKindFeeReversal,
			Delta:     plan.fee.Neg(),
			Notes:     "gateway fee unwound before charge",
		})
		return err
	})
}

func (s *Service) publishSettlement(ctx context.Context, plan *chargePlan, outcome *Outcome) {
	payment := outcome.GatewayPayment
	if payment == nil {
		payment = outcome.CreditPayment
	}
	if payment != nil {
		id := payment.ID
		s.events.Publish(ctx, events.Event{
			Type:      events.TypePaymentCreated,
			CompanyID: plan.invoice.CompanyID,
			ClientID:  plan.client.ID,
			InvoiceID: &plan.invoice.ID,
			PaymentID: &id,
		})
	}

	invoice, err := s.repo.FindInvoice(ctx, plan.invoice.ID)
	if err != nil {
		s.log.Error(ctx, "reload invoice after settlement", err)
		return
	}
	if invoice.Status == enums.InvoiceStatusPaid {
		s.events.Publish(ctx, events.Event{
			Type:      events.TypeInvoicePaid,
			CompanyID: invoice.CompanyID,
			ClientID:  invoice.ClientID,
			InvoiceID: &invoice.ID,
		})
	}
}

// ProcessDue sweeps invoices due on or before dueBy through ProcessInvoice
// with a bounded worker pool. Per-invoice failures are logged, not fatal:
// one bad invoice never stops the sweep.
func (s *Service) ProcessDue(ctx context.Context, dueBy time.Time, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	ids, err := s.repo.ListAutoBillableInvoiceIDs(ctx, dueBy)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list auto-billable invoices")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	processed := 0
	results := make(chan bool, len(ids))
	for _, id := range ids {
		id := id
		group.Go(func() error {
			if _, err := s.ProcessInvoice(groupCtx, id); err != nil {
				s.log.Error(s.log.WithInvoiceID(groupCtx, id.String()), "auto-bill pass failed", err)
				results <- false
				return nil
			}
			results <- true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return processed, err
	}
	close(results)
	for ok := range results {
		if ok {
			processed++
		}
	}
	return processed, nil
}

func clientCurrency(client *models.Client) string {
	if client.Settings.CurrencyCode != nil && *client.Settings.CurrencyCode != "" {
		return *client.Settings.CurrencyCode
	}
	return settings.DefaultCurrencyCode
}
