package autobill

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/internal/events"
	"github.com/billfold/billfold-backend/internal/gateway"
	"github.com/billfold/billfold-backend/internal/ledger"
	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/logger"
)

func setupAutoBillTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	companies := `
CREATE TABLE IF NOT EXISTS companies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  country_code TEXT NOT NULL,
  currency_code TEXT NOT NULL DEFAULT 'USD',
  jurisdiction TEXT NOT NULL DEFAULT 'ZZ',
  region_codes TEXT,
  tax_data TEXT,
  settings TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	groups := `
CREATE TABLE IF NOT EXISTS client_groups (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  name TEXT NOT NULL,
  settings TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	clients := `
CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  group_id TEXT,
  name TEXT NOT NULL,
  number TEXT NOT NULL,
  country_code TEXT,
  balance NUMERIC NOT NULL DEFAULT 0,
  paid_to_date NUMERIC NOT NULL DEFAULT 0,
  credit_balance NUMERIC NOT NULL DEFAULT 0,
  is_tax_exempt INTEGER NOT NULL DEFAULT 0,
  tax_id TEXT,
  has_valid_tax_id INTEGER NOT NULL DEFAULT 0,
  settings TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	invoices := `
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  line_items TEXT,
  discount NUMERIC NOT NULL DEFAULT 0,
  is_amount_discount INTEGER NOT NULL DEFAULT 0,
  uses_inclusive_taxes INTEGER NOT NULL DEFAULT 0,
  tax_name1 TEXT,
  tax_rate1 NUMERIC NOT NULL DEFAULT 0,
  tax_name2 TEXT,
  tax_rate2 NUMERIC NOT NULL DEFAULT 0,
  custom_surcharge1 NUMERIC NOT NULL DEFAULT 0,
  custom_surcharge2 NUMERIC NOT NULL DEFAULT 0,
  custom_surcharge3 NUMERIC NOT NULL DEFAULT 0,
  custom_surcharge4 NUMERIC NOT NULL DEFAULT 0,
  custom_surcharge_tax1 INTEGER NOT NULL DEFAULT 0,
  custom_surcharge_tax2 INTEGER NOT NULL DEFAULT 0,
  custom_surcharge_tax3 INTEGER NOT NULL DEFAULT 0,
  custom_surcharge_tax4 INTEGER NOT NULL DEFAULT 0,
  amount NUMERIC NOT NULL DEFAULT 0,
  balance NUMERIC NOT NULL DEFAULT 0,
  partial NUMERIC NOT NULL DEFAULT 0,
  paid_to_date NUMERIC NOT NULL DEFAULT 0,
  auto_bill_enabled INTEGER NOT NULL DEFAULT 0,
  auto_bill_tries INTEGER NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  due_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	credits := `
CREATE TABLE IF NOT EXISTS credits (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  line_items TEXT,
  amount NUMERIC NOT NULL DEFAULT 0,
  balance NUMERIC NOT NULL DEFAULT 0,
  paid_to_date NUMERIC NOT NULL DEFAULT 0,
  invoice_id TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  type TEXT NOT NULL DEFAULT 'token',
  amount NUMERIC NOT NULL DEFAULT 0,
  applied NUMERIC NOT NULL DEFAULT 0,
  refunded NUMERIC NOT NULL DEFAULT 0,
  currency_code TEXT NOT NULL DEFAULT 'USD',
  transaction_ref TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	paymentables := `
CREATE TABLE IF NOT EXISTS paymentables (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  payable_id TEXT NOT NULL,
  payable_type TEXT NOT NULL,
  amount NUMERIC NOT NULL DEFAULT 0,
  refunded NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	ledgerEntries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  invoice_id TEXT,
  kind TEXT NOT NULL,
  adjustment NUMERIC NOT NULL DEFAULT 0,
  balance NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME
);`
	gateways := `
CREATE TABLE IF NOT EXISTS company_gateways (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  label TEXT NOT NULL,
  token_billing INTEGER NOT NULL DEFAULT 1,
  min_limit NUMERIC,
  max_limit NUMERIC,
  fee_percent NUMERIC NOT NULL DEFAULT 0,
  fee_fixed NUMERIC NOT NULL DEFAULT 0,
  fee_cap NUMERIC NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	tokens := `
CREATE TABLE IF NOT EXISTS client_gateway_tokens (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  company_gateway_id TEXT NOT NULL,
  token TEXT NOT NULL,
  customer_ref TEXT,
  type TEXT NOT NULL DEFAULT 'card',
  is_default INTEGER NOT NULL DEFAULT 0,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, ddl := range []string{companies, groups, clients, invoices, credits, payments, paymentables, ledgerEntries, gateways, tokens} {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

// fakeCharger scripts gateway outcomes per call.
type fakeCharger struct {
	calls    int
	requests []gateway.ChargeRequest
	results  []*gateway.ChargeResult
	errs     []error
}

func (f *fakeCharger) Charge(_ context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	idx := f.calls
	f.calls++
	f.requests = append(f.requests, req)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return &gateway.ChargeResult{TransactionRef: "txn-ok", RawResponse: `{"status":"COMPLETED"}`}, nil
}

func newAutoBillService(t *testing.T, conn *gorm.DB, charger gateway.Charger) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "autobill-test"})
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		DB:   db.NewFromConn(conn),
		Repo: ledger.NewRepository(conn),
		Log:  logg,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		DB:      db.NewFromConn(conn),
		Repo:    NewRepository(conn),
		Ledger:  ledgerSvc,
		Charger: charger,
		Events:  events.NopPublisher{},
		Log:     logg,
	})
	require.NoError(t, err)
	return svc
}

type fixture struct {
	company *models.Company
	client  *models.Client
	invoice *models.Invoice
}

func seedBillable(t *testing.T, conn *gorm.DB, balance decimal.Decimal) *fixture {
	t.Helper()

	company := &models.Company{
		ID:           uuid.New(),
		Name:         "Billfold Test Co",
		CountryCode:  "US",
		CurrencyCode: "USD",
		Jurisdiction: enums.JurisdictionZZ,
	}
	require.NoError(t, conn.Create(company).Error)

	client := &models.Client{
		ID:        uuid.New(),
		CompanyID: company.ID,
		Name:      "Acme Co",
		Number:    "C-" + uuid.NewString()[:8],
		Balance:   balance,
	}
	require.NoError(t, conn.Create(client).Error)

	invoice := &models.Invoice{
		ID:              uuid.New(),
		CompanyID:       company.ID,
		ClientID:        client.ID,
		Number:          "INV-" + uuid.NewString()[:8],
		Status:          enums.InvoiceStatusSent,
		Amount:          balance,
		Balance:         balance,
		AutoBillEnabled: true,
	}
	require.NoError(t, conn.Create(invoice).Error)

	return &fixture{company: company, client: client, invoice: invoice}
}

var creditSeq int64

func seedCredit(t *testing.T, conn *gorm.DB, f *fixture, balance decimal.Decimal) *models.Credit {
	t.Helper()

	// Explicit timestamps keep oldest-first ordering deterministic.
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(atomic.AddInt64(&creditSeq, 1)) * time.Second)
	credit := &models.Credit{
		ID:        uuid.New(),
		CompanyID: f.company.ID,
		ClientID:  f.client.ID,
		Number:    "CR-" + uuid.NewString()[:8],
		Status:    enums.InvoiceStatusSent,
		Amount:    balance,
		Balance:   balance,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(credit).Error)

	f.client.CreditBalance = f.client.CreditBalance.Add(balance)
	require.NoError(t, conn.Model(&models.Client{}).
		Where("id = ?", f.client.ID).
		Update("credit_balance", f.client.CreditBalance).Error)
	return credit
}

func seedToken(t *testing.T, conn *gorm.DB, f *fixture, isDefault bool, mutate func(*models.CompanyGateway)) *models.ClientGatewayToken {
	t.Helper()

	gw := &models.CompanyGateway{
		ID:           uuid.New(),
		CompanyID:    f.company.ID,
		Label:        "test gateway",
		TokenBilling: true,
	}
	if mutate != nil {
		mutate(gw)
	}
	require.NoError(t, conn.Create(gw).Error)

	token := &models.ClientGatewayToken{
		ID:               uuid.New(),
		CompanyID:        f.company.ID,
		ClientID:         f.client.ID,
		CompanyGatewayID: gw.ID,
		Token:            "tok-" + uuid.NewString()[:8],
		CustomerRef:      "cust-" + uuid.NewString()[:8],
		Type:             enums.GatewayTokenTypeCard,
		IsDefault:        isDefault,
	}
	require.NoError(t, conn.Create(token).Error)
	return token
}

func reloadInvoice(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.Invoice {
	t.Helper()

	var invoice models.Invoice
	require.NoError(t, conn.First(&invoice, "id = ?", id).Error)
	return &invoice
}

func reloadClient(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.Client {
	t.Helper()

	var client models.Client
	require.NoError(t, conn.First(&client, "id = ?", id).Error)
	return &client
}
