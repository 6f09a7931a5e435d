package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db"
	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	"github.com/billfold/billfold-backend/pkg/logger"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

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
	contacts := `
CREATE TABLE IF NOT EXISTS client_contacts (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  company_id TEXT NOT NULL,
  email TEXT,
  name TEXT,
  is_primary INTEGER NOT NULL DEFAULT 0,
  oauth_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	invitations := `
CREATE TABLE IF NOT EXISTS invoice_invitations (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  contact_id TEXT NOT NULL,
  created_at DATETIME
);`

	for _, ddl := range []string{clients, invoices, credits, payments, paymentables, ledgerEntries, contacts, invitations} {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func newLedgerService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		DB:   db.NewFromConn(conn),
		Repo: NewRepository(conn),
		Log:  logger.New(logger.Options{ServiceName: "ledger-test"}),
	})
	require.NoError(t, err)
	return svc
}

func newClient(t *testing.T, conn *gorm.DB, balance decimal.Decimal) *models.Client {
	t.Helper()

	client := &models.Client{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Name:      "Acme Co",
		Number:    "C-0001",
		Balance:   balance,
	}
	require.NoError(t, conn.Create(client).Error)
	return client
}

func newContact(t *testing.T, conn *gorm.DB, client *models.Client) *models.ClientContact {
	t.Helper()

	contact := &models.ClientContact{
		ID:        uuid.New(),
		ClientID:  client.ID,
		CompanyID: client.CompanyID,
		IsPrimary: true,
	}
	require.NoError(t, conn.Create(contact).Error)
	return contact
}

func newInvoice(t *testing.T, conn *gorm.DB, client *models.Client, balance decimal.Decimal, status enums.InvoiceStatus) *models.Invoice {
	t.Helper()

	invoice := &models.Invoice{
		ID:        uuid.New(),
		CompanyID: client.CompanyID,
		ClientID:  client.ID,
		Number:    "INV-" + uuid.NewString()[:8],
		Status:    status,
		Amount:    balance,
		Balance:   balance,
	}
	require.NoError(t, conn.Create(invoice).Error)

	contact := newContact(t, conn, client)
	require.NoError(t, conn.Create(&models.InvoiceInvitation{
		ID:        uuid.New(),
		InvoiceID: invoice.ID,
		ContactID: contact.ID,
	}).Error)
	return invoice
}
