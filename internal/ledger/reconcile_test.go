package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
)

func seedSnapshot(t *testing.T, conn *gorm.DB, client *models.Client, balance decimal.Decimal) {
	t.Helper()
	require.NoError(t, conn.Create(&models.LedgerEntry{
		ID:         uuid.New(),
		CompanyID:  client.CompanyID,
		ClientID:   client.ID,
		Kind:       enums.AdjustmentKindManual,
		Adjustment: balance,
		Balance:    balance,
	}).Error)
}

func TestReconcileCleanClient(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)
	seedSnapshot(t, conn, client, decimal.NewFromInt(100))

	found, err := svc.Reconcile(ctx, client.ID, false)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReconcileFixesClientBalanceDrift(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	// Stored balance says 80, outstanding invoices say 100.
	client := newClient(t, conn, decimal.NewFromInt(80))
	newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)
	seedSnapshot(t, conn, client, decimal.NewFromInt(80))

	found, err := svc.Reconcile(ctx, client.ID, false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, enums.DiscrepancyClientBalanceMismatch, found[0].Kind)
	assert.False(t, found[0].Corrected)
	assert.True(t, decimal.NewFromInt(100).Equal(found[0].Expected))
	assert.True(t, decimal.NewFromInt(80).Equal(found[0].Actual))

	found, err = svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Corrected)

	repo := NewRepository(conn)
	gotClient, err := repo.FindClient(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(gotClient.Balance))

	// The fix is an appended corrective entry, not an edit.
	entries, err := repo.ListEntries(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.AdjustmentKindCorrection, entries[1].Kind)
	assert.True(t, decimal.NewFromInt(20).Equal(entries[1].Adjustment))

	// Idempotence: a second run reports nothing and writes nothing.
	found, err = svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	assert.Empty(t, found)

	entries, err = repo.ListEntries(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReconcilePaidToDate(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.Zero)
	newContact(t, conn, client)

	require.NoError(t, conn.Create(&models.Payment{
		ID:        uuid.New(),
		CompanyID: client.CompanyID,
		ClientID:  client.ID,
		Number:    "P-0001",
		Status:    enums.PaymentStatusCompleted,
		Type:      models.PaymentTypeToken,
		Amount:    decimal.NewFromInt(50),
		Applied:   decimal.NewFromInt(50),
	}).Error)

	// A credit issued against an invoice reduces the expected figure.
	invoiceID := uuid.New()
	require.NoError(t, conn.Create(&models.Credit{
		ID:        uuid.New(),
		CompanyID: client.CompanyID,
		ClientID:  client.ID,
		Number:    "CR-0001",
		Status:    enums.InvoiceStatusSent,
		Amount:    decimal.NewFromInt(10),
		Balance:   decimal.NewFromInt(10),
		InvoiceID: &invoiceID,
	}).Error)

	found, err := svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, enums.DiscrepancyPaidToDateMismatch, found[0].Kind)
	assert.True(t, decimal.NewFromInt(40).Equal(found[0].Expected), "expected %s", found[0].Expected)
	assert.True(t, found[0].Corrected)

	gotClient, err := NewRepository(conn).FindClient(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(gotClient.PaidToDate))

	found, err = svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReconcileLedgerSnapshotDrift(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)
	seedSnapshot(t, conn, client, decimal.NewFromInt(70))

	found, err := svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, enums.DiscrepancyLedgerBalanceMismatch, found[0].Kind)
	assert.True(t, found[0].Corrected)

	found, err = svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReconcileStructuralChecks(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	// No contacts, one sent invoice without invitations, drifting company id.
	client := newClient(t, conn, decimal.NewFromInt(50))
	require.NoError(t, conn.Create(&models.Invoice{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		ClientID:  client.ID,
		Number:    "INV-DRIFT",
		Status:    enums.InvoiceStatusSent,
		Amount:    decimal.NewFromInt(50),
		Balance:   decimal.NewFromInt(50),
	}).Error)
	seedSnapshot(t, conn, client, decimal.NewFromInt(50))

	found, err := svc.Reconcile(ctx, client.ID, true)
	require.NoError(t, err)

	kinds := map[enums.DiscrepancyKind]int{}
	for _, d := range found {
		kinds[d.Kind]++
		assert.False(t, d.Corrected, "structural kinds are never auto-corrected")
	}
	assert.Equal(t, 1, kinds[enums.DiscrepancyMissingContact])
	assert.Equal(t, 1, kinds[enums.DiscrepancyMissingInvitation])
	assert.Equal(t, 1, kinds[enums.DiscrepancyInvoiceCompanyDrift])
}

func TestReconcileOrphanedOAuthID(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.Zero)
	oauthID := "oauth-123"
	contact := newContact(t, conn, client)
	require.NoError(t, conn.Model(&models.ClientContact{}).
		Where("id = ?", contact.ID).
		Update("oauth_user_id", oauthID).Error)
	require.NoError(t, conn.Model(&models.Client{}).
		Where("id = ?", client.ID).
		Update("is_deleted", true).Error)

	found, err := svc.Reconcile(ctx, client.ID, false)
	require.NoError(t, err)

	var orphaned int
	for _, d := range found {
		if d.Kind == enums.DiscrepancyOrphanedOAuthID {
			orphaned++
		}
	}
	assert.Equal(t, 1, orphaned)
}

func TestReconcileAllAggregates(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	clean := newClient(t, conn, decimal.NewFromInt(100))
	newInvoice(t, conn, clean, decimal.NewFromInt(100), enums.InvoiceStatusSent)
	seedSnapshot(t, conn, clean, decimal.NewFromInt(100))

	drifted := newClient(t, conn, decimal.NewFromInt(10))
	newInvoice(t, conn, drifted, decimal.NewFromInt(30), enums.InvoiceStatusSent)
	seedSnapshot(t, conn, drifted, decimal.NewFromInt(10))

	report, err := svc.ReconcileAll(ctx, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.ClientsChecked, 2)
	counts := report.CountsByKind()
	assert.GreaterOrEqual(t, counts[enums.DiscrepancyClientBalanceMismatch], 1)
	assert.GreaterOrEqual(t, report.Uncorrected(), 1)
}
