package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billfold/billfold-backend/pkg/db/models"
	"github.com/billfold/billfold-backend/pkg/enums"
	pkgerrors "github.com/billfold/billfold-backend/pkg/errors"
	"github.com/billfold/billfold-backend/pkg/pagination"
)

func TestApplyAdjustmentMovesInvoiceAndClientTogether(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	invoice := newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)

	entry, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID:        client.ID,
		InvoiceID:       &invoice.ID,
		Kind:            enums.AdjustmentKindPaymentApplied,
		Delta:           decimal.NewFromInt(-40),
		PaidToDateDelta: decimal.NewFromInt(40),
		Notes:           "payment received",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(entry.Balance), "snapshot %s", entry.Balance)

	repo := NewRepository(conn)
	got, err := repo.FindInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(got.Balance))
	assert.True(t, decimal.NewFromInt(40).Equal(got.PaidToDate))
	assert.Equal(t, enums.InvoiceStatusPartial, got.Status)

	gotClient, err := repo.FindClient(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(gotClient.Balance))
	assert.True(t, decimal.NewFromInt(40).Equal(gotClient.PaidToDate))
}

func TestApplyAdjustmentSettlesInvoice(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	invoice := newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)

	_, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID:        client.ID,
		InvoiceID:       &invoice.ID,
		Kind:            enums.AdjustmentKindPaymentApplied,
		Delta:           decimal.NewFromInt(-100),
		PaidToDateDelta: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	got, err := NewRepository(conn).FindInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InvoiceStatusPaid, got.Status)
	assert.True(t, got.Balance.IsZero())
}

func TestApplyAdjustmentRoundTrip(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	invoice := newInvoice(t, conn, client, decimal.NewFromInt(100), enums.InvoiceStatusSent)

	_, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID:  client.ID,
		InvoiceID: &invoice.ID,
		Kind:      enums.AdjustmentKindLateFee,
		Delta:     decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	_, err = svc.ApplyAdjustment(ctx, Adjustment{
		ClientID:  client.ID,
		InvoiceID: &invoice.ID,
		Kind:      enums.AdjustmentKindManual,
		Delta:     decimal.NewFromInt(-25),
	})
	require.NoError(t, err)

	repo := NewRepository(conn)
	gotClient, err := repo.FindClient(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(gotClient.Balance), "balance restored, got %s", gotClient.Balance)

	// History never collapses: both deltas stay on record.
	entries, err := repo.ListEntries(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, decimal.NewFromInt(25).Equal(entries[0].Adjustment))
	assert.True(t, decimal.NewFromInt(-25).Equal(entries[1].Adjustment))
	assert.True(t, decimal.NewFromInt(100).Equal(entries[1].Balance))
}

func TestApplyAdjustmentRejectsBadInput(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.Zero)

	_, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID: client.ID,
		Kind:     enums.AdjustmentKind("mystery"),
		Delta:    decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.ApplyAdjustment(ctx, Adjustment{
		ClientID: client.ID,
		Kind:     enums.AdjustmentKindManual,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestApplyAdjustmentRollsBackAtomically(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.NewFromInt(100))
	missing := uuid.New()

	_, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID:  client.ID,
		InvoiceID: &missing,
		Kind:      enums.AdjustmentKindPaymentApplied,
		Delta:     decimal.NewFromInt(-40),
	})
	require.Error(t, err)

	repo := NewRepository(conn)
	gotClient, err := repo.FindClient(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(gotClient.Balance), "balance untouched after rollback")

	entries, err := repo.ListEntries(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "no ledger entry without the balance change")
}

func TestHistoryPagesThroughEntries(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.Zero)
	for i := 1; i <= 5; i++ {
		_, err := svc.ApplyAdjustment(ctx, Adjustment{
			ClientID: client.ID,
			Kind:     enums.AdjustmentKindManual,
			Delta:    decimal.NewFromInt(int64(i)),
		})
		require.NoError(t, err)
	}

	var seen []models.LedgerEntry
	cursor := ""
	pages := 0
	for {
		page, next, err := svc.History(ctx, client.ID, pagination.Params{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		seen = append(seen, page...)
		pages++
		if next == "" {
			break
		}
		cursor = next
	}

	require.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
	for i, entry := range seen {
		assert.True(t, decimal.NewFromInt(int64(i+1)).Equal(entry.Adjustment), "entry %d out of order", i)
	}
}

func TestHistoryRejectsMalformedCursor(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)

	client := newClient(t, conn, decimal.Zero)
	_, _, err := svc.History(context.Background(), client.ID, pagination.Params{Cursor: "not-base64!"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestLedgerEntriesAreAppendOnly(t *testing.T) {
	conn := setupLedgerTestDB(t)
	svc := newLedgerService(t, conn)
	ctx := context.Background()

	client := newClient(t, conn, decimal.Zero)
	entry, err := svc.ApplyAdjustment(ctx, Adjustment{
		ClientID: client.ID,
		Kind:     enums.AdjustmentKindManual,
		Delta:    decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	entry.Notes = "rewriting history"
	assert.Error(t, conn.Save(entry).Error, "updates are blocked")
	assert.Error(t, conn.Delete(entry).Error, "deletes are blocked")
}
