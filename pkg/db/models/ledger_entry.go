package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/billfold/billfold-backend/pkg/enums"
)

// LedgerEntry is one immutable balance delta for a client, carrying the
// resulting balance snapshot. Corrective writes append; history is never edited.
type LedgerEntry struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID            `gorm:"column:company_id;type:uuid;not null"`
	ClientID  uuid.UUID            `gorm:"column:client_id;type:uuid;not null;index"`
	InvoiceID *uuid.UUID           `gorm:"column:invoice_id;type:uuid"`
	Kind      enums.AdjustmentKind `gorm:"column:kind;not null"`

	Adjustment decimal.Decimal `gorm:"column:adjustment;type:numeric(20,6);not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,6);not null"`

	Notes     string    `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

var errLedgerImmutable = errors.New("ledger entries are append-only")

// BeforeCreate fills the id when the dialect has no uuid default.
func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate blocks in-place edits at the ORM layer.
func (LedgerEntry) BeforeUpdate(*gorm.DB) error {
	return errLedgerImmutable
}

// BeforeDelete blocks deletes at the ORM layer.
func (LedgerEntry) BeforeDelete(*gorm.DB) error {
	return errLedgerImmutable
}
