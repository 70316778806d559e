// Package ledger guards the transaction record of money movement. Entries are
// append-mostly: the only mutation is the one-way pending -> terminal flip,
// and that flip is a single conditional UPDATE so concurrent reconciliations
// for the same reference cannot both win.
package ledger

import (
	"errors"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// NewReference mints the unique idempotency key correlating a ledger entry
// with a gateway-side payment attempt.
func NewReference() string {
	return uuid.NewString()
}

// CreatePending writes a fresh pending entry. Must be called inside the same
// transaction that persists the entity being paid for.
func (l *Ledger) CreatePending(tx *gorm.DB, entry *models.Transaction) error {
	entry.Status = models.TxPending
	entry.CreatedAt = time.Now()
	return tx.Create(entry).Error
}

// ByReference loads an entry, or UNKNOWN_REFERENCE if nothing matches.
func (l *Ledger) ByReference(tx *gorm.DB, reference string) (*models.Transaction, error) {
	var entry models.Transaction
	err := tx.Where("reference = ?", reference).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("UNKNOWN_REFERENCE", "no transaction for reference")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// TryMarkProcessed flips a pending entry to a terminal status. The check and
// the write are one statement: exactly one caller sees true per reference,
// every later (or concurrent losing) caller sees false. This is the
// idempotency gate for the whole reconciliation path.
func (l *Ledger) TryMarkProcessed(tx *gorm.DB, reference, status string, settled float64, paidAt time.Time) (bool, error) {
	res := tx.Model(&models.Transaction{}).
		Where("reference = ? AND status = ?", reference, models.TxPending).
		Updates(map[string]interface{}{
			"status":         status,
			"settled_amount": settled,
			"paid_at":        paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
