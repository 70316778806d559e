package ledger_test

import (
	"testing"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/database"
	"go-storefront/internal/ledger"
	"go-storefront/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestCreatePendingAndLookup(t *testing.T) {
	db := newTestDB(t)
	l := ledger.New()
	reference := ledger.NewReference()

	require.NoError(t, l.CreatePending(db, &models.Transaction{
		Reference:  reference,
		Amount:     1400,
		PaymentFor: models.PayForOrder,
		EntityID:   7,
		StoreID:    1,
	}))

	entry, err := l.ByReference(db, reference)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, entry.Status)
	assert.Equal(t, 1400.0, entry.Amount)
	assert.Equal(t, uint(7), entry.EntityID)

	_, err = l.ByReference(db, "missing")
	assert.Equal(t, "UNKNOWN_REFERENCE", apperr.CodeOf(err))
}

func TestTryMarkProcessedFlipsExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	l := ledger.New()
	reference := ledger.NewReference()
	require.NoError(t, l.CreatePending(db, &models.Transaction{Reference: reference, Amount: 500, StoreID: 1}))

	flipped, err := l.TryMarkProcessed(db, reference, models.TxSuccessful, 500, time.Now())
	require.NoError(t, err)
	assert.True(t, flipped)

	// Every later caller loses, whatever terminal status it asks for.
	flipped, err = l.TryMarkProcessed(db, reference, models.TxSuccessful, 500, time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = l.TryMarkProcessed(db, reference, models.TxFailed, 0, time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)

	entry, err := l.ByReference(db, reference)
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccessful, entry.Status)
	assert.Equal(t, 500.0, entry.SettledAmount)
	require.NotNil(t, entry.PaidAt)
}

func TestTryMarkProcessedUnknownReference(t *testing.T) {
	db := newTestDB(t)
	flipped, err := ledger.New().TryMarkProcessed(db, "missing", models.TxSuccessful, 0, time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)
}
