package pricing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/catalog"
	"go-storefront/internal/database"
	"go-storefront/internal/models"
	"go-storefront/internal/pricing"

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

func newEngine(db *gorm.DB) *pricing.Engine {
	return pricing.New(catalog.New(db))
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestProductDiscountResolvesLinePrice(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, DiscountPercent: 10, Stock: 5})

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 1}}, "")
	require.NoError(t, err)

	assert.Equal(t, 900.0, quote.Total)
	assert.Equal(t, 100.0, quote.Discount)
	assert.Equal(t, 10.0, quote.DiscountPct)
	assert.Equal(t, 900.0, quote.Lines[0].UnitPrice)
}

func TestCartCouponStacksOnDiscountedSubtotal(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, DiscountPercent: 10, Stock: 5})
	require.NoError(t, db.Create(&models.Coupon{
		StoreID: 1, Code: "SAVE20", Scope: models.CouponScopeCart,
		Type: models.CouponPercentage, Value: 20, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 1}}, "SAVE20")
	require.NoError(t, err)

	// 1000 -10% = 900, then -20% = 720.
	assert.Equal(t, 720.0, quote.Total)
	assert.Equal(t, 280.0, quote.Discount)
	assert.Equal(t, 28.0, quote.DiscountPct)
}

func TestSizePricedProductUsesSizeEntry(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{
		StoreID: 1, Name: "Hoodie", Price: 400, UniformPricing: false, Stock: 5,
		SizePrices: []models.ProductSizePrice{{Size: "S", Price: 500}, {Size: "M", Price: 700}},
	})

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Size: "M", Quantity: 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, 700.0, quote.Total)

	// Unknown size falls back to the default price.
	quote, err = newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Size: "XXL", Quantity: 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, 400.0, quote.Total)
}

func TestFullPercentageCouponDrivesTotalToZeroNotNegative(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, Stock: 5})
	require.NoError(t, db.Create(&models.Coupon{
		StoreID: 1, Code: "FREE", Scope: models.CouponScopeCart,
		Type: models.CouponPercentage, Value: 100, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 3}}, "FREE")
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.Total)
	assert.Equal(t, 100.0, quote.DiscountPct)
}

func TestFixedCouponFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Sticker", Price: 100, UniformPricing: true, Stock: 5})
	require.NoError(t, db.Create(&models.Coupon{
		StoreID: 1, Code: "BIG", Scope: models.CouponScopeCart,
		Type: models.CouponFixed, Value: 500, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 1}}, "BIG")
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.Total)
}

func TestProductScopedCouponOnlyHitsSelectedProducts(t *testing.T) {
	db := newTestDB(t)
	tee := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, Stock: 5})
	mug := seedProduct(t, db, models.Product{StoreID: 1, Name: "Mug", Price: 500, UniformPricing: true, Stock: 5})
	require.NoError(t, db.Create(&models.Coupon{
		StoreID: 1, Code: "TEEONLY", Scope: models.CouponScopeProducts,
		Products: []models.CouponProduct{{ProductID: tee.ID}},
		Type:     models.CouponPercentage, Value: 50, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	quote, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{
			{ProductID: tee.ID, Quantity: 1},
			{ProductID: mug.ID, Quantity: 1},
		}, "TEEONLY")
	require.NoError(t, err)

	// Tee halves to 500, mug untouched.
	assert.Equal(t, 1000.0, quote.Total)
	assert.Equal(t, 500.0, quote.Discount)
}

func TestExpiredCouponRejectedAtEvaluationTime(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, Stock: 5})
	require.NoError(t, db.Create(&models.Coupon{
		StoreID: 1, Code: "LATE", Scope: models.CouponScopeCart,
		Type: models.CouponPercentage, Value: 10, ExpiresAt: time.Now().Add(-time.Minute),
	}).Error)

	_, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 1}}, "LATE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "INVALID_COUPON", apperr.CodeOf(err))
}

func TestUnknownCouponAndProduct(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 1000, UniformPricing: true, Stock: 5})

	_, err := newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 1}}, "NOPE")
	assert.Equal(t, "INVALID_COUPON", apperr.CodeOf(err))

	_, err = newEngine(db).ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: 9999, Quantity: 1}}, "")
	assert.Equal(t, "PRODUCT_NOT_FOUND", apperr.CodeOf(err))
}

func TestComputeTotalIsDeterministicAndSideEffectFree(t *testing.T) {
	db := newTestDB(t)
	p := seedProduct(t, db, models.Product{StoreID: 1, Name: "Tee", Price: 999.99, UniformPricing: true, DiscountPercent: 7, Stock: 5})

	engine := newEngine(db)
	first, err := engine.ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 2}}, "")
	require.NoError(t, err)
	second, err := engine.ComputeTotal(context.Background(), 1,
		[]pricing.Line{{ProductID: p.ID, Quantity: 2}}, "")
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.GreaterOrEqual(t, first.Total, 0.0)

	// Stock untouched: pricing never writes.
	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestEmptyCartRejected(t *testing.T) {
	db := newTestDB(t)
	_, err := newEngine(db).ComputeTotal(context.Background(), 1, nil, "")
	assert.Equal(t, "EMPTY_CART", apperr.CodeOf(err))
}
