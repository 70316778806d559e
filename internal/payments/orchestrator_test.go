package payments_test

import (
	"context"
	"testing"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/gateway"
	"go-storefront/internal/ledger"
	"go-storefront/internal/logging"
	"go-storefront/internal/models"
	"go-storefront/internal/payments"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	verification *gateway.Verification
	verifyErr    error
}

func (f *fakeGateway) CreateCheckoutLink(_ context.Context, _ float64, _, reference string, _ gateway.Customer) (*gateway.CheckoutLink, error) {
	return &gateway.CheckoutLink{Link: "https://pay.example/" + reference}, nil
}

func (f *fakeGateway) CreateVirtualAccount(_ context.Context, _ float64, _ string, _ gateway.Customer) (*gateway.VirtualAccount, error) {
	return &gateway.VirtualAccount{AccountNumber: "0123456789", BankName: "Test Bank"}, nil
}

func (f *fakeGateway) VerifyByReference(_ context.Context, _ string) (*gateway.Verification, error) {
	return f.verification, f.verifyErr
}

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

type fixture struct {
	db           *gorm.DB
	orchestrator *payments.Orchestrator
	gateway      *fakeGateway
	store        models.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	gw := &fakeGateway{}
	cfg := &config.Config{
		Currency:               "NGN",
		SubscriptionFee:        5000,
		SubscriptionPeriodDays: 30,
		AIAddonFee:             2000,
		AIAddonWindowDays:      30,
	}

	store := models.Store{Name: "Demo", Slug: "demo", GatewayConnected: true}
	require.NoError(t, db.Create(&store).Error)

	return &fixture{
		db:           db,
		orchestrator: payments.NewOrchestrator(db, gw, ledger.New(), cfg, logging.Discard()),
		gateway:      gw,
		store:        store,
	}
}

func (fx *fixture) seedOrder(t *testing.T, total float64) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:     "ORD-" + uuid.NewString()[:8],
		StoreID:         fx.store.ID,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentUnpaid,
		TotalAmount:     total,
		AmountLeftToPay: total,
	}
	require.NoError(t, fx.db.Create(&order).Error)
	return order
}

func (fx *fixture) seedPending(t *testing.T, paymentFor string, entityID uint, amount float64) string {
	t.Helper()
	reference := ledger.NewReference()
	require.NoError(t, ledger.New().CreatePending(fx.db, &models.Transaction{
		Reference:  reference,
		Amount:     amount,
		PaymentFor: paymentFor,
		Channel:    models.ChannelGatewayCard,
		EntityID:   entityID,
		StoreID:    fx.store.ID,
	}))
	return reference
}

func (fx *fixture) storeBalance(t *testing.T) float64 {
	t.Helper()
	var store models.Store
	require.NoError(t, fx.db.First(&store, fx.store.ID).Error)
	return store.Balance
}

func TestReconcileFullPaymentCompletesOrderAndCreditsWallet(t *testing.T) {
	fx := newFixture(t)
	order := fx.seedOrder(t, 1400)
	reference := fx.seedPending(t, models.PayForOrder, order.ID, 1400)

	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), reference, gateway.StatusSuccess, 1400))

	var reloaded models.Order
	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
	assert.Equal(t, models.PaymentPaid, reloaded.PaymentStatus)
	assert.Equal(t, 1400.0, reloaded.AmountPaid)
	assert.Zero(t, reloaded.AmountLeftToPay)
	require.NotNil(t, reloaded.PaidAt)

	var entry models.Transaction
	require.NoError(t, fx.db.Where("reference = ?", reference).First(&entry).Error)
	assert.Equal(t, models.TxSuccessful, entry.Status)
	assert.Equal(t, 1400.0, entry.SettledAmount)

	assert.Equal(t, 1400.0, fx.storeBalance(t))
}

func TestReconcilePartialPaymentMovesAmountsOnly(t *testing.T) {
	fx := newFixture(t)
	order := fx.seedOrder(t, 1400)
	reference := fx.seedPending(t, models.PayForOrder, order.ID, 1400)

	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), reference, gateway.StatusSuccess, 400))

	var reloaded models.Order
	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	// Amounts move, the state machine does not.
	assert.Equal(t, models.OrderPending, reloaded.Status)
	assert.Equal(t, models.PaymentPartial, reloaded.PaymentStatus)
	assert.Equal(t, 400.0, reloaded.AmountPaid)
	assert.Equal(t, 1000.0, reloaded.AmountLeftToPay)
	assert.Equal(t, reloaded.TotalAmount, reloaded.AmountPaid+reloaded.AmountLeftToPay)

	// No wallet credit until the order settles in full.
	assert.Zero(t, fx.storeBalance(t))

	// A second attempt covers the remainder and completes the order. The
	// completing credit is the full total, so it includes the withheld
	// partial: once the customer has paid 1400, the store holds 1400.
	second := fx.seedPending(t, models.PayForOrder, order.ID, 1000)
	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), second, gateway.StatusSuccess, 1000))

	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
	assert.Equal(t, 1400.0, reloaded.AmountPaid)
	assert.Equal(t, reloaded.TotalAmount, fx.storeBalance(t))
}

func TestReconcileDuplicateDeliveryIsHarmless(t *testing.T) {
	fx := newFixture(t)
	order := fx.seedOrder(t, 1400)
	reference := fx.seedPending(t, models.PayForOrder, order.ID, 1400)
	ctx := context.Background()

	require.NoError(t, fx.orchestrator.Reconcile(ctx, reference, gateway.StatusSuccess, 1400))
	// Webhook retries and verification polls replay the same event.
	require.NoError(t, fx.orchestrator.Reconcile(ctx, reference, gateway.StatusSuccess, 1400))
	require.NoError(t, fx.orchestrator.Reconcile(ctx, reference, gateway.StatusSuccess, 1400))

	// Credited exactly once.
	assert.Equal(t, 1400.0, fx.storeBalance(t))

	var reloaded models.Order
	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, 1400.0, reloaded.AmountPaid)
}

func TestReconcileFailureFlagsOrderWithoutMovingMoney(t *testing.T) {
	fx := newFixture(t)
	order := fx.seedOrder(t, 1400)
	reference := fx.seedPending(t, models.PayForOrder, order.ID, 1400)

	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), reference, "abandoned", 0))

	var entry models.Transaction
	require.NoError(t, fx.db.Where("reference = ?", reference).First(&entry).Error)
	assert.Equal(t, models.TxFailed, entry.Status)

	var reloaded models.Order
	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.PaymentFailed, reloaded.PaymentStatus)
	assert.Equal(t, models.OrderPending, reloaded.Status)
	assert.Equal(t, 1400.0, reloaded.AmountLeftToPay)
	assert.Zero(t, fx.storeBalance(t))
}

func TestReconcileUnknownReference(t *testing.T) {
	fx := newFixture(t)
	err := fx.orchestrator.Reconcile(context.Background(), "no-such-reference", gateway.StatusSuccess, 100)
	assert.Equal(t, "UNKNOWN_REFERENCE", apperr.CodeOf(err))
}

func TestReconcileSubscriptionStacksWholePeriods(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// 10000 at 5000/period buys two periods from now.
	first := fx.seedPending(t, models.PayForSubscription, fx.store.ID, 10000)
	require.NoError(t, fx.orchestrator.Reconcile(ctx, first, gateway.StatusSuccess, 10000))

	var store models.Store
	require.NoError(t, fx.db.First(&store, fx.store.ID).Error)
	require.NotNil(t, store.PremiumExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 60), *store.PremiumExpiresAt, time.Minute)

	// Paying again before expiry extends from the remainder, not from now.
	second := fx.seedPending(t, models.PayForSubscription, fx.store.ID, 5000)
	require.NoError(t, fx.orchestrator.Reconcile(ctx, second, gateway.StatusSuccess, 5000))

	require.NoError(t, fx.db.First(&store, fx.store.ID).Error)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 90), *store.PremiumExpiresAt, time.Minute)
}

func TestReconcileSubscriptionBelowOnePeriodBuysNothing(t *testing.T) {
	fx := newFixture(t)
	reference := fx.seedPending(t, models.PayForSubscription, fx.store.ID, 3000)
	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), reference, gateway.StatusSuccess, 3000))

	var store models.Store
	require.NoError(t, fx.db.First(&store, fx.store.ID).Error)
	assert.Nil(t, store.PremiumExpiresAt)

	// The ledger entry still settles; the shortfall is a support case, not a
	// stuck pending row.
	var entry models.Transaction
	require.NoError(t, fx.db.Where("reference = ?", reference).First(&entry).Error)
	assert.Equal(t, models.TxSuccessful, entry.Status)
}

func TestReconcileAIAddonOpensFixedWindow(t *testing.T) {
	fx := newFixture(t)
	reference := fx.seedPending(t, models.PayForAIAddon, fx.store.ID, 2000)
	require.NoError(t, fx.orchestrator.Reconcile(context.Background(), reference, gateway.StatusSuccess, 2000))

	var store models.Store
	require.NoError(t, fx.db.First(&store, fx.store.ID).Error)
	require.NotNil(t, store.AIAddonExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *store.AIAddonExpiresAt, time.Minute)
}

func TestReconcileRejectsTransferEntries(t *testing.T) {
	fx := newFixture(t)
	reference := fx.seedPending(t, models.PayForTransfer, 1, 500)

	err := fx.orchestrator.Reconcile(context.Background(), reference, gateway.StatusSuccess, 500)
	assert.Equal(t, "WITHDRAWAL_FAILED", apperr.CodeOf(err))

	// The rejection rolls back the flip, so the audit entry stays pending for
	// the payout queue to settle.
	var entry models.Transaction
	require.NoError(t, fx.db.Where("reference = ?", reference).First(&entry).Error)
	assert.Equal(t, models.TxPending, entry.Status)
}

func TestVerifyPollsGatewayAndReconciles(t *testing.T) {
	fx := newFixture(t)
	order := fx.seedOrder(t, 1400)
	reference := fx.seedPending(t, models.PayForOrder, order.ID, 1400)
	fx.gateway.verification = &gateway.Verification{
		Status: gateway.StatusSuccess, SettledAmount: 1400, PaidAt: time.Now(),
	}

	verification, err := fx.orchestrator.Verify(context.Background(), reference)
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusSuccess, verification.Status)

	var reloaded models.Order
	require.NoError(t, fx.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderCompleted, reloaded.Status)
	assert.Equal(t, 1400.0, fx.storeBalance(t))
}

func TestInitiateStandaloneWritesPendingEntry(t *testing.T) {
	fx := newFixture(t)

	artifact, err := fx.orchestrator.InitiateStandalone(context.Background(), &fx.store,
		models.PayForSubscription, 5000, "", gateway.Customer{Email: "owner@example.com"}, "premium plan")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelGatewayCard, artifact.Channel)
	assert.NotEmpty(t, artifact.CheckoutLink)

	var entry models.Transaction
	require.NoError(t, fx.db.Where("reference = ?", artifact.Reference).First(&entry).Error)
	assert.Equal(t, models.TxPending, entry.Status)
	assert.Equal(t, models.PayForSubscription, entry.PaymentFor)
	assert.Equal(t, fx.store.ID, entry.EntityID)
}
