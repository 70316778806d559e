// Package payments picks a channel for a payment, creates the checkout
// artifact, and reconciles gateway events against the ledger. Reconciliation
// is driven by webhooks and verification polls, which may arrive out of
// order, duplicated, or concurrently. The ledger's conditional flip is the
// only gate, and it is enough.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/config"
	"go-storefront/internal/database"
	"go-storefront/internal/gateway"
	"go-storefront/internal/ledger"
	"go-storefront/internal/models"
	"go-storefront/internal/orders"
	"go-storefront/internal/wallet"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Orchestrator struct {
	db      *gorm.DB
	gateway gateway.Client
	ledger  *ledger.Ledger
	cfg     *config.Config
	log     *logrus.Logger
	now     func() time.Time
}

func NewOrchestrator(db *gorm.DB, gw gateway.Client, l *ledger.Ledger, cfg *config.Config, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{db: db, gateway: gw, ledger: l, cfg: cfg, log: log, now: time.Now}
}

// Initiate resolves the store's payment channel, creates the channel-specific
// checkout artifact, and writes the pending ledger entry on tx. It fails
// closed: any error leaves nothing behind, because the caller's transaction
// aborts with it.
//
// Channel resolution: a connected gateway wins (card link or virtual account
// per preference); otherwise a registered payout bank yields manual transfer
// instructions; otherwise the store simply cannot be paid.
func (o *Orchestrator) Initiate(ctx context.Context, tx *gorm.DB, store *models.Store, paymentFor string,
	entityID uint, amount float64, preference string, customer gateway.Customer, meta string) (*orders.PaymentArtifact, error) {

	reference := ledger.NewReference()
	artifact := &orders.PaymentArtifact{Reference: reference}

	switch {
	case store.GatewayConnected:
		if preference == models.ChannelGatewayTransfer {
			account, err := o.gateway.CreateVirtualAccount(ctx, amount, reference, customer)
			if err != nil {
				return nil, err
			}
			artifact.Channel = models.ChannelGatewayTransfer
			artifact.VirtualAccount = account
		} else {
			link, err := o.gateway.CreateCheckoutLink(ctx, amount, o.cfg.Currency, reference, customer)
			if err != nil {
				return nil, err
			}
			artifact.Channel = models.ChannelGatewayCard
			artifact.CheckoutLink = link.Link
		}
	case store.BankAccountNumber != "":
		artifact.Channel = models.ChannelWalletBalance
		artifact.TransferInstructions = fmt.Sprintf("Transfer %s %.2f to %s, %s (%s). Use %s as the narration.",
			o.cfg.Currency, amount, store.BankAccountNumber, store.BankName, store.BankAccountName, reference)
	default:
		return nil, apperr.Validation("NO_PAYMENT_OPTION", "store has no way to accept payment")
	}

	err := o.ledger.CreatePending(tx, &models.Transaction{
		Reference:  reference,
		Amount:     amount,
		PaymentFor: paymentFor,
		Channel:    artifact.Channel,
		EntityID:   entityID,
		StoreID:    store.ID,
		Metadata:   meta,
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// InitiateStandalone initiates a payment that is not part of an order commit
// (subscription, AI add-on): it opens its own transaction around Initiate.
func (o *Orchestrator) InitiateStandalone(ctx context.Context, store *models.Store, paymentFor string,
	amount float64, preference string, customer gateway.Customer, meta string) (*orders.PaymentArtifact, error) {

	var artifact *orders.PaymentArtifact
	err := database.WithinTransaction(ctx, o.db, func(tx *gorm.DB) error {
		var err error
		artifact, err = o.Initiate(ctx, tx, store, paymentFor, store.ID, amount, preference, customer, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Reconcile advances state for one external payment event, exactly once per
// reference. Every mutation it makes (ledger flip, order amounts, wallet
// credit, entitlement windows) happens in one transaction.
func (o *Orchestrator) Reconcile(ctx context.Context, reference, gatewayStatus string, gatewayAmount float64) error {
	err := database.WithinTransaction(ctx, o.db, func(tx *gorm.DB) error {
		entry, err := o.ledger.ByReference(tx, reference)
		if err != nil {
			return err
		}
		// Already terminal: a duplicate delivery. Succeed without touching
		// anything; this is what makes webhook retries harmless.
		if entry.Status != models.TxPending {
			return nil
		}

		if gatewayStatus != gateway.StatusSuccess {
			flipped, err := o.ledger.TryMarkProcessed(tx, reference, models.TxFailed, 0, o.now())
			if err != nil || !flipped {
				return err
			}
			if entry.PaymentFor == models.PayForOrder {
				return orders.MarkPaymentFailed(tx, entry.EntityID)
			}
			return nil
		}

		// The flip is the idempotency gate: of any number of concurrent
		// reconciliations for this reference, exactly one sees flipped=true
		// and performs the side effects below.
		flipped, err := o.ledger.TryMarkProcessed(tx, reference, models.TxSuccessful, gatewayAmount, o.now())
		if err != nil || !flipped {
			return err
		}

		switch entry.PaymentFor {
		case models.PayForOrder:
			credit, err := orders.ApplySettlement(tx, entry.EntityID, gatewayAmount, o.now())
			if err != nil {
				return err
			}
			if credit > 0 {
				return wallet.Credit(tx, entry.StoreID, credit)
			}
			return nil
		case models.PayForSubscription:
			return o.extendSubscription(tx, entry.StoreID, gatewayAmount)
		case models.PayForAIAddon:
			return o.extendAIAddon(tx, entry.StoreID)
		case models.PayForTransfer:
			// Withdrawal audit entries settle through the payout queue, not
			// through gateway events.
			return apperr.Conflict("WITHDRAWAL_FAILED", "transfer entries are not gateway-settled")
		}
		return fmt.Errorf("payments: unknown payment_for %q on reference %s", entry.PaymentFor, reference)
	})
	if err != nil {
		return err
	}

	o.log.WithFields(logrus.Fields{
		"reference": reference,
		"status":    gatewayStatus,
		"amount":    gatewayAmount,
	}).Info("payment reconciled")
	return nil
}

// Verify polls the gateway for a reference and feeds the answer through
// Reconcile. Safe to call any number of times.
func (o *Orchestrator) Verify(ctx context.Context, reference string) (*gateway.Verification, error) {
	verification, err := o.gateway.VerifyByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := o.Reconcile(ctx, reference, verification.Status, verification.SettledAmount); err != nil {
		return nil, err
	}
	return verification, nil
}

// extendSubscription stacks whole billing periods onto the store's premium
// expiry: amount ÷ unit fee, floored. Stacking starts from the unexpired
// remainder, never from "now", so paying early costs nothing.
func (o *Orchestrator) extendSubscription(tx *gorm.DB, storeID uint, settled float64) error {
	periods := 0
	if o.cfg.SubscriptionFee > 0 {
		periods = int(settled / o.cfg.SubscriptionFee)
	}
	if periods == 0 {
		o.log.WithField("store_id", storeID).Warnf("subscription payment of %.2f buys no full period", settled)
		return nil
	}

	store, err := loadStore(tx, storeID)
	if err != nil {
		return err
	}
	base := o.now()
	if store.PremiumExpiresAt != nil && store.PremiumExpiresAt.After(base) {
		base = *store.PremiumExpiresAt
	}
	expiry := base.AddDate(0, 0, periods*o.cfg.SubscriptionPeriodDays)
	return tx.Model(store).Update("premium_expires_at", expiry).Error
}

// extendAIAddon opens or extends the add-on entitlement by the fixed window.
func (o *Orchestrator) extendAIAddon(tx *gorm.DB, storeID uint) error {
	store, err := loadStore(tx, storeID)
	if err != nil {
		return err
	}
	base := o.now()
	if store.AIAddonExpiresAt != nil && store.AIAddonExpiresAt.After(base) {
		base = *store.AIAddonExpiresAt
	}
	expiry := base.AddDate(0, 0, o.cfg.AIAddonWindowDays)
	return tx.Model(store).Update("ai_addon_expires_at", expiry).Error
}

func loadStore(tx *gorm.DB, storeID uint) (*models.Store, error) {
	var store models.Store
	err := tx.First(&store, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("STORE_NOT_FOUND", "store not found")
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}
