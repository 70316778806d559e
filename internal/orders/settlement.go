package orders

import (
	"errors"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/models"
	"go-storefront/internal/pricing"

	"gorm.io/gorm"
)

// ApplySettlement records a validated payment against an order. It is only
// called by the reconciliation path, after the ledger's idempotency gate, and
// inside the same transaction as the ledger flip.
//
// A settlement below what is still owed is a partial payment: amounts move,
// status stays. A settlement covering the remainder completes the order.
// Returns the amount the store wallet is owed by this settlement: zero while
// the order stays partial (partials are withheld), the full order total on
// completion, so the credit covers every earlier withheld partial too.
func ApplySettlement(tx *gorm.DB, orderID uint, settled float64, now time.Time) (float64, error) {
	order, err := loadOrder(tx, orderID)
	if err != nil {
		return 0, err
	}
	if order.Status == models.OrderCompleted {
		return 0, apperr.Conflict("ORDER_ALREADY_PAID", "order is already paid in full")
	}
	if isTerminal(order.Status) {
		return 0, apperr.Conflict("ORDER_UPDATE_FAILED", "order is in a terminal state")
	}

	if settled < order.AmountLeftToPay {
		paid := pricing.Round2(order.AmountPaid + settled)
		err := tx.Model(order).Updates(map[string]interface{}{
			"amount_paid":        paid,
			"amount_left_to_pay": pricing.Round2(order.TotalAmount - paid),
			"payment_status":     models.PaymentPartial,
		}).Error
		return 0, err
	}

	err = tx.Model(order).Updates(map[string]interface{}{
		"status":             models.OrderCompleted,
		"amount_paid":        order.TotalAmount,
		"amount_left_to_pay": 0,
		"payment_status":     models.PaymentPaid,
		"paid_at":            now,
	}).Error
	if err != nil {
		return 0, err
	}
	return order.TotalAmount, nil
}

// MarkPaymentFailed flags a failed payment attempt on the order without
// touching the state machine or the amounts.
func MarkPaymentFailed(tx *gorm.DB, orderID uint) error {
	order, err := loadOrder(tx, orderID)
	if err != nil {
		return err
	}
	if isTerminal(order.Status) {
		return nil
	}
	return tx.Model(order).Update("payment_status", models.PaymentFailed).Error
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("ORDER_NOT_FOUND", "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func isTerminal(status string) bool {
	switch status {
	case models.OrderCompleted, models.OrderCancelled, models.OrderRefunded:
		return true
	}
	return false
}
