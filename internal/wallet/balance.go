// Package wallet owns the store balance and the payout queue. All balance
// movement is an atomic increment or a guarded decrement in SQL; nothing ever
// writes back a balance it read earlier.
package wallet

import (
	"go-storefront/internal/apperr"
	"go-storefront/internal/models"

	"gorm.io/gorm"
)

// Credit adds to a store's balance. Called inside the reconciliation
// transaction when a sale settles.
func Credit(tx *gorm.DB, storeID uint, amount float64) error {
	res := tx.Model(&models.Store{}).
		Where("id = ?", storeID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("STORE_NOT_FOUND", "store not found")
	}
	return nil
}

// Debit removes from a store's balance. The balance check and the decrement
// are one statement, so two concurrent debits cannot both drain the same
// funds: the balance never goes negative.
func Debit(tx *gorm.DB, storeID uint, amount float64) error {
	res := tx.Model(&models.Store{}).
		Where("id = ? AND balance >= ?", storeID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.InsufficientBalance("balance is too low for this debit")
	}
	return nil
}
