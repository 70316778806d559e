package wallet

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go-storefront/internal/apperr"
	"go-storefront/internal/database"
	"go-storefront/internal/ledger"
	"go-storefront/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Queue serializes payout requests per store. A request needs a fresh
// one-time code, and a store can only have one pending payout at a time.
// Nothing is debited at request time: funds leave the wallet when an operator
// approves the queued item.
type Queue struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	otpTTL time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

func NewQueue(db *gorm.DB, l *ledger.Ledger, otpTTL time.Duration, log *logrus.Logger) *Queue {
	return &Queue{db: db, ledger: l, otpTTL: otpTTL, log: log, now: time.Now}
}

// IssueCode mints a 6-digit one-time code for the store and returns the raw
// code for delivery to the owner. Only the digest is persisted.
func (q *Queue) IssueCode(ctx context.Context, storeID uint) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	record := models.OneTimeCode{
		StoreID:   storeID,
		Digest:    digest(code),
		ExpiresAt: q.now().Add(q.otpTTL),
		CreatedAt: q.now(),
	}
	if err := q.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", err
	}
	return code, nil
}

// RequestWithdrawal queues a payout. It verifies the one-time code, checks the
// store has the funds and no payout already in flight, then writes the request
// together with its 'transfer' audit ledger entry in one transaction.
func (q *Queue) RequestWithdrawal(ctx context.Context, storeID uint, amount float64, otp string) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, apperr.Validation("WITHDRAWAL_FAILED", "withdrawal amount must be positive")
	}

	var request models.WithdrawalRequest
	err := database.WithinTransaction(ctx, q.db, func(tx *gorm.DB) error {
		// Burn the code first. The used->true flip is conditional, so a code
		// can only ever authorize one request even under concurrent submits.
		res := tx.Model(&models.OneTimeCode{}).
			Where("store_id = ? AND digest = ? AND used = ? AND expires_at > ?",
				storeID, digest(otp), false, q.now()).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Unauthorized("INVALID_OTP", "one-time code is invalid or expired")
		}

		var store models.Store
		if err := tx.First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("STORE_NOT_FOUND", "store not found")
			}
			return err
		}
		if store.BankAccountNumber == "" {
			return apperr.Validation("WITHDRAWAL_FAILED", "no payout bank account on file")
		}
		if store.Balance < amount {
			return apperr.InsufficientBalance("withdrawal exceeds available balance")
		}

		reference := ledger.NewReference()
		request = models.WithdrawalRequest{
			StoreID:           storeID,
			Amount:            amount,
			BankName:          store.BankName,
			BankAccountNumber: store.BankAccountNumber,
			BankAccountName:   store.BankAccountName,
			Status:            models.WithdrawalPending,
			PendingStoreID:    &store.ID,
			AuditReference:    reference,
			CreatedAt:         q.now(),
		}
		// One pending payout per store, enforced by the unique index on
		// PendingStoreID: the insert itself is the check, so two concurrent
		// requests cannot both queue no matter how their reads interleave.
		if err := tx.Create(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("WITHDRAWAL_IN_PROGRESS", "a withdrawal is already pending for this store")
			}
			return err
		}

		return q.ledger.CreatePending(tx, &models.Transaction{
			Reference:  reference,
			Amount:     amount,
			PaymentFor: models.PayForTransfer,
			Channel:    models.ChannelWalletBalance,
			EntityID:   request.ID,
			StoreID:    storeID,
			Metadata:   "withdrawal request",
		})
	})
	if err != nil {
		return nil, err
	}

	q.log.WithFields(logrus.Fields{
		"store_id":  storeID,
		"amount":    amount,
		"reference": request.AuditReference,
	}).Info("withdrawal queued")
	return &request, nil
}

// Approve settles a queued payout: debit the wallet, complete the request and
// flip its audit entry, all in one transaction.
func (q *Queue) Approve(ctx context.Context, requestID uint) error {
	return database.WithinTransaction(ctx, q.db, func(tx *gorm.DB) error {
		var request models.WithdrawalRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("NOT_FOUND", "withdrawal request not found")
			}
			return err
		}
		if request.Status != models.WithdrawalPending {
			return apperr.Conflict("WITHDRAWAL_FAILED", "withdrawal request is not pending")
		}

		if err := Debit(tx, request.StoreID, request.Amount); err != nil {
			return err
		}
		if err := tx.Model(&request).Updates(map[string]interface{}{
			"status":           models.WithdrawalCompleted,
			"pending_store_id": nil,
		}).Error; err != nil {
			return err
		}

		flipped, err := q.ledger.TryMarkProcessed(tx, request.AuditReference,
			models.TxSuccessful, request.Amount, q.now())
		if err != nil {
			return err
		}
		if !flipped {
			// Pending request with a terminal audit entry means the records
			// disagree; refuse rather than pay out twice.
			return apperr.Conflict("WITHDRAWAL_FAILED", "audit transaction already settled")
		}
		return nil
	})
}

// Reject declines a queued payout. Nothing was debited, so this only marks
// the request and fails the audit entry.
func (q *Queue) Reject(ctx context.Context, requestID uint) error {
	return database.WithinTransaction(ctx, q.db, func(tx *gorm.DB) error {
		var request models.WithdrawalRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("NOT_FOUND", "withdrawal request not found")
			}
			return err
		}
		if request.Status != models.WithdrawalPending {
			return apperr.Conflict("WITHDRAWAL_FAILED", "withdrawal request is not pending")
		}
		if err := tx.Model(&request).Updates(map[string]interface{}{
			"status":           models.WithdrawalRejected,
			"pending_store_id": nil,
		}).Error; err != nil {
			return err
		}
		_, err := q.ledger.TryMarkProcessed(tx, request.AuditReference,
			models.TxFailed, 0, q.now())
		return err
	})
}

func digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
