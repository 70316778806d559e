package handlers

import (
	"net/http"

	"go-storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// --- POST /api/withdrawal-codes (owner) ---
// Mints a one-time code and mails it to the account on file. The code is
// never returned over the API.
func (h *Handler) RequestWithdrawalCode(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	ownerID := c.MustGet("ownerID").(uint)

	var owner models.StoreOwner
	if err := h.db.First(&owner, ownerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found", "code": "NOT_FOUND"})
		return
	}

	code, err := h.withdrawals.IssueCode(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifier.Dispatch(owner.Email, "Your withdrawal code",
		"Use code "+code+" to confirm your withdrawal. It expires shortly.")
	c.JSON(http.StatusOK, gin.H{"message": "A one-time code has been sent to your email"})
}

type WithdrawalRequestInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	OTP    string  `json:"otp" binding:"required"`
}

// --- POST /api/withdrawals (owner) ---
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)

	var input WithdrawalRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	request, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), storeID, input.Amount, input.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// --- POST /api/withdrawals/:id/approve (operator) ---
func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.withdrawals.Approve(c.Request.Context(), requestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal approved"})
}

// --- POST /api/withdrawals/:id/reject (operator) ---
func (h *Handler) RejectWithdrawal(c *gin.Context) {
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.withdrawals.Reject(c.Request.Context(), requestID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal rejected"})
}
