package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"go-storefront/internal/gateway"
	"go-storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// WebhookEvent is what the gateway posts us on every payment event.
type WebhookEvent struct {
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

// --- POST /webhooks/payment ---
// The webhook must ack fast and be safe to deliver any number of times; the
// reconciliation path is idempotent so we just feed it every event.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	// Signature check: HMAC-SHA512 over the raw body with the shared secret.
	signature := c.GetHeader("X-Gateway-Signature")
	if !validSignature(body, signature, h.cfg.GatewayWebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Bad signature"})
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if err := h.orchestrator.Reconcile(c.Request.Context(), event.Reference, event.Status, event.Amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- GET /api/payments/verify/:reference ---
// Manual poll for stores whose webhooks are flaky. Goes through the same
// idempotency gate as the webhook, so racing the two is fine.
func (h *Handler) VerifyPayment(c *gin.Context) {
	verification, err := h.orchestrator.Verify(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verification)
}

type BillingRequest struct {
	PaymentFor string `json:"payment_for" binding:"required"` // 'subscription' or 'ai-addon'
	Preference string `json:"preference"`
}

// --- POST /api/billing/pay (owner) ---
// Starts a premium-plan or AI add-on payment for the caller's store.
func (h *Handler) InitiateBillingPayment(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	ownerID := c.MustGet("ownerID").(uint)

	var req BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var amount float64
	switch req.PaymentFor {
	case models.PayForSubscription:
		amount = h.cfg.SubscriptionFee
	case models.PayForAIAddon:
		amount = h.cfg.AIAddonFee
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment target", "code": "VALIDATION_ERROR"})
		return
	}

	var store models.Store
	if err := h.db.First(&store, storeID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found", "code": "STORE_NOT_FOUND"})
		return
	}
	var owner models.StoreOwner
	if err := h.db.First(&owner, ownerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found", "code": "NOT_FOUND"})
		return
	}

	artifact, err := h.orchestrator.InitiateStandalone(c.Request.Context(), &store, req.PaymentFor,
		amount, req.Preference,
		gateway.Customer{Name: store.Name, Email: owner.Email, Phone: owner.Phone},
		req.PaymentFor+" for store "+store.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artifact)
}

func validSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
