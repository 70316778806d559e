package handlers

import (
	"net/http"
	"strconv"

	"go-storefront/internal/catalog"
	"go-storefront/internal/models"
	"go-storefront/internal/orders"
	"go-storefront/internal/pricing"

	"github.com/gin-gonic/gin"
)

// CartTotalRequest is the public "what would this cost" query.
type CartTotalRequest struct {
	Items      []pricing.Line `json:"items" binding:"required"`
	CouponCode string         `json:"coupon_code"`
}

// --- POST /api/stores/:slug/cart/total ---
func (h *Handler) ComputeCartTotal(c *gin.Context) {
	var req CartTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var store models.Store
	if err := h.db.Where("slug = ?", c.Param("slug")).First(&store).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Store not found", "code": "STORE_NOT_FOUND"})
		return
	}

	engine := pricing.New(catalog.New(h.db))
	quote, err := engine.ComputeTotal(c.Request.Context(), store.ID, req.Items, req.CouponCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":        quote.Total,
		"discount":     quote.Discount,
		"discount_pct": quote.DiscountPct,
	})
}

// --- POST /api/stores/:slug/orders ---
func (h *Handler) CreateOrder(c *gin.Context) {
	var req orders.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, artifact, err := h.orders.Create(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"payment": artifact,
	})
}

// --- GET /api/orders (owner) ---
func (h *Handler) ListOrders(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	list, err := h.orders.ListForStore(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- GET /api/orders/:id (owner) ---
func (h *Handler) GetOrder(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetForStore(c.Request.Context(), storeID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- PUT /api/orders/:id/status (owner) ---
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), storeID, orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated", "order": order})
}

// --- POST /api/orders/:id/ship (owner) ---
func (h *Handler) ShipOrder(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orders.MarkShipped(c.Request.Context(), storeID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shipment booked", "order": order})
}

type NoteUpdateRequest struct {
	Note string `json:"note"`
}

// --- PUT /api/stores/:slug/orders/:id/note (customer) ---
// Customers can only touch the note, and only before fulfilment starts.
func (h *Handler) UpdateOrderNote(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	var req NoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	order, err := h.orders.UpdateNote(c.Request.Context(), c.Param("slug"), orderID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type CancellationRequest struct {
	Reason string `json:"reason"`
}

// --- POST /api/stores/:slug/orders/:id/request-cancellation ---
func (h *Handler) RequestCancellation(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	var req CancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.orders.RequestCancellation(c.Request.Context(), c.Param("slug"), orderID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Cancellation request sent to the store"})
}

// --- POST /api/stores/:slug/orders/:id/request-confirmation ---
func (h *Handler) RequestConfirmation(c *gin.Context) {
	orderID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.orders.RequestConfirmation(c.Request.Context(), c.Param("slug"), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Confirmation request sent to the store"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}
