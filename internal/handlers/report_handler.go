package handlers

import (
	"net/http"
	"time"

	"go-storefront/internal/database"

	"github.com/gin-gonic/gin"
)

// --- GET /api/reports (owner) ---
// Optional ?start=2026-01-01&end=2026-01-31 window; defaults to the last 30 days.
func (h *Handler) GetSalesReport(c *gin.Context) {
	storeID := c.MustGet("storeID").(uint)

	end := time.Now()
	start := end.AddDate(0, 0, -30)
	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		end = parsed.AddDate(0, 0, 1) // inclusive end of day
	}

	report, err := database.StoreSalesReport(h.db, storeID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	c.JSON(http.StatusOK, report)
}
