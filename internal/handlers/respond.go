package handlers

import (
	"errors"
	"net/http"

	"go-storefront/internal/apperr"

	"github.com/gin-gonic/gin"
)

// respondError maps the core error taxonomy to HTTP. Clients get the machine
// code plus the human message; anything outside the taxonomy is a 500 with no
// internals leaked.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong", "code": "INTERNAL"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(appErr, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(appErr, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(appErr, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(appErr, apperr.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(appErr, apperr.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(appErr, apperr.ErrIntegration):
		status = http.StatusBadGateway
		if appErr.Retryable {
			status = http.StatusGatewayTimeout
		}
	}

	c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
}
