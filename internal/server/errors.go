package server

import (
	"errors"
	"log"
	"net/http"

	"doodle-store/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps domain sentinels onto HTTP statuses. Anything unmapped is
// an internal error and never leaks its message to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrVariantNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrShippingNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrSubscriptionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"mensagem": err.Error()})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrVariantInactive),
		errors.Is(err, domain.ErrCouponInvalid),
		errors.Is(err, domain.ErrShippingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderNotPayable),
		errors.Is(err, domain.ErrSubscriptionExists):
		c.JSON(http.StatusConflict, gin.H{"mensagem": err.Error()})
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"mensagem": "erro interno"})
	}
}
