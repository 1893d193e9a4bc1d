package server

import (
	"log"
	"net/http"

	"doodle-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type checkoutRequest struct {
	CouponCode        *string    `json:"cupom"`
	ShippingAddressID *uuid.UUID `json:"enderecoEntregaId"`
	ShippingMethodID  *string    `json:"metodoFreteId"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	userID, _ := currentUser(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "corpo da requisição inválido"})
		return
	}

	result, err := s.checkout.Checkout(c.Request.Context(), service.CheckoutRequest{
		UserID:            userID,
		CouponCode:        req.CouponCode,
		ShippingAddressID: req.ShippingAddressID,
		ShippingMethodID:  req.ShippingMethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"pedidoId":    result.OrderID,
		"checkoutUrl": result.CheckoutURL,
	})
}

type paymentLinkRequest struct {
	OrderID uuid.UUID `json:"pedidoId" binding:"required"`
}

// handlePaymentLink re-issues the gateway checkout link for a pending order.
func (s *Server) handlePaymentLink(c *gin.Context) {
	userID, _ := currentUser(c)

	var req paymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "corpo da requisição inválido"})
		return
	}

	result, err := s.checkout.PaymentLink(c.Request.Context(), userID, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pedidoId":    result.OrderID,
		"checkoutUrl": result.CheckoutURL,
	})
}

// handlePaymentWebhook receives gateway callbacks. The body is only a hint;
// the reconciler re-fetches the resource before acting. The response is 200
// no matter what so the gateway never retries into an error loop; failures
// are healed by the reconciliation worker.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	var n service.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		log.Printf("payment webhook with unreadable body: %v", err)
		c.Status(http.StatusOK)
		return
	}
	if err := s.reconciler.Handle(c.Request.Context(), n); err != nil {
		log.Printf("payment webhook processing failed: %v", err)
	}
	c.Status(http.StatusOK)
}
