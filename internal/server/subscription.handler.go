package server

import (
	"log"
	"net/http"

	"doodle-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleSubscribe(c *gin.Context) {
	userID, _ := currentUser(c)

	var req struct {
		PlanID    uuid.UUID  `json:"planoId" binding:"required"`
		AddressID *uuid.UUID `json:"enderecoEntregaId"`
		MethodID  string     `json:"metodoFreteId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "planoId é obrigatório"})
		return
	}

	result, err := s.subscriptions.Subscribe(c.Request.Context(), service.SubscribeRequest{
		UserID:    userID,
		PlanID:    req.PlanID,
		AddressID: req.AddressID,
		MethodID:  req.MethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleCurrentSubscription(c *gin.Context) {
	userID, _ := currentUser(c)
	sub, err := s.subscriptions.Current(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleCancelSubscription(c *gin.Context) {
	userID, _ := currentUser(c)
	if err := s.subscriptions.Cancel(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensagem": "assinatura cancelada"})
}

// handleSubscriptionWebhook mirrors the payment webhook contract: the body
// is a hint, the reconciler re-fetches, and the gateway always gets a 200.
func (s *Server) handleSubscriptionWebhook(c *gin.Context) {
	var n service.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		log.Printf("subscription webhook with unreadable body: %v", err)
		c.Status(http.StatusOK)
		return
	}
	if err := s.reconciler.Handle(c.Request.Context(), n); err != nil {
		log.Printf("subscription webhook processing failed: %v", err)
	}
	c.Status(http.StatusOK)
}
