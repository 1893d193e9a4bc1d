package server

import (
	"net/http"

	"doodle-store/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type cartItemRequest struct {
	SessionID string    `json:"sessionId"`
	ProductID uuid.UUID `json:"produtoId" binding:"required"`
	VariantID uuid.UUID `json:"variacaoId" binding:"required"`
	Quantity  int       `json:"quantidade"`
}

func (s *Server) handleGetCart(c *gin.Context) {
	key, _, ok := cartIdentity(c, "")
	if !ok {
		return
	}
	cart, err := s.carts.Get(c.Request.Context(), key)
	if err == domain.ErrCartNotFound {
		// An absent cart reads as an empty one.
		c.JSON(http.StatusOK, gin.H{"itens": []domain.CartItem{}, "total": "0"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) handleAddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "corpo da requisição inválido"})
		return
	}
	key, userID, ok := cartIdentity(c, req.SessionID)
	if !ok {
		return
	}
	cart, err := s.carts.AddItem(c.Request.Context(), key, userID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) handleReplaceCartItems(c *gin.Context) {
	var req struct {
		SessionID string            `json:"sessionId"`
		Items     []domain.CartItem `json:"itens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "corpo da requisição inválido"})
		return
	}
	key, _, ok := cartIdentity(c, req.SessionID)
	if !ok {
		return
	}
	cart, err := s.carts.ReplaceItems(c.Request.Context(), key, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) handleRemoveCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "corpo da requisição inválido"})
		return
	}
	key, _, ok := cartIdentity(c, req.SessionID)
	if !ok {
		return
	}
	cart, err := s.carts.RemoveItem(c.Request.Context(), key, req.ProductID, req.VariantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (s *Server) handleClearCart(c *gin.Context) {
	key, _, ok := cartIdentity(c, "")
	if !ok {
		return
	}
	cart, err := s.carts.Clear(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// handleMergeCart folds the guest session's cart into the freshly
// authenticated user's cart.
func (s *Server) handleMergeCart(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "sessionId é obrigatório"})
		return
	}
	userID, _ := currentUser(c)
	cart, err := s.carts.MergeGuestIntoUser(c.Request.Context(), req.SessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
