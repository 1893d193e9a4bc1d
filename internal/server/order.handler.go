package server

import (
	"net/http"
	"strconv"

	"doodle-store/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleListOrders(c *gin.Context) {
	userID, _ := currentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var status *domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		st := domain.OrderStatus(raw)
		if !domain.ValidOrderStatus(st) {
			c.JSON(http.StatusBadRequest, gin.H{"mensagem": "status de pedido desconhecido"})
			return
		}
		status = &st
	}

	result, err := s.orders.ListByUser(c.Request.Context(), userID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pedidos":      result.Orders,
		"total":        result.Total,
		"totalPaginas": result.TotalPages,
		"pagina":       result.CurrentPage,
	})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	userID, _ := currentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "id de pedido inválido"})
		return
	}

	order, err := s.orders.FindById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// Buyers only see their own orders.
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"mensagem": domain.ErrOrderNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// handleCancelOrder is the buyer-facing cancellation: owner-scoped, valid
// only while the order has not shipped.
func (s *Server) handleCancelOrder(c *gin.Context) {
	userID, _ := currentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "id de pedido inválido"})
		return
	}

	order, err := s.orders.FindById(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"mensagem": domain.ErrOrderNotFound.Error()})
		return
	}

	applied, err := s.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !applied {
		respondError(c, domain.ErrInvalidTransition)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensagem": "pedido cancelado"})
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "id de pedido inválido"})
		return
	}

	var req struct {
		Status domain.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "status é obrigatório"})
		return
	}
	if !domain.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "status de pedido desconhecido"})
		return
	}

	order, err := s.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// handleHasPurchased answers whether the caller ever paid for the product,
// used to gate product reviews.
func (s *Server) handleHasPurchased(c *gin.Context) {
	userID, _ := currentUser(c)
	productID, err := uuid.Parse(c.Param("produtoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "id de produto inválido"})
		return
	}

	bought, err := s.orders.HasPurchased(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comprou": bought})
}
