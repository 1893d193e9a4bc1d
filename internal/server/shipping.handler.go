package server

import (
	"net/http"

	"doodle-store/internal/domain"

	"github.com/gin-gonic/gin"
)

// handleQuoteShipping prices delivery options for the caller's cart.
func (s *Server) handleQuoteShipping(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		CEP       string `json:"cepDestino" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "cepDestino é obrigatório"})
		return
	}
	key, _, ok := cartIdentity(c, req.SessionID)
	if !ok {
		return
	}

	cart, err := s.carts.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(cart.Items) == 0 {
		respondError(c, domain.ErrEmptyCart)
		return
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		digital := false
		if variant, err := s.variantDigital(c, it); err == nil {
			digital = variant
		}
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Digital:   digital,
		})
	}

	options, err := s.shipping.QuoteOptions(c.Request.Context(), req.CEP, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"opcoes": options})
}

func (s *Server) variantDigital(c *gin.Context, it domain.CartItem) (bool, error) {
	variant, err := s.variants.FindById(c.Request.Context(), it.VariantID)
	if err != nil {
		return false, err
	}
	return variant.Digital, nil
}
