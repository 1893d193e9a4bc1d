package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type validateCouponRequest struct {
	Code string `json:"codigo" binding:"required"`
}

// handleValidateCoupon answers the checkout page's "is this code still good"
// question. Nothing is consumed here; the authoritative use count is only
// touched during checkout.
func (s *Server) handleValidateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"mensagem": "código do cupom é obrigatório"})
		return
	}

	coupon, err := s.coupons.Validate(c.Request.Context(), req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valido": false, "erro": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valido": true,
		"cupom": gin.H{
			"codigo": coupon.Code,
			"valor":  coupon.Value,
			"tipo":   coupon.Type,
		},
	})
}
