package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"doodle-store/internal/config"
	"doodle-store/internal/database"
	"doodle-store/internal/repo"
	"doodle-store/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg           config.Config
	db            database.Service
	carts         service.CartService
	checkout      service.CheckoutService
	orders        service.OrderService
	shipping      service.ShippingService
	coupons       service.CouponService
	reconciler    service.ReconcilerService
	subscriptions service.SubscriptionService
	variants      repo.VariantRepo

	router *gin.Engine
	http   *http.Server
}

func NewServer(
	cfg config.Config,
	db database.Service,
	carts service.CartService,
	checkout service.CheckoutService,
	orders service.OrderService,
	shipping service.ShippingService,
	coupons service.CouponService,
	reconciler service.ReconcilerService,
	subscriptions service.SubscriptionService,
	variants repo.VariantRepo,
) *Server {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		cfg:           cfg,
		db:            db,
		carts:         carts,
		checkout:      checkout,
		orders:        orders,
		shipping:      shipping,
		coupons:       coupons,
		reconciler:    reconciler,
		subscriptions: subscriptions,
		variants:      variants,
		router:        router,
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		carrinho := api.Group("/carrinho", s.optionalAuth())
		{
			carrinho.GET("", s.handleGetCart)
			carrinho.POST("/adicionar", s.handleAddCartItem)
			carrinho.PUT("/atualizar", s.handleReplaceCartItems)
			carrinho.POST("/remover", s.handleRemoveCartItem)
			carrinho.DELETE("", s.handleClearCart)
			carrinho.POST("/migrar", s.requireAuth(), s.handleMergeCart)
		}

		frete := api.Group("/frete")
		{
			frete.POST("/calcular", s.optionalAuth(), s.handleQuoteShipping)
		}

		cupons := api.Group("/cupons")
		{
			cupons.POST("/validar", s.handleValidateCoupon)
		}

		pedidos := api.Group("/pedidos", s.requireAuth())
		{
			pedidos.POST("", s.handleCheckout)
			pedidos.GET("", s.handleListOrders)
			pedidos.GET("/:id", s.handleGetOrder)
			pedidos.DELETE("/:id", s.handleCancelOrder)
			pedidos.PUT("/:id/status", s.requireAdmin(), s.handleUpdateOrderStatus)
			pedidos.GET("/comprou/:produtoId", s.handleHasPurchased)
		}

		pagamentos := api.Group("/pagamentos")
		{
			pagamentos.POST("/checkout", s.requireAuth(), s.handlePaymentLink)
			pagamentos.POST("/webhook", s.handlePaymentWebhook)
		}

		subs := api.Group("/subscriptions")
		{
			subs.POST("/subscribe", s.requireAuth(), s.handleSubscribe)
			subs.GET("/current", s.requireAuth(), s.handleCurrentSubscription)
			subs.POST("/cancel", s.requireAuth(), s.handleCancelSubscription)
			subs.POST("/webhook", s.handleSubscriptionWebhook)
		}
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Health())
}
