package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"doodle-store/internal/config"
	"doodle-store/internal/database"
	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/infrastructure/shipping"
	"doodle-store/internal/repo"
	"doodle-store/internal/server"
	"doodle-store/internal/service"
	"doodle-store/internal/worker"
)

func main() {
	cfg := config.Load()

	db := database.New(cfg)
	defer db.Close()

	if err := database.Migrate(db.DB()); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	pool := db.DB()
	users := repo.NewUserRepo(pool)
	variants := repo.NewVariantRepo(pool)
	carts := repo.NewCartRepo(pool)
	orders := repo.NewOrderRepo(pool)
	payments := repo.NewPaymentRepo(pool)
	coupons := repo.NewCouponRepo(pool)
	shippingRepo := repo.NewShippingRepo(pool)
	subscriptions := repo.NewSubscriptionRepo(pool)

	gateway := payment.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayAccessToken, cfg.GatewayTimeout)
	carrier := shipping.NewHTTPCarrier(cfg.CarrierBaseURL, cfg.CarrierToken, cfg.CarrierTimeout)

	notifier := service.NewLogNotifier()
	cartSvc := service.NewCartService(pool, carts, variants)
	couponSvc := service.NewCouponService(coupons)
	shippingSvc := service.NewShippingService(shippingRepo, variants, carrier, cfg.OriginPostalCode)
	orderSvc := service.NewOrderService(pool, orders, variants, users, notifier)
	checkoutSvc := service.NewCheckoutService(
		pool, carts, variants, orders, payments, shippingRepo, users,
		couponSvc, shippingSvc, gateway,
		service.CheckoutConfig{
			NotificationURL: cfg.PublicURL + "/api/pagamentos/webhook",
			FrontendURL:     cfg.FrontendURL,
			GatewayTimeout:  cfg.GatewayTimeout,
		},
	)
	reconcilerSvc := service.NewReconcilerService(payments, subscriptions, orderSvc, gateway)
	subscriptionSvc := service.NewSubscriptionService(
		subscriptions, users, shippingRepo, shippingSvc, gateway,
		service.SubscriptionConfig{
			FrontendURL:    cfg.FrontendURL,
			GatewayTimeout: cfg.GatewayTimeout,
		},
	)

	srv := server.NewServer(cfg, db, cartSvc, checkoutSvc, orderSvc,
		shippingSvc, couponSvc, reconcilerSvc, subscriptionSvc, variants)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewReconciliationWorker(payments, reconcilerSvc, gateway,
		cfg.ReconcileInterval, cfg.ReconcileStuckAge, cfg.ReconcileBatchSize)
	go sweeper.Run(ctx)

	go func() {
		log.Printf("listening on :%d", cfg.HTTPPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
