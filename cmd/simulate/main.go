package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"doodle-store/internal/config"
	"doodle-store/internal/database"
	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/repo"
	"doodle-store/internal/service"
	"doodle-store/internal/worker"

	"github.com/google/uuid"
)

// Simulates the failure mode this system is built around: the gateway creates
// the checkout server-side but the response never arrives. The checkout must
// compensate (cancel the order, put stock back), and the reconciliation worker
// must later settle whatever the buyer actually did at the gateway.
func main() {
	ctx := context.Background()
	cfg := config.Load()

	db := database.New(cfg)
	defer db.Close()
	pool := db.DB()

	if err := database.Migrate(pool); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	userID, productID, variantID, methodID, addressID := seed(ctx, pool)

	gateway := payment.NewMockGateway()
	gateway.TimeoutRate = 30

	users := repo.NewUserRepo(pool)
	variants := repo.NewVariantRepo(pool)
	carts := repo.NewCartRepo(pool)
	orders := repo.NewOrderRepo(pool)
	payments := repo.NewPaymentRepo(pool)
	coupons := repo.NewCouponRepo(pool)
	shippingRepo := repo.NewShippingRepo(pool)
	subscriptions := repo.NewSubscriptionRepo(pool)

	notifier := service.NewLogNotifier()
	cartSvc := service.NewCartService(pool, carts, variants)
	couponSvc := service.NewCouponService(coupons)
	shippingSvc := service.NewShippingService(shippingRepo, variants, nil, cfg.OriginPostalCode)
	orderSvc := service.NewOrderService(pool, orders, variants, users, notifier)
	checkoutSvc := service.NewCheckoutService(
		pool, carts, variants, orders, payments, shippingRepo, users,
		couponSvc, shippingSvc, gateway,
		service.CheckoutConfig{
			NotificationURL: "http://localhost/webhook",
			FrontendURL:     "http://localhost",
			GatewayTimeout:  2 * time.Second,
		},
	)
	reconcilerSvc := service.NewReconcilerService(payments, subscriptions, orderSvc, gateway)

	method := "custom_" + methodID.String()

	fmt.Println("--- simulating 20 checkouts, 30% gateway timeouts ---")
	for i := 0; i < 20; i++ {
		if _, err := cartSvc.AddItem(ctx, userID.String(), &userID, productID, variantID, 1); err != nil {
			log.Printf("[%02d] cart: %v", i+1, err)
			continue
		}

		result, err := checkoutSvc.Checkout(ctx, service.CheckoutRequest{
			UserID:            userID,
			ShippingAddressID: &addressID,
			ShippingMethodID:  &method,
		})
		if err != nil {
			fmt.Printf("[%02d] checkout FAILED: %v\n", i+1, err)
		} else {
			fmt.Printf("[%02d] checkout ok, order %s\n", i+1, result.OrderID)
			// Buyer pays roughly half the time.
			if i%2 == 0 {
				if _, err := gateway.SettlePayment(result.OrderID.String(), payment.StatusApproved); err != nil {
					log.Printf("settle: %v", err)
				}
			}
		}
		showStock(ctx, pool, variantID)
	}

	fmt.Println("--- running reconciliation sweep ---")
	sweepCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	sweeper := worker.NewReconciliationWorker(payments, reconcilerSvc, gateway,
		1*time.Second, 0, 50)
	sweeper.Run(sweepCtx)

	showOrders(ctx, pool)
}

func seed(ctx context.Context, db *sql.DB) (userID, productID, variantID, methodID, addressID uuid.UUID) {
	userID = uuid.New()
	productID = uuid.New()
	variantID = uuid.New()
	methodID = uuid.New()
	addressID = uuid.New()

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO usuarios (id, nome, email) VALUES ($1, $2, $3)`,
			[]any{userID, "Comprador Simulado", "comprador@example.com"}},
		{`INSERT INTO produtos (id, nome, ativo) VALUES ($1, $2, true)`,
			[]any{productID, "Caderno de Desenho"}},
		{`INSERT INTO variacoes_produto (id, produto_id, nome, preco, digital, estoque, ativo)
		  VALUES ($1, $2, $3, $4, false, $5, true)`,
			[]any{variantID, productID, "A5", "39.90", 100}},
		{`INSERT INTO metodos_frete (id, titulo, descricao, valor, prazo_entrega, ativo)
		  VALUES ($1, $2, $3, $4, $5, true)`,
			[]any{methodID, "Entrega Local", "retirada na loja", "5.00", 2}},
		{`INSERT INTO enderecos_usuario (id, usuario_id, logradouro, numero, bairro, cidade, estado, cep)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			[]any{addressID, userID, "Rua das Flores", "100", "Centro", "Curitiba", "PR", "80010000"}},
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st.sql, st.args...); err != nil {
			log.Fatalf("seeding: %v", err)
		}
	}
	return
}

func showStock(ctx context.Context, db *sql.DB, variantID uuid.UUID) {
	var stock int
	if err := db.QueryRowContext(ctx,
		`SELECT estoque FROM variacoes_produto WHERE id = $1`, variantID).Scan(&stock); err == nil {
		fmt.Printf("     stock now %d\n", stock)
	}
}

func showOrders(ctx context.Context, db *sql.DB) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM pedidos GROUP BY status ORDER BY status`)
	if err != nil {
		log.Printf("summary: %v", err)
		return
	}
	defer rows.Close()

	fmt.Println("--- final order states ---")
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return
		}
		fmt.Printf("  %-12s %d\n", status, n)
	}
}
