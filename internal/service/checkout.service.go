package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/infrastructure/shipping"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type CheckoutRequest struct {
	UserID            uuid.UUID
	CouponCode        *string
	ShippingAddressID *uuid.UUID
	ShippingMethodID  *string
}

type CheckoutResult struct {
	OrderID     uuid.UUID
	CheckoutURL string
}

type CheckoutService interface {
	// Checkout turns the user's cart into a pending order: validates lines
	// against the current catalog, applies the coupon, reserves stock,
	// resolves shipping, creates the gateway checkout link and clears the
	// cart. Concurrent calls for the same user collapse into one execution.
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// PaymentLink issues a fresh gateway checkout link for an order that is
	// still awaiting payment, replacing the stored preference. Used when the
	// buyer returns after abandoning the original link.
	PaymentLink(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutResult, error)
}

type CheckoutConfig struct {
	NotificationURL string
	FrontendURL     string
	GatewayTimeout  time.Duration
}

type checkoutService struct {
	db       *sql.DB
	carts    repo.CartRepo
	variants repo.VariantRepo
	orders   repo.OrderRepo
	payments repo.PaymentRepo
	shipRepo repo.ShippingRepo
	users    repo.UserRepo
	coupons  CouponService
	shipping ShippingService
	gateway  payment.Gateway
	cfg      CheckoutConfig

	// Serializes checkouts per cart identity; double-submission must not
	// create two orders from one cart.
	sfg singleflight.Group
}

func NewCheckoutService(
	db *sql.DB,
	carts repo.CartRepo,
	variants repo.VariantRepo,
	orders repo.OrderRepo,
	payments repo.PaymentRepo,
	shipRepo repo.ShippingRepo,
	users repo.UserRepo,
	coupons CouponService,
	shippingSvc ShippingService,
	gateway payment.Gateway,
	cfg CheckoutConfig,
) CheckoutService {
	return &checkoutService{
		db:       db,
		carts:    carts,
		variants: variants,
		orders:   orders,
		payments: payments,
		shipRepo: shipRepo,
		users:    users,
		coupons:  coupons,
		shipping: shippingSvc,
		gateway:  gateway,
		cfg:      cfg,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	v, err, _ := s.sfg.Do(req.UserID.String(), func() (interface{}, error) {
		return s.checkout(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CheckoutResult), nil
}

func (s *checkoutService) checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	identityKey := req.UserID.String()

	// Steps 1-4 are pure validation: any failure here leaves no trace.
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err == domain.ErrCartNotFound {
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items, subtotal, err := s.snapshotLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	address, shippingOption, err := s.resolveShipping(ctx, req, items)
	if err != nil {
		return nil, err
	}

	if req.CouponCode != nil {
		if _, err := s.coupons.Validate(ctx, *req.CouponCode); err != nil {
			return nil, err
		}
	}

	shippingCost := decimal.Zero
	if shippingOption != nil {
		shippingCost = shippingOption.Price
	}

	// Steps 5-6 plus the coupon consumption share one transaction: either
	// the order exists with its stock reserved and coupon use counted, or
	// nothing happened.
	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Items:           items,
		Status:          domain.OrderPending,
		Discount:        decimal.Zero,
		CouponCode:      req.CouponCode,
		ShippingCost:    shippingCost,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	total := subtotal
	if req.CouponCode != nil {
		application, err := s.coupons.Apply(ctx, tx, *req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		order.Discount = application.Discount
		total = application.NewTotal
	}
	order.Total = total.Add(shippingCost)

	if err := s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.Digital {
			continue
		}
		if err := s.variants.Reserve(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if shippingOption != nil {
		shipment := &domain.Shipment{
			ID:           uuid.New(),
			OrderID:      order.ID,
			Service:      shippingOption.Name,
			Cost:         shippingOption.Price,
			DeliveryDays: shippingOption.DeliveryDays,
			Status:       domain.DeliveryPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.shipRepo.CreateShipment(ctx, tx, shipment); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Step 7: the external call. From here on a failure must undo the
	// reservation or stock leaks permanently.
	link, err := s.createCheckoutLink(ctx, order)
	if err != nil {
		s.compensate(ctx, order)
		return nil, fmt.Errorf("payment intent creation failed: %w", err)
	}

	pay := &domain.Payment{
		ID:            uuid.New(),
		OrderID:       order.ID,
		UserID:        req.UserID,
		Amount:        order.Total,
		Method:        domain.MethodGateway,
		Status:        domain.PaymentPending,
		TransactionID: &link.PreferenceID,
		RawPayload:    link.Raw,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, nil, pay); err != nil {
		s.compensate(ctx, order)
		return nil, fmt.Errorf("persisting payment attempt failed: %w", err)
	}

	// Step 8: the cart is spent.
	cart.Items = []domain.CartItem{}
	cart.RecomputeTotal()
	if err := s.carts.SaveItems(ctx, nil, cart); err != nil {
		// The order and payment stand; an unclean cart is an annoyance,
		// not a correctness problem.
		log.Printf("clearing cart for %s after checkout failed: %v", identityKey, err)
	}

	return &CheckoutResult{OrderID: order.ID, CheckoutURL: link.InitPoint}, nil
}

func (s *checkoutService) PaymentLink(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutResult, error) {
	order, err := s.orders.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderPending {
		return nil, domain.ErrOrderNotPayable
	}

	pay, err := s.payments.FindByOrderId(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pay.Status != domain.PaymentPending {
		return nil, domain.ErrOrderNotPayable
	}

	link, err := s.createCheckoutLink(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("payment intent creation failed: %w", err)
	}

	applied, err := s.payments.RefreshTransaction(ctx, nil, pay.ID, link.PreferenceID, link.Raw)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The payment resolved while we were talking to the gateway; the
		// stale preference just expires on its own.
		return nil, domain.ErrOrderNotPayable
	}
	return &CheckoutResult{OrderID: order.ID, CheckoutURL: link.InitPoint}, nil
}

// snapshotLines freezes the cart lines against the current catalog: prices
// are re-read from the authoritative variant rows, not the cart's stale
// reference snapshot.
func (s *checkoutService) snapshotLines(ctx context.Context, cart *domain.Cart) ([]domain.OrderItem, decimal.Decimal, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	subtotal := decimal.Zero

	for _, line := range cart.Items {
		product, err := s.variants.FindProduct(ctx, line.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !product.Active {
			return nil, decimal.Zero, domain.ErrProductNotFound
		}
		variant, err := s.variants.FindForProduct(ctx, line.VariantID, line.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !variant.Active {
			return nil, decimal.Zero, domain.ErrVariantInactive
		}
		if !variant.Digital && variant.Stock < line.Quantity {
			return nil, decimal.Zero, domain.ErrInsufficientStock
		}

		lineSubtotal := variant.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineSubtotal)
		items = append(items, domain.OrderItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      variant.DisplayName(product.Name),
			UnitPrice: variant.Price,
			Quantity:  line.Quantity,
			Subtotal:  lineSubtotal,
			Digital:   variant.Digital,
		})
	}
	return items, subtotal, nil
}

// resolveShipping enforces the digital/physical rule: physical content makes
// address and method mandatory; all-digital orders skip both.
func (s *checkoutService) resolveShipping(ctx context.Context, req CheckoutRequest, items []domain.OrderItem) (*domain.Address, *shipping.QuoteOption, error) {
	if domain.AllDigital(items) {
		return nil, nil, nil
	}
	if req.ShippingAddressID == nil || req.ShippingMethodID == nil {
		return nil, nil, domain.ErrShippingRequired
	}

	address, err := s.shipRepo.FindAddress(ctx, *req.ShippingAddressID, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	option, err := s.shipping.ResolveSelection(ctx, *req.ShippingMethodID, address.PostalCode, items)
	if err != nil {
		return nil, nil, err
	}
	return address, option, nil
}

func (s *checkoutService) createCheckoutLink(ctx context.Context, order *domain.Order) (*payment.CheckoutLink, error) {
	user, err := s.users.FindById(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	prefItems := make([]payment.PreferenceItem, 0, len(order.Items)+1)
	for _, it := range order.Items {
		category := "physical_goods"
		if it.Digital {
			category = "virtual_goods"
		}
		prefItems = append(prefItems, payment.PreferenceItem{
			ID:         it.ProductID.String(),
			Title:      it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			CategoryID: category,
		})
	}
	if order.Discount.IsPositive() {
		prefItems = append(prefItems, payment.PreferenceItem{
			ID:         "desconto",
			Title:      "Desconto",
			UnitPrice:  order.Discount.Neg(),
			Quantity:   1,
			CategoryID: "discount",
		})
	}
	if order.ShippingCost.IsPositive() {
		prefItems = append(prefItems, payment.PreferenceItem{
			ID:         "frete",
			Title:      "Custo de Envio",
			UnitPrice:  order.ShippingCost,
			Quantity:   1,
			CategoryID: "shipping_and_handling",
		})
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	return s.gateway.CreatePreference(gwCtx, payment.PreferenceRequest{
		Items:             prefItems,
		PayerName:         user.Name,
		PayerEmail:        user.Email,
		ExternalReference: order.ID.String(),
		NotificationURL:   s.cfg.NotificationURL,
		SuccessURL:        fmt.Sprintf("%s/pagamento/sucesso?pedido=%s", s.cfg.FrontendURL, order.ID),
		FailureURL:        fmt.Sprintf("%s/pagamento/erro?pedido=%s", s.cfg.FrontendURL, order.ID),
		PendingURL:        fmt.Sprintf("%s/pagamento/pendente?pedido=%s", s.cfg.FrontendURL, order.ID),
		ExpiresIn:         24 * time.Hour,
	})
}

// compensate undoes a committed reservation after a later step failed: the
// order is cancelled and every physical line's stock is returned. The coupon
// use stays consumed.
func (s *checkoutService) compensate(ctx context.Context, order *domain.Order) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("COMPENSATION FAILED for order %s: %v", order.ID, err)
		return
	}
	defer tx.Rollback()

	applied, err := s.orders.TransitionStatus(ctx, tx, order.ID,
		[]domain.OrderStatus{domain.OrderPending}, domain.OrderCancelled)
	if err != nil {
		log.Printf("COMPENSATION FAILED for order %s: %v", order.ID, err)
		return
	}
	if !applied {
		// Someone else already moved the order on; its path owns the stock.
		return
	}

	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		if err := s.variants.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
			log.Printf("COMPENSATION FAILED for order %s variant %s: %v", order.ID, item.VariantID, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("COMPENSATION FAILED for order %s: %v", order.ID, err)
	}
}
