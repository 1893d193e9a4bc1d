package service

import (
	"context"
	"database/sql"
	"log"

	"doodle-store/internal/domain"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
)

type OrderPage struct {
	Orders      []domain.Order
	Total       int
	TotalPages  int
	CurrentPage int
}

type OrderService interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus, page, limit int) (*OrderPage, error)
	// UpdateStatus applies an administrative status transition. The update is
	// a guarded compare-and-set; an already-applied or ineligible transition
	// returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (*domain.Order, error)
	// Cancel moves a pre-shipment order to cancelado and releases the stock
	// reservation of every physical line. Idempotent: cancelling a cancelled
	// order reports applied=false and releases nothing.
	Cancel(ctx context.Context, id uuid.UUID) (applied bool, err error)
	// MarkPaid is the single entry point into the pago state. The buyer
	// confirmation fires only when the guarded transition applies, so a
	// replayed notification never emails twice.
	MarkPaid(ctx context.Context, id uuid.UUID) (applied bool, err error)
	HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type orderService struct {
	db       *sql.DB
	orders   repo.OrderRepo
	variants repo.VariantRepo
	users    repo.UserRepo
	notifier Notifier
}

func NewOrderService(db *sql.DB, orders repo.OrderRepo, variants repo.VariantRepo, users repo.UserRepo, notifier Notifier) OrderService {
	return &orderService{db: db, orders: orders, variants: variants, users: users, notifier: notifier}
}

func (s *orderService) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindById(ctx, id)
}

func (s *orderService) ListByUser(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus, page, limit int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	orders, total, err := s.orders.ListByUser(ctx, userID, status, page, limit)
	if err != nil {
		return nil, err
	}
	totalPages := (total + limit - 1) / limit
	return &OrderPage{Orders: orders, Total: total, TotalPages: totalPages, CurrentPage: page}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.FindById(ctx, id)
	if err != nil {
		return nil, err
	}

	var applied bool
	switch target {
	case domain.OrderCancelled:
		applied, err = s.Cancel(ctx, id)
	case domain.OrderPaid:
		applied, err = s.MarkPaid(ctx, id)
	default:
		applied, err = s.orders.TransitionStatus(ctx, nil, id, predecessorsOf(target), target)
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrInvalidTransition
	}

	if target != domain.OrderPaid { // MarkPaid already notified
		if user, uerr := s.users.FindById(ctx, order.UserID); uerr == nil {
			if nerr := s.notifier.OrderStatusUpdate(ctx, user, order, target); nerr != nil {
				log.Printf("status notification for order %s failed: %v", id, nerr)
			}
		}
	}

	return s.orders.FindById(ctx, id)
}

// predecessorsOf lists every status allowed to transition into target.
func predecessorsOf(target domain.OrderStatus) []domain.OrderStatus {
	var from []domain.OrderStatus
	for _, s := range []domain.OrderStatus{
		domain.OrderPending, domain.OrderPaid, domain.OrderProcessing,
		domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled,
	} {
		if s.CanTransitionTo(target) {
			from = append(from, s)
		}
	}
	return from
}

func (s *orderService) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	order, err := s.orders.FindById(ctx, id)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	applied, err := s.orders.TransitionStatus(ctx, tx, id, domain.OrderCancellableFrom(), domain.OrderCancelled)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	// The reservation made at checkout gets its paired release here.
	for _, item := range order.Items {
		if item.Digital {
			continue
		}
		if err := s.variants.Release(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *orderService) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	applied, err := s.orders.TransitionStatus(ctx, nil, id, []domain.OrderStatus{domain.OrderPending}, domain.OrderPaid)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, nil
	}

	order, err := s.orders.FindById(ctx, id)
	if err != nil {
		log.Printf("order %s paid but reload failed: %v", id, err)
		return true, nil
	}
	user, err := s.users.FindById(ctx, order.UserID)
	if err != nil {
		log.Printf("order %s paid but user lookup failed: %v", id, err)
		return true, nil
	}
	if err := s.notifier.OrderConfirmation(ctx, user, order); err != nil {
		log.Printf("confirmation for order %s failed: %v", id, err)
	}
	return true, nil
}

func (s *orderService) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.orders.HasPaidOrderWithProduct(ctx, userID, productID)
}
