package service

import (
	"context"
	"log"

	"doodle-store/internal/domain"
)

// Notifier delivers buyer-facing notifications. Delivery failures are the
// caller's to log, never to propagate: a failed email must not fail the
// state transition that triggered it.
type Notifier interface {
	OrderConfirmation(ctx context.Context, user *domain.User, order *domain.Order) error
	OrderStatusUpdate(ctx context.Context, user *domain.User, order *domain.Order, status domain.OrderStatus) error
}

type logNotifier struct{}

// NewLogNotifier returns a Notifier that only logs. Real mail delivery hangs
// off this interface.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) OrderConfirmation(_ context.Context, user *domain.User, order *domain.Order) error {
	log.Printf("notify %s: pedido %s confirmado, total %s", user.Email, order.ID, order.Total)
	return nil
}

func (logNotifier) OrderStatusUpdate(_ context.Context, user *domain.User, order *domain.Order, status domain.OrderStatus) error {
	log.Printf("notify %s: pedido %s agora %s", user.Email, order.ID, status)
	return nil
}
