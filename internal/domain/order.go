package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pendente"
	OrderPaid       OrderStatus = "pago"
	OrderProcessing OrderStatus = "processando"
	OrderShipped    OrderStatus = "enviado"
	OrderDelivered  OrderStatus = "entregue"
	OrderCancelled  OrderStatus = "cancelado"
)

// orderTransitions maps each status to the set of statuses it may advance to.
// entregue and cancelado are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// OrderCancellableFrom lists the statuses an order may still be cancelled
// from. Shipped and delivered orders can no longer be cancelled.
func OrderCancellableFrom() []OrderStatus {
	return []OrderStatus{OrderPending, OrderPaid, OrderProcessing}
}

func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Items           []OrderItem
	Status          OrderStatus
	Total           decimal.Decimal
	Discount        decimal.Decimal
	CouponCode      *string
	ShippingCost    decimal.Decimal
	ShippingAddress *Address
	InternalNote    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is the immutable line snapshot taken at checkout time. Price and
// name are frozen here; the live cart always re-reads current variant data.
type OrderItem struct {
	ProductID uuid.UUID       `json:"produtoId"`
	VariantID uuid.UUID       `json:"variacaoId"`
	Name      string          `json:"nome"`
	UnitPrice decimal.Decimal `json:"preco"`
	Quantity  int             `json:"quantidade"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Digital   bool            `json:"digital"`
}

// AllDigital reports whether every line is a digital variant. Mixed orders
// are treated as fully physical for shipping purposes.
func AllDigital(items []OrderItem) bool {
	for _, it := range items {
		if !it.Digital {
			return false
		}
	}
	return len(items) > 0
}
