package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderPending, OrderPaid, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPaid, OrderProcessing, true},
		{OrderPaid, OrderCancelled, true},
		{OrderPaid, OrderPending, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderPaid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderCancellableFrom(t *testing.T) {
	from := OrderCancellableFrom()
	assert.ElementsMatch(t, []OrderStatus{OrderPending, OrderPaid, OrderProcessing}, from)
	for _, s := range from {
		assert.True(t, s.CanTransitionTo(OrderCancelled))
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(OrderPending))
	assert.True(t, ValidOrderStatus(OrderDelivered))
	assert.False(t, ValidOrderStatus(OrderStatus("paid")))
	assert.False(t, ValidOrderStatus(OrderStatus("")))
}

func TestAllDigital(t *testing.T) {
	digital := OrderItem{Digital: true, Quantity: 1}
	physical := OrderItem{Digital: false, Quantity: 1}

	assert.False(t, AllDigital(nil), "empty sets are not digital")
	assert.False(t, AllDigital([]OrderItem{}))
	assert.True(t, AllDigital([]OrderItem{digital, digital}))
	assert.False(t, AllDigital([]OrderItem{digital, physical}), "mixed orders ship physically")
}
