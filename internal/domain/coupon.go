package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercent CouponType = "percentual"
	CouponFixed   CouponType = "fixo"
)

type Coupon struct {
	ID        uuid.UUID
	Code      string
	Value     decimal.Decimal
	Type      CouponType
	ExpiresAt time.Time
	MaxUses   int
	UsedCount int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the coupon can still be applied at the given time.
// The use-count headroom is a soft marketing cap; the authoritative check is
// the conditional increment in the repository.
func (c *Coupon) Usable(now time.Time) bool {
	return c.Active && !now.After(c.ExpiresAt) && c.UsedCount < c.MaxUses
}

// Discount computes the discount the coupon grants on a subtotal. Percentage
// discounts round to currency precision; fixed discounts never exceed the
// subtotal, so the resulting total floors at zero.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if c.Type == CouponPercent {
		return subtotal.Mul(c.Value).Div(decimal.NewFromInt(100)).Round(2)
	}
	if c.Value.GreaterThan(subtotal) {
		return subtotal
	}
	return c.Value
}
