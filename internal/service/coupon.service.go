package service

import (
	"context"
	"database/sql"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/repo"

	"github.com/shopspring/decimal"
)

type CouponApplication struct {
	Code     string
	Discount decimal.Decimal
	NewTotal decimal.Decimal
}

type CouponService interface {
	Validate(ctx context.Context, code string) (*domain.Coupon, error)
	// Apply computes the discount and consumes one use as a single unit.
	// There is no separate reservation step: under concurrent use near the
	// cap the conditional increment is what enforces uso_atual <= uso_maximo.
	Apply(ctx context.Context, tx *sql.Tx, code string, subtotal decimal.Decimal) (*CouponApplication, error)
}

type couponService struct {
	coupons repo.CouponRepo
}

func NewCouponService(coupons repo.CouponRepo) CouponService {
	return &couponService{coupons: coupons}
}

func (s *couponService) Validate(ctx context.Context, code string) (*domain.Coupon, error) {
	return s.coupons.FindUsable(ctx, code, time.Now())
}

func (s *couponService) Apply(ctx context.Context, tx *sql.Tx, code string, subtotal decimal.Decimal) (*CouponApplication, error) {
	coupon, err := s.coupons.FindUsable(ctx, code, time.Now())
	if err != nil {
		return nil, err
	}

	discount := coupon.Discount(subtotal)
	newTotal := subtotal.Sub(discount)
	if newTotal.IsNegative() {
		newTotal = decimal.Zero
	}

	applied, err := s.coupons.IncrementUse(ctx, tx, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race for the last use.
		return nil, domain.ErrCouponInvalid
	}

	return &CouponApplication{Code: code, Discount: discount, NewTotal: newTotal}, nil
}
