package repo

import (
	"context"
	"database/sql"
	"time"

	"doodle-store/internal/domain"
)

type CouponRepo interface {
	// FindUsable returns the coupon only while it is active, unexpired and
	// has use-count headroom.
	FindUsable(ctx context.Context, code string, now time.Time) (*domain.Coupon, error)
	// IncrementUse consumes one use, guarded so uso_atual never exceeds
	// uso_maximo even under concurrent callers. Zero affected rows means the
	// coupon is exhausted, expired or gone.
	IncrementUse(ctx context.Context, tx *sql.Tx, code string, now time.Time) (bool, error)
}

type couponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) CouponRepo {
	return &couponRepo{db: db}
}

func (r *couponRepo) FindUsable(ctx context.Context, code string, now time.Time) (*domain.Coupon, error) {
	var c domain.Coupon
	err := r.db.QueryRowContext(ctx,
		`SELECT id, codigo, valor, tipo, validade, uso_maximo, uso_atual, ativo, created_at, updated_at
		 FROM cupons
		 WHERE codigo = $1 AND ativo AND validade >= $2 AND uso_atual < uso_maximo`,
		code, now,
	).Scan(&c.ID, &c.Code, &c.Value, &c.Type, &c.ExpiresAt, &c.MaxUses, &c.UsedCount, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCouponInvalid
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepo) IncrementUse(ctx context.Context, tx *sql.Tx, code string, now time.Time) (bool, error) {
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE cupons
		 SET uso_atual = uso_atual + 1, updated_at = $2
		 WHERE codigo = $1 AND ativo AND validade >= $3 AND uso_atual < uso_maximo`,
		code, time.Now(), now,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
