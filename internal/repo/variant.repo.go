package repo

import (
	"context"
	"database/sql"
	"time"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type VariantRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	FindForProduct(ctx context.Context, id, productID uuid.UUID) (*domain.Variant, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// Reserve atomically decrements stock, refusing to go negative. The
	// check-and-decrement is a single conditional UPDATE; zero affected
	// rows means insufficient stock.
	Reserve(ctx context.Context, tx *sql.Tx, variantID uuid.UUID, qty int) error
	// Release unconditionally adds stock back.
	Release(ctx context.Context, tx *sql.Tx, variantID uuid.UUID, qty int) error
}

type variantRepo struct {
	db *sql.DB
}

func NewVariantRepo(db *sql.DB) VariantRepo {
	return &variantRepo{db: db}
}

func (r *variantRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, produto_id, nome, preco, digital, estoque, ativo, created_at, updated_at
		 FROM variacoes_produto WHERE id = $1`, id))
}

func (r *variantRepo) FindForProduct(ctx context.Context, id, productID uuid.UUID) (*domain.Variant, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, produto_id, nome, preco, digital, estoque, ativo, created_at, updated_at
		 FROM variacoes_produto WHERE id = $1 AND produto_id = $2`, id, productID))
}

func (r *variantRepo) scanOne(row *sql.Row) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Digital, &v.Stock, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) FindProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nome, ativo FROM produtos WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Active)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *variantRepo) Reserve(ctx context.Context, tx *sql.Tx, variantID uuid.UUID, qty int) error {
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE variacoes_produto
		 SET estoque = estoque - $2, updated_at = $3
		 WHERE id = $1 AND estoque >= $2`,
		variantID, qty, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *variantRepo) Release(ctx context.Context, tx *sql.Tx, variantID uuid.UUID, qty int) error {
	_, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE variacoes_produto
		 SET estoque = estoque + $2, updated_at = $3
		 WHERE id = $1`,
		variantID, qty, time.Now(),
	)
	return err
}
