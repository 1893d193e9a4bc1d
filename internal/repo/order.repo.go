package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// TransitionStatus applies a guarded compare-and-set: the order moves to
	// target only if its current status is one of the allowed predecessors.
	// Returns true when the transition was applied, false when it was a
	// no-op (already past, or never eligible).
	TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)
	SetInternalNote(ctx context.Context, id uuid.UUID, note string) error
	ListByUser(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus, page, limit int) ([]domain.Order, int, error)
	HasPaidOrderWithProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, usuario_id, itens, status, total, desconto, cupom_aplicado,
	endereco_entrega, valor_frete, obs_interna, created_at, updated_at`

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var (
		o          domain.Order
		rawItems   []byte
		rawAddress []byte
	)
	err := scan(
		&o.ID, &o.UserID, &rawItems, &o.Status, &o.Total, &o.Discount,
		&o.CouponCode, &rawAddress, &o.ShippingCost, &o.InternalNote,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawItems, &o.Items); err != nil {
		return nil, err
	}
	if len(rawAddress) > 0 {
		o.ShippingAddress = &domain.Address{}
		if err := json.Unmarshal(rawAddress, o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM pedidos WHERE id = $1`, id)
	o, err := scanOrder(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	var address []byte
	if order.ShippingAddress != nil {
		address, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return err
		}
	}
	_, err = on(r.db, tx).ExecContext(ctx,
		`INSERT INTO pedidos (id, usuario_id, itens, status, total, desconto, cupom_aplicado,
		 endereco_entrega, valor_frete, obs_interna, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.UserID, items, order.Status, order.Total, order.Discount,
		order.CouponCode, address, order.ShippingCost, order.InternalNote,
		order.CreatedAt, order.UpdatedAt,
	)
	return err
}

func (r *orderRepo) TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE pedidos SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = ANY($4)`,
		id, to, time.Now(), states,
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

func (r *orderRepo) SetInternalNote(ctx context.Context, id uuid.UUID, note string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pedidos SET obs_interna = $2, updated_at = $3 WHERE id = $1`,
		id, note, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus, page, limit int) ([]domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	where := `WHERE usuario_id = $1`
	args := []any{userID}
	if status != nil {
		where += ` AND status = $2`
		args = append(args, *status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pedidos `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM pedidos %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *orderRepo) HasPaidOrderWithProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM pedidos, jsonb_array_elements(itens) AS item
			WHERE usuario_id = $1
			AND status IN ('pago', 'processando', 'enviado', 'entregue')
			AND item->>'produtoId' = $2::text
		)`,
		userID, productID,
	).Scan(&exists)
	return exists, err
}
