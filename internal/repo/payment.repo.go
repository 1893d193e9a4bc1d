package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type PaymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByOrderId(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	FindByTransactionId(ctx context.Context, txnID string) (*domain.Payment, error)
	// TransitionStatus is the guarded compare-and-set for payment state: the
	// update applies only while the current status is one of the allowed
	// predecessors. The raw gateway payload is refreshed on every applied
	// transition, for audit.
	TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.PaymentStatus, to domain.PaymentStatus, rawPayload json.RawMessage) (bool, error)
	// RefreshTransaction swaps the gateway reference of a still-pending
	// payment, used when a new checkout link replaces an expired one.
	RefreshTransaction(ctx context.Context, tx *sql.Tx, id uuid.UUID, txnID string, rawPayload json.RawMessage) (bool, error)
	// FindPendingBefore lists payments stuck pending since before the cutoff,
	// for the reconciliation worker.
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, pedido_id, usuario_id, valor, metodo, status, transacao_id,
	dados_transacao, created_at, updated_at`

func scanPayment(scan func(dest ...any) error) (*domain.Payment, error) {
	var (
		p   domain.Payment
		raw []byte
	)
	err := scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &raw, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.RawPayload = raw
	return &p, nil
}

func (r *paymentRepo) Create(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	_, err := on(r.db, tx).ExecContext(ctx,
		`INSERT INTO pagamentos (id, pedido_id, usuario_id, valor, metodo, status,
		 transacao_id, dados_transacao, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payment.ID, payment.OrderID, payment.UserID, payment.Amount, payment.Method,
		payment.Status, payment.TransactionID, []byte(payment.RawPayload),
		payment.CreatedAt, payment.UpdatedAt,
	)
	return err
}

func (r *paymentRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM pagamentos WHERE id = $1`, id)
	return r.one(row)
}

func (r *paymentRepo) FindByOrderId(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM pagamentos WHERE pedido_id = $1
		 ORDER BY created_at DESC LIMIT 1`, orderID)
	return r.one(row)
}

func (r *paymentRepo) FindByTransactionId(ctx context.Context, txnID string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM pagamentos WHERE transacao_id = $1`, txnID)
	return r.one(row)
}

func (r *paymentRepo) one(row *sql.Row) (*domain.Payment, error) {
	p, err := scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.PaymentStatus, to domain.PaymentStatus, rawPayload json.RawMessage) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE pagamentos
		 SET status = $2, dados_transacao = COALESCE($3, dados_transacao), updated_at = $4
		 WHERE id = $1 AND status = ANY($5)`,
		id, to, []byte(rawPayload), time.Now(), states,
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

func (r *paymentRepo) RefreshTransaction(ctx context.Context, tx *sql.Tx, id uuid.UUID, txnID string, rawPayload json.RawMessage) (bool, error) {
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE pagamentos
		 SET transacao_id = $2, dados_transacao = $3, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		id, txnID, []byte(rawPayload), time.Now(), domain.PaymentPending,
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

func (r *paymentRepo) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM pagamentos
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at
		 LIMIT $3`,
		domain.PaymentPending, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
