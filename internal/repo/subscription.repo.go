package repo

import (
	"context"
	"database/sql"
	"time"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionRepo interface {
	FindByExternalId(ctx context.Context, externalID string) (*domain.Subscription, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	Create(ctx context.Context, sub *domain.Subscription) error
	// UpdateFromGateway refreshes status and next charge date for an existing
	// subscription. Cancelled subscriptions never leave that state.
	UpdateFromGateway(ctx context.Context, externalID string, status domain.SubscriptionStatus, nextCharge *time.Time) (bool, error)
	FindPlanById(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error)
	ListPlanProducts(ctx context.Context, planID uuid.UUID) ([]uuid.UUID, error)
}

type subscriptionRepo struct {
	db *sql.DB
}

func NewSubscriptionRepo(db *sql.DB) SubscriptionRepo {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, usuario_id, plano_id, external_id, status,
	data_proxima_cobranca, valor_frete, metodo_frete, endereco_entrega_id, created_at, updated_at`

func scanSubscription(scan func(dest ...any) error) (*domain.Subscription, error) {
	var s domain.Subscription
	err := scan(&s.ID, &s.UserID, &s.PlanID, &s.ExternalID, &s.Status,
		&s.NextChargeAt, &s.ShippingCost, &s.ShippingMethod, &s.AddressID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) FindByExternalId(ctx context.Context, externalID string) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM assinaturas_usuario WHERE external_id = $1`, externalID)
	s, err := scanSubscription(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM assinaturas_usuario
		 WHERE usuario_id = $1 AND status IN ($2, $3)
		 ORDER BY created_at DESC LIMIT 1`,
		userID, domain.SubscriptionActive, domain.SubscriptionPaused)
	s, err := scanSubscription(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assinaturas_usuario (id, usuario_id, plano_id, external_id, status,
		 data_proxima_cobranca, valor_frete, metodo_frete, endereco_entrega_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (external_id) DO NOTHING`,
		sub.ID, sub.UserID, sub.PlanID, sub.ExternalID, sub.Status,
		sub.NextChargeAt, sub.ShippingCost, sub.ShippingMethod, sub.AddressID,
		sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (r *subscriptionRepo) UpdateFromGateway(ctx context.Context, externalID string, status domain.SubscriptionStatus, nextCharge *time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assinaturas_usuario
		 SET status = $2,
		     data_proxima_cobranca = COALESCE($3, data_proxima_cobranca),
		     updated_at = $4
		 WHERE external_id = $1 AND status <> $5`,
		externalID, status, nextCharge, time.Now(), domain.SubscriptionCancelled,
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

func (r *subscriptionRepo) FindPlanById(ctx context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nome, preco, frequencia, ativo
		 FROM planos_assinatura WHERE id = $1 AND ativo`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Frequency, &p.Active)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *subscriptionRepo) ListPlanProducts(ctx context.Context, planID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT produto_id FROM planos_assinatura_produtos WHERE plano_id = $1`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
