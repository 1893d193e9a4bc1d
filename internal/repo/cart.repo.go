package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type CartRepo interface {
	FindByIdentity(ctx context.Context, identityKey string) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error
	// SaveItems persists the line document and the recomputed total.
	SaveItems(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error
	// Retarget moves the cart from one identity key to another, claiming its
	// user id. Used once per guest login; the old key becomes invalid.
	Retarget(ctx context.Context, tx *sql.Tx, fromKey, toKey string, userID uuid.UUID) error
	Delete(ctx context.Context, tx *sql.Tx, identityKey string) error
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

func (r *cartRepo) FindByIdentity(ctx context.Context, identityKey string) (*domain.Cart, error) {
	var (
		c        domain.Cart
		rawItems []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identificador_sessao, usuario_id, itens, total, created_at, updated_at
		 FROM carrinhos WHERE identificador_sessao = $1`, identityKey,
	).Scan(&c.ID, &c.IdentityKey, &c.UserID, &rawItems, &c.Total, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawItems, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO carrinhos (id, identificador_sessao, usuario_id, itens, total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (identificador_sessao) DO NOTHING`,
		cart.ID, cart.IdentityKey, cart.UserID, items, cart.Total, cart.CreatedAt, cart.UpdatedAt,
	)
	return err
}

func (r *cartRepo) SaveItems(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE carrinhos SET itens = $2, total = $3, updated_at = $4
		 WHERE identificador_sessao = $1`,
		cart.IdentityKey, items, cart.Total, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r *cartRepo) Retarget(ctx context.Context, tx *sql.Tx, fromKey, toKey string, userID uuid.UUID) error {
	res, err := on(r.db, tx).ExecContext(ctx,
		`UPDATE carrinhos SET identificador_sessao = $2, usuario_id = $3, updated_at = $4
		 WHERE identificador_sessao = $1`,
		fromKey, toKey, userID, time.Now(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, tx *sql.Tx, identityKey string) error {
	_, err := on(r.db, tx).ExecContext(ctx,
		`DELETE FROM carrinhos WHERE identificador_sessao = $1`, identityKey,
	)
	return err
}
