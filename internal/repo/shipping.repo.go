package repo

import (
	"context"
	"database/sql"

	"doodle-store/internal/domain"

	"github.com/google/uuid"
)

type ShippingRepo interface {
	FindMethodById(ctx context.Context, id uuid.UUID) (*domain.ShippingMethod, error)
	ListActiveMethods(ctx context.Context) ([]domain.ShippingMethod, error)
	CreateShipment(ctx context.Context, tx *sql.Tx, s *domain.Shipment) error
	FindAddress(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error)
}

type shippingRepo struct {
	db *sql.DB
}

func NewShippingRepo(db *sql.DB) ShippingRepo {
	return &shippingRepo{db: db}
}

func (r *shippingRepo) FindMethodById(ctx context.Context, id uuid.UUID) (*domain.ShippingMethod, error) {
	var m domain.ShippingMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, titulo, COALESCE(descricao, ''), valor, prazo_entrega, ativo
		 FROM metodos_frete WHERE id = $1 AND ativo`, id,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Price, &m.DeliveryDays, &m.Active)
	if err == sql.ErrNoRows {
		return nil, domain.ErrShippingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *shippingRepo) ListActiveMethods(ctx context.Context) ([]domain.ShippingMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, titulo, COALESCE(descricao, ''), valor, prazo_entrega, ativo
		 FROM metodos_frete WHERE ativo ORDER BY valor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []domain.ShippingMethod
	for rows.Next() {
		var m domain.ShippingMethod
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Price, &m.DeliveryDays, &m.Active); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (r *shippingRepo) CreateShipment(ctx context.Context, tx *sql.Tx, s *domain.Shipment) error {
	_, err := on(r.db, tx).ExecContext(ctx,
		`INSERT INTO fretes (id, pedido_id, servico, valor, prazo_entrega,
		 codigo_rastreio, etiqueta_url, status_entrega, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.OrderID, s.Service, s.Cost, s.DeliveryDays,
		s.TrackingCode, s.LabelURL, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *shippingRepo) FindAddress(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error) {
	var a domain.Address
	err := r.db.QueryRowContext(ctx,
		`SELECT id, logradouro, numero, COALESCE(complemento, ''), bairro, cidade, estado, cep
		 FROM enderecos_usuario WHERE id = $1 AND usuario_id = $2`, id, userID,
	).Scan(&a.ID, &a.Street, &a.Number, &a.Complement, &a.District, &a.City, &a.State, &a.PostalCode)
	if err == sql.ErrNoRows {
		return nil, domain.ErrShippingRequired
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
