package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"doodle-store/internal/database"
	"doodle-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupTestDB(t *testing.T) *sql.DB {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedVariant(t *testing.T, db *sql.DB, stock int) uuid.UUID {
	t.Helper()
	productID := uuid.New()
	variantID := uuid.New()
	_, err := db.Exec(`INSERT INTO produtos (id, nome) VALUES ($1, 'Caderno')`, productID)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO variacoes_produto (id, produto_id, nome, preco, estoque)
		 VALUES ($1, $2, 'A5', '20.00', $3)`, variantID, productID, stock)
	require.NoError(t, err)
	return variantID
}

func seedUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO usuarios (id, nome, email) VALUES ($1, 'Ana', $2)`,
		id, id.String()+"@example.com")
	require.NoError(t, err)
	return id
}

func TestVariantReserveRefusesOversell(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	variants := NewVariantRepo(db)
	variantID := seedVariant(t, db, 3)

	require.NoError(t, variants.Reserve(ctx, nil, variantID, 2))
	assert.ErrorIs(t, variants.Reserve(ctx, nil, variantID, 2), domain.ErrInsufficientStock)
	require.NoError(t, variants.Reserve(ctx, nil, variantID, 1))

	// Released units are reservable again: 3 out, 2 back, 2 out.
	require.NoError(t, variants.Release(ctx, nil, variantID, 2))
	require.NoError(t, variants.Reserve(ctx, nil, variantID, 2))

	v, err := variants.FindById(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Stock)
}

func TestCouponIncrementStopsAtCap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	coupons := NewCouponRepo(db)
	now := time.Now()

	_, err := db.Exec(
		`INSERT INTO cupons (id, codigo, valor, tipo, validade, uso_maximo)
		 VALUES ($1, 'PROMO', '10.00', 'percentual', now() + interval '1 day', 2)`, uuid.New())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		applied, err := coupons.IncrementUse(ctx, nil, "PROMO", now)
		require.NoError(t, err)
		assert.True(t, applied)
	}

	applied, err := coupons.IncrementUse(ctx, nil, "PROMO", now)
	require.NoError(t, err)
	assert.False(t, applied, "third use exceeds the cap")

	_, err = coupons.FindUsable(ctx, "PROMO", now)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)
}

func TestOrderTransitionGuard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := NewOrderRepo(db)
	userID := seedUser(t, db)

	now := time.Now()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     []domain.OrderItem{},
		Status:    domain.OrderPending,
		Total:     decimal.NewFromInt(40),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, orders.Create(ctx, nil, order))

	applied, err := orders.TransitionStatus(ctx, nil, order.ID,
		[]domain.OrderStatus{domain.OrderPending}, domain.OrderPaid)
	require.NoError(t, err)
	assert.True(t, applied)

	// Replay: the order already left pendente.
	applied, err = orders.TransitionStatus(ctx, nil, order.ID,
		[]domain.OrderStatus{domain.OrderPending}, domain.OrderPaid)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = orders.TransitionStatus(ctx, nil, order.ID,
		domain.OrderCancellableFrom(), domain.OrderCancelled)
	require.NoError(t, err)
	assert.True(t, applied)

	// Cancelled is terminal.
	applied, err = orders.TransitionStatus(ctx, nil, order.ID,
		[]domain.OrderStatus{domain.OrderPaid}, domain.OrderProcessing)
	require.NoError(t, err)
	assert.False(t, applied)

	fetched, err := orders.FindById(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, fetched.Status)
}

func TestHasPaidOrderWithProduct(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	orders := NewOrderRepo(db)
	userID := seedUser(t, db)
	productID := uuid.New()

	now := time.Now()
	order := &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items: []domain.OrderItem{
			{ProductID: productID, VariantID: uuid.New(), Name: "Caderno - A5",
				UnitPrice: decimal.NewFromInt(20), Quantity: 1, Subtotal: decimal.NewFromInt(20)},
		},
		Status:    domain.OrderPending,
		Total:     decimal.NewFromInt(20),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, orders.Create(ctx, nil, order))

	// Pending orders do not count as purchases.
	bought, err := orders.HasPaidOrderWithProduct(ctx, userID, productID)
	require.NoError(t, err)
	assert.False(t, bought)

	_, err = orders.TransitionStatus(ctx, nil, order.ID,
		[]domain.OrderStatus{domain.OrderPending}, domain.OrderPaid)
	require.NoError(t, err)

	bought, err = orders.HasPaidOrderWithProduct(ctx, userID, productID)
	require.NoError(t, err)
	assert.True(t, bought)

	bought, err = orders.HasPaidOrderWithProduct(ctx, userID, uuid.New())
	require.NoError(t, err)
	assert.False(t, bought)
}

func TestCartRetargetConsumesGuestKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	carts := NewCartRepo(db)
	userID := seedUser(t, db)

	now := time.Now()
	guestKey := "guest-session-123"
	require.NoError(t, carts.Create(ctx, &domain.Cart{
		ID:          uuid.New(),
		IdentityKey: guestKey,
		Items: []domain.CartItem{
			{ProductID: uuid.New(), VariantID: uuid.New(), Name: "Caderno - A5",
				UnitPrice: decimal.NewFromInt(20), Quantity: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	require.NoError(t, carts.Retarget(ctx, nil, guestKey, userID.String(), userID))

	_, err := carts.FindByIdentity(ctx, guestKey)
	assert.ErrorIs(t, err, domain.ErrCartNotFound, "the guest key is spent")

	cart, err := carts.FindByIdentity(ctx, userID.String())
	require.NoError(t, err)
	require.NotNil(t, cart.UserID)
	assert.Equal(t, userID, *cart.UserID)
	assert.Len(t, cart.Items, 1)

	// A second retarget of the consumed key is a visible no-op.
	assert.ErrorIs(t, carts.Retarget(ctx, nil, guestKey, userID.String(), userID), domain.ErrCartNotFound)
}
