package service

import (
	"context"
	"database/sql"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
)

type CartService interface {
	AddItem(ctx context.Context, identityKey string, userID *uuid.UUID, productID, variantID uuid.UUID, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, identityKey string, productID, variantID uuid.UUID) (*domain.Cart, error)
	ReplaceItems(ctx context.Context, identityKey string, items []domain.CartItem) (*domain.Cart, error)
	Get(ctx context.Context, identityKey string) (*domain.Cart, error)
	Clear(ctx context.Context, identityKey string) (*domain.Cart, error)
	// MergeGuestIntoUser folds a guest cart into the user's, summing
	// quantities per (product, variant). Idempotent: a second call with an
	// already-consumed guest key is a no-op.
	MergeGuestIntoUser(ctx context.Context, guestKey string, userID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	db       *sql.DB
	carts    repo.CartRepo
	variants repo.VariantRepo
}

func NewCartService(db *sql.DB, carts repo.CartRepo, variants repo.VariantRepo) CartService {
	return &cartService{db: db, carts: carts, variants: variants}
}

// checkVariant validates that the line references an active product variant
// and, for physical variants, that stock covers the quantity. This is a soft
// check; the authoritative one is the reservation at checkout.
func (s *cartService) checkVariant(ctx context.Context, productID, variantID uuid.UUID, qty int) (*domain.Product, *domain.Variant, error) {
	product, err := s.variants.FindProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Active {
		return nil, nil, domain.ErrProductNotFound
	}

	variant, err := s.variants.FindForProduct(ctx, variantID, productID)
	if err != nil {
		return nil, nil, err
	}
	if !variant.Active {
		return nil, nil, domain.ErrVariantInactive
	}
	if !variant.Digital && variant.Stock < qty {
		return nil, nil, domain.ErrInsufficientStock
	}
	return product, variant, nil
}

func (s *cartService) loadOrCreate(ctx context.Context, identityKey string, userID *uuid.UUID) (*domain.Cart, error) {
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err == nil {
		return cart, nil
	}
	if err != domain.ErrCartNotFound {
		return nil, err
	}

	now := time.Now()
	cart = &domain.Cart{
		ID:          uuid.New(),
		IdentityKey: identityKey,
		UserID:      userID,
		Items:       []domain.CartItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	// A concurrent request may have created the row first; re-read so both
	// callers mutate the same cart.
	return s.carts.FindByIdentity(ctx, identityKey)
}

func (s *cartService) AddItem(ctx context.Context, identityKey string, userID *uuid.UUID, productID, variantID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty < 1 {
		qty = 1
	}
	product, variant, err := s.checkVariant(ctx, productID, variantID, qty)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadOrCreate(ctx, identityKey, userID)
	if err != nil {
		return nil, err
	}

	if existing := cart.FindItem(productID, variantID); existing != nil {
		existing.Quantity += qty
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			VariantID: variantID,
			Name:      variant.DisplayName(product.Name),
			UnitPrice: variant.Price,
			Quantity:  qty,
		})
	}
	cart.RecomputeTotal()

	if err := s.carts.SaveItems(ctx, nil, cart); err != nil {
		return nil, err
	}
	return s.Get(ctx, identityKey)
}

func (s *cartService) RemoveItem(ctx context.Context, identityKey string, productID, variantID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if !(it.ProductID == productID && it.VariantID == variantID) {
			kept = append(kept, it)
		}
	}
	cart.Items = kept
	cart.RecomputeTotal()

	if err := s.carts.SaveItems(ctx, nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) ReplaceItems(ctx context.Context, identityKey string, items []domain.CartItem) (*domain.Cart, error) {
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err != nil {
		return nil, err
	}

	validated := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		product, variant, err := s.checkVariant(ctx, it.ProductID, it.VariantID, it.Quantity)
		if err != nil {
			return nil, err
		}
		validated = append(validated, domain.CartItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      variant.DisplayName(product.Name),
			UnitPrice: variant.Price,
			Quantity:  it.Quantity,
		})
	}
	cart.Items = validated
	cart.RecomputeTotal()

	if err := s.carts.SaveItems(ctx, nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Get returns the materialized cart view: names and prices are re-read from
// the current catalog, since the stored line price is only a reference
// snapshot. Lines whose variant vanished or went inactive are kept but
// re-priced from whatever the catalog still says.
func (s *cartService) Get(ctx context.Context, identityKey string) (*domain.Cart, error) {
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range cart.Items {
		variant, err := s.variants.FindById(ctx, cart.Items[i].VariantID)
		if err != nil {
			continue
		}
		if !cart.Items[i].UnitPrice.Equal(variant.Price) {
			cart.Items[i].UnitPrice = variant.Price
			changed = true
		}
	}
	if changed {
		cart.RecomputeTotal()
	}
	return cart, nil
}

func (s *cartService) Clear(ctx context.Context, identityKey string) (*domain.Cart, error) {
	cart, err := s.carts.FindByIdentity(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	cart.Items = []domain.CartItem{}
	cart.RecomputeTotal()
	if err := s.carts.SaveItems(ctx, nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) MergeGuestIntoUser(ctx context.Context, guestKey string, userID uuid.UUID) (*domain.Cart, error) {
	userKey := userID.String()

	guestCart, err := s.carts.FindByIdentity(ctx, guestKey)
	if err == domain.ErrCartNotFound {
		// Guest key already consumed (or never existed): return the user's
		// cart as-is so repeated merges behave identically.
		return s.loadOrCreate(ctx, userKey, &userID)
	}
	if err != nil {
		return nil, err
	}

	userCart, err := s.carts.FindByIdentity(ctx, userKey)
	if err == domain.ErrCartNotFound {
		// No user cart yet: retarget the guest cart in place. The guest key
		// becomes invalid atomically.
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()
		if err := s.carts.Retarget(ctx, tx, guestKey, userKey, userID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return s.carts.FindByIdentity(ctx, userKey)
	}
	if err != nil {
		return nil, err
	}

	// Both carts exist: sum quantities per (product, variant) into the user
	// cart, then drop the guest cart in the same transaction.
	for _, it := range guestCart.Items {
		if existing := userCart.FindItem(it.ProductID, it.VariantID); existing != nil {
			existing.Quantity += it.Quantity
		} else {
			userCart.Items = append(userCart.Items, it)
		}
	}
	userCart.RecomputeTotal()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.carts.SaveItems(ctx, tx, userCart); err != nil {
		return nil, err
	}
	if err := s.carts.Delete(ctx, tx, guestKey); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return userCart, nil
}
