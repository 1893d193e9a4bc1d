package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the mutable basket for one identity: an authenticated user id or a
// guest session token. Lines are stored as an ordered JSON document; the
// stored price is a reference snapshot, the live view re-reads current prices.
type Cart struct {
	ID          uuid.UUID
	IdentityKey string
	UserID      *uuid.UUID
	Items       []CartItem
	Total       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CartItem struct {
	ProductID uuid.UUID       `json:"produtoId"`
	VariantID uuid.UUID       `json:"variacaoId"`
	Name      string          `json:"nome"`
	UnitPrice decimal.Decimal `json:"preco"`
	Quantity  int             `json:"quantidade"`
}

// RecomputeTotal derives the cart total from its lines. The total column is
// never mutated independently.
func (c *Cart) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Total = total
}

// FindItem returns the line matching (productID, variantID), or nil.
func (c *Cart) FindItem(productID, variantID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return &c.Items[i]
		}
	}
	return nil
}
