package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product carries only what the engine needs; catalog management lives
// elsewhere.
type Product struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// Variant is a purchasable SKU of a product. It owns its own price, stock
// count and digital flag. Digital variants never hit the inventory ledger.
type Variant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Digital   bool
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the "product - variant" label frozen into cart and order
// lines.
func (v *Variant) DisplayName(productName string) string {
	return productName + " - " + v.Name
}
