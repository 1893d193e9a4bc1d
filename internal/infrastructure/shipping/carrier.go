package shipping

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteItem describes one physical parcel line sent to the carrier.
// Dimensions fall back to sane defaults when the catalog has none.
type QuoteItem struct {
	ProductID      uuid.UUID
	WidthCm        int
	HeightCm       int
	LengthCm       int
	WeightKg       decimal.Decimal
	InsuranceValue decimal.Decimal
	Quantity       int
}

// QuoteOption is one priced shipping service. Custom flat-rate methods are
// merged into the same shape under a "custom_" prefixed id.
type QuoteOption struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Company      string          `json:"company"`
	DeliveryDays int             `json:"delivery_time"`
	Description  string          `json:"custom_description,omitempty"`
	Custom       bool            `json:"custom,omitempty"`
}

// Carrier wraps the external carrier's quoting API. Stateless besides
// caching.
type Carrier interface {
	Quote(ctx context.Context, fromCEP, toCEP string, items []QuoteItem) ([]QuoteOption, error)
}

// DigitalDeliveryOption is the single free option offered when every item in
// the set is digital; the carrier is never called for those.
func DigitalDeliveryOption() QuoteOption {
	return QuoteOption{
		ID:           "digital_delivery",
		Name:         "Entrega Digital",
		Price:        decimal.Zero,
		Company:      "Doodle Dreams",
		DeliveryDays: 0,
		Description:  "Seu produto será entregue por e-mail e estará disponível para download na sua conta.",
	}
}
