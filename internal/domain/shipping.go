package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address is the delivery address snapshot embedded in an order. Nil only
// for all-digital orders.
type Address struct {
	ID         uuid.UUID `json:"id,omitempty"`
	Street     string    `json:"logradouro"`
	Number     string    `json:"numero"`
	Complement string    `json:"complemento,omitempty"`
	District   string    `json:"bairro"`
	City       string    `json:"cidade"`
	State      string    `json:"estado"`
	PostalCode string    `json:"cep"`
}

// ShippingMethod is a store-defined flat-rate option, offered alongside the
// carrier's quoted services under a "custom_" prefixed id.
type ShippingMethod struct {
	ID           uuid.UUID
	Title        string
	Description  string
	Price        decimal.Decimal
	DeliveryDays int
	Active       bool
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pendente"
	DeliveryCollected DeliveryStatus = "coletado"
	DeliveryInTransit DeliveryStatus = "em_transito"
	DeliveryDelivered DeliveryStatus = "entregue"
	DeliveryReturned  DeliveryStatus = "devolvido"
)

// Shipment is the per-order shipping record created for physical orders.
type Shipment struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Service      string
	Cost         decimal.Decimal
	DeliveryDays int
	TrackingCode *string
	LabelURL     *string
	Status       DeliveryStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
