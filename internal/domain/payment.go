package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pendente"
	PaymentApproved  PaymentStatus = "aprovado"
	PaymentRejected  PaymentStatus = "rejeitado"
	PaymentCancelled PaymentStatus = "cancelado"
)

// Resolved reports whether the payment reached a terminal status. A resolved
// payment is never transitioned again, no matter what the gateway replays.
func (s PaymentStatus) Resolved() bool {
	return s == PaymentApproved || s == PaymentRejected || s == PaymentCancelled
}

type PaymentMethod string

const (
	MethodCard    PaymentMethod = "cartao"
	MethodPix     PaymentMethod = "pix"
	MethodBoleto  PaymentMethod = "boleto"
	MethodGateway PaymentMethod = "mercado_pago"
)

// Payment is one payment attempt tied to exactly one order. RawPayload holds
// the last gateway response verbatim, kept only for audit.
type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	Status        PaymentStatus
	TransactionID *string
	RawPayload    json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
