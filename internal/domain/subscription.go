package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "pendente"
	SubscriptionActive    SubscriptionStatus = "ativa"
	SubscriptionPaused    SubscriptionStatus = "pausada"
	SubscriptionCancelled SubscriptionStatus = "cancelada"
	// SubscriptionUnknown records a gateway status the mapping does not
	// recognize. Kept distinct so contract drift surfaces to operators
	// instead of being coerced to a guess.
	SubscriptionUnknown SubscriptionStatus = "desconhecido"
)

// Terminal reports whether the subscription can no longer change state.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionCancelled
}

type PlanFrequency string

const (
	FrequencyMonthly   PlanFrequency = "mensal"
	FrequencyQuarterly PlanFrequency = "trimestral"
	FrequencyYearly    PlanFrequency = "anual"
)

type SubscriptionPlan struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Frequency PlanFrequency
	Active    bool
}

// Subscription links a user to a recurring plan through the gateway's
// preapproval id. Shipping method and cost are snapshotted at subscribe time.
type Subscription struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	PlanID         uuid.UUID
	ExternalID     string
	Status         SubscriptionStatus
	NextChargeAt   *time.Time
	ShippingCost   decimal.Decimal
	ShippingMethod string
	AddressID      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
