package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Statuses in the gateway's own vocabulary. The reconciler maps these onto
// the local state machines; anything else is recorded as unmapped.
const (
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
	StatusPending    = "pending"
	StatusInProcess  = "in_process"
	StatusAuthorized = "authorized"
	StatusPaused     = "paused"
)

type PreferenceItem struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	CategoryID string          `json:"category_id"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem
	PayerName         string
	PayerEmail        string
	ExternalReference string
	NotificationURL   string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	ExpiresIn         time.Duration
}

// CheckoutLink is the gateway's answer to a preference: the hosted checkout
// URL the buyer is redirected to.
type CheckoutLink struct {
	PreferenceID string
	InitPoint    string
	Raw          json.RawMessage
}

// PaymentResource is the authoritative payment record fetched from the
// gateway. Webhook bodies are never trusted; this is.
type PaymentResource struct {
	ID                string
	Status            string
	ExternalReference string
	TransactionAmount decimal.Decimal
	Raw               json.RawMessage
}

type PreapprovalRequest struct {
	Reason            string
	PayerEmail        string
	ExternalReference string
	Amount            decimal.Decimal
	Frequency         int
	FrequencyType     string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
}

// PreapprovalResource is the authoritative recurring-billing authorization
// fetched from the gateway.
type PreapprovalResource struct {
	ID                string
	Status            string
	ExternalReference string
	InitPoint         string
	NextPaymentDate   *time.Time
	Raw               json.RawMessage
}

// Gateway wraps the external payment processor. Implementations must treat
// every call as blocking I/O: apply the configured timeout and surface
// timeouts as retryable errors, since the operation may have succeeded
// server-side even when the response was lost.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*CheckoutLink, error)
	GetPayment(ctx context.Context, id string) (*PaymentResource, error)
	SearchPaymentByReference(ctx context.Context, externalReference string) (*PaymentResource, error)
	CreatePreapproval(ctx context.Context, req PreapprovalRequest) (*PreapprovalResource, error)
	GetPreapproval(ctx context.Context, id string) (*PreapprovalResource, error)
	CancelPreapproval(ctx context.Context, id string) error
}
