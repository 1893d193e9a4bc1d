package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockGateway is an in-memory gateway used by tests and cmd/simulate. Like
// the real gateway it mints a new preference per create call, keeps a single
// payment resource per external reference, and can simulate the nasty case
// where the call succeeds server-side but the caller only sees a timeout.
type MockGateway struct {
	mu           sync.RWMutex
	preferences  map[string]*CheckoutLink        // preference id -> link
	payments     map[string]*PaymentResource     // payment id -> resource
	byReference  map[string]*PaymentResource     // external reference -> resource
	preapprovals map[string]*PreapprovalResource // preapproval id -> resource

	// DeclineRate and TimeoutRate are percentages in [0,100). A timeout
	// creates the preference server-side and still returns an error.
	DeclineRate int
	TimeoutRate int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		preferences:  make(map[string]*CheckoutLink),
		payments:     make(map[string]*PaymentResource),
		byReference:  make(map[string]*PaymentResource),
		preapprovals: make(map[string]*PreapprovalResource),
	}
}

func (g *MockGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*CheckoutLink, error) {
	chance := rand.IntN(100)

	if chance < g.DeclineRate {
		return nil, errors.New("gateway rejected the preference")
	}

	link := &CheckoutLink{
		PreferenceID: "pref-" + uuid.NewString(),
		InitPoint:    "https://mock.gateway/checkout/" + req.ExternalReference,
	}

	if chance < g.DeclineRate+g.TimeoutRate {
		// The phantom case: the preference exists at the gateway, but the
		// response never reaches us.
		g.store(req, link)
		fmt.Printf("[mock-gateway] preference created server-side for %s, dropping response\n", req.ExternalReference)
		return nil, errors.New("connection timeout")
	}

	g.store(req, link)
	return link, nil
}

func (g *MockGateway) store(req PreferenceRequest, link *CheckoutLink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preferences[link.PreferenceID] = link

	// A replacement preference for the same reference must not reset the
	// payment the buyer may already have completed.
	if _, exists := g.byReference[req.ExternalReference]; exists {
		return
	}

	total := decimal.Zero
	for _, it := range req.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	res := &PaymentResource{
		ID:                "pay-" + uuid.NewString(),
		Status:            StatusPending,
		ExternalReference: req.ExternalReference,
		TransactionAmount: total,
	}
	g.payments[res.ID] = res
	g.byReference[req.ExternalReference] = res
}

func (g *MockGateway) GetPayment(ctx context.Context, id string) (*PaymentResource, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if p, exists := g.payments[id]; exists {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPaymentResourceNotFound
}

func (g *MockGateway) SearchPaymentByReference(ctx context.Context, externalReference string) (*PaymentResource, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if p, exists := g.byReference[externalReference]; exists {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPaymentResourceNotFound
}

// SettlePayment flips a payment to the given gateway status, simulating the
// buyer completing (or abandoning) the hosted checkout. Returns the payment
// id to feed into a webhook notification.
func (g *MockGateway) SettlePayment(externalReference, status string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, exists := g.byReference[externalReference]
	if !exists {
		return "", ErrPaymentResourceNotFound
	}
	p.Status = status
	return p.ID, nil
}

func (g *MockGateway) CreatePreapproval(ctx context.Context, req PreapprovalRequest) (*PreapprovalResource, error) {
	next := time.Now().AddDate(0, req.Frequency, 0)
	res := &PreapprovalResource{
		ID:                "preapproval-" + uuid.NewString(),
		Status:            StatusPending,
		ExternalReference: req.ExternalReference,
		InitPoint:         "https://mock.gateway/subscribe/" + req.ExternalReference,
		NextPaymentDate:   &next,
	}
	g.mu.Lock()
	g.preapprovals[res.ID] = res
	g.mu.Unlock()
	return res, nil
}

func (g *MockGateway) GetPreapproval(ctx context.Context, id string) (*PreapprovalResource, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if p, exists := g.preapprovals[id]; exists {
		cp := *p
		return &cp, nil
	}
	return nil, ErrPaymentResourceNotFound
}

func (g *MockGateway) CancelPreapproval(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, exists := g.preapprovals[id]
	if !exists {
		return ErrPaymentResourceNotFound
	}
	p.Status = StatusCancelled
	return nil
}

// SetPreapprovalStatus is a test hook mirroring SettlePayment.
func (g *MockGateway) SetPreapprovalStatus(id, status string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, exists := g.preapprovals[id]
	if !exists {
		return ErrPaymentResourceNotFound
	}
	p.Status = status
	return nil
}
