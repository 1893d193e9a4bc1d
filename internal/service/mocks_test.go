package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/shipping"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
)

// fakePaymentRepo implements repo.PaymentRepo in memory with the same guard
// semantics as the SQL version.
type fakePaymentRepo struct {
	payments map[uuid.UUID]*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (f *fakePaymentRepo) Create(_ context.Context, _ *sql.Tx, p *domain.Payment) error {
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) FindById(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	if p, ok := f.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (f *fakePaymentRepo) FindByOrderId(_ context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (f *fakePaymentRepo) FindByTransactionId(_ context.Context, txnID string) (*domain.Payment, error) {
	for _, p := range f.payments {
		if p.TransactionID != nil && *p.TransactionID == txnID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (f *fakePaymentRepo) TransitionStatus(_ context.Context, _ *sql.Tx, id uuid.UUID, from []domain.PaymentStatus, to domain.PaymentStatus, raw json.RawMessage) (bool, error) {
	p, ok := f.payments[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if p.Status == s {
			p.Status = to
			if raw != nil {
				p.RawPayload = raw
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentRepo) RefreshTransaction(_ context.Context, _ *sql.Tx, id uuid.UUID, txnID string, raw json.RawMessage) (bool, error) {
	p, ok := f.payments[id]
	if !ok || p.Status != domain.PaymentPending {
		return false, nil
	}
	p.TransactionID = &txnID
	p.RawPayload = raw
	return true, nil
}

func (f *fakePaymentRepo) FindPendingBefore(_ context.Context, before time.Time, limit int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.payments {
		if p.Status == domain.PaymentPending && p.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

// fakeSubscriptionRepo implements repo.SubscriptionRepo in memory, mirroring
// the cancelled-is-terminal guard.
type fakeSubscriptionRepo struct {
	subs  map[string]*domain.Subscription
	plans map[uuid.UUID]*domain.SubscriptionPlan
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		subs:  make(map[string]*domain.Subscription),
		plans: make(map[uuid.UUID]*domain.SubscriptionPlan),
	}
}

func (f *fakeSubscriptionRepo) FindByExternalId(_ context.Context, externalID string) (*domain.Subscription, error) {
	if s, ok := f.subs[externalID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	for _, s := range f.subs {
		if s.UserID == userID && (s.Status == domain.SubscriptionActive || s.Status == domain.SubscriptionPaused) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (f *fakeSubscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	if _, exists := f.subs[sub.ExternalID]; exists {
		return nil
	}
	cp := *sub
	f.subs[sub.ExternalID] = &cp
	return nil
}

func (f *fakeSubscriptionRepo) UpdateFromGateway(_ context.Context, externalID string, status domain.SubscriptionStatus, nextCharge *time.Time) (bool, error) {
	s, ok := f.subs[externalID]
	if !ok || s.Status == domain.SubscriptionCancelled {
		return false, nil
	}
	s.Status = status
	if nextCharge != nil {
		s.NextChargeAt = nextCharge
	}
	return true, nil
}

func (f *fakeSubscriptionRepo) FindPlanById(_ context.Context, id uuid.UUID) (*domain.SubscriptionPlan, error) {
	if p, ok := f.plans[id]; ok && p.Active {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPlanNotFound
}

func (f *fakeSubscriptionRepo) ListPlanProducts(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

// fakeOrderService records MarkPaid and Cancel invocations. The applied flag
// mimics the guarded transition: true only on the first call per order.
type fakeOrderService struct {
	paid      map[uuid.UUID]int
	cancelled map[uuid.UUID]int
}

func newFakeOrderService() *fakeOrderService {
	return &fakeOrderService{
		paid:      make(map[uuid.UUID]int),
		cancelled: make(map[uuid.UUID]int),
	}
}

func (f *fakeOrderService) FindById(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderService) ListByUser(_ context.Context, _ uuid.UUID, _ *domain.OrderStatus, _, _ int) (*OrderPage, error) {
	return &OrderPage{}, nil
}

func (f *fakeOrderService) UpdateStatus(_ context.Context, _ uuid.UUID, _ domain.OrderStatus) (*domain.Order, error) {
	return nil, domain.ErrInvalidTransition
}

func (f *fakeOrderService) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	f.cancelled[id]++
	return f.cancelled[id] == 1, nil
}

func (f *fakeOrderService) MarkPaid(_ context.Context, id uuid.UUID) (bool, error) {
	f.paid[id]++
	return f.paid[id] == 1, nil
}

func (f *fakeOrderService) HasPurchased(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

// fakeShippingRepo serves canned flat-rate methods and addresses.
type fakeShippingRepo struct {
	methods   map[uuid.UUID]*domain.ShippingMethod
	addresses map[uuid.UUID]*domain.Address
}

func newFakeShippingRepo() *fakeShippingRepo {
	return &fakeShippingRepo{
		methods:   make(map[uuid.UUID]*domain.ShippingMethod),
		addresses: make(map[uuid.UUID]*domain.Address),
	}
}

func (f *fakeShippingRepo) FindMethodById(_ context.Context, id uuid.UUID) (*domain.ShippingMethod, error) {
	if m, ok := f.methods[id]; ok && m.Active {
		return m, nil
	}
	return nil, domain.ErrShippingNotFound
}

func (f *fakeShippingRepo) ListActiveMethods(_ context.Context) ([]domain.ShippingMethod, error) {
	var out []domain.ShippingMethod
	for _, m := range f.methods {
		if m.Active {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeShippingRepo) CreateShipment(_ context.Context, _ *sql.Tx, _ *domain.Shipment) error {
	return nil
}

func (f *fakeShippingRepo) FindAddress(_ context.Context, id, _ uuid.UUID) (*domain.Address, error) {
	if a, ok := f.addresses[id]; ok {
		return a, nil
	}
	return nil, domain.ErrShippingRequired
}

// fakeCarrier returns a fixed quote list and counts calls.
type fakeCarrier struct {
	options []shipping.QuoteOption
	err     error
	calls   int
}

func (f *fakeCarrier) Quote(_ context.Context, _, _ string, _ []shipping.QuoteItem) ([]shipping.QuoteOption, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.options, nil
}

var _ repo.PaymentRepo = (*fakePaymentRepo)(nil)
var _ repo.SubscriptionRepo = (*fakeSubscriptionRepo)(nil)
var _ repo.ShippingRepo = (*fakeShippingRepo)(nil)
var _ OrderService = (*fakeOrderService)(nil)
var _ shipping.Carrier = (*fakeCarrier)(nil)
