package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFixture struct {
	payments *fakePaymentRepo
	subs     *fakeSubscriptionRepo
	orders   *fakeOrderService
	gateway  *payment.MockGateway
	svc      ReconcilerService
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		payments: newFakePaymentRepo(),
		subs:     newFakeSubscriptionRepo(),
		orders:   newFakeOrderService(),
		gateway:  payment.NewMockGateway(),
	}
	f.svc = NewReconcilerService(f.payments, f.subs, f.orders, f.gateway)
	return f
}

// seedPendingOrder creates a local pending payment plus its gateway-side
// preference, returning the order id.
func (f *reconcilerFixture) seedPendingOrder(t *testing.T) uuid.UUID {
	t.Helper()
	orderID := uuid.New()
	require.NoError(t, f.payments.Create(context.Background(), nil, &domain.Payment{
		ID:      uuid.New(),
		OrderID: orderID,
		UserID:  uuid.New(),
		Amount:  decimal.NewFromInt(40),
		Method:  domain.MethodGateway,
		Status:  domain.PaymentPending,
	}))
	_, err := f.gateway.CreatePreference(context.Background(), payment.PreferenceRequest{
		ExternalReference: orderID.String(),
		Items: []payment.PreferenceItem{
			{Title: "item", UnitPrice: decimal.NewFromInt(40), Quantity: 1},
		},
	})
	require.NoError(t, err)
	return orderID
}

func paymentNotification(id string) Notification {
	var n Notification
	n.Type = "payment"
	n.Data.ID = id
	return n
}

func TestReconcilerApprovesPayment(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	orderID := f.seedPendingOrder(t)

	payID, err := f.gateway.SettlePayment(orderID.String(), payment.StatusApproved)
	require.NoError(t, err)

	require.NoError(t, f.svc.Handle(ctx, paymentNotification(payID)))

	local, err := f.payments.FindByOrderId(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentApproved, local.Status)
	assert.Equal(t, 1, f.orders.paid[orderID])
	assert.Zero(t, f.orders.cancelled[orderID])
}

func TestReconcilerReplayIsIdempotent(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	orderID := f.seedPendingOrder(t)

	payID, err := f.gateway.SettlePayment(orderID.String(), payment.StatusApproved)
	require.NoError(t, err)

	require.NoError(t, f.svc.Handle(ctx, paymentNotification(payID)))
	require.NoError(t, f.svc.Handle(ctx, paymentNotification(payID)))

	local, err := f.payments.FindByOrderId(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentApproved, local.Status)
	// MarkPaid is re-invoked on replay but its own guard applies only once.
	assert.Equal(t, 2, f.orders.paid[orderID])
}

func TestReconcilerRejectedCancelsOrder(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	orderID := f.seedPendingOrder(t)

	payID, err := f.gateway.SettlePayment(orderID.String(), payment.StatusRejected)
	require.NoError(t, err)

	require.NoError(t, f.svc.Handle(ctx, paymentNotification(payID)))

	local, err := f.payments.FindByOrderId(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRejected, local.Status)
	assert.Equal(t, 1, f.orders.cancelled[orderID])
	assert.Zero(t, f.orders.paid[orderID])
}

func TestReconcilerIgnoresPendingAndUnknownStatuses(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	for _, gwStatus := range []string{payment.StatusInProcess, "charged_back"} {
		orderID := f.seedPendingOrder(t)
		payID, err := f.gateway.SettlePayment(orderID.String(), gwStatus)
		require.NoError(t, err)

		require.NoError(t, f.svc.Handle(ctx, paymentNotification(payID)))

		local, err := f.payments.FindByOrderId(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPending, local.Status, "status %s", gwStatus)
		assert.Zero(t, f.orders.paid[orderID])
		assert.Zero(t, f.orders.cancelled[orderID])
	}
}

func TestReconcilerCreatesSubscriptionOnAuthorized(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	userID := uuid.New()
	planID := uuid.New()
	ref, err := json.Marshal(subscriptionReference{
		PlanID:   planID,
		UserID:   userID,
		Shipping: decimal.NewFromInt(5),
		Method:   "Entrega Local",
	})
	require.NoError(t, err)

	res, err := f.gateway.CreatePreapproval(ctx, payment.PreapprovalRequest{
		ExternalReference: string(ref),
		Amount:            decimal.NewFromInt(55),
	})
	require.NoError(t, err)

	var n Notification
	n.Type = "preapproval"
	n.Data.ID = res.ID

	// Still pending at the gateway: nothing is created locally.
	require.NoError(t, f.svc.Handle(ctx, n))
	_, err = f.subs.FindByExternalId(ctx, res.ID)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	require.NoError(t, f.gateway.SetPreapprovalStatus(res.ID, payment.StatusAuthorized))
	require.NoError(t, f.svc.Handle(ctx, n))

	sub, err := f.subs.FindByExternalId(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.Equal(t, userID, sub.UserID)
	assert.Equal(t, planID, sub.PlanID)
	assert.True(t, decimal.NewFromInt(5).Equal(sub.ShippingCost))

	// Replay creates nothing new and keeps the same row.
	require.NoError(t, f.svc.Handle(ctx, n))
	again, err := f.subs.FindByExternalId(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
}

func TestReconcilerRecordsUnknownSubscriptionStatus(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	res, err := f.gateway.CreatePreapproval(ctx, payment.PreapprovalRequest{ExternalReference: "{}"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, f.subs.Create(ctx, &domain.Subscription{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		ExternalID: res.ID,
		Status:     domain.SubscriptionActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	// A gateway status outside the contract is persisted as the distinct
	// unknown state, never coerced.
	require.NoError(t, f.gateway.SetPreapprovalStatus(res.ID, "suspended"))

	var n Notification
	n.Type = "preapproval"
	n.Data.ID = res.ID
	require.NoError(t, f.svc.Handle(ctx, n))

	sub, err := f.subs.FindByExternalId(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionUnknown, sub.Status)

	assert.Equal(t, domain.SubscriptionPaused, mapSubscriptionStatus(payment.StatusPaused))
	assert.Equal(t, domain.SubscriptionCancelled, mapSubscriptionStatus(payment.StatusCancelled))
}

func TestReconcilerCancelledSubscriptionIsTerminal(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	res, err := f.gateway.CreatePreapproval(ctx, payment.PreapprovalRequest{ExternalReference: "{}"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, f.subs.Create(ctx, &domain.Subscription{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		ExternalID: res.ID,
		Status:     domain.SubscriptionCancelled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	require.NoError(t, f.gateway.SetPreapprovalStatus(res.ID, payment.StatusAuthorized))

	var n Notification
	n.Type = "preapproval"
	n.Data.ID = res.ID
	require.NoError(t, f.svc.Handle(ctx, n))

	sub, err := f.subs.FindByExternalId(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, sub.Status)
}
