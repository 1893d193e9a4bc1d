package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preferenceFor(ref string) PreferenceRequest {
	return PreferenceRequest{
		ExternalReference: ref,
		Items: []PreferenceItem{
			{Title: "item", UnitPrice: decimal.NewFromInt(20), Quantity: 2},
		},
	}
}

func TestMockGatewayNewPreferencePerCall(t *testing.T) {
	g := NewMockGateway()
	ctx := context.Background()

	first, err := g.CreatePreference(ctx, preferenceFor("order-1"))
	require.NoError(t, err)

	second, err := g.CreatePreference(ctx, preferenceFor("order-1"))
	require.NoError(t, err)
	assert.NotEqual(t, first.PreferenceID, second.PreferenceID)
}

func TestMockGatewayReplacementKeepsSettledPayment(t *testing.T) {
	g := NewMockGateway()
	ctx := context.Background()

	_, err := g.CreatePreference(ctx, preferenceFor("order-1"))
	require.NoError(t, err)
	_, err = g.SettlePayment("order-1", StatusApproved)
	require.NoError(t, err)

	// A fresh preference for the same reference must not revive the payment.
	_, err = g.CreatePreference(ctx, preferenceFor("order-1"))
	require.NoError(t, err)

	res, err := g.SearchPaymentByReference(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Status)
}

func TestMockGatewayPhantomTimeout(t *testing.T) {
	g := NewMockGateway()
	g.TimeoutRate = 100
	ctx := context.Background()

	_, err := g.CreatePreference(ctx, preferenceFor("order-2"))
	require.Error(t, err, "caller sees a timeout")

	// The preference exists server-side regardless.
	res, err := g.SearchPaymentByReference(ctx, "order-2")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(res.TransactionAmount))
}

func TestMockGatewaySettlePayment(t *testing.T) {
	g := NewMockGateway()
	ctx := context.Background()

	_, err := g.CreatePreference(ctx, preferenceFor("order-3"))
	require.NoError(t, err)

	id, err := g.SettlePayment("order-3", StatusApproved)
	require.NoError(t, err)

	res, err := g.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Status)
	assert.Equal(t, "order-3", res.ExternalReference)

	_, err = g.SettlePayment("missing", StatusApproved)
	assert.ErrorIs(t, err, ErrPaymentResourceNotFound)
}

func TestMockGatewayPreapprovalLifecycle(t *testing.T) {
	g := NewMockGateway()
	ctx := context.Background()

	res, err := g.CreatePreapproval(ctx, PreapprovalRequest{
		ExternalReference: "sub-1",
		Amount:            decimal.NewFromInt(50),
		Frequency:         1,
		FrequencyType:     "months",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)
	require.NotNil(t, res.NextPaymentDate)

	require.NoError(t, g.SetPreapprovalStatus(res.ID, StatusAuthorized))
	fetched, err := g.GetPreapproval(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, fetched.Status)

	require.NoError(t, g.CancelPreapproval(ctx, res.ID))
	fetched, err = g.GetPreapproval(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, fetched.Status)
}
