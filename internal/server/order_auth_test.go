package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doodle-store/internal/config"
	"doodle-store/internal/domain"
	"doodle-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

type stubOrders struct {
	order *domain.Order

	updateCalls int
	cancelCalls int
}

func (s *stubOrders) FindById(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.order != nil && s.order.ID == id {
		cp := *s.order
		return &cp, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (s *stubOrders) ListByUser(_ context.Context, _ uuid.UUID, _ *domain.OrderStatus, _, _ int) (*service.OrderPage, error) {
	return &service.OrderPage{}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	s.updateCalls++
	cp := *s.order
	cp.Status = target
	return &cp, nil
}

func (s *stubOrders) Cancel(_ context.Context, _ uuid.UUID) (bool, error) {
	s.cancelCalls++
	return true, nil
}

func (s *stubOrders) MarkPaid(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubOrders) HasPurchased(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

type stubCoupons struct {
	coupon *domain.Coupon
}

func (s *stubCoupons) Validate(_ context.Context, code string) (*domain.Coupon, error) {
	if s.coupon != nil && s.coupon.Code == code {
		return s.coupon, nil
	}
	return nil, domain.ErrCouponInvalid
}

func (s *stubCoupons) Apply(_ context.Context, _ *sql.Tx, _ string, _ decimal.Decimal) (*service.CouponApplication, error) {
	return nil, domain.ErrCouponInvalid
}

func newAuthTestServer(orders service.OrderService, coupons service.CouponService) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(
		config.Config{FrontendURL: "http://localhost", JWTSecret: testJWTSecret},
		stubDB{}, nil, nil, orders, nil, coupons, nil, nil, nil)
}

func bearerFor(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := authClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestOrderStatusUpdateRequiresAdmin(t *testing.T) {
	buyer := uuid.New()
	orders := &stubOrders{order: &domain.Order{ID: uuid.New(), UserID: buyer, Status: domain.OrderPaid}}
	s := newAuthTestServer(orders, nil)
	path := "/api/pedidos/" + orders.order.ID.String() + "/status"

	// Owning the order is not enough for the admin route.
	w := doJSON(t, s, http.MethodPut, path, bearerFor(t, buyer, "cliente"), `{"status":"enviado"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, orders.updateCalls)

	w = doJSON(t, s, http.MethodPut, path, bearerFor(t, uuid.New(), roleAdmin), `{"status":"enviado"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, orders.updateCalls)
}

func TestOrderCancelScopedToOwner(t *testing.T) {
	buyer := uuid.New()
	orders := &stubOrders{order: &domain.Order{ID: uuid.New(), UserID: buyer, Status: domain.OrderPending}}
	s := newAuthTestServer(orders, nil)
	path := "/api/pedidos/" + orders.order.ID.String()

	w := doJSON(t, s, http.MethodDelete, path, bearerFor(t, uuid.New(), "cliente"), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, orders.cancelCalls)

	w = doJSON(t, s, http.MethodDelete, path, bearerFor(t, buyer, "cliente"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, orders.cancelCalls)
}

func TestValidateCoupon(t *testing.T) {
	coupons := &stubCoupons{coupon: &domain.Coupon{
		Code:  "DESCONTO10",
		Value: decimal.NewFromInt(10),
		Type:  domain.CouponPercent,
	}}
	s := newAuthTestServer(nil, coupons)

	w := doJSON(t, s, http.MethodPost, "/api/cupons/validar", "", `{"codigo":"DESCONTO10"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valido":true`)

	w = doJSON(t, s, http.MethodPost, "/api/cupons/validar", "", `{"codigo":"NADA"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"valido":false`)

	w = doJSON(t, s, http.MethodPost, "/api/cupons/validar", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
