package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscribeRequest struct {
	UserID    uuid.UUID
	PlanID    uuid.UUID
	AddressID *uuid.UUID
	MethodID  string
}

type SubscribeResult struct {
	PreapprovalID string          `json:"preapprovalId"`
	CheckoutURL   string          `json:"checkoutUrl"`
	Amount        decimal.Decimal `json:"valor"`
	ShippingCost  decimal.Decimal `json:"valorFrete"`
}

type SubscriptionConfig struct {
	FrontendURL    string
	GatewayTimeout time.Duration
}

type SubscriptionService interface {
	// Subscribe opens a recurring authorization at the gateway for the plan.
	// The local subscription row only appears once the gateway confirms the
	// authorization through its callback.
	Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error)
	// Cancel revokes the user's active subscription at the gateway and
	// locally. Cancellation is terminal.
	Cancel(ctx context.Context, userID uuid.UUID) error
	Current(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

type subscriptionService struct {
	subscriptions repo.SubscriptionRepo
	users         repo.UserRepo
	shippingRepo  repo.ShippingRepo
	shipping      ShippingService
	gateway       payment.Gateway
	cfg           SubscriptionConfig
}

func NewSubscriptionService(
	subscriptions repo.SubscriptionRepo,
	users repo.UserRepo,
	shippingRepo repo.ShippingRepo,
	shippingSvc ShippingService,
	gateway payment.Gateway,
	cfg SubscriptionConfig,
) SubscriptionService {
	return &subscriptionService{
		subscriptions: subscriptions,
		users:         users,
		shippingRepo:  shippingRepo,
		shipping:      shippingSvc,
		gateway:       gateway,
		cfg:           cfg,
	}
}

// gatewayFrequency maps a plan's billing cadence onto the gateway's
// frequency fields.
func gatewayFrequency(f domain.PlanFrequency) (int, string) {
	switch f {
	case domain.FrequencyQuarterly:
		return 3, "months"
	case domain.FrequencyYearly:
		return 12, "months"
	default:
		return 1, "months"
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error) {
	if _, err := s.subscriptions.FindActiveByUser(ctx, req.UserID); err == nil {
		return nil, domain.ErrSubscriptionExists
	} else if err != domain.ErrSubscriptionNotFound {
		return nil, err
	}

	plan, err := s.subscriptions.FindPlanById(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindById(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	shippingCost, methodName, err := s.priceShipping(ctx, req, plan)
	if err != nil {
		return nil, err
	}

	refBytes, err := json.Marshal(subscriptionReference{
		PlanID:    plan.ID,
		UserID:    user.ID,
		AddressID: req.AddressID,
		Shipping:  shippingCost,
		Method:    methodName,
	})
	if err != nil {
		return nil, err
	}

	every, unit := gatewayFrequency(plan.Frequency)
	amount := plan.Price.Add(shippingCost)

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	res, err := s.gateway.CreatePreapproval(gwCtx, payment.PreapprovalRequest{
		Reason:            fmt.Sprintf("Assinatura %s", plan.Name),
		PayerEmail:        user.Email,
		ExternalReference: string(refBytes),
		Amount:            amount,
		Frequency:         every,
		FrequencyType:     unit,
		SuccessURL:        s.cfg.FrontendURL + "/assinatura/sucesso",
		FailureURL:        s.cfg.FrontendURL + "/assinatura/erro",
		PendingURL:        s.cfg.FrontendURL + "/assinatura/pendente",
	})
	if err != nil {
		return nil, fmt.Errorf("criando preapproval no gateway: %w", err)
	}

	return &SubscribeResult{
		PreapprovalID: res.ID,
		CheckoutURL:   res.InitPoint,
		Amount:        amount,
		ShippingCost:  shippingCost,
	}, nil
}

// priceShipping quotes delivery for the plan's box. Plans with no linked
// products are treated as digital and ship free.
func (s *subscriptionService) priceShipping(ctx context.Context, req SubscribeRequest, plan *domain.SubscriptionPlan) (decimal.Decimal, string, error) {
	productIDs, err := s.subscriptions.ListPlanProducts(ctx, plan.ID)
	if err != nil {
		return decimal.Zero, "", err
	}
	if len(productIDs) == 0 {
		return decimal.Zero, "digital_delivery", nil
	}

	if req.AddressID == nil || req.MethodID == "" {
		return decimal.Zero, "", domain.ErrShippingRequired
	}
	address, err := s.shippingRepo.FindAddress(ctx, *req.AddressID, req.UserID)
	if err != nil {
		return decimal.Zero, "", err
	}

	// Insurance value is split evenly across the box's products.
	perItem := plan.Price.Div(decimal.NewFromInt(int64(len(productIDs)))).Round(2)
	items := make([]domain.OrderItem, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, domain.OrderItem{
			ProductID: id,
			Quantity:  1,
			UnitPrice: perItem,
		})
	}

	option, err := s.shipping.ResolveSelection(ctx, req.MethodID, address.PostalCode, items)
	if err != nil {
		return decimal.Zero, "", err
	}
	return option.Price, option.Name, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, userID uuid.UUID) error {
	sub, err := s.subscriptions.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	if err := s.gateway.CancelPreapproval(gwCtx, sub.ExternalID); err != nil {
		return fmt.Errorf("cancelando preapproval no gateway: %w", err)
	}

	_, err = s.subscriptions.UpdateFromGateway(ctx, sub.ExternalID, domain.SubscriptionCancelled, nil)
	return err
}

func (s *subscriptionService) Current(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.subscriptions.FindActiveByUser(ctx, userID)
}
