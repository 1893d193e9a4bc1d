package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is the gateway callback envelope. Only the type and the
// resource id are used; everything else is re-fetched from the gateway.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

type ReconcilerService interface {
	// Handle processes one gateway notification. Idempotent: replays and
	// out-of-order deliveries degrade to no-ops. Errors are for the caller
	// to log; the HTTP boundary answers 200 regardless.
	Handle(ctx context.Context, n Notification) error
	// ReconcilePayment aligns local payment and order state with an
	// authoritative gateway payment resource. Shared with the worker.
	ReconcilePayment(ctx context.Context, res *payment.PaymentResource) error
}

type reconcilerService struct {
	payments      repo.PaymentRepo
	subscriptions repo.SubscriptionRepo
	orders        OrderService
	gateway       payment.Gateway
}

func NewReconcilerService(
	payments repo.PaymentRepo,
	subscriptions repo.SubscriptionRepo,
	orders OrderService,
	gateway payment.Gateway,
) ReconcilerService {
	return &reconcilerService{
		payments:      payments,
		subscriptions: subscriptions,
		orders:        orders,
		gateway:       gateway,
	}
}

func (s *reconcilerService) Handle(ctx context.Context, n Notification) error {
	switch n.Type {
	case "payment":
		res, err := s.gateway.GetPayment(ctx, n.Data.ID)
		if err != nil {
			return err
		}
		return s.ReconcilePayment(ctx, res)
	case "preapproval":
		res, err := s.gateway.GetPreapproval(ctx, n.Data.ID)
		if err != nil {
			return err
		}
		return s.reconcileSubscription(ctx, res)
	default:
		log.Printf("webhook with unhandled type %q ignored", n.Type)
		return nil
	}
}

// mapPaymentStatus translates the gateway's payment vocabulary. The second
// return is false for statuses that require no local transition.
func mapPaymentStatus(gwStatus string) (domain.PaymentStatus, bool) {
	switch gwStatus {
	case payment.StatusApproved:
		return domain.PaymentApproved, true
	case payment.StatusRejected:
		return domain.PaymentRejected, true
	case payment.StatusCancelled:
		return domain.PaymentCancelled, true
	case payment.StatusPending, payment.StatusInProcess:
		return domain.PaymentPending, false
	default:
		return "", false
	}
}

func (s *reconcilerService) ReconcilePayment(ctx context.Context, res *payment.PaymentResource) error {
	if res.ExternalReference == "" {
		log.Printf("gateway payment %s has no external reference, skipping", res.ID)
		return nil
	}
	orderID, err := uuid.Parse(res.ExternalReference)
	if err != nil {
		log.Printf("gateway payment %s carries malformed reference %q", res.ID, res.ExternalReference)
		return nil
	}

	pay, err := s.payments.FindByOrderId(ctx, orderID)
	if err == domain.ErrPaymentNotFound {
		log.Printf("no local payment for order %s, skipping gateway payment %s", orderID, res.ID)
		return nil
	}
	if err != nil {
		return err
	}

	target, transition := mapPaymentStatus(res.Status)
	if !transition {
		if target == "" {
			// Contract drift: surface it, never coerce to a guess.
			log.Printf("UNMAPPED gateway payment status %q for payment %s (order %s)", res.Status, res.ID, orderID)
		}
		return nil
	}

	applied, err := s.payments.TransitionStatus(ctx, nil, pay.ID,
		[]domain.PaymentStatus{domain.PaymentPending}, target, res.Raw)
	if err != nil {
		return err
	}
	if applied {
		log.Printf("payment %s for order %s resolved to %s", pay.ID, orderID, target)
	}

	// Order alignment runs unconditionally: MarkPaid and Cancel are guarded
	// compare-and-sets themselves, so a crash between the payment update and
	// this point heals on the gateway's next retry while side effects still
	// fire at most once.
	switch target {
	case domain.PaymentApproved:
		_, err = s.orders.MarkPaid(ctx, orderID)
	case domain.PaymentRejected, domain.PaymentCancelled:
		_, err = s.orders.Cancel(ctx, orderID)
	}
	return err
}

// subscriptionReference is the snapshot the checkout embedded in the
// preapproval's external reference.
type subscriptionReference struct {
	PlanID    uuid.UUID       `json:"planoId"`
	UserID    uuid.UUID       `json:"usuarioId"`
	AddressID *uuid.UUID      `json:"enderecoEntregaId"`
	Shipping  decimal.Decimal `json:"valorFrete"`
	Method    string          `json:"metodoFrete"`
}

func mapSubscriptionStatus(gwStatus string) domain.SubscriptionStatus {
	switch gwStatus {
	case payment.StatusAuthorized:
		return domain.SubscriptionActive
	case payment.StatusPaused:
		return domain.SubscriptionPaused
	case payment.StatusCancelled:
		return domain.SubscriptionCancelled
	case payment.StatusPending:
		return domain.SubscriptionPending
	default:
		return domain.SubscriptionUnknown
	}
}

func (s *reconcilerService) reconcileSubscription(ctx context.Context, res *payment.PreapprovalResource) error {
	status := mapSubscriptionStatus(res.Status)
	if status == domain.SubscriptionUnknown {
		log.Printf("UNMAPPED gateway preapproval status %q for %s, recording as %s", res.Status, res.ID, status)
	}

	_, err := s.subscriptions.FindByExternalId(ctx, res.ID)
	if err == nil {
		updated, err := s.subscriptions.UpdateFromGateway(ctx, res.ID, status, res.NextPaymentDate)
		if err != nil {
			return err
		}
		if updated {
			log.Printf("subscription %s updated to %s", res.ID, status)
		}
		return nil
	}
	if err != domain.ErrSubscriptionNotFound {
		return err
	}

	// First sighting: a subscription row is created only once the gateway
	// reports it authorized.
	if status != domain.SubscriptionActive {
		return nil
	}

	var ref subscriptionReference
	if err := json.Unmarshal([]byte(res.ExternalReference), &ref); err != nil {
		log.Printf("preapproval %s carries malformed reference: %v", res.ID, err)
		return nil
	}

	now := time.Now()
	sub := &domain.Subscription{
		ID:             uuid.New(),
		UserID:         ref.UserID,
		PlanID:         ref.PlanID,
		ExternalID:     res.ID,
		Status:         domain.SubscriptionActive,
		NextChargeAt:   res.NextPaymentDate,
		ShippingCost:   ref.Shipping,
		ShippingMethod: ref.Method,
		AddressID:      ref.AddressID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return err
	}
	log.Printf("subscription %s created for user %s", res.ID, ref.UserID)
	return nil
}
