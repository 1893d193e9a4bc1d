package worker

import (
	"context"
	"log"
	"time"

	"doodle-store/internal/infrastructure/payment"
	"doodle-store/internal/repo"
	"doodle-store/internal/service"
)

// ReconciliationWorker sweeps payments stuck pending and asks the gateway
// what actually happened to them. It closes the gap left by lost or delayed
// webhooks: the buyer paid but the callback never arrived.
type ReconciliationWorker struct {
	payments   repo.PaymentRepo
	reconciler service.ReconcilerService
	gateway    payment.Gateway
	interval   time.Duration
	stuckAge   time.Duration
	batchSize  int
}

func NewReconciliationWorker(
	payments repo.PaymentRepo,
	reconciler service.ReconcilerService,
	gateway payment.Gateway,
	interval, stuckAge time.Duration,
	batchSize int,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		payments:   payments,
		reconciler: reconciler,
		gateway:    gateway,
		interval:   interval,
		stuckAge:   stuckAge,
		batchSize:  batchSize,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Println("reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				log.Printf("reconciliation sweep failed: %v", err)
			}
		}
	}
}

func (w *ReconciliationWorker) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.stuckAge)
	stuck, err := w.payments.FindPendingBefore(ctx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	log.Printf("found %d payments stuck pending, reconciling", len(stuck))

	for _, pay := range stuck {
		// The locally stored transaction id is the checkout preference, not
		// a payment id, so lookup goes by the order reference instead.
		res, err := w.gateway.SearchPaymentByReference(ctx, pay.OrderID.String())
		if err == payment.ErrPaymentResourceNotFound {
			// Buyer never reached the gateway's payment step. The checkout
			// link may still be live, so the order is left alone.
			continue
		}
		if err != nil {
			log.Printf("gateway lookup for order %s failed: %v", pay.OrderID, err)
			continue
		}

		if err := w.reconciler.ReconcilePayment(ctx, res); err != nil {
			log.Printf("reconciling payment for order %s failed: %v", pay.OrderID, err)
		}
	}
	return nil
}
