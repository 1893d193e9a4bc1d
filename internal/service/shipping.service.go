package service

import (
	"context"
	"strings"

	"doodle-store/internal/domain"
	"doodle-store/internal/infrastructure/shipping"
	"doodle-store/internal/repo"

	"github.com/google/uuid"
)

// customMethodPrefix marks store-defined flat-rate methods in quote option
// ids, distinguishing them from carrier service ids.
const customMethodPrefix = "custom_"

type ShippingService interface {
	// QuoteOptions prices a shipment: carrier services plus the store's own
	// flat-rate methods. All-digital item sets get the free digital option
	// without touching the carrier.
	QuoteOptions(ctx context.Context, toCEP string, items []domain.OrderItem) ([]shipping.QuoteOption, error)
	// ResolveSelection turns a chosen method id into a priced service.
	// "custom_<uuid>" ids resolve from the metodos_frete table; anything
	// else is re-quoted from the carrier and matched by id.
	ResolveSelection(ctx context.Context, methodID, toCEP string, items []domain.OrderItem) (*shipping.QuoteOption, error)
}

type shippingService struct {
	repo      repo.ShippingRepo
	variants  repo.VariantRepo
	carrier   shipping.Carrier
	originCEP string
}

func NewShippingService(r repo.ShippingRepo, variants repo.VariantRepo, carrier shipping.Carrier, originCEP string) ShippingService {
	return &shippingService{repo: r, variants: variants, carrier: carrier, originCEP: originCEP}
}

func (s *shippingService) QuoteOptions(ctx context.Context, toCEP string, items []domain.OrderItem) ([]shipping.QuoteOption, error) {
	if domain.AllDigital(items) {
		return []shipping.QuoteOption{shipping.DigitalDeliveryOption()}, nil
	}

	quoteItems := make([]shipping.QuoteItem, 0, len(items))
	for _, it := range items {
		if it.Digital {
			continue
		}
		quoteItems = append(quoteItems, shipping.QuoteItem{
			ProductID:      it.ProductID,
			InsuranceValue: it.UnitPrice,
			Quantity:       it.Quantity,
		})
	}

	options, err := s.carrier.Quote(ctx, s.originCEP, toCEP, quoteItems)
	if err != nil {
		return nil, err
	}

	methods, err := s.repo.ListActiveMethods(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		options = append(options, shipping.QuoteOption{
			ID:           customMethodPrefix + m.ID.String(),
			Name:         m.Title,
			Price:        m.Price,
			Company:      "Frete Personalizado",
			DeliveryDays: m.DeliveryDays,
			Description:  m.Description,
			Custom:       true,
		})
	}
	return options, nil
}

func (s *shippingService) ResolveSelection(ctx context.Context, methodID, toCEP string, items []domain.OrderItem) (*shipping.QuoteOption, error) {
	if raw, ok := strings.CutPrefix(methodID, customMethodPrefix); ok {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.ErrShippingNotFound
		}
		method, err := s.repo.FindMethodById(ctx, id)
		if err != nil {
			return nil, err
		}
		return &shipping.QuoteOption{
			ID:           methodID,
			Name:         method.Title,
			Price:        method.Price,
			Company:      "Frete Personalizado",
			DeliveryDays: method.DeliveryDays,
			Custom:       true,
		}, nil
	}

	options, err := s.QuoteOptions(ctx, toCEP, items)
	if err != nil {
		return nil, err
	}
	for i := range options {
		if options[i].ID == methodID {
			return &options[i], nil
		}
	}
	return nil, domain.ErrShippingNotFound
}
