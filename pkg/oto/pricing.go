package oto

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const pathPricing = "pricing/calculate"

// PricingService quotes shipping prices.
type PricingService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewPricingService creates a pricing service on the shared backend.
func NewPricingService(b *Backend) *PricingService {
	return &PricingService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// Calculate requires both cities and a positive desi, then asks the API for a
// quote.
func (s *PricingService) Calculate(ctx context.Context, req PriceRequest) (Response, error) {
	if err := validatePayload(req); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Calculating TryOto price",
		zap.String("origin", req.OriginCity),
		zap.String("destination", req.DestinationCity),
		zap.Float64("desi", req.Desi),
	)
	return s.requester.Post(ctx, pathPricing, req)
}
