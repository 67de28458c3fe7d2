package oto

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

const pathCouriers = "couriers"

// CourierService lists the courier companies TryOto can book with.
type CourierService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewCourierService creates a courier service on the shared backend.
func NewCourierService(b *Backend) *CourierService {
	return &CourierService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// List returns the supported courier companies.
func (s *CourierService) List(ctx context.Context) (Response, error) {
	s.logger.Ctx(ctx).Info("Listing TryOto couriers")
	return s.requester.Get(ctx, pathCouriers, nil)
}
