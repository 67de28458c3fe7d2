package oto

import (
	"context"
	"net/url"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const pathShipments = "shipments"

// ShipmentService creates, updates and cancels shipments.
type ShipmentService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewShipmentService creates a shipment service on the shared backend.
func NewShipmentService(b *Backend) *ShipmentService {
	return &ShipmentService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// Create validates the required recipient and courier fields and creates the
// shipment.
func (s *ShipmentService) Create(ctx context.Context, data ShipmentData) (Response, error) {
	if err := validatePayload(data); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Creating TryOto shipment",
		zap.String("courier", data.CourierCompany),
		zap.Int("extra_fields", len(data.Extra)),
	)
	return s.requester.Post(ctx, pathShipments, data)
}

// Cancel cancels the shipment identified by trackingNumber.
func (s *ShipmentService) Cancel(ctx context.Context, trackingNumber string) (Response, error) {
	if err := requireNonEmpty("tracking_number", trackingNumber); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Cancelling TryOto shipment", zap.String("tracking_number", trackingNumber))
	return s.requester.Delete(ctx, shipmentPath(trackingNumber))
}

// Update sends data, unvalidated, as the new state of the shipment.
func (s *ShipmentService) Update(ctx context.Context, trackingNumber string, data Payload) (Response, error) {
	if err := requireNonEmpty("tracking_number", trackingNumber); err != nil {
		return nil, err
	}
	if data == nil {
		data = Payload{}
	}

	s.logger.Ctx(ctx).Info("Updating TryOto shipment",
		zap.String("tracking_number", trackingNumber),
		zap.Int("fields", len(data)),
	)
	return s.requester.Put(ctx, shipmentPath(trackingNumber), data)
}

func shipmentPath(trackingNumber string) string {
	return pathShipments + "/" + url.PathEscape(trackingNumber)
}
