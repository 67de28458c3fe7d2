package oto

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const pathWebhooks = "webhooks"

// WebhookService submits webhook events to the API.
type WebhookService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewWebhookService creates a webhook service on the shared backend.
func NewWebhookService(b *Backend) *WebhookService {
	return &WebhookService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// Handle forwards data to the API. data must carry a non-empty string
// "event" field.
func (s *WebhookService) Handle(ctx context.Context, data Payload) (Response, error) {
	if len(data) == 0 {
		return nil, NewValidationError("", "webhook payload is empty")
	}
	event, _ := data["event"].(string)
	if err := requireNonEmpty("event", event); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Submitting TryOto webhook", zap.String("event", event))
	return s.requester.Post(ctx, pathWebhooks, data)
}
