// Package oto is a client for the TryOto shipping API: shipment creation,
// tracking, cancellation, pricing, courier listing, barcode generation and
// webhook submission.
package oto

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/oto"

// ClientOption customizes the backend built by New and NewBackend.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger    *otelzap.Logger
	tracer    trace.Tracer
	transport http.RoundTripper
	registry  prometheus.Registerer
	retry     retryPolicy
}

// WithLogger sets the logger used for request and error logs.
func WithLogger(logger *otelzap.Logger) ClientOption {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-request spans. Defaults to the
// global tracer provider.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *clientOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithHTTPTransport replaces the network RoundTripper. The verify_ssl option
// has no effect on a caller-supplied RoundTripper.
func WithHTTPTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithMetrics registers outbound request metrics with reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(o *clientOptions) {
		o.registry = reg
	}
}

// WithRetry retries transport failures and 5xx responses up to maxRetries
// times, waiting interval between attempts. Retries are off by default.
func WithRetry(maxRetries uint64, interval time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retry = retryPolicy{maxRetries: maxRetries, interval: interval}
	}
}

// Backend is the state every service shares: one authenticated HTTP client,
// one transport and one configuration.
type Backend struct {
	http      *resty.Client
	transport *transport
	config    *Config
	logger    *otelzap.Logger
	tracer    trace.Tracer
	retry     retryPolicy
}

// NewBackend builds the shared HTTP client for apiKey. It fails only when
// metrics cannot be registered.
func NewBackend(apiKey string, cfg *Config, opts ...ClientOption) (*Backend, error) {
	o := clientOptions{
		logger: otelzap.New(zap.NewNop()),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var metrics *outboundMetrics
	if o.registry != nil {
		var err error
		if metrics, err = newOutboundMetrics(o.registry); err != nil {
			return nil, err
		}
	}

	tr := newTransport(o.transport, cfg.VerifySSL(), metrics)

	httpClient := resty.New().
		SetTransport(tr).
		SetBaseURL(cfg.BaseURL()).
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout()).
		SetLogger(o.logger.Logger.Sugar())

	return &Backend{
		http:      httpClient,
		transport: tr,
		config:    cfg,
		logger:    o.logger,
		tracer:    o.tracer,
		retry:     o.retry,
	}, nil
}

// Requester returns a request executor bound to the shared HTTP client and
// configuration.
func (b *Backend) Requester() *Requester {
	return &Requester{
		http:      b.http,
		transport: b.transport,
		config:    b.config,
		logger:    b.logger,
		tracer:    b.tracer,
		retry:     b.retry,
	}
}

// Config returns the shared configuration.
func (b *Backend) Config() *Config {
	return b.config
}

// Client is the TryOto API client. It is safe for concurrent use.
type Client struct {
	config *Config

	Shipments *ShipmentService
	Tracking  *TrackingService
	Couriers  *CourierService
	Pricing   *PricingService
	Barcodes  *BarcodeService
	Webhooks  *WebhookService
}

// New creates a client authenticating with apiKey. Options left at their
// zero value take the documented defaults.
func New(apiKey string, opts Options, clientOpts ...ClientOption) (*Client, error) {
	cfg := NewConfig(opts)
	backend, err := NewBackend(apiKey, cfg, clientOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:    cfg,
		Shipments: NewShipmentService(backend),
		Tracking:  NewTrackingService(backend),
		Couriers:  NewCourierService(backend),
		Pricing:   NewPricingService(backend),
		Barcodes:  NewBarcodeService(backend),
		Webhooks:  NewWebhookService(backend),
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.config
}

// CreateShipment creates a new shipment.
func (c *Client) CreateShipment(ctx context.Context, data ShipmentData) (Response, error) {
	return c.Shipments.Create(ctx, data)
}

// UpdateShipment updates the shipment identified by trackingNumber.
func (c *Client) UpdateShipment(ctx context.Context, trackingNumber string, data Payload) (Response, error) {
	return c.Shipments.Update(ctx, trackingNumber, data)
}

// CancelShipment cancels the shipment identified by trackingNumber.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (Response, error) {
	return c.Shipments.Cancel(ctx, trackingNumber)
}

// TrackShipment returns tracking information for trackingNumber.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (Response, error) {
	return c.Tracking.Track(ctx, trackingNumber)
}

// MultiTrack tracks several shipments with one batch call.
func (c *Client) MultiTrack(ctx context.Context, trackingNumbers []string) (Response, error) {
	return c.Tracking.MultiTrack(ctx, trackingNumbers)
}

// TrackByDateRange lists tracking records between two dates.
func (c *Client) TrackByDateRange(ctx context.Context, startDate, endDate string, page, limit int) (Response, error) {
	return c.Tracking.TrackByDateRange(ctx, startDate, endDate, page, limit)
}

// CalculatePrice returns shipping prices for req.
func (c *Client) CalculatePrice(ctx context.Context, req PriceRequest) (Response, error) {
	return c.Pricing.Calculate(ctx, req)
}

// ListCouriers returns the supported courier companies.
func (c *Client) ListCouriers(ctx context.Context) (Response, error) {
	return c.Couriers.List(ctx)
}

// GenerateBarcode returns the barcode or label document for trackingNumber.
func (c *Client) GenerateBarcode(ctx context.Context, trackingNumber string, format BarcodeFormat, options map[string]string) ([]byte, error) {
	return c.Barcodes.Generate(ctx, trackingNumber, format, options)
}

// HandleWebhook submits webhook data to the API.
func (c *Client) HandleWebhook(ctx context.Context, data Payload) (Response, error) {
	return c.Webhooks.Handle(ctx, data)
}
