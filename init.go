package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"

	"github.com/tournevent/oto/internal/config"
	"github.com/tournevent/oto/internal/telemetry"
	"github.com/tournevent/oto/pkg/oto"
	"github.com/tournevent/oto/pkg/oto/otomock"
)

// useMock is bound to the --mock flag and overrides OTO_USE_MOCK.
var useMock bool

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if useMock {
		cfg.UseMock = true
	}
	return cfg, nil
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	return shutdown, err
}

// newClient builds the TryOto client from configuration. With UseMock set,
// requests are served by an in-process fake API and no key is required.
func newClient(cfg *config.Config, logger *otelzap.Logger, metrics bool) (*oto.Client, error) {
	opts, err := cfg.SDKOptions()
	if err != nil {
		return nil, err
	}

	clientOpts := append(cfg.ClientOptions(),
		oto.WithLogger(logger),
		oto.WithTracer(otel.Tracer(cfg.ServiceName)),
	)
	if metrics {
		clientOpts = append(clientOpts, oto.WithMetrics(prometheus.DefaultRegisterer))
	}

	apiKey := cfg.APIKey
	if cfg.UseMock {
		clientOpts = append(clientOpts, oto.WithHTTPTransport(otomock.NewServer().RoundTripper()))
		if apiKey == "" {
			apiKey = "mock"
		}
	}
	if apiKey == "" {
		return nil, errors.New("OTO_API_KEY is required (or use --mock)")
	}

	return oto.New(apiKey, opts, clientOpts...)
}

func initCLILogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewCLILogger(level)
}
