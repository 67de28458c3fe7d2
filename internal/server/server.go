package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tournevent/oto/internal/telemetry"
	"github.com/tournevent/oto/pkg/oto"
)

// WebhookHandler submits a webhook payload to the TryOto API.
type WebhookHandler interface {
	Handle(ctx context.Context, data oto.Payload) (oto.Response, error)
}

// Server relays incoming TryOto webhook deliveries to the API.
type Server struct {
	port     int
	webhooks WebhookHandler
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
	// Registry receives the relay metrics and backs /metrics. Defaults to
	// the global Prometheus registry.
	Registry *prometheus.Registry
}

// New creates a new server instance.
func New(cfg Config, webhooks WebhookHandler, logger *otelzap.Logger) *Server {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	return &Server{
		port:     cfg.Port,
		webhooks: webhooks,
		logger:   logger,
		metrics:  telemetry.NewMetrics(reg),
		gatherer: gatherer,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/webhooks", s.handleWebhook).Methods(http.MethodPost)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting webhook relay", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down webhook relay")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var payload oto.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.metrics.RecordError("decode")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	event, _ := payload["event"].(string)
	resp, err := s.webhooks.Handle(ctx, payload)
	elapsed := time.Since(start).Seconds()

	var validationErr *oto.ValidationError
	var apiErr *oto.APIError
	switch {
	case err == nil:
		s.metrics.RecordWebhook(event, "forwarded", elapsed)
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &validationErr):
		s.metrics.RecordWebhook(telemetry.EventRejected, "rejected", elapsed)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: validationErr.Field})
	case errors.As(err, &apiErr):
		s.metrics.RecordWebhook(event, "failed", elapsed)
		s.metrics.RecordError(apiErr.Code)
		s.logger.Ctx(ctx).Error("Webhook forward failed", zap.String("event", event), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.metrics.RecordWebhook(event, "failed", elapsed)
		s.metrics.RecordError("internal")
		s.logger.Ctx(ctx).Error("Webhook forward failed", zap.String("event", event), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
