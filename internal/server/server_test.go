package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/internal/server"
	"github.com/tournevent/oto/pkg/oto"
	"github.com/tournevent/oto/pkg/oto/otomock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*server.Server, *otomock.Server) {
	t.Helper()

	api := otomock.NewServer()
	client, err := oto.New("test-key", oto.Options{}, oto.WithHTTPTransport(api.RoundTripper()))
	require.NoError(t, err)

	logger := otelzap.New(zap.NewNop())
	srv := server.New(server.Config{Port: 8080, Registry: prometheus.NewRegistry()}, client.Webhooks, logger)
	return srv, api
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Webhook_Forwards(t *testing.T) {
	srv, api := newTestServer(t)

	body := strings.NewReader(`{"event":"shipment.delivered","tracking_number":"TRK1"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "shipment.delivered", resp["event"])

	forwarded, ok := api.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/webhooks", forwarded.Path)
	assert.JSONEq(t, `{"event":"shipment.delivered","tracking_number":"TRK1"}`, string(forwarded.Body))
}

func TestServer_Webhook_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/webhooks", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Webhook_InvalidJSON(t *testing.T) {
	srv, api := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader("invalid json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, api.Requests())
}

func TestServer_Webhook_MissingEvent(t *testing.T) {
	srv, api := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"tracking_number":"TRK1"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "event", resp["field"])
	assert.Empty(t, api.Requests())
}

func TestServer_Webhook_UpstreamFailure(t *testing.T) {
	srv, api := newTestServer(t)
	api.OnWebhook = func(map[string]any) (map[string]any, error) {
		return nil, &otomock.Error{Status: http.StatusServiceUnavailable, Message: "maintenance"}
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"event":"shipment.created"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "maintenance")
}

type failingHandler struct{}

func (failingHandler) Handle(context.Context, oto.Payload) (oto.Response, error) {
	return nil, errors.New("unexpected")
}

func TestServer_Webhook_UnexpectedError(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	srv := server.New(server.Config{Registry: prometheus.NewRegistry()}, failingHandler{}, logger)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"event":"x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"event":"shipment.delivered"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `oto_webhooks_total{event="shipment.delivered",status="forwarded"} 1`)
}

func TestServer_MetricsBoundEventLabels(t *testing.T) {
	api := otomock.NewServer()
	client, err := oto.New("test-key", oto.Options{}, oto.WithHTTPTransport(api.RoundTripper()))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := server.New(server.Config{Registry: reg}, client.Webhooks, otelzap.New(zap.NewNop()))
	handler := srv.Handler()

	for i := 0; i < 200; i++ {
		body := strings.NewReader(fmt.Sprintf(`{"event":"attacker-%d"}`, i))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhooks", body))
	}
	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"event":"shipment.delivered"}`)))
	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{"tracking_number":"TRK1"}`)))

	families, err := reg.Gather()
	require.NoError(t, err)

	series := make(map[string]int)
	for _, mf := range families {
		series[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 3, series["oto_webhooks_total"])
	assert.Equal(t, 3, series["oto_webhook_forward_duration_seconds"])

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `oto_webhooks_total{event="other",status="forwarded"} 200`)
	assert.NotContains(t, rec.Body.String(), "attacker-")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	srv := server.New(server.Config{Port: 0, Registry: prometheus.NewRegistry()}, failingHandler{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, srv.Run(ctx))
}
