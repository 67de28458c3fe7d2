package oto

import (
	"crypto/tls"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names and labels for outbound API calls.
const (
	MetricsSubsystem   = "oto_outbound"
	MetricsCodeLabel   = "code"
	MetricsMethodLabel = "method"
	MetricsPathLabel   = "path"
	PathVarSub         = "-"
)

var metricsLabels = []string{MetricsCodeLabel, MetricsMethodLabel, MetricsPathLabel}

// regex to convert template param {id} to -
var metricsPathVarRE = regexp.MustCompile(`{[^}]*}`)

type outboundMetrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func newOutboundMetrics(reg prometheus.Registerer) (*outboundMetrics, error) {
	m := &outboundMetrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: MetricsSubsystem,
				Name:      "request_count",
				Help:      "Number of requests sent to the TryOto API.",
			},
			metricsLabels,
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: MetricsSubsystem,
				Name:      "request_duration",
				Help:      "TryOto API request duration in seconds.",
				Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			metricsLabels,
		),
	}

	if err := reg.Register(m.requestCount); err != nil {
		var registered prometheus.AlreadyRegisteredError
		if !errors.As(err, &registered) {
			return nil, err
		}
		m.requestCount = registered.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.requestDuration); err != nil {
		var registered prometheus.AlreadyRegisteredError
		if !errors.As(err, &registered) {
			return nil, err
		}
		m.requestDuration = registered.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

func (m *outboundMetrics) observe(method, path string, code int, elapsed time.Duration) {
	labels := prometheus.Labels{
		MetricsCodeLabel:   strconv.Itoa(code),
		MetricsMethodLabel: method,
		MetricsPathLabel:   path,
	}
	m.requestCount.With(labels).Inc()
	m.requestDuration.With(labels).Observe(elapsed.Seconds())
}

// endpointRouter knows the API's path templates so metric labels do not
// explode with one series per tracking number.
func endpointRouter() *mux.Router {
	r := mux.NewRouter()
	r.Path("/" + pathShipments).Methods(http.MethodPost)
	r.Path("/" + pathShipments + "/{trackingNumber}").Methods(http.MethodPut, http.MethodDelete)
	r.Path("/" + pathTrackingBatch).Methods(http.MethodPost)
	r.Path("/" + pathTrackingDateRange).Methods(http.MethodGet)
	r.Path("/" + pathTracking + "/{trackingNumber}").Methods(http.MethodGet)
	r.Path("/" + pathCouriers).Methods(http.MethodGet)
	r.Path("/" + pathPricing).Methods(http.MethodPost)
	r.Path("/" + pathBarcodes + "/{trackingNumber}").Methods(http.MethodGet)
	r.Path("/" + pathWebhooks).Methods(http.MethodPost)
	return r
}

func reducePath(router *mux.Router, request *http.Request) string {
	matched := mux.RouteMatch{}
	if router != nil && router.Match(request, &matched) && matched.Route != nil {
		if template, err := matched.Route.GetPathTemplate(); err == nil {
			return metricsPathVarRE.ReplaceAllString(template, PathVarSub)
		}
	}
	// use the 1st part of the route
	for _, part := range strings.Split(request.URL.Path, "/") {
		if part != "" {
			return "/" + part
		}
	}
	return "/" + PathVarSub
}

// transport is the RoundTripper shared by every service of a Client. It keeps
// TLS verification in sync with the configuration and records metrics.
type transport struct {
	mu sync.RWMutex
	// next is what requests are sent through; tlsBase is set only when we
	// own the *http.Transport and can therefore rebuild its TLS config.
	next    http.RoundTripper
	tlsBase *http.Transport
	verify  bool

	metrics *outboundMetrics
	router  *mux.Router
}

func newTransport(custom http.RoundTripper, verifySSL bool, metrics *outboundMetrics) *transport {
	t := &transport{
		verify:  verifySSL,
		metrics: metrics,
		router:  endpointRouter(),
	}
	if custom != nil {
		t.next = custom
		return t
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsConfig(verifySSL)
	t.next = base
	t.tlsBase = base
	return t
}

func tlsConfig(verify bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !verify, //nolint:gosec // opt-out is a documented client option
	}
}

// setVerifySSL rebuilds the underlying transport when the verification flag
// changed since the last request. A caller-supplied RoundTripper owns its own
// TLS settings and is left alone.
func (t *transport) setVerifySSL(verify bool) {
	t.mu.RLock()
	unchanged := t.verify == verify || t.tlsBase == nil
	t.mu.RUnlock()
	if unchanged {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.verify == verify {
		return
	}
	next := t.tlsBase.Clone()
	next.TLSClientConfig = tlsConfig(verify)
	t.tlsBase.CloseIdleConnections()
	t.tlsBase = next
	t.next = next
	t.verify = verify
}

// RoundTrip sends the request and updates metrics.
func (t *transport) RoundTrip(request *http.Request) (*http.Response, error) {
	t.mu.RLock()
	next := t.next
	t.mu.RUnlock()

	before := time.Now()
	response, err := next.RoundTrip(request)
	if t.metrics != nil {
		code := 0
		if response != nil {
			code = response.StatusCode
		}
		t.metrics.observe(request.Method, reducePath(t.router, request), code, time.Since(before))
	}
	return response, err
}
