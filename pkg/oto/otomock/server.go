// Package otomock provides a fake TryOto API for tests and offline use.
package otomock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Error makes a hook respond with Status and a {"message": Message} body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Request is one call received by the Server.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into a generic map.
func (r Request) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// Server is an http.Handler that mimics the TryOto API. Hooks override the
// canned responses; a hook returning an *Error produces that status.
type Server struct {
	// APIKey, when set, is required as a bearer token.
	APIKey          string
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateShipment   func(body map[string]any) (map[string]any, error)
	OnUpdateShipment   func(trackingNumber string, body map[string]any) (map[string]any, error)
	OnCancelShipment   func(trackingNumber string) (map[string]any, error)
	OnTrack            func(trackingNumber string) (map[string]any, error)
	OnMultiTrack       func(trackingNumbers []string) (map[string]any, error)
	OnTrackByDateRange func(startDate, endDate string, page, limit int) (map[string]any, error)
	OnListCouriers     func() (map[string]any, error)
	OnCalculatePrice   func(body map[string]any) (map[string]any, error)
	OnGenerateBarcode  func(trackingNumber, format string) ([]byte, error)
	OnWebhook          func(body map[string]any) (map[string]any, error)

	mu       sync.Mutex
	requests []Request
	router   *mux.Router
}

// NewServer creates a fake API with default behavior.
func NewServer() *Server {
	s := &Server{}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/shipments", s.handleCreateShipment).Methods(http.MethodPost)
	r.HandleFunc("/shipments/{trackingNumber}", s.handleUpdateShipment).Methods(http.MethodPut)
	r.HandleFunc("/shipments/{trackingNumber}", s.handleCancelShipment).Methods(http.MethodDelete)
	r.HandleFunc("/tracking/batch", s.handleMultiTrack).Methods(http.MethodPost)
	r.HandleFunc("/tracking/date-range", s.handleTrackByDateRange).Methods(http.MethodGet)
	r.HandleFunc("/tracking/{trackingNumber}", s.handleTrack).Methods(http.MethodGet)
	r.HandleFunc("/couriers", s.handleListCouriers).Methods(http.MethodGet)
	r.HandleFunc("/pricing/calculate", s.handleCalculatePrice).Methods(http.MethodPost)
	r.HandleFunc("/barcodes/{trackingNumber}", s.handleGenerateBarcode).Methods(http.MethodGet)
	r.HandleFunc("/webhooks", s.handleWebhook).Methods(http.MethodPost)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})
	return r
}

// ServeHTTP records the request and dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	query := make(map[string]string, len(r.URL.Query()))
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  query,
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	if s.SimulateLatency > 0 {
		time.Sleep(s.SimulateLatency)
	}
	if s.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+s.APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
		return
	}
	if s.SimulateErrors {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Simulated API error"})
		return
	}

	s.router.ServeHTTP(w, r)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request and false when none arrived.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// RoundTripper serves requests in-process without opening a socket,
// whatever host they are addressed to.
func (s *Server) RoundTripper() http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if err := r.Context().Err(); err != nil {
			return nil, err
		}
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, r.Clone(r.Context()))
		resp := rec.Result()
		resp.Request = r
		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if s.OnCreateShipment != nil {
		resp, err := s.OnCreateShipment(body)
		respond(w, resp, err)
		return
	}

	trackingNumber := newTrackingNumber()
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":         true,
		"tracking_number": trackingNumber,
		"shipment_id":     "oto-ship-" + uuid.New().String()[:8],
		"status":          "created",
		"kargo_firmasi":   body["kargo_firmasi"],
		"alici_adi":       body["alici_adi"],
	})
}

func (s *Server) handleUpdateShipment(w http.ResponseWriter, r *http.Request) {
	trackingNumber := mux.Vars(r)["trackingNumber"]
	body := decodeBody(r)
	if s.OnUpdateShipment != nil {
		resp, err := s.OnUpdateShipment(trackingNumber, body)
		respond(w, resp, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"tracking_number": trackingNumber,
		"status":          "updated",
		"updated_fields":  len(body),
	})
}

func (s *Server) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	trackingNumber := mux.Vars(r)["trackingNumber"]
	if s.OnCancelShipment != nil {
		resp, err := s.OnCancelShipment(trackingNumber)
		respond(w, resp, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"tracking_number": trackingNumber,
		"status":          "cancelled",
	})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	trackingNumber := mux.Vars(r)["trackingNumber"]
	if s.OnTrack != nil {
		resp, err := s.OnTrack(trackingNumber)
		respond(w, resp, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingRecord(trackingNumber))
}

func (s *Server) handleMultiTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackingNumbers []string `json:"tracking_numbers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	if s.OnMultiTrack != nil {
		resp, err := s.OnMultiTrack(req.TrackingNumbers)
		respond(w, resp, err)
		return
	}

	results := make([]any, 0, len(req.TrackingNumbers))
	for _, tn := range req.TrackingNumbers {
		results = append(results, trackingRecord(tn))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

func (s *Server) handleTrackByDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if s.OnTrackByDateRange != nil {
		resp, err := s.OnTrackByDateRange(q.Get("start_date"), q.Get("end_date"), page, limit)
		respond(w, resp, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"start_date": q.Get("start_date"),
		"end_date":   q.Get("end_date"),
		"page":       page,
		"limit":      limit,
		"total":      1,
		"results":    []any{trackingRecord(newTrackingNumber())},
	})
}

func (s *Server) handleListCouriers(w http.ResponseWriter, _ *http.Request) {
	if s.OnListCouriers != nil {
		resp, err := s.OnListCouriers()
		respond(w, resp, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"couriers": []any{
			map[string]any{"code": "aras", "name": "Aras Kargo"},
			map[string]any{"code": "yurtici", "name": "Yurtiçi Kargo"},
			map[string]any{"code": "mng", "name": "MNG Kargo"},
		},
	})
}

func (s *Server) handleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if s.OnCalculatePrice != nil {
		resp, err := s.OnCalculatePrice(body)
		respond(w, resp, err)
		return
	}

	desi, _ := body["desi"].(float64)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"gonderici_sehir": body["gonderici_sehir"],
		"alici_sehir":     body["alici_sehir"],
		"currency":        "TRY",
		"prices": []any{
			map[string]any{"kargo_firmasi": "aras", "price": 45.0 + 8.5*desi},
			map[string]any{"kargo_firmasi": "yurtici", "price": 49.9 + 7.25*desi},
		},
	})
}

func (s *Server) handleGenerateBarcode(w http.ResponseWriter, r *http.Request) {
	trackingNumber := mux.Vars(r)["trackingNumber"]
	format := r.URL.Query().Get("format")

	var doc []byte
	var err error
	if s.OnGenerateBarcode != nil {
		doc, err = s.OnGenerateBarcode(trackingNumber, format)
	} else {
		doc = []byte(fmt.Sprintf("%s-barcode:%s", strings.ToUpper(format), trackingNumber))
	}
	if err != nil {
		respond(w, nil, err)
		return
	}

	contentType := "application/pdf"
	if format == "png" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	if s.OnWebhook != nil {
		resp, err := s.OnWebhook(body)
		respond(w, resp, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "event": body["event"]})
}

func trackingRecord(trackingNumber string) map[string]any {
	return map[string]any{
		"tracking_number": trackingNumber,
		"status":          "in_transit",
		"events": []any{
			map[string]any{
				"status":   "picked_up",
				"location": "Istanbul",
				"date":     time.Now().Add(-24 * time.Hour).Format(time.RFC3339),
			},
			map[string]any{
				"status":   "in_transit",
				"location": "Ankara",
				"date":     time.Now().Format(time.RFC3339),
			},
		},
	}
}

func newTrackingNumber() string {
	return "OTO" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}

func decodeBody(r *http.Request) map[string]any {
	body := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body
}

func respond(w http.ResponseWriter, body map[string]any, err error) {
	if err != nil {
		var mockErr *Error
		if errors.As(err, &mockErr) {
			writeJSON(w, mockErr.Status, map[string]any{"message": mockErr.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
