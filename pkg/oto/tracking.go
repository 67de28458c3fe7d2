package oto

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	pathTracking          = "tracking"
	pathTrackingBatch     = "tracking/batch"
	pathTrackingDateRange = "tracking/date-range"
)

// Paging defaults for TrackByDateRange.
const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// TrackingService looks up shipment tracking information.
type TrackingService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewTrackingService creates a tracking service on the shared backend.
func NewTrackingService(b *Backend) *TrackingService {
	return &TrackingService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// Track returns tracking information for one shipment.
func (s *TrackingService) Track(ctx context.Context, trackingNumber string) (Response, error) {
	if err := requireNonEmpty("tracking_number", trackingNumber); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Tracking TryOto shipment", zap.String("tracking_number", trackingNumber))
	return s.requester.Get(ctx, pathTracking+"/"+url.PathEscape(trackingNumber), nil)
}

// MultiTrack tracks several shipments with a single batch request.
func (s *TrackingService) MultiTrack(ctx context.Context, trackingNumbers []string) (Response, error) {
	if len(trackingNumbers) == 0 {
		return nil, NewValidationError("tracking_numbers", "at least one tracking number is required")
	}

	s.logger.Ctx(ctx).Info("Batch tracking TryOto shipments", zap.Int("count", len(trackingNumbers)))
	return s.requester.Post(ctx, pathTrackingBatch, map[string]any{
		"tracking_numbers": trackingNumbers,
	})
}

// TrackByDateRange lists tracking records between startDate and endDate
// (YYYY-MM-DD). A page below 1 becomes DefaultPage and a limit below 1
// becomes DefaultLimit.
func (s *TrackingService) TrackByDateRange(ctx context.Context, startDate, endDate string, page, limit int) (Response, error) {
	if startDate == "" || endDate == "" {
		field := "start_date"
		if startDate != "" {
			field = "end_date"
		}
		return nil, NewValidationError(field, "start and end dates are required")
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	s.logger.Ctx(ctx).Info("Tracking TryOto shipments by date range",
		zap.String("start_date", startDate),
		zap.String("end_date", endDate),
		zap.Int("page", page),
		zap.Int("limit", limit),
	)
	return s.requester.Get(ctx, pathTrackingDateRange, map[string]string{
		"start_date": startDate,
		"end_date":   endDate,
		"page":       strconv.Itoa(page),
		"limit":      strconv.Itoa(limit),
	})
}

// TrackEach tracks every number with its own request, at most concurrency
// at a time (unbounded when concurrency < 1). A failed lookup does not stop
// the others; its error is returned in the errs slice wrapped with the
// tracking number. Repeated numbers are looked up once.
func (s *TrackingService) TrackEach(ctx context.Context, trackingNumbers []string, concurrency int) (map[string]Response, []error) {
	if len(trackingNumbers) == 0 {
		return nil, []error{NewValidationError("tracking_numbers", "at least one tracking number is required")}
	}

	numbers := uniqueNumbers(trackingNumbers)
	results := make(map[string]Response, len(numbers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for _, number := range numbers {
		g.Go(func() error {
			resp, err := s.Track(gctx, number)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", number, err))
				return nil // keep tracking the rest
			}
			results[number] = resp
			return nil
		})
	}

	_ = g.Wait()
	return results, errs
}

func uniqueNumbers(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
