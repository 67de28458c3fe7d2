package oto

import (
	"context"
	"fmt"
	"net/url"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const pathBarcodes = "barcodes"

// BarcodeFormat is the document format of a generated barcode.
type BarcodeFormat string

const (
	BarcodeFormatPDF BarcodeFormat = "pdf"
	BarcodeFormatPNG BarcodeFormat = "png"
)

// Valid reports whether f is a format the API accepts.
func (f BarcodeFormat) Valid() bool {
	return f == BarcodeFormatPDF || f == BarcodeFormatPNG
}

// BarcodeService generates shipment barcodes and labels.
type BarcodeService struct {
	requester *Requester
	logger    *otelzap.Logger
}

// NewBarcodeService creates a barcode service on the shared backend.
func NewBarcodeService(b *Backend) *BarcodeService {
	return &BarcodeService{
		requester: b.Requester(),
		logger:    b.logger,
	}
}

// Generate returns the raw barcode document for trackingNumber. An empty
// format means PDF. options are sent as extra query parameters; format
// always wins over an options entry of the same name.
func (s *BarcodeService) Generate(ctx context.Context, trackingNumber string, format BarcodeFormat, options map[string]string) ([]byte, error) {
	if err := requireNonEmpty("tracking_number", trackingNumber); err != nil {
		return nil, err
	}
	if format == "" {
		format = BarcodeFormatPDF
	}
	if !format.Valid() {
		return nil, NewValidationError("format",
			fmt.Sprintf("unsupported barcode format %q, expected %q or %q", format, BarcodeFormatPDF, BarcodeFormatPNG))
	}

	query := make(map[string]string, len(options)+1)
	for k, v := range options {
		query[k] = v
	}
	query["format"] = string(format)

	s.logger.Ctx(ctx).Info("Generating TryOto barcode",
		zap.String("tracking_number", trackingNumber),
		zap.String("format", string(format)),
	)
	return s.requester.GetRaw(ctx, pathBarcodes+"/"+url.PathEscape(trackingNumber), query)
}
