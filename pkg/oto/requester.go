package oto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HeaderRequestID carries a fresh identifier on every outgoing request.
const HeaderRequestID = "X-Request-ID"

// maxLoggedBody bounds response bodies written to debug logs and error
// messages.
const maxLoggedBody = 4096

// Requester turns a (method, path, options) triple into one call against the
// TryOto API and a parsed Response or a typed error. Every service of a
// Client shares the same underlying resty client and transport.
type Requester struct {
	http      *resty.Client
	transport *transport
	config    *Config
	logger    *otelzap.Logger
	tracer    trace.Tracer
	retry     retryPolicy
}

type requestOptions struct {
	query map[string]string
	body  any
}

// Get sends a GET with the given query parameters.
func (r *Requester) Get(ctx context.Context, path string, query map[string]string) (Response, error) {
	return r.request(ctx, resty.MethodGet, path, requestOptions{query: query})
}

// Post sends body as JSON.
func (r *Requester) Post(ctx context.Context, path string, body any) (Response, error) {
	return r.request(ctx, resty.MethodPost, path, requestOptions{body: body})
}

// Put sends body as JSON.
func (r *Requester) Put(ctx context.Context, path string, body any) (Response, error) {
	return r.request(ctx, resty.MethodPut, path, requestOptions{body: body})
}

// Delete sends a DELETE without a body.
func (r *Requester) Delete(ctx context.Context, path string) (Response, error) {
	return r.request(ctx, resty.MethodDelete, path, requestOptions{})
}

// GetRaw sends a GET and returns the response body without decoding it.
func (r *Requester) GetRaw(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return r.do(ctx, resty.MethodGet, path, requestOptions{query: query})
}

func (r *Requester) request(ctx context.Context, method, path string, opts requestOptions) (Response, error) {
	body, err := r.do(ctx, method, path, opts)
	if err != nil {
		return nil, err
	}
	return parseResponse(body)
}

func (r *Requester) do(ctx context.Context, method, path string, opts requestOptions) ([]byte, error) {
	path = strings.TrimLeft(path, "/")
	r.transport.setVerifySSL(r.config.VerifySSL())
	debug := r.config.Debug()
	requestID := uuid.New().String()

	ctx, span := r.tracer.Start(ctx, "oto "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("oto.path", path),
			attribute.String("oto.request_id", requestID),
		),
	)
	defer span.End()

	body, err := run(ctx, r.retry, func() ([]byte, error) {
		return r.send(ctx, method, path, opts, requestID, debug)
	}, func(err error, wait time.Duration) {
		r.logger.Ctx(ctx).Warn("Retrying TryOto request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Ctx(ctx).Error("TryOto API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, err
	}
	return body, nil
}

func (r *Requester) send(ctx context.Context, method, path string, opts requestOptions, requestID string, debug bool) ([]byte, error) {
	req := r.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, requestID)
	if len(opts.query) > 0 {
		req.SetQueryParams(opts.query)
	}
	if opts.body != nil {
		req.SetBody(opts.body)
	}
	if debug {
		req.EnableTrace()
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, transportError(err)
	}

	body := resp.Body()
	if debug {
		r.logDebug(ctx, method, path, requestID, opts, resp)
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))

	if !resp.IsSuccess() {
		return nil, statusError(resp.StatusCode(), body)
	}
	return body, nil
}

func (r *Requester) logDebug(ctx context.Context, method, path, requestID string, opts requestOptions, resp *resty.Response) {
	ti := resp.Request.TraceInfo()
	r.logger.Ctx(ctx).Debug("TryOto request trace",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Any("query", opts.query),
		zap.Any("body", opts.body),
		zap.Int("status", resp.StatusCode()),
		zap.ByteString("response", truncate(resp.Body())),
		zap.Duration("dns_lookup", ti.DNSLookup),
		zap.Duration("tls_handshake", ti.TLSHandshake),
		zap.Duration("server_time", ti.ServerTime),
		zap.Duration("total_time", ti.TotalTime),
		zap.Bool("conn_reused", ti.IsConnReused),
	)
}

func transportError(err error) *APIError {
	code := CodeTransport
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		code = CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code = CodeTimeout
	}
	return NewAPIError(code, err)
}

// retryAbortedError reports a context that ended while waiting to retry.
func retryAbortedError(ctxErr, last error) *APIError {
	var lastAPI *APIError
	if !errors.As(last, &lastAPI) || lastAPI.Cause == nil {
		return transportError(ctxErr)
	}
	if lastAPI.Code == CodeCanceled || lastAPI.Code == CodeTimeout {
		return lastAPI
	}
	return transportError(fmt.Errorf("%w; last attempt: %w", ctxErr, lastAPI.Cause)).
		WithStatusCode(lastAPI.StatusCode).
		WithBody(lastAPI.Body)
}

func statusError(status int, body []byte) *APIError {
	cause := &HTTPStatusError{
		StatusCode: status,
		Message:    errorMessage(body),
	}
	return NewAPIError(statusCode(status), cause).
		WithStatusCode(status).
		WithBody(body)
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(body []byte) string {
	var simpleErr struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		if simpleErr.Message != "" {
			return simpleErr.Message
		}
		if s, ok := simpleErr.Error.(string); ok && s != "" {
			return s
		}
	}
	return string(bytes.TrimSpace(truncate(body)))
}

func parseResponse(body []byte) (Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Response{}, nil
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, &ParseError{Body: body, Cause: err}
	}
	if resp == nil {
		resp = Response{}
	}
	return resp, nil
}

func truncate(b []byte) []byte {
	if len(b) > maxLoggedBody {
		return b[:maxLoggedBody]
	}
	return b
}
