package oto_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/pkg/oto"
)

func TestAPIError_MessageAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := oto.NewAPIError(oto.CodeTransport, cause)

	assert.Equal(t, "API request failed: connection refused", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, oto.ErrAPI)
	assert.NotErrorIs(t, err, oto.ErrValidation)
}

func TestAPIError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("tracking: %w", oto.NewAPIError(oto.CodeTimeout, errors.New("deadline")))

	assert.True(t, errors.Is(err, &oto.APIError{Code: oto.CodeTimeout}))
	assert.False(t, errors.Is(err, &oto.APIError{Code: oto.CodeTransport}))
}

func TestAPIError_IsNilTarget(t *testing.T) {
	err := oto.NewAPIError(oto.CodeTransport, errors.New("boom"))

	assert.NotPanics(t, func() {
		assert.False(t, errors.Is(err, (*oto.APIError)(nil)))
	})
}

func TestAPIError_Builders(t *testing.T) {
	err := oto.NewAPIError("HTTP_422", &oto.HTTPStatusError{StatusCode: 422, Message: "invalid"}).
		WithStatusCode(http.StatusUnprocessableEntity).
		WithBody([]byte(`{"message":"invalid"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
	assert.JSONEq(t, `{"message":"invalid"}`, string(err.Body))
	assert.Equal(t, "API request failed: status 422: invalid", err.Error())
}

func TestHTTPStatusError_EmptyMessage(t *testing.T) {
	err := &oto.HTTPStatusError{StatusCode: http.StatusBadGateway}
	assert.Equal(t, "status 502 Bad Gateway", err.Error())
}

func TestValidationError(t *testing.T) {
	err := oto.NewValidationError("alici_adi", "'alici_adi' field is required")

	assert.Equal(t, "'alici_adi' field is required", err.Error())
	assert.ErrorIs(t, err, oto.ErrValidation)
	assert.NotErrorIs(t, err, oto.ErrAPI)

	var ve *oto.ValidationError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &ve)
	assert.Equal(t, "alici_adi", ve.Field)
}

func TestParseError(t *testing.T) {
	cause := errors.New("invalid character '<'")
	err := &oto.ParseError{Body: []byte("<html>"), Cause: cause}

	assert.ErrorIs(t, err, oto.ErrParse)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "invalid character")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", oto.NewAPIError(oto.CodeTransport, errors.New("reset")), true},
		{"timeout", oto.NewAPIError(oto.CodeTimeout, errors.New("deadline")), true},
		{"canceled", oto.NewAPIError(oto.CodeCanceled, errors.New("canceled")), false},
		{"server error", oto.NewAPIError("HTTP_503", errors.New("down")).WithStatusCode(503), true},
		{"client error", oto.NewAPIError("HTTP_404", errors.New("missing")).WithStatusCode(404), false},
		{"validation", oto.NewValidationError("x", "x"), false},
		{"plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, oto.IsRetryable(tt.err))
		})
	}
}
