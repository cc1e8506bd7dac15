package cli

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{
			name: "nil error",
			err:  nil,
			want: ConnectionErrorUnknown,
		},
		{
			name: "dns failure",
			err:  &net.DNSError{Err: "no such host", Name: "account.chief.app"},
			want: ConnectionErrorDNS,
		},
		{
			name: "tls failure",
			err:  errors.New("x509: certificate signed by unknown authority"),
			want: ConnectionErrorTLS,
		},
		{
			name: "timeout",
			err:  errors.New("context deadline exceeded"),
			want: ConnectionErrorTimeout,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:443: connect: connection refused"),
			want: ConnectionErrorNetwork,
		},
		{
			name: "unclassified",
			err:  errors.New("something odd happened"),
			want: ConnectionErrorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConnectionError(tt.err, "https://example.com")
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, "https://example.com", got.Endpoint)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestConnectionErrorMessageGuidance(t *testing.T) {
	err := ClassifyConnectionError(errors.New("dial tcp: connection refused"), "https://domain.chief.app")
	assert.Contains(t, err.Error(), "check your internet connection")
	assert.Contains(t, err.Error(), "https://domain.chief.app")
}

func TestAuthErrorsMatchWithErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", &AuthRequiredError{})
	assert.ErrorIs(t, wrapped, &AuthRequiredError{})
	assert.NotErrorIs(t, wrapped, &AuthExpiredError{})

	failed := &AuthFailedError{Reason: errors.New("server on fire")}
	assert.ErrorIs(t, failed, &AuthFailedError{})
	assert.Contains(t, failed.Error(), "server on fire")
}

func TestAuthErrorGuidance(t *testing.T) {
	assert.Contains(t, (&AuthRequiredError{}).Error(), "chief auth login")
	assert.Contains(t, (&AuthExpiredError{}).Error(), "chief auth login")
}

func TestValidationf(t *testing.T) {
	err := Validationf("per_page must be between %d and %d", 1, 100)
	assert.Equal(t, "per_page must be between 1 and 100", err.Error())

	var ve *ValidationError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &ve)
}

func TestResponseFormatError(t *testing.T) {
	err := &ResponseFormatError{Endpoint: "userinfo", Field: "teams"}
	assert.Contains(t, err.Error(), "userinfo")
	assert.Contains(t, err.Error(), `"teams"`)
	assert.ErrorIs(t, err, &ResponseFormatError{})
}
