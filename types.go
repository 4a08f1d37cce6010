// Package jwtrevoke defines types for the JWT revocation client SDK
package jwtrevoke

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwtrevoke/jwtrevoke-go/pkg/types"
)

// RevocationRequest is an alias to the shared wire type in pkg/types
type RevocationRequest = types.RevocationRequest

// RevocationRecord is an alias to the shared wire type in pkg/types
type RevocationRecord = types.RevocationRecord

// ClientError represents an error reported by the revocation client.
// For responses received from the API, Code is ErrCodeHTTPError and
// Status and Data carry the HTTP status and the raw response body.
type ClientError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Status  int             `json:"status,omitempty"`
	Data    json.RawMessage `json:"-"`
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.Status)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches ClientErrors by code so sentinels work with errors.Is
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// Common error codes
const (
	ErrCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrCodeHTTPError          = "HTTP_ERROR"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeDecodeError        = "DECODE_ERROR"
)

// DefaultErrorMessage is used when an error response carries no message field
const DefaultErrorMessage = "API request failed"

// ErrMissingAPIKey matches, via errors.Is, the error returned by the
// constructors when no API key is configured. Each constructor returns its own copy.
var ErrMissingAPIKey = NewClientError(ErrCodeConfigurationError, "API key is required")

// NewClientError creates a new client error
func NewClientError(code, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// NewClientErrorWithDetails creates a new client error with details
func NewClientErrorWithDetails(code, message, details string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsClientError checks if an error is or wraps a ClientError
func IsClientError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr)
}

// GetClientError returns the ClientError if the error is or wraps one
func GetClientError(err error) *ClientError {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return nil
}

// IsTransportError reports whether err is a failure where no response was
// received from the API (DNS, refused connection, timeout, cancellation).
func IsTransportError(err error) bool {
	return err != nil && !IsClientError(err)
}
