// Package errors defines unified error types for conversation turn handling.
// All upstream and composition failures are mapped to these standard types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// TurnError represents a standardized failure while handling a conversation
// turn. It carries enough information for error handling, logging, and the
// user-visible assistant error message.
type TurnError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Endpoint   string `json:"endpoint,omitempty"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("[%s] %s (endpoint=%s, code=%d)",
			e.Type, e.Message, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *TurnError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// Common error types as constants for consistency.
const (
	TypeAuthentication = "authentication_error"
	TypeConnectivity   = "connectivity_error"
	TypeTimeout        = "timeout_error"
	TypeProtocol       = "protocol_error"
	TypeTemplate       = "template_error"
	TypeUpstream       = "upstream_error"
)

// NewAuthenticationError creates an authentication error (401).
// It is never retried automatically; it surfaces to trigger re-authentication.
func NewAuthenticationError(endpoint, message string) *TurnError {
	return &TurnError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Type:       TypeAuthentication,
		Endpoint:   endpoint,
		Retryable:  false,
	}
}

// NewConnectivityError creates a network-level error (connection refused, DNS).
func NewConnectivityError(endpoint, message string) *TurnError {
	return &TurnError{
		StatusCode: http.StatusBadGateway,
		Message:    message,
		Type:       TypeConnectivity,
		Endpoint:   endpoint,
		Retryable:  true,
	}
}

// NewTimeoutError creates a request-timeout error (408).
func NewTimeoutError(endpoint, message string) *TurnError {
	return &TurnError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Endpoint:   endpoint,
		Retryable:  true,
	}
}

// NewProtocolError creates an error for malformed or empty success responses.
func NewProtocolError(endpoint, message string) *TurnError {
	return &TurnError{
		StatusCode: http.StatusBadGateway,
		Message:    message,
		Type:       TypeProtocol,
		Endpoint:   endpoint,
		Retryable:  false,
	}
}

// NewTemplateError creates an error for prompt rendering failures.
// The turn is aborted before any network call is made.
func NewTemplateError(message string) *TurnError {
	return &TurnError{
		StatusCode: http.StatusUnprocessableEntity,
		Message:    message,
		Type:       TypeTemplate,
		Retryable:  false,
	}
}

// NewUpstreamError creates a generic request-failure error carrying the
// upstream status code and response body.
func NewUpstreamError(endpoint string, statusCode int, body string) *TurnError {
	return &TurnError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, body),
		Type:       TypeUpstream,
		Endpoint:   endpoint,
		Retryable:  statusCode >= 500,
	}
}

// IsType reports whether err is a *TurnError of the given type.
func IsType(err error, errType string) bool {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Type == errType
	}
	return false
}
