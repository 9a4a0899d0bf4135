package cosmos

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ParseError reports a response body that could not be decoded into the
// requested shape.
type ParseError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parsing response: field %q: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("parsing response: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError

	return errors.As(err, &parseErr)
}

// APIError is an error response from the service.
type APIError struct {
	StatusCode int    `json:"-"       yaml:"status_code"`
	Code       string `json:"code"    yaml:"code"`
	Message    string `json:"message" yaml:"message"`
	ActivityID string `json:"-"       yaml:"activity_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (status: %d)", e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// ParseAPIError decodes an error body. Bodies that are not JSON are kept as
// the message.
func ParseAPIError(statusCode int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	err := json.Unmarshal(data, apiErr)
	if err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr.Message = string(data)
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	return apiErr
}

func hasStatus(err error, status int) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}

	return false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict checks if the error reports an id that already exists.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsPreconditionFailed checks if an If-Match condition failed.
func IsPreconditionFailed(err error) bool {
	return hasStatus(err, http.StatusPreconditionFailed)
}

// IsTooManyRequests checks if the request was throttled.
func IsTooManyRequests(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

// IsUnauthorized checks if the request signature or token was rejected.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// Common static errors that can be wrapped with context.
var (
	ErrSkipTLSOnlyInDev    = errors.New("skipping TLS verification is only allowed in development mode")
	ErrMissingField        = errors.New("required field is missing")
	ErrNotAnObject         = errors.New("body is not a JSON object")
	ErrConfigRequired      = errors.New("config is required")
	ErrEndpointRequired    = errors.New("endpoint is required")
	ErrCredentialRequired  = errors.New("a master key or resource token is required")
	ErrAmbiguousCredential = errors.New("only one of master key and resource token may be set")
	ErrDatabaseRequired    = errors.New("database is required")
	ErrCollectionRequired  = errors.New("collection is required")
	ErrDocumentIDRequired  = errors.New("document id is required")
	ErrQueryRequired       = errors.New("query is required")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker is open")
	ErrChangeFeedStopped   = errors.New("change feed handler stopped")
	ErrInvalidPartitionKey = errors.New("partition key cannot be encoded")
)
