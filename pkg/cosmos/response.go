package cosmos

import (
	"net/http"
	"strconv"
	"strings"
)

// Response is a raw service response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// headerValue looks a header up without relying on canonical key form.
func headerValue(headers http.Header, name string) string {
	if headers == nil {
		return ""
	}

	if value := headers.Get(name); value != "" {
		return value
	}

	for key, values := range headers {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}

	return ""
}

// RequestCharge returns the request units consumed, or 0 when absent.
func RequestCharge(headers http.Header) float64 {
	charge, err := strconv.ParseFloat(headerValue(headers, HeaderRequestCharge), 64)
	if err != nil {
		return 0
	}

	return charge
}

// SessionTokenOf returns the session token of a response.
func SessionTokenOf(headers http.Header) string {
	return headerValue(headers, HeaderSessionToken)
}

// ContinuationOf returns the continuation token of a paged response.
func ContinuationOf(headers http.Header) string {
	return headerValue(headers, HeaderContinuation)
}

// ItemCount returns the number of items in a feed page, or -1 when absent.
func ItemCount(headers http.Header) int {
	count, err := strconv.Atoi(headerValue(headers, HeaderItemCount))
	if err != nil {
		return -1
	}

	return count
}

// ETagOf returns the ETag of a response.
func ETagOf(headers http.Header) string {
	return headerValue(headers, HeaderETag)
}
