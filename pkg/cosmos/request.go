package cosmos

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestBuilder accumulates the pieces of an outgoing API request. Request
// options contribute headers to it through HeaderAdder.
//
// Header names are stored exactly as given. net/http canonicalizes names on
// Set and Add, which would rewrite service names such as "A-IM"; the builder
// keeps the spelling the service documents instead.
type RequestBuilder struct {
	method       string
	path         string
	resourceType string
	resourceLink string
	query        url.Values
	headers      http.Header
	body         interface{}
	err          error
}

// NewRequestBuilder creates a builder for the given method and resource path.
func NewRequestBuilder(method, path string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		path:    strings.Trim(path, "/"),
		headers: make(http.Header),
	}
}

// Header appends a header value. Repeated calls with the same name keep
// every value, in order.
func (b *RequestBuilder) Header(name, value string) *RequestBuilder {
	b.headers[name] = append(b.headers[name], value)

	return b
}

// Resource sets the resource type and link used to sign the request.
func (b *RequestBuilder) Resource(resourceType, resourceLink string) *RequestBuilder {
	b.resourceType = resourceType
	b.resourceLink = strings.Trim(resourceLink, "/")

	return b
}

// Query adds a URL query parameter.
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	if b.query == nil {
		b.query = make(url.Values)
	}

	b.query.Add(key, value)

	return b
}

// Body sets the request body. It is encoded as JSON by the transport unless
// it is already a []byte.
func (b *RequestBuilder) Body(body interface{}) *RequestBuilder {
	b.body = body

	return b
}

// Fail records an error that prevents the request from being sent. Only the
// first error is kept.
func (b *RequestBuilder) Fail(err error) *RequestBuilder {
	if b.err == nil {
		b.err = err
	}

	return b
}

// Err returns the error recorded by Fail, if any.
func (b *RequestBuilder) Err() error { return b.err }

// With applies every option in order.
func (b *RequestBuilder) With(options ...HeaderAdder) *RequestBuilder {
	for _, option := range options {
		if option == nil {
			continue
		}

		b = option.AddAsHeader(b)
	}

	return b
}

// Method returns the HTTP method.
func (b *RequestBuilder) Method() string { return b.method }

// Path returns the resource path without leading or trailing slashes.
func (b *RequestBuilder) Path() string { return b.path }

// ResourceType returns the resource type used for signing.
func (b *RequestBuilder) ResourceType() string { return b.resourceType }

// ResourceLink returns the resource link used for signing.
func (b *RequestBuilder) ResourceLink() string { return b.resourceLink }

// QueryValues returns a copy of the query parameters.
func (b *RequestBuilder) QueryValues() url.Values {
	values := make(url.Values, len(b.query))
	for key, vals := range b.query {
		values[key] = append([]string(nil), vals...)
	}

	return values
}

// Headers returns a copy of the accumulated headers.
func (b *RequestBuilder) Headers() http.Header {
	headers := make(http.Header, len(b.headers))
	for name, vals := range b.headers {
		headers[name] = append([]string(nil), vals...)
	}

	return headers
}

// HeaderValues returns the values recorded for name, compared case-insensitively.
func (b *RequestBuilder) HeaderValues(name string) []string {
	var values []string

	for key, vals := range b.headers {
		if strings.EqualFold(key, name) {
			values = append(values, vals...)
		}
	}

	return values
}

// BodyValue returns the request body as set by Body.
func (b *RequestBuilder) BodyValue() interface{} { return b.body }
