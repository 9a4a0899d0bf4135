package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/auth"
	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Client sends signed requests to one account endpoint.
type Client struct {
	baseURL      string
	authorizer   auth.Authorizer
	httpClient   *retryablehttp.Client
	logger       Logger
	debug        bool
	userAgent    string
	apiVersion   string
	interceptors *cosmos.InterceptorChain
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithAPIVersion overrides the x-ms-version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithRetryConfig tunes retries of throttled and failed requests.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- gated by COSMOS_DEV_MODE in cosmosclient
		}
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *cosmos.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithClock replaces the clock used for x-ms-date.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client for baseURL. A nil authorizer sends requests
// unsigned.
func NewClient(baseURL string, authorizer auth.Authorizer, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Backoff = retryAfterBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authorizer: authorizer,
		httpClient: retryClient,
		userAgent:  constants.DefaultUserAgent,
		apiVersion: constants.APIVersion,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// retryAfterBackoff honors the service's x-ms-retry-after-ms hint on
// throttled responses and falls back to exponential backoff.
func retryAfterBackoff(waitMin, waitMax time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if millis, err := strconv.Atoi(resp.Header.Get(cosmos.HeaderRetryAfterMs)); err == nil && millis >= 0 {
			wait := time.Duration(millis) * time.Millisecond
			if wait > waitMax {
				wait = waitMax
			}

			return wait
		}
	}

	return retryablehttp.DefaultBackoff(waitMin, waitMax, attemptNum, resp)
}

// Do sends the request described by builder. Responses outside 2xx, other
// than 304 Not Modified, are returned together with an *cosmos.APIError.
func (c *Client) Do(ctx context.Context, builder *cosmos.RequestBuilder) (*cosmos.Response, error) {
	if err := builder.Err(); err != nil {
		return nil, err
	}

	data, err := encodeBody(builder.BodyValue())
	if err != nil {
		return nil, err
	}

	headers, err := c.requestHeaders(ctx, builder, data != nil)
	if err != nil {
		return nil, err
	}

	intercepted := &cosmos.Request{
		Method:       builder.Method(),
		Path:         builder.Path(),
		ResourceType: builder.ResourceType(),
		Headers:      headers,
		Body:         data,
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	requestURL := c.baseURL + "/" + escapePath(builder.Path())
	if query := builder.QueryValues(); len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var body interface{}
	if data != nil {
		body = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, builder.Method(), requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Assigned directly so that names keep their documented spelling.
	for name, values := range intercepted.Headers {
		req.Header[name] = values
	}

	c.logRequest(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp := &cosmos.Response{Error: fmt.Errorf("executing request: %w", err)}
		c.runResponseInterceptors(ctx, intercepted, resp)

		return nil, resp.Error
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &cosmos.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.logResponse(req, resp)

	if isError(httpResp.StatusCode) {
		apiErr := cosmos.ParseAPIError(httpResp.StatusCode, respBody)
		apiErr.ActivityID = httpResp.Header.Get(cosmos.HeaderActivityID)
		resp.Error = apiErr
	}

	c.runResponseInterceptors(ctx, intercepted, resp)

	if resp.Error != nil {
		return resp, resp.Error
	}

	return resp, nil
}

func (c *Client) requestHeaders(ctx context.Context, builder *cosmos.RequestBuilder, hasBody bool) (http.Header, error) {
	date := c.now()
	headers := builder.Headers()

	setDefault := func(name, value string) {
		if len(builder.HeaderValues(name)) == 0 {
			headers[name] = []string{value}
		}
	}

	headers[cosmos.HeaderDate] = []string{auth.FormatDate(date)}
	setDefault(cosmos.HeaderVersion, c.apiVersion)
	setDefault(cosmos.HeaderAccept, cosmos.ContentTypeJSON)
	setDefault(cosmos.HeaderUserAgent, c.userAgent)
	setDefault(cosmos.HeaderActivityID, uuid.New().String())

	if hasBody {
		setDefault(cosmos.HeaderContentType, cosmos.ContentTypeJSON)
	}

	if c.authorizer != nil {
		token, err := c.authorizer.Authorize(ctx, builder.Method(), builder.ResourceType(), builder.ResourceLink(), date)
		if err != nil {
			return nil, fmt.Errorf("authorizing request: %w", err)
		}

		headers[cosmos.HeaderAuthorization] = []string{token}
	}

	return headers, nil
}

func (c *Client) runResponseInterceptors(ctx context.Context, req *cosmos.Request, resp *cosmos.Response) {
	if c.interceptors == nil {
		return
	}

	err := c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil && resp.Error == nil {
		resp.Error = err
	}
}

// escapePath escapes each segment so ids with reserved characters survive.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}

func isError(statusCode int) bool {
	if statusCode == http.StatusNotModified {
		return false
	}

	return statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices
}

func encodeBody(body interface{}) ([]byte, error) {
	switch value := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		return data, nil
	}
}

func (c *Client) logRequest(req *retryablehttp.Request) {
	if !c.debug || c.logger == nil {
		return
	}

	c.logger.Debug("HTTP Request", map[string]interface{}{
		"method":      req.Method,
		"url":         redactURL(req.URL),
		"activity_id": req.Header.Get(cosmos.HeaderActivityID),
	})
}

func (c *Client) logResponse(req *retryablehttp.Request, resp *cosmos.Response) {
	if !c.debug || c.logger == nil {
		return
	}

	c.logger.Debug("HTTP Response", map[string]interface{}{
		"method":         req.Method,
		"url":            redactURL(req.URL),
		"status":         resp.StatusCode,
		"request_charge": cosmos.RequestCharge(resp.Headers),
		"body_size":      len(resp.Body),
	})
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	redacted := *u
	redacted.User = nil

	return redacted.String()
}
