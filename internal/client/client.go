package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/auth"
	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/fivetwenty-io/cosmos-client/internal/http"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
)

// Static errors for err113 compliance.
var (
	ErrEndpointRequired = errors.New("endpoint is required")
)

// Client implements the cosmos.Client interface.
type Client struct {
	httpClient *http.Client
	authorizer auth.Authorizer
	baseURL    string
	logger     cosmos.Logger
	cache      cosmos.Cache
	cacheOpts  *cosmos.CacheOptions
	defaults   []cosmos.HeaderAdder

	databases *DatabasesClient
}

// createAuthorizer picks the authorizer matching the configured credential.
func createAuthorizer(config *cosmos.Config) (auth.Authorizer, error) {
	if config.MasterKey != "" {
		authorizer, err := auth.NewMasterKeyAuthorizer(config.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("creating master key authorizer: %w", err)
		}

		return authorizer, nil
	}

	if config.ResourceToken != "" {
		return auth.NewResourceTokenAuthorizer(config.ResourceToken, time.Time{}), nil
	}

	return nil, nil //nolint:nilnil // No authentication
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *cosmos.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(&loggerAdapter{logger: config.Logger}))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.APIVersion != "" {
		httpOpts = append(httpOpts, http.WithAPIVersion(config.APIVersion))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithInsecureSkipVerify())
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a new client for the account at config.Endpoint.
func New(ctx context.Context, config *cosmos.Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	authorizer, err := createAuthorizer(config)
	if err != nil {
		return nil, err
	}

	return NewWithAuthorizer(config, authorizer)
}

// NewWithAuthorizer creates a new client with a custom authorizer.
func NewWithAuthorizer(config *cosmos.Config, authorizer auth.Authorizer) (*Client, error) {
	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	httpClient := http.NewClient(config.Endpoint, authorizer, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient: httpClient,
		authorizer: authorizer,
		baseURL:    config.Endpoint,
		logger:     config.Logger,
	}

	if config.ConsistencyLevel != "" {
		client.defaults = append(client.defaults, config.ConsistencyLevel)
	}

	if config.Cache != nil {
		cache, err := cosmos.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}

		client.cache = cache
		client.cacheOpts = config.Cache.Options
	}

	client.databases = NewDatabasesClient(httpClient)

	return client, nil
}

// GetAuthorizer returns the authorizer for this client.
func (c *Client) GetAuthorizer() auth.Authorizer {
	return c.authorizer
}

// Databases implements cosmos.Client.Databases.
func (c *Client) Databases() cosmos.DatabasesClient {
	return c.databases
}

// Collections implements cosmos.Client.Collections.
func (c *Client) Collections(database string) cosmos.CollectionsClient {
	return NewCollectionsClient(c.httpClient, database)
}

// Documents implements cosmos.Client.Documents. With a cache configured the
// returned client reads through it.
func (c *Client) Documents(database, collection string) cosmos.DocumentsClient {
	documents := NewDocumentsClient(c.httpClient, database, collection, c.defaults...)
	if c.cache == nil {
		return documents
	}

	return cosmos.NewCachedDocuments(documents, c.cache, documents.link, c.cacheOpts)
}

// Close releases the cache backend, if it holds a connection.
func (c *Client) Close() {
	if closer, ok := c.cache.(interface{ Close() }); ok {
		closer.Close()
	}
}

// decode unmarshals a response body into target.
func decode(resp *cosmos.Response, target interface{}, what string) error {
	err := json.Unmarshal(resp.Body, target)
	if err != nil {
		return &cosmos.ParseError{Err: fmt.Errorf("parsing %s: %w", what, err)}
	}

	return nil
}

// loggerAdapter adapts cosmos.Logger to http.Logger.
type loggerAdapter struct {
	logger cosmos.Logger
}

func (l *loggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, fields)
}

func (l *loggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, fields)
}

func (l *loggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, fields)
}

func (l *loggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, fields)
}
