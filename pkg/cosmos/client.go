package cosmos

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DatabasesClient manages databases of an account.
type DatabasesClient interface {
	List(ctx context.Context, options ...HeaderAdder) (*DatabaseList, error)
	Get(ctx context.Context, id string) (*Database, error)
	Create(ctx context.Context, id string) (*Database, error)
	Delete(ctx context.Context, id string) error
}

// CollectionsClient manages the collections of one database.
type CollectionsClient interface {
	List(ctx context.Context, options ...HeaderAdder) (*CollectionList, error)
	Get(ctx context.Context, id string) (*Collection, error)
	Create(ctx context.Context, request *CollectionCreateRequest) (*Collection, error)
	Delete(ctx context.Context, id string) error
	PartitionKeyRanges(ctx context.Context, id string, options ...HeaderAdder) (*PartitionKeyRangeList, error)
}

// DocumentsClient reads and writes raw JSON documents of one collection.
// The typed helpers (CreateDocument, GetDocument, ...) decode its responses
// into Document values.
type DocumentsClient interface {
	Create(ctx context.Context, document interface{}, options ...HeaderAdder) (*Response, error)
	Get(ctx context.Context, id string, options ...HeaderAdder) (*Response, error)
	Replace(ctx context.Context, id string, document interface{}, options ...HeaderAdder) (*Response, error)
	Delete(ctx context.Context, id string, options ...HeaderAdder) (*Response, error)
	List(ctx context.Context, options ...HeaderAdder) (*Response, error)
	Query(ctx context.Context, query *Query, options ...HeaderAdder) (*Response, error)
}

// Client is the entry point to an account.
type Client interface {
	Databases() DatabasesClient
	Collections(database string) CollectionsClient
	Documents(database, collection string) DocumentsClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a cosmos.Client.
//
// # Authentication
//
// Exactly one of MasterKey and ResourceToken must be set. A master key is the
// base64 account key and is used to sign every request; a resource token is
// sent URL-encoded.
//
// # Timeouts and retries
//
// Per-request timeouts should be controlled via the context passed to client
// methods. Throttled (429) and 5xx responses are retried by the transport;
// RetryMax/RetryWaitMin/RetryWaitMax tune that behavior.
type Config struct {
	// Endpoint is the account URI, e.g. "https://myaccount.documents.azure.com".
	Endpoint string
	// MasterKey is the base64 encoded primary or secondary account key.
	MasterKey string
	// ResourceToken is a pre-authorized token for a single resource.
	ResourceToken string

	// HTTPTimeout is the default timeout of the underlying HTTP client.
	HTTPTimeout time.Duration
	// RetryMax is the maximum number of retries for transient failures. If 0
	// a default is used.
	RetryMax int
	// RetryWaitMin is the minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax is the maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger is an optional structured logger.
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// APIVersion overrides the x-ms-version header.
	APIVersion string
	// ConsistencyLevel, when set, is sent with every document request.
	ConsistencyLevel ConsistencyLevel
	// Cache, when set, enables read-through caching of document reads.
	Cache *CacheConfig
	// Interceptors run around every request.
	Interceptors *InterceptorChain
	// SkipTLSVerify disables certificate checks, for the local emulator. It
	// is only honored when COSMOS_DEV_MODE is set.
	SkipTLSVerify bool
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	err := validation.ValidateStruct(c,
		validation.Field(&c.Endpoint,
			validation.Required.Error(ErrEndpointRequired.Error()),
			is.URL),
		validation.Field(&c.MasterKey, is.Base64),
		validation.Field(&c.RetryMax, validation.Min(0)),
		validation.Field(&c.ConsistencyLevel, validation.In(
			ConsistencyStrong, ConsistencyBounded, ConsistencySession,
			ConsistencyEventual, ConsistencyConsistentPrefix)),
	)
	if err != nil {
		return err
	}

	if c.MasterKey == "" && c.ResourceToken == "" {
		return ErrCredentialRequired
	}

	if c.MasterKey != "" && c.ResourceToken != "" {
		return ErrAmbiguousCredential
	}

	return nil
}
