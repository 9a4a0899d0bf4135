package constants

import "time"

// Protocol constants.
const (
	// APIVersion is the REST API version sent in x-ms-version.
	APIVersion = "2018-12-31"

	// MasterTokenType is the token type of master key signatures.
	MasterTokenType = "master"

	// TokenVersion is the signature scheme version.
	TokenVersion = "1.0"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "cosmos-client/1.0"

	// TokenExpirationBuffer is the buffer time before resource token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency and batching limits.
const (
	// DefaultConcurrencyLimit limits concurrent operations.
	DefaultConcurrencyLimit = 3

	// DefaultBatchTimeout bounds a single batch operation.
	DefaultBatchTimeout = 30 * time.Second
)

// Change feed polling.
const (
	// DefaultPollInterval is the starting interval between empty change feed pages.
	DefaultPollInterval = 2 * time.Second

	// MaxPollInterval caps the change feed polling backoff.
	MaxPollInterval = 30 * time.Second
)

// Cache constants.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = time.Minute
)

// Circuit breaker settings.
const (
	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// State and status constants.
const (
	// StatusClosed indicates a closed circuit.
	StatusClosed = "closed"

	// StatusOpen indicates an open state.
	StatusOpen = "open"

	// StatusHalfOpen indicates a half-open state.
	StatusHalfOpen = "half-open"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)

// Boolean string constants.
const (
	// BooleanTrue string representation.
	BooleanTrue = "true"
)
