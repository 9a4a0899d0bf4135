package constants

import "errors"

// Configuration errors.
var (
	ErrNoEndpointConfigured = errors.New("no endpoint configured, use 'cosmos config set endpoint <url>'")
	ErrNoKeyConfigured      = errors.New("no master key or resource token configured, use 'cosmos config set-key'")
	ErrUnknownConfigKey     = errors.New("unknown configuration key")
	ErrEmptyKey             = errors.New("key must not be empty")
)

// Command errors.
var (
	ErrUnsupportedOutput   = errors.New("unsupported output format")
	ErrPartitionKeyInvalid = errors.New("partition key must be a JSON value")
	ErrDocumentInvalid     = errors.New("document must be a JSON object")
	ErrNoInput             = errors.New("no document given, pass --file or --data")
)
