package cosmos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/hashicorp/go-multierror"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// Memory cache configuration
	Memory *MemoryCacheConfig

	// NATS KV cache configuration
	NATS *NATSKVConfig

	// Common options applied to any backend. If nil, DefaultCacheOptions() is used.
	Options *CacheOptions
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(config.Memory)

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		shared, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		return withMemoryL1(config.Memory, shared), nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) (Cache, error) {
	if config == nil {
		config = &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		}
	}

	return NewMemoryCache(config.MaxSize), nil
}

// withMemoryL1 puts a process-local memory cache in front of a shared one.
// Entries copied into L1 keep their expiry, so the cache TTL bounds how long
// L1 can lag behind writes made by other processes.
func withMemoryL1(config *MemoryCacheConfig, shared Cache) *CacheChain {
	size := constants.DefaultCacheSize
	if config != nil && config.MaxSize > 0 {
		size = config.MaxSize
	}

	return NewCacheChain(NewMemoryCache(size), shared)
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheBuilder helps build cache configurations.
type CacheBuilder struct {
	config *CacheConfig
}

// NewCacheBuilder creates a new cache builder.
func NewCacheBuilder() *CacheBuilder {
	return &CacheBuilder{
		config: &CacheConfig{
			Type:    CacheTypeMemory,
			Options: DefaultCacheOptions(),
		},
	}
}

// WithType sets the cache type.
func (b *CacheBuilder) WithType(cacheType CacheType) *CacheBuilder {
	b.config.Type = cacheType

	return b
}

// WithMemoryConfig sets memory cache configuration.
func (b *CacheBuilder) WithMemoryConfig(maxSize int) *CacheBuilder {
	b.config.Memory = &MemoryCacheConfig{
		MaxSize: maxSize,
	}

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *CacheBuilder) WithNATSConfig(config *NATSKVConfig) *CacheBuilder {
	b.config.NATS = config

	return b
}

// WithOptions sets cache options.
func (b *CacheBuilder) WithOptions(options *CacheOptions) *CacheBuilder {
	b.config.Options = options

	return b
}

// Config returns the configuration built so far.
func (b *CacheBuilder) Config() *CacheConfig {
	return b.config
}

// Build creates the cache from the configuration.
func (b *CacheBuilder) Build() (Cache, error) {
	return NewCacheFromConfig(b.config)
}

// CacheChain layers caches from fastest to slowest. With cache type nats it
// holds a memory L1 in front of the shared bucket.
type CacheChain struct {
	layers []Cache
}

// NewCacheChain layers the given caches, first one consulted first.
func NewCacheChain(layers ...Cache) *CacheChain {
	return &CacheChain{layers: layers}
}

// Layers returns the caches in lookup order.
func (c *CacheChain) Layers() []Cache {
	return append([]Cache(nil), c.layers...)
}

// Get returns the entry from the first layer holding key and copies it into
// the layers consulted before it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for depth, layer := range c.layers {
		entry, err := layer.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, upper := range c.layers[:depth] {
			_ = upper.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set writes entry to every layer. Failing layers are reported together.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(layer Cache) error { return layer.Set(ctx, key, entry) })
}

// Delete removes key from every layer.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(layer Cache) error { return layer.Delete(ctx, key) })
}

// Clear empties every layer.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(layer Cache) error { return layer.Clear(ctx) })
}

// Has reports whether any layer holds key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, layer := range c.layers {
		if layer.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close closes the layers that hold connections.
func (c *CacheChain) Close() {
	for _, layer := range c.layers {
		if closer, ok := layer.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (c *CacheChain) each(apply func(Cache) error) error {
	var result *multierror.Error

	for _, layer := range c.layers {
		if err := apply(layer); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// CachedDocuments wraps a DocumentsClient with a read-through cache. Entries
// are keyed by document id and partition key, so reads of partitioned
// collections are cached as long as their only option is the partition key.
// Reads with any other option go to the service. Writes through the wrapper
// invalidate the document's entry.
type CachedDocuments struct {
	DocumentsClient

	cache  Cache
	prefix string
	ttl    time.Duration
}

// NewCachedDocuments wraps docs. prefix namespaces keys, typically
// "dbs/{db}/colls/{coll}".
func NewCachedDocuments(docs DocumentsClient, cache Cache, prefix string, options *CacheOptions) *CachedDocuments {
	if options == nil {
		options = DefaultCacheOptions()
	}

	return &CachedDocuments{
		DocumentsClient: docs,
		cache:           cache,
		prefix:          prefix,
		ttl:             options.TTL,
	}
}

// key returns the entry key for id within the partition named by options.
// It reports false when options carry more than one partition key or one
// that cannot be encoded.
func (c *CachedDocuments) key(id string, options []HeaderAdder) (string, bool) {
	key := c.prefix + "/docs/" + id
	seen := false

	for _, option := range options {
		partitionKey, ok := option.(PartitionKeys)
		if !ok {
			continue
		}

		encoded, err := partitionKey.Encode()
		if err != nil || seen {
			return "", false
		}

		key += "?pk=" + encoded
		seen = true
	}

	return key, true
}

// cacheable reports whether a read with options may be served from cache.
func cacheable(options []HeaderAdder) bool {
	for _, option := range options {
		switch option.(type) {
		case nil, PartitionKeys:
		default:
			return false
		}
	}

	return true
}

// Get implements DocumentsClient.
func (c *CachedDocuments) Get(ctx context.Context, id string, options ...HeaderAdder) (*Response, error) {
	key, ok := c.key(id, options)
	if !ok || !cacheable(options) {
		return c.DocumentsClient.Get(ctx, id, options...)
	}

	entry, err := c.cache.Get(ctx, key)
	if err == nil {
		headers := make(http.Header)
		if entry.ETag != "" {
			headers.Set(HeaderETag, entry.ETag)
		}

		return &Response{StatusCode: http.StatusOK, Headers: headers, Body: entry.Body}, nil
	}

	resp, err := c.DocumentsClient.Get(ctx, id, options...)
	if err != nil {
		return resp, err
	}

	entry = &CacheEntry{Body: resp.Body, ETag: ETagOf(resp.Headers)}
	if c.ttl > 0 {
		entry.ExpiresAt = time.Now().Add(c.ttl)
	}

	_ = c.cache.Set(ctx, key, entry)

	return resp, nil
}

// Create implements DocumentsClient. Upserts may overwrite a cached
// document, so every create invalidates the id it carries.
func (c *CachedDocuments) Create(ctx context.Context, document interface{}, options ...HeaderAdder) (*Response, error) {
	resp, err := c.DocumentsClient.Create(ctx, document, options...)
	if err == nil {
		if id := documentID(resp); id != "" {
			c.invalidate(ctx, id, options)
		}
	}

	return resp, err
}

// Replace implements DocumentsClient.
func (c *CachedDocuments) Replace(ctx context.Context, id string, document interface{}, options ...HeaderAdder) (*Response, error) {
	c.invalidate(ctx, id, options)

	return c.DocumentsClient.Replace(ctx, id, document, options...)
}

// Delete implements DocumentsClient.
func (c *CachedDocuments) Delete(ctx context.Context, id string, options ...HeaderAdder) (*Response, error) {
	c.invalidate(ctx, id, options)

	return c.DocumentsClient.Delete(ctx, id, options...)
}

func (c *CachedDocuments) invalidate(ctx context.Context, id string, options []HeaderAdder) {
	if key, ok := c.key(id, options); ok {
		_ = c.cache.Delete(ctx, key)
	}
}

func documentID(resp *Response) string {
	if resp == nil {
		return ""
	}

	var attributes DocumentAttributes

	err := json.Unmarshal(resp.Body, &attributes)
	if err != nil {
		return ""
	}

	return attributes.ID
}
