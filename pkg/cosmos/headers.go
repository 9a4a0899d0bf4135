package cosmos

// Request and response header names used by the Cosmos DB REST API. The names
// are part of the service contract and are sent exactly as written here.
const (
	HeaderAuthorization     = "Authorization"
	HeaderDate              = "x-ms-date"
	HeaderVersion           = "x-ms-version"
	HeaderActivityID        = "x-ms-activity-id"
	HeaderContentType       = "Content-Type"
	HeaderAccept            = "Accept"
	HeaderUserAgent         = "User-Agent"
	HeaderIfMatch           = "If-Match"
	HeaderIfNoneMatch       = "If-None-Match"
	HeaderETag              = "ETag"
	HeaderAIM               = "A-IM"
	HeaderContinuation      = "x-ms-continuation"
	HeaderSessionToken      = "x-ms-session-token"
	HeaderMaxItemCount      = "x-ms-max-item-count"
	HeaderItemCount         = "x-ms-item-count"
	HeaderRequestCharge     = "x-ms-request-charge"
	HeaderConsistencyLevel  = "x-ms-consistency-level"
	HeaderIndexingDirective = "x-ms-indexing-directive"
	HeaderRetryAfterMs      = "x-ms-retry-after-ms"
)

// DocumentDB specific headers.
const (
	HeaderDocumentDBIsQuery                   = "x-ms-documentdb-isquery"
	HeaderDocumentDBIsUpsert                  = "x-ms-documentdb-is-upsert"
	HeaderDocumentDBPartitionKey              = "x-ms-documentdb-partitionkey"
	HeaderDocumentDBPartitionRangeID          = "x-ms-documentdb-partitionkeyrangeid"
	HeaderDocumentDBQueryEnableCrossPartition = "x-ms-documentdb-query-enablecrosspartition"
	HeaderAllowTentativeWrites                = "x-ms-cosmos-allow-tentative-writes"

	HeaderDocumentDBQueryParallelizeCrossPartition = "x-ms-documentdb-query-parallelizecrosspartitionquery"
)

// Content types understood by the service.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeQueryJSON = "application/query+json"
)
