package cosmos

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// HeaderAdder is implemented by every request option. AddAsHeader contributes
// the option's header to the builder and returns it. Options are independent
// of one another and may be applied in any order.
//
// Values are passed through as given. Non-ASCII or control characters are
// not rejected here; the transport refuses invalid header values when the
// request is sent.
type HeaderAdder interface {
	AddAsHeader(builder *RequestBuilder) *RequestBuilder
}

const (
	headerTrue  = "true"
	headerFalse = "false"
)

func boolString(value bool) string {
	if value {
		return headerTrue
	}

	return headerFalse
}

// QueryCrossPartition controls whether a query may fan out across partitions.
type QueryCrossPartition int

const (
	QueryCrossPartitionNo QueryCrossPartition = iota
	QueryCrossPartitionYes
)

// AddAsHeader implements HeaderAdder.
func (o QueryCrossPartition) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	return builder.Header(HeaderDocumentDBQueryEnableCrossPartition, boolString(o == QueryCrossPartitionYes))
}

// ParallelizeCrossPartition controls parallel execution of cross-partition queries.
type ParallelizeCrossPartition int

const (
	ParallelizeCrossPartitionNo ParallelizeCrossPartition = iota
	ParallelizeCrossPartitionYes
)

// AddAsHeader implements HeaderAdder.
func (o ParallelizeCrossPartition) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	return builder.Header(HeaderDocumentDBQueryParallelizeCrossPartition, boolString(o == ParallelizeCrossPartitionYes))
}

// IsUpsert turns a document create into an insert-or-replace.
type IsUpsert int

const (
	IsUpsertNo IsUpsert = iota
	IsUpsertYes
)

// AddAsHeader implements HeaderAdder.
func (o IsUpsert) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	return builder.Header(HeaderDocumentDBIsUpsert, boolString(o == IsUpsertYes))
}

// ChangeFeed selects incremental change feed reads. ChangeFeedNone adds no header.
type ChangeFeed int

const (
	ChangeFeedNone ChangeFeed = iota
	ChangeFeedIncremental
)

// ChangeFeedIncrementalValue is the A-IM value requesting an incremental feed.
const ChangeFeedIncrementalValue = "Incremental feed"

// AddAsHeader implements HeaderAdder.
func (o ChangeFeed) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o != ChangeFeedIncremental {
		return builder
	}

	return builder.Header(HeaderAIM, ChangeFeedIncrementalValue)
}

// TentativeWritesAllowance allows writes against a non-primary region on
// multi-write accounts.
type TentativeWritesAllowance int

const (
	TentativeWritesDeny TentativeWritesAllowance = iota
	TentativeWritesAllow
)

// AddAsHeader implements HeaderAdder.
func (o TentativeWritesAllowance) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	return builder.Header(HeaderAllowTentativeWrites, boolString(o == TentativeWritesAllow))
}

// PartitionRangeID targets a single partition key range.
type PartitionRangeID string

// NewPartitionRangeID wraps a partition key range id.
func NewPartitionRangeID(id string) PartitionRangeID {
	return PartitionRangeID(id)
}

// AddAsHeader implements HeaderAdder.
func (o PartitionRangeID) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	return builder.Header(HeaderDocumentDBPartitionRangeID, string(o))
}

// IndexingDirective overrides the collection's indexing policy for one write.
type IndexingDirective int

const (
	IndexingDirectiveDefault IndexingDirective = iota
	IndexingDirectiveInclude
	IndexingDirectiveExclude
)

// AddAsHeader implements HeaderAdder.
func (o IndexingDirective) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	switch o {
	case IndexingDirectiveInclude:
		return builder.Header(HeaderIndexingDirective, "Include")
	case IndexingDirectiveExclude:
		return builder.Header(HeaderIndexingDirective, "Exclude")
	default:
		return builder
	}
}

// ConsistencyLevel relaxes the account consistency for one request.
type ConsistencyLevel string

const (
	ConsistencyStrong           ConsistencyLevel = "Strong"
	ConsistencyBounded          ConsistencyLevel = "Bounded"
	ConsistencySession          ConsistencyLevel = "Session"
	ConsistencyEventual         ConsistencyLevel = "Eventual"
	ConsistencyConsistentPrefix ConsistencyLevel = "ConsistentPrefix"
)

// AddAsHeader implements HeaderAdder.
func (o ConsistencyLevel) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o == "" {
		return builder
	}

	return builder.Header(HeaderConsistencyLevel, string(o))
}

// MaxItemCount limits the page size of feed and query responses. Values of
// zero or less ask the service for its default page size.
type MaxItemCount int

// AddAsHeader implements HeaderAdder.
func (o MaxItemCount) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o <= 0 {
		return builder.Header(HeaderMaxItemCount, "-1")
	}

	return builder.Header(HeaderMaxItemCount, strconv.Itoa(int(o)))
}

// Continuation resumes a paged feed or query. An empty token adds nothing.
type Continuation string

// AddAsHeader implements HeaderAdder.
func (o Continuation) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o == "" {
		return builder
	}

	return builder.Header(HeaderContinuation, string(o))
}

// SessionToken carries a session token for session consistency. An empty
// token adds nothing.
type SessionToken string

// AddAsHeader implements HeaderAdder.
func (o SessionToken) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o == "" {
		return builder
	}

	return builder.Header(HeaderSessionToken, string(o))
}

// PartitionKeys holds the partition key value of the target document,
// encoded as a JSON array.
type PartitionKeys []interface{}

// NewPartitionKeys builds a partition key header value from its components.
func NewPartitionKeys(values ...interface{}) PartitionKeys {
	return PartitionKeys(values)
}

// Encode returns the header value. A nil key encodes as [].
func (o PartitionKeys) Encode() (string, error) {
	values := []interface{}(o)
	if values == nil {
		values = []interface{}{}
	}

	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPartitionKey, err)
	}

	return string(encoded), nil
}

// AddAsHeader implements HeaderAdder. A key that cannot be encoded fails the
// request instead of adding a header.
func (o PartitionKeys) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	encoded, err := o.Encode()
	if err != nil {
		return builder.Fail(err)
	}

	return builder.Header(HeaderDocumentDBPartitionKey, encoded)
}

// IfMatchCondition makes a request conditional on a document's ETag.
type IfMatchCondition struct {
	NoneMatch bool
	ETag      string
}

// IfMatch returns a condition that succeeds only when the ETag matches.
func IfMatch(etag string) IfMatchCondition {
	return IfMatchCondition{ETag: etag}
}

// IfNoneMatch returns a condition that succeeds only when the ETag differs.
func IfNoneMatch(etag string) IfMatchCondition {
	return IfMatchCondition{NoneMatch: true, ETag: etag}
}

// AddAsHeader implements HeaderAdder.
func (o IfMatchCondition) AddAsHeader(builder *RequestBuilder) *RequestBuilder {
	if o.ETag == "" {
		return builder
	}

	if o.NoneMatch {
		return builder.Header(HeaderIfNoneMatch, o.ETag)
	}

	return builder.Header(HeaderIfMatch, o.ETag)
}
