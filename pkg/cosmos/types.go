package cosmos

// ResourceAttributes are the system properties shared by databases,
// collections and partition key ranges.
type ResourceAttributes struct {
	ID   string `json:"id"              yaml:"id"`
	Rid  string `json:"_rid,omitempty"  yaml:"_rid,omitempty"`
	Ts   int64  `json:"_ts,omitempty"   yaml:"_ts,omitempty"`
	Self string `json:"_self,omitempty" yaml:"_self,omitempty"`
	ETag string `json:"_etag,omitempty" yaml:"_etag,omitempty"`
}

// URI implements Resource.
func (r ResourceAttributes) URI() string {
	return r.Self
}

// Database represents a database resource.
type Database struct {
	ResourceAttributes `yaml:",inline"`

	Colls string `json:"_colls,omitempty" yaml:"_colls,omitempty"`
	Users string `json:"_users,omitempty" yaml:"_users,omitempty"`
}

// DatabaseList is the response of a database feed.
type DatabaseList struct {
	Rid       string     `json:"_rid,omitempty" yaml:"_rid,omitempty"`
	Databases []Database `json:"Databases"      yaml:"databases"`
	Count     int        `json:"_count"         yaml:"count"`
}

// PartitionKeyDefinition describes how a collection is partitioned.
type PartitionKeyDefinition struct {
	Paths   []string `json:"paths"             yaml:"paths"`
	Kind    string   `json:"kind"              yaml:"kind"`
	Version int      `json:"version,omitempty" yaml:"version,omitempty"`
}

// IndexingPolicy is the indexing configuration of a collection.
type IndexingPolicy struct {
	Automatic    bool   `json:"automatic"    yaml:"automatic"`
	IndexingMode string `json:"indexingMode" yaml:"indexing_mode"`
}

// Collection represents a document collection (container).
type Collection struct {
	ResourceAttributes `yaml:",inline"`

	PartitionKey   *PartitionKeyDefinition `json:"partitionKey,omitempty"   yaml:"partition_key,omitempty"`
	IndexingPolicy *IndexingPolicy         `json:"indexingPolicy,omitempty" yaml:"indexing_policy,omitempty"`
	Docs           string                  `json:"_docs,omitempty"          yaml:"_docs,omitempty"`
}

// CollectionCreateRequest is the body of a collection create.
type CollectionCreateRequest struct {
	ID           string                  `json:"id"                     yaml:"id"`
	PartitionKey *PartitionKeyDefinition `json:"partitionKey,omitempty" yaml:"partition_key,omitempty"`
}

// CollectionList is the response of a collection feed.
type CollectionList struct {
	Rid         string       `json:"_rid,omitempty"      yaml:"_rid,omitempty"`
	Collections []Collection `json:"DocumentCollections" yaml:"collections"`
	Count       int          `json:"_count"              yaml:"count"`
}

// PartitionKeyRange is one physical partition of a collection.
type PartitionKeyRange struct {
	ResourceAttributes `yaml:",inline"`

	MinInclusive string   `json:"minInclusive" yaml:"min_inclusive"`
	MaxExclusive string   `json:"maxExclusive" yaml:"max_exclusive"`
	Parents      []string `json:"parents"      yaml:"parents"`
}

// PartitionKeyRangeList is the response of a partition key range feed.
type PartitionKeyRangeList struct {
	Rid    string              `json:"_rid,omitempty"     yaml:"_rid,omitempty"`
	Ranges []PartitionKeyRange `json:"PartitionKeyRanges" yaml:"ranges"`
	Count  int                 `json:"_count"             yaml:"count"`
}
