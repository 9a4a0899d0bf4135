// Package cosmos provides types, interfaces, and helpers for working with the
// Azure Cosmos DB (SQL API) REST interface.
//
// # Overview
//
// The cosmos package defines the resource types (Database, Collection,
// PartitionKeyRange), the Document envelope that carries a user payload
// together with its system metadata, and the interfaces of the
// resource-oriented clients (DatabasesClient, CollectionsClient,
// DocumentsClient). A concrete implementation is provided by the
// cosmosclient package, which wires configuration, transport and request
// signing.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
//	  "github.com/fivetwenty-io/cosmos-client/pkg/cosmosclient"
//	)
//
//	type Order struct {
//	  Customer string  `json:"customer"`
//	  Total    float64 `json:"total"`
//	}
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := cosmosclient.New(ctx, &cosmos.Config{
//	    Endpoint:  "https://myaccount.documents.azure.com",
//	    MasterKey: masterKey,
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  orders := cli.Documents("shop", "orders")
//	  doc, err := cosmos.CreateDocument(ctx, orders,
//	    cosmos.NewDocument(Order{Customer: "c-1", Total: 12.5}).WithID("o-1"),
//	    cosmos.NewPartitionKeys("c-1"))
//	  if err != nil { log.Fatal(err) }
//	  log.Println(doc.URI(), doc.Payload.Total)
//	}
//
// # Documents
//
// On the wire a document is a single flat JSON object. Document[T] splits it
// into Attributes (id, _rid, _ts, _self, _etag, _attachments) and Payload, and
// merges them back when marshaling. DocumentFromResponse decodes a response
// body and fails with a ParseError when id or _self is missing.
//
// # Options
//
// Request options implement HeaderAdder and translate into request headers:
//
//	QueryCrossPartitionYes     x-ms-documentdb-query-enablecrosspartition: true
//	ParallelizeCrossPartitionYes x-ms-documentdb-query-parallelizecrosspartitionquery: true
//	IsUpsertYes                x-ms-documentdb-is-upsert: true
//	ChangeFeedIncremental      A-IM: Incremental feed
//	TentativeWritesAllow       x-ms-cosmos-allow-tentative-writes: true
//	NewPartitionRangeID("0")   x-ms-documentdb-partitionkeyrangeid: 0
//
// # Errors
//
// Service errors are represented by APIError. Helpers such as IsNotFound,
// IsConflict and IsPreconditionFailed branch on common status codes.
//
// # Interceptors, caching and batches
//
// The package also includes request/response interceptors (logging, metrics
// with request units, circuit breaking), a pluggable Cache with memory and
// NATS key-value backends, a BatchExecutor for concurrent document
// operations, and a ChangeFeedReader that polls a partition's change feed.
package cosmos
