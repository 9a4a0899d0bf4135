package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cosmos-client/internal/http"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
)

const (
	resourceCollections        = "colls"
	resourcePartitionKeyRanges = "pkranges"
)

// CollectionsClient implements cosmos.CollectionsClient.
type CollectionsClient struct {
	httpClient *http.Client
	database   string
}

// NewCollectionsClient creates a client for the collections of database.
func NewCollectionsClient(httpClient *http.Client, database string) *CollectionsClient {
	return &CollectionsClient{
		httpClient: httpClient,
		database:   database,
	}
}

func (c *CollectionsClient) collectionLink(id string) string {
	return databaseLink(c.database) + "/" + resourceCollections + "/" + id
}

// List implements cosmos.CollectionsClient.List.
func (c *CollectionsClient) List(ctx context.Context, options ...cosmos.HeaderAdder) (*cosmos.CollectionList, error) {
	if c.database == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	parent := databaseLink(c.database)
	builder := cosmos.NewRequestBuilder("GET", parent+"/"+resourceCollections).
		Resource(resourceCollections, parent).
		With(options...)

	resp, err := c.httpClient.Do(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	var list cosmos.CollectionList

	err = decode(resp, &list, "collections list")
	if err != nil {
		return nil, err
	}

	return &list, nil
}

// Get implements cosmos.CollectionsClient.Get.
func (c *CollectionsClient) Get(ctx context.Context, id string) (*cosmos.Collection, error) {
	if c.database == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	if id == "" {
		return nil, cosmos.ErrCollectionRequired
	}

	link := c.collectionLink(id)

	resp, err := c.httpClient.Do(ctx, cosmos.NewRequestBuilder("GET", link).Resource(resourceCollections, link))
	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}

	var collection cosmos.Collection

	err = decode(resp, &collection, "collection")
	if err != nil {
		return nil, err
	}

	return &collection, nil
}

// Create implements cosmos.CollectionsClient.Create.
func (c *CollectionsClient) Create(ctx context.Context, request *cosmos.CollectionCreateRequest) (*cosmos.Collection, error) {
	if c.database == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	if request == nil || request.ID == "" {
		return nil, cosmos.ErrCollectionRequired
	}

	parent := databaseLink(c.database)
	builder := cosmos.NewRequestBuilder("POST", parent+"/"+resourceCollections).
		Resource(resourceCollections, parent).
		Body(request)

	resp, err := c.httpClient.Do(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	var collection cosmos.Collection

	err = decode(resp, &collection, "collection response")
	if err != nil {
		return nil, err
	}

	return &collection, nil
}

// Delete implements cosmos.CollectionsClient.Delete.
func (c *CollectionsClient) Delete(ctx context.Context, id string) error {
	if c.database == "" {
		return cosmos.ErrDatabaseRequired
	}

	if id == "" {
		return cosmos.ErrCollectionRequired
	}

	link := c.collectionLink(id)

	_, err := c.httpClient.Do(ctx, cosmos.NewRequestBuilder("DELETE", link).Resource(resourceCollections, link))
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}

	return nil
}

// PartitionKeyRanges implements cosmos.CollectionsClient.PartitionKeyRanges.
func (c *CollectionsClient) PartitionKeyRanges(ctx context.Context, id string, options ...cosmos.HeaderAdder) (*cosmos.PartitionKeyRangeList, error) {
	if c.database == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	if id == "" {
		return nil, cosmos.ErrCollectionRequired
	}

	link := c.collectionLink(id)
	builder := cosmos.NewRequestBuilder("GET", link+"/"+resourcePartitionKeyRanges).
		Resource(resourcePartitionKeyRanges, link).
		With(options...)

	resp, err := c.httpClient.Do(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("listing partition key ranges: %w", err)
	}

	var list cosmos.PartitionKeyRangeList

	err = decode(resp, &list, "partition key ranges")
	if err != nil {
		return nil, err
	}

	return &list, nil
}
