package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cosmos-client/internal/http"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
)

const resourceDocuments = "docs"

// DocumentsClient implements cosmos.DocumentsClient.
type DocumentsClient struct {
	httpClient *http.Client
	database   string
	collection string
	link       string
	defaults   []cosmos.HeaderAdder
}

// NewDocumentsClient creates a client for the documents of one collection.
// defaults are applied to every request unless the call sets the same header.
func NewDocumentsClient(httpClient *http.Client, database, collection string, defaults ...cosmos.HeaderAdder) *DocumentsClient {
	return &DocumentsClient{
		httpClient: httpClient,
		database:   database,
		collection: collection,
		link:       databaseLink(database) + "/" + resourceCollections + "/" + collection,
		defaults:   defaults,
	}
}

func (c *DocumentsClient) validate() error {
	if c.database == "" {
		return cosmos.ErrDatabaseRequired
	}

	if c.collection == "" {
		return cosmos.ErrCollectionRequired
	}

	return nil
}

func (c *DocumentsClient) documentLink(id string) string {
	return c.link + "/" + resourceDocuments + "/" + id
}

// feedRequest addresses the collection's document feed.
func (c *DocumentsClient) feedRequest(method string) *cosmos.RequestBuilder {
	return cosmos.NewRequestBuilder(method, c.link+"/"+resourceDocuments).
		Resource(resourceDocuments, c.link)
}

// itemRequest addresses one document.
func (c *DocumentsClient) itemRequest(method, id string) *cosmos.RequestBuilder {
	link := c.documentLink(id)

	return cosmos.NewRequestBuilder(method, link).Resource(resourceDocuments, link)
}

func (c *DocumentsClient) do(ctx context.Context, builder *cosmos.RequestBuilder, options []cosmos.HeaderAdder) (*cosmos.Response, error) {
	builder.With(options...)
	applyDefaults(builder, c.defaults)

	return c.httpClient.Do(ctx, builder)
}

// applyDefaults adds the headers of defaults that builder does not carry yet.
func applyDefaults(builder *cosmos.RequestBuilder, defaults []cosmos.HeaderAdder) {
	if len(defaults) == 0 {
		return
	}

	headers := cosmos.NewRequestBuilder("", "").With(defaults...).Headers()
	for name, values := range headers {
		if len(builder.HeaderValues(name)) > 0 {
			continue
		}

		for _, value := range values {
			builder.Header(name, value)
		}
	}
}

// Create implements cosmos.DocumentsClient.Create.
func (c *DocumentsClient) Create(ctx context.Context, document interface{}, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, c.feedRequest("POST").Body(document), options)
	if err != nil {
		return resp, fmt.Errorf("creating document: %w", err)
	}

	return resp, nil
}

// Get implements cosmos.DocumentsClient.Get.
func (c *DocumentsClient) Get(ctx context.Context, id string, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, cosmos.ErrDocumentIDRequired
	}

	resp, err := c.do(ctx, c.itemRequest("GET", id), options)
	if err != nil {
		return resp, fmt.Errorf("getting document: %w", err)
	}

	return resp, nil
}

// Replace implements cosmos.DocumentsClient.Replace.
func (c *DocumentsClient) Replace(ctx context.Context, id string, document interface{}, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, cosmos.ErrDocumentIDRequired
	}

	resp, err := c.do(ctx, c.itemRequest("PUT", id).Body(document), options)
	if err != nil {
		return resp, fmt.Errorf("replacing document: %w", err)
	}

	return resp, nil
}

// Delete implements cosmos.DocumentsClient.Delete.
func (c *DocumentsClient) Delete(ctx context.Context, id string, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, cosmos.ErrDocumentIDRequired
	}

	resp, err := c.do(ctx, c.itemRequest("DELETE", id), options)
	if err != nil {
		return resp, fmt.Errorf("deleting document: %w", err)
	}

	return resp, nil
}

// List implements cosmos.DocumentsClient.List. With ChangeFeedIncremental
// among the options it reads the change feed instead.
func (c *DocumentsClient) List(ctx context.Context, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, c.feedRequest("GET"), options)
	if err != nil {
		return resp, fmt.Errorf("listing documents: %w", err)
	}

	return resp, nil
}

// Query implements cosmos.DocumentsClient.Query.
func (c *DocumentsClient) Query(ctx context.Context, query *cosmos.Query, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	err := c.validate()
	if err != nil {
		return nil, err
	}

	if query == nil {
		return nil, cosmos.ErrQueryRequired
	}

	builder := c.feedRequest("POST").
		Header(cosmos.HeaderDocumentDBIsQuery, "True").
		Header(cosmos.HeaderContentType, cosmos.ContentTypeQueryJSON).
		Body(query)

	resp, err := c.do(ctx, builder, options)
	if err != nil {
		return resp, fmt.Errorf("querying documents: %w", err)
	}

	return resp, nil
}
