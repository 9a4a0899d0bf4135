package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/cosmos-client/internal/http"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
)

const resourceDatabases = "dbs"

// DatabasesClient implements cosmos.DatabasesClient.
type DatabasesClient struct {
	httpClient *http.Client
}

// NewDatabasesClient creates a new databases client.
func NewDatabasesClient(httpClient *http.Client) *DatabasesClient {
	return &DatabasesClient{
		httpClient: httpClient,
	}
}

func databaseLink(id string) string {
	return resourceDatabases + "/" + id
}

// List implements cosmos.DatabasesClient.List.
func (c *DatabasesClient) List(ctx context.Context, options ...cosmos.HeaderAdder) (*cosmos.DatabaseList, error) {
	builder := cosmos.NewRequestBuilder("GET", resourceDatabases).
		Resource(resourceDatabases, "").
		With(options...)

	resp, err := c.httpClient.Do(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}

	var list cosmos.DatabaseList

	err = decode(resp, &list, "databases list")
	if err != nil {
		return nil, err
	}

	return &list, nil
}

// Get implements cosmos.DatabasesClient.Get.
func (c *DatabasesClient) Get(ctx context.Context, id string) (*cosmos.Database, error) {
	if id == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	link := databaseLink(id)

	resp, err := c.httpClient.Do(ctx, cosmos.NewRequestBuilder("GET", link).Resource(resourceDatabases, link))
	if err != nil {
		return nil, fmt.Errorf("getting database: %w", err)
	}

	var database cosmos.Database

	err = decode(resp, &database, "database")
	if err != nil {
		return nil, err
	}

	return &database, nil
}

// Create implements cosmos.DatabasesClient.Create.
func (c *DatabasesClient) Create(ctx context.Context, id string) (*cosmos.Database, error) {
	if id == "" {
		return nil, cosmos.ErrDatabaseRequired
	}

	builder := cosmos.NewRequestBuilder("POST", resourceDatabases).
		Resource(resourceDatabases, "").
		Body(map[string]string{"id": id})

	resp, err := c.httpClient.Do(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	var database cosmos.Database

	err = decode(resp, &database, "database response")
	if err != nil {
		return nil, err
	}

	return &database, nil
}

// Delete implements cosmos.DatabasesClient.Delete.
func (c *DatabasesClient) Delete(ctx context.Context, id string) error {
	if id == "" {
		return cosmos.ErrDatabaseRequired
	}

	link := databaseLink(id)

	_, err := c.httpClient.Do(ctx, cosmos.NewRequestBuilder("DELETE", link).Resource(resourceDatabases, link))
	if err != nil {
		return fmt.Errorf("deleting database: %w", err)
	}

	return nil
}
