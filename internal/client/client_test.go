package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	internalhttp "github.com/fivetwenty-io/cosmos-client/internal/http"
	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "dsZQi3KtZmCv1ljt3VNWNm7sQUF1y5rJfC6kv5JiwvW0EndXdDku/dkKBp8/ufDToSxLzR4y+O/0H/t4bQtVNw=="

type order struct {
	Customer string  `json:"customer"`
	Total    float64 `json:"total"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &cosmos.Config{MasterKey: testMasterKey})
		require.ErrorIs(t, err, ErrEndpointRequired)
	})

	t.Run("rejects malformed master key", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &cosmos.Config{Endpoint: "https://example.com", MasterKey: "%%%"})
		require.Error(t, err)
	})

	t.Run("signs requests with master key", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Authorization"), "type%3Dmaster%26ver%3D1.0%26sig%3D")
			writeJSON(t, w, http.StatusOK, cosmos.DatabaseList{})
		}))
		defer server.Close()

		client, err := New(context.Background(), &cosmos.Config{Endpoint: server.URL, MasterKey: testMasterKey})
		require.NoError(t, err)

		_, err = client.Databases().List(context.Background())
		require.NoError(t, err)
	})

	t.Run("sends resource token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "type%3Dresource%26ver%3D1.0%26sig%3Dabc", r.Header.Get("Authorization"))
			writeJSON(t, w, http.StatusOK, cosmos.DatabaseList{})
		}))
		defer server.Close()

		client, err := New(context.Background(), &cosmos.Config{
			Endpoint:      server.URL,
			ResourceToken: "type=resource&ver=1.0&sig=abc",
		})
		require.NoError(t, err)

		_, err = client.Databases().List(context.Background())
		require.NoError(t, err)
	})

	t.Run("unknown cache type", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &cosmos.Config{
			Endpoint:  "https://example.com",
			MasterKey: testMasterKey,
			Cache:     &cosmos.CacheConfig{Type: "redis"},
		})
		require.ErrorIs(t, err, cosmos.ErrUnsupportedCacheType)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestDatabasesClient(t *testing.T) {
	t.Parallel()

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs", r.URL.Path)
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "5", r.Header.Get("x-ms-max-item-count"))

			writeJSON(t, w, http.StatusOK, map[string]interface{}{
				"_rid":      "",
				"Databases": []map[string]interface{}{{"id": "shop", "_self": "dbs/AAA=/"}},
				"_count":    1,
			})
		}))
		defer server.Close()

		databases := NewDatabasesClient(internalhttp.NewClient(server.URL, nil))

		list, err := databases.List(context.Background(), cosmos.MaxItemCount(5))
		require.NoError(t, err)
		require.Len(t, list.Databases, 1)
		assert.Equal(t, "shop", list.Databases[0].ID)
		assert.Equal(t, "dbs/AAA=/", list.Databases[0].URI())
		assert.Equal(t, 1, list.Count)
	})

	t.Run("create", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			var body map[string]string

			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "shop", body["id"])

			writeJSON(t, w, http.StatusCreated, map[string]interface{}{"id": "shop", "_rid": "AAA=", "_self": "dbs/AAA=/"})
		}))
		defer server.Close()

		databases := NewDatabasesClient(internalhttp.NewClient(server.URL, nil))

		database, err := databases.Create(context.Background(), "shop")
		require.NoError(t, err)
		assert.Equal(t, "AAA=", database.Rid)
	})

	t.Run("get not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/missing", r.URL.Path)
			writeJSON(t, w, http.StatusNotFound, map[string]string{"code": "NotFound", "message": "missing"})
		}))
		defer server.Close()

		databases := NewDatabasesClient(internalhttp.NewClient(server.URL, nil))

		_, err := databases.Get(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, cosmos.IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop", r.URL.Path)
			assert.Equal(t, "DELETE", r.Method)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		databases := NewDatabasesClient(internalhttp.NewClient(server.URL, nil))

		require.NoError(t, databases.Delete(context.Background(), "shop"))
		require.ErrorIs(t, databases.Delete(context.Background(), ""), cosmos.ErrDatabaseRequired)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCollectionsClient(t *testing.T) {
	t.Parallel()

	t.Run("create", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			var body cosmos.CollectionCreateRequest

			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "orders", body.ID)
			assert.Equal(t, []string{"/customer"}, body.PartitionKey.Paths)

			writeJSON(t, w, http.StatusCreated, map[string]interface{}{
				"id":           "orders",
				"_self":        "dbs/AAA=/colls/BBB=/",
				"partitionKey": map[string]interface{}{"paths": []string{"/customer"}, "kind": "Hash"},
			})
		}))
		defer server.Close()

		collections := NewCollectionsClient(internalhttp.NewClient(server.URL, nil), "shop")

		collection, err := collections.Create(context.Background(), &cosmos.CollectionCreateRequest{
			ID:           "orders",
			PartitionKey: &cosmos.PartitionKeyDefinition{Paths: []string{"/customer"}, Kind: "Hash"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hash", collection.PartitionKey.Kind)
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls", r.URL.Path)
			writeJSON(t, w, http.StatusOK, map[string]interface{}{
				"DocumentCollections": []map[string]interface{}{{"id": "orders"}, {"id": "customers"}},
				"_count":              2,
			})
		}))
		defer server.Close()

		collections := NewCollectionsClient(internalhttp.NewClient(server.URL, nil), "shop")

		list, err := collections.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, list.Collections, 2)
	})

	t.Run("partition key ranges", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls/orders/pkranges", r.URL.Path)
			writeJSON(t, w, http.StatusOK, map[string]interface{}{
				"PartitionKeyRanges": []map[string]interface{}{
					{"id": "0", "minInclusive": "", "maxExclusive": "7F"},
					{"id": "1", "minInclusive": "7F", "maxExclusive": "FF"},
				},
				"_count": 2,
			})
		}))
		defer server.Close()

		collections := NewCollectionsClient(internalhttp.NewClient(server.URL, nil), "shop")

		ranges, err := collections.PartitionKeyRanges(context.Background(), "orders")
		require.NoError(t, err)
		require.Len(t, ranges.Ranges, 2)
		assert.Equal(t, "7F", ranges.Ranges[1].MinInclusive)
	})

	t.Run("requires database", func(t *testing.T) {
		t.Parallel()

		collections := NewCollectionsClient(internalhttp.NewClient("http://127.0.0.1:0", nil), "")

		_, err := collections.List(context.Background())
		require.ErrorIs(t, err, cosmos.ErrDatabaseRequired)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestDocumentsClient(t *testing.T) {
	t.Parallel()

	t.Run("upsert through generic helper", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls/orders/docs", r.URL.Path)
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "true", r.Header.Get("x-ms-documentdb-is-upsert"))
			assert.Equal(t, `["c-1"]`, r.Header.Get("x-ms-documentdb-partitionkey"))

			var body map[string]interface{}

			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "o-1", body["id"])
			assert.Equal(t, "c-1", body["customer"])

			body["_self"] = "dbs/AAA=/colls/BBB=/docs/CCC=/"
			body["_etag"] = `"0100"`
			writeJSON(t, w, http.StatusCreated, body)
		}))
		defer server.Close()

		documents := NewDocumentsClient(internalhttp.NewClient(server.URL, nil), "shop", "orders")

		doc, err := cosmos.UpsertDocument(context.Background(), documents,
			cosmos.NewDocument(order{Customer: "c-1", Total: 3}).WithID("o-1"),
			cosmos.NewPartitionKeys("c-1"))
		require.NoError(t, err)
		assert.Equal(t, "dbs/AAA=/colls/BBB=/docs/CCC=/", doc.URI())
		assert.Equal(t, `"0100"`, doc.Attributes.ETag)
		assert.InDelta(t, 3.0, doc.Payload.Total, 0.0001)
	})

	t.Run("replace is conditional on etag", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls/orders/docs/o-1", r.URL.Path)
			assert.Equal(t, "PUT", r.Method)
			assert.Equal(t, `"0100"`, r.Header.Get("If-Match"))
			writeJSON(t, w, http.StatusPreconditionFailed, map[string]string{"code": "PreconditionFailed", "message": "etag mismatch"})
		}))
		defer server.Close()

		documents := NewDocumentsClient(internalhttp.NewClient(server.URL, nil), "shop", "orders")

		doc := cosmos.NewDocument(order{Customer: "c-1"}).WithID("o-1")
		doc.Attributes.ETag = `"0100"`

		_, err := cosmos.ReplaceDocument(context.Background(), documents, doc)
		require.Error(t, err)
		assert.True(t, cosmos.IsPreconditionFailed(err))
	})

	t.Run("query", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "True", r.Header.Get("x-ms-documentdb-isquery"))
			assert.Equal(t, "application/query+json", r.Header.Get("Content-Type"))
			assert.Equal(t, "true", r.Header.Get("x-ms-documentdb-query-enablecrosspartition"))

			data, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"query":"SELECT * FROM c WHERE c.customer = @customer","parameters":[{"name":"@customer","value":"c-1"}]}`, string(data))

			w.Header().Set("x-ms-continuation", "next")
			writeJSON(t, w, http.StatusOK, map[string]interface{}{
				"Documents": []map[string]interface{}{
					{"id": "o-1", "_self": "s1", "customer": "c-1", "total": 1},
					{"id": "o-2", "_self": "s2", "customer": "c-1", "total": 2},
				},
				"_count": 2,
			})
		}))
		defer server.Close()

		documents := NewDocumentsClient(internalhttp.NewClient(server.URL, nil), "shop", "orders")

		query := cosmos.NewQuery("SELECT * FROM c WHERE c.customer = @customer").WithParameter("@customer", "c-1")

		page, err := cosmos.QueryDocuments[order](context.Background(), documents, query, cosmos.QueryCrossPartitionYes)
		require.NoError(t, err)
		require.Len(t, page.Documents, 2)
		assert.Equal(t, "o-2", page.Documents[1].ID())
		assert.Equal(t, "next", page.Continuation)
	})

	t.Run("default consistency level", func(t *testing.T) {
		t.Parallel()

		var levels []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			levels = append(levels, r.Header.Get("x-ms-consistency-level"))
			writeJSON(t, w, http.StatusOK, map[string]interface{}{"id": "o-1", "_self": "s1"})
		}))
		defer server.Close()

		documents := NewDocumentsClient(internalhttp.NewClient(server.URL, nil), "shop", "orders", cosmos.ConsistencySession)

		_, err := documents.Get(context.Background(), "o-1")
		require.NoError(t, err)

		_, err = documents.Get(context.Background(), "o-1", cosmos.ConsistencyEventual)
		require.NoError(t, err)

		assert.Equal(t, []string{"Session", "Eventual"}, levels)
	})

	t.Run("document ids are escaped", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dbs/shop/colls/orders/docs/order%201", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		documents := NewDocumentsClient(internalhttp.NewClient(server.URL, nil), "shop", "orders")

		require.NoError(t, cosmos.DeleteDocument(context.Background(), documents, "order 1"))
	})

	t.Run("requires collection", func(t *testing.T) {
		t.Parallel()

		documents := NewDocumentsClient(internalhttp.NewClient("http://127.0.0.1:0", nil), "shop", "")

		_, err := documents.List(context.Background())
		require.ErrorIs(t, err, cosmos.ErrCollectionRequired)
	})
}

func TestClient_DocumentsCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		w.Header().Set("ETag", `"7"`)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"id": "o-1", "_self": "s1", "customer": "c-1"})
	}))
	defer server.Close()

	client, err := New(context.Background(), &cosmos.Config{
		Endpoint:  server.URL,
		MasterKey: testMasterKey,
		Cache:     cosmos.DefaultCacheConfig(),
	})
	require.NoError(t, err)

	defer client.Close()

	documents := client.Documents("shop", "orders")

	for range 3 {
		doc, err := cosmos.GetDocument[order](context.Background(), documents, "o-1")
		require.NoError(t, err)
		assert.Equal(t, "c-1", doc.Payload.Customer)
		assert.Equal(t, `"7"`, doc.Attributes.ETag)
	}

	assert.Equal(t, int32(1), hits.Load())
}
