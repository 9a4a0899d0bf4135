//go:build integration

package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDocumentWorkflow runs a database, collection and document lifecycle
// through the CLI.
func TestDocumentWorkflow(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	runner := NewCommandRunner(config, t)

	database := GenerateTestName("it-db")
	collection := "orders"

	_, stderr, err := runner.Run("databases", "create", database)
	require.NoError(t, err, stderr)

	defer runner.CleanupDatabase(database)

	_, stderr, err = runner.Run("collections", "create", collection, "-d", database, "--partition-key", "/customer")
	require.NoError(t, err, stderr)

	scope := []string{"-d", database, "--collection", collection}

	t.Run("create and get", func(t *testing.T) {
		_, stderr, err := runner.Run(append([]string{"documents", "create",
			"--data", `{"id":"o-1","customer":"c-1","total":12.5}`, "-k", "c-1"}, scope...)...)
		require.NoError(t, err, stderr)

		var doc map[string]interface{}

		require.NoError(t, runner.RunJSON(&doc, append([]string{"documents", "get", "o-1", "-k", "c-1"}, scope...)...))
		assert.Equal(t, "c-1", doc["customer"])
		assert.NotEmpty(t, doc["_etag"])
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		_, stderr, err := runner.Run(append([]string{"documents", "upsert",
			"--data", `{"id":"o-1","customer":"c-1","total":20}`, "-k", "c-1"}, scope...)...)
		require.NoError(t, err, stderr)

		var doc map[string]interface{}

		require.NoError(t, runner.RunJSON(&doc, append([]string{"documents", "get", "o-1", "-k", "c-1"}, scope...)...))
		assert.InDelta(t, 20.0, doc["total"], 0.0001)
	})

	t.Run("stale replace is rejected", func(t *testing.T) {
		_, stderr, err := runner.Run(append([]string{"documents", "replace", "o-1",
			"--data", `{"id":"o-1","customer":"c-1","total":1}`, "-k", "c-1", "--if-match", `"stale"`}, scope...)...)
		require.Error(t, err)
		assert.Contains(t, strings.ToLower(stderr), "precondition")
	})

	t.Run("query", func(t *testing.T) {
		var docs []map[string]interface{}

		require.NoError(t, runner.RunJSON(&docs, append([]string{"documents", "query",
			"SELECT * FROM c WHERE c.total > @min", "-p", "@min=10", "--cross-partition"}, scope...)...))
		require.Len(t, docs, 1)
		assert.Equal(t, "o-1", docs[0]["id"])
	})

	t.Run("change feed", func(t *testing.T) {
		WaitForCondition(t, func() bool {
			stdout, _, err := runner.Run(append([]string{"documents", "changes", "--output", "json"}, scope...)...)

			return err == nil && strings.Contains(stdout, `"o-1"`)
		}, 30*time.Second, "change feed shows o-1")
	})

	t.Run("delete", func(t *testing.T) {
		_, stderr, err := runner.Run(append([]string{"documents", "delete", "o-1", "-k", "c-1", "--force"}, scope...)...)
		require.NoError(t, err, stderr)

		_, _, err = runner.Run(append([]string{"documents", "get", "o-1", "-k", "c-1"}, scope...)...)
		require.Error(t, err)
	})
}
