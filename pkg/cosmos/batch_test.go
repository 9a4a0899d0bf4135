package cosmos_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errThrottled = errors.New("throttled")

func TestBatchBuilder(t *testing.T) {
	t.Parallel()

	operations := cosmos.NewBatchBuilder().
		AddCreate("op1", map[string]string{"id": "a"}).
		AddUpsert("op2", map[string]string{"id": "b"}, cosmos.NewPartitionKeys("b")).
		AddReplace("op3", "c", map[string]string{"id": "c"}).
		AddDelete("op4", "d").
		AddGet("op5", "e").
		Build()

	require.Len(t, operations, 5)

	types := make([]cosmos.OperationType, 0, len(operations))
	for _, operation := range operations {
		types = append(types, operation.Type)
	}

	assert.Equal(t, []cosmos.OperationType{
		cosmos.OperationCreate, cosmos.OperationUpsert, cosmos.OperationReplace,
		cosmos.OperationDelete, cosmos.OperationGet,
	}, types)
	assert.Equal(t, "c", operations[2].DocumentID)
	assert.Len(t, operations[1].Options, 1)
}

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	t.Run("runs every operation in order", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Create", mock.Anything, mock.Anything, hasHeader(cosmos.HeaderDocumentDBIsUpsert, "true")).
			Return(jsonResponse(`{"id":"b"}`), nil)
		docs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(jsonResponse(`{"id":"a"}`), nil)
		docs.On("Replace", mock.Anything, "c", mock.Anything, mock.Anything).Return(jsonResponse(`{"id":"c"}`), nil)
		docs.On("Delete", mock.Anything, "d", mock.Anything).Return(&cosmos.Response{StatusCode: 204}, nil)
		docs.On("Get", mock.Anything, "e", mock.Anything).Return(jsonResponse(`{"id":"e"}`), nil)

		var (
			mutex     sync.Mutex
			callbacks []string
		)

		operations := cosmos.NewBatchBuilder().
			AddUpsert("op2", map[string]string{"id": "b"}).
			AddCreate("op1", map[string]string{"id": "a"}).
			AddReplace("op3", "c", map[string]string{"id": "c"}).
			AddDelete("op4", "d").
			AddGet("op5", "e").
			Build()

		for i := range operations {
			operations[i].Callback = func(result *cosmos.BatchResult) {
				mutex.Lock()
				defer mutex.Unlock()

				callbacks = append(callbacks, result.ID)
			}
		}

		results, err := cosmos.NewBatchExecutor(docs, 2).Execute(context.Background(), operations)
		require.NoError(t, err)
		require.Len(t, results, 5)

		for i, result := range results {
			assert.Equal(t, operations[i].ID, result.ID)
			assert.True(t, result.Success)
		}

		assert.JSONEq(t, `{"id":"b"}`, string(results[0].Response.Body))
		assert.ElementsMatch(t, []string{"op1", "op2", "op3", "op4", "op5"}, callbacks)
		docs.AssertExpectations(t)
	})

	t.Run("aggregates failures", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Get", mock.Anything, "ok", mock.Anything).Return(jsonResponse(`{}`), nil)
		docs.On("Get", mock.Anything, "busy", mock.Anything).Return(nil, errThrottled)

		operations := []cosmos.BatchOperation{
			{ID: "read-ok", Type: cosmos.OperationGet, DocumentID: "ok"},
			{ID: "read-busy", Type: cosmos.OperationGet, DocumentID: "busy"},
			{ID: "no-id", Type: cosmos.OperationDelete},
			{ID: "bogus", Type: "patch"},
		}

		results, err := cosmos.NewBatchExecutor(docs, 0).Execute(context.Background(), operations)
		require.Error(t, err)

		var merr *multierror.Error

		require.ErrorAs(t, err, &merr)
		assert.Len(t, merr.Errors, 3)
		require.ErrorIs(t, err, errThrottled)
		require.ErrorIs(t, err, cosmos.ErrDocumentIDRequired)
		require.ErrorIs(t, err, cosmos.ErrUnsupportedOperationType)

		assert.True(t, results[0].Success)
		assert.False(t, results[1].Success)
		assert.False(t, results[2].Success)
		docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("applies operation timeout", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Get", mock.Anything, "slow", mock.Anything).
			Run(func(args mock.Arguments) {
				ctx := args.Get(0).(context.Context)
				<-ctx.Done()
			}).
			Return(nil, context.DeadlineExceeded)

		executor := cosmos.NewBatchExecutor(docs, 1)
		executor.SetTimeout(10 * time.Millisecond)

		results, err := executor.Execute(context.Background(), cosmos.NewBatchBuilder().AddGet("op", "slow").Build())
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, results[0].Success)
	})
}

func TestBatchTransaction(t *testing.T) {
	t.Parallel()

	t.Run("rolls back created documents", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Create", mock.Anything, map[string]string{"id": "a"}, mock.Anything).
			Return(jsonResponse(`{"id":"a","_self":"s"}`), nil)
		docs.On("Create", mock.Anything, map[string]string{"id": "b"}, mock.Anything).
			Return(nil, errThrottled)
		docs.On("Delete", mock.Anything, "a", hasHeader(cosmos.HeaderDocumentDBPartitionKey, `["p"]`)).
			Return(&cosmos.Response{StatusCode: 204}, nil)

		transaction := cosmos.NewBatchTransaction(cosmos.NewBatchExecutor(docs, 1))
		transaction.
			Add(cosmos.BatchOperation{
				ID: "op1", Type: cosmos.OperationCreate, Document: map[string]string{"id": "a"},
				Options: []cosmos.HeaderAdder{cosmos.NewPartitionKeys("p"), cosmos.IndexingDirectiveExclude},
			}).
			Add(cosmos.BatchOperation{ID: "op2", Type: cosmos.OperationCreate, Document: map[string]string{"id": "b"}})

		_, err := transaction.Execute(context.Background())
		require.ErrorIs(t, err, cosmos.ErrTransactionFailed)
		require.ErrorIs(t, err, errThrottled)
		docs.AssertCalled(t, "Delete", mock.Anything, "a", mock.Anything)
	})

	t.Run("rollback disabled", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, errThrottled)

		transaction := cosmos.NewBatchTransaction(cosmos.NewBatchExecutor(docs, 1)).SetRollback(false)
		transaction.Add(cosmos.BatchOperation{ID: "op1", Type: cosmos.OperationCreate, Document: map[string]string{}})

		_, err := transaction.Execute(context.Background())
		require.ErrorIs(t, err, errThrottled)
		assert.NotErrorIs(t, err, cosmos.ErrTransactionFailed)
		docs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("success needs no rollback", func(t *testing.T) {
		t.Parallel()

		docs := &MockDocuments{}
		docs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(jsonResponse(`{"id":"a"}`), nil)

		transaction := cosmos.NewBatchTransaction(cosmos.NewBatchExecutor(docs, 1))
		transaction.Add(cosmos.BatchOperation{ID: "op1", Type: cosmos.OperationCreate, Document: map[string]string{"id": "a"}})

		results, err := transaction.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, results[0].Success)
	})
}
