package cosmos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/cosmos-client/internal/constants"
	"github.com/hashicorp/go-multierror"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrTransactionFailed        = errors.New("transaction failed")
)

// OperationType is the kind of document operation in a batch.
type OperationType string

// Batch operation types.
const (
	OperationCreate  OperationType = "create"
	OperationUpsert  OperationType = "upsert"
	OperationReplace OperationType = "replace"
	OperationDelete  OperationType = "delete"
	OperationGet     OperationType = "get"
)

// BatchOperation represents a single document operation in a batch.
type BatchOperation struct {
	ID         string
	Type       OperationType
	DocumentID string      // target of replace, delete and get
	Document   interface{} // body of create, upsert and replace
	Options    []HeaderAdder
	Callback   func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Response *Response
	Error    error
	Duration time.Duration
}

// BatchExecutor runs document operations concurrently against one
// collection.
type BatchExecutor struct {
	documents   DocumentsClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(documents DocumentsClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		documents:   documents,
		concurrency: concurrency,
		timeout:     constants.DefaultBatchTimeout,
	}
}

// SetTimeout sets the timeout of each operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are in operation order; the
// returned error aggregates every failed operation.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	var result *multierror.Error

	for _, res := range results {
		if res.Error != nil {
			result = multierror.Append(result, fmt.Errorf("operation %s: %w", res.ID, res.Error))
		}
	}

	return results, result.ErrorOrNil()
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	var (
		resp *Response
		err  error
	)

	switch operation.Type {
	case OperationCreate:
		resp, err = b.documents.Create(ctx, operation.Document, operation.Options...)
	case OperationUpsert:
		options := append([]HeaderAdder{IsUpsertYes}, operation.Options...)
		resp, err = b.documents.Create(ctx, operation.Document, options...)
	case OperationReplace:
		resp, err = b.requireID(operation, func() (*Response, error) {
			return b.documents.Replace(ctx, operation.DocumentID, operation.Document, operation.Options...)
		})
	case OperationDelete:
		resp, err = b.requireID(operation, func() (*Response, error) {
			return b.documents.Delete(ctx, operation.DocumentID, operation.Options...)
		})
	case OperationGet:
		resp, err = b.requireID(operation, func() (*Response, error) {
			return b.documents.Get(ctx, operation.DocumentID, operation.Options...)
		})
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}

	return &BatchResult{
		ID:       operation.ID,
		Success:  err == nil,
		Response: resp,
		Error:    err,
	}
}

func (b *BatchExecutor) requireID(operation BatchOperation, call func() (*Response, error)) (*Response, error) {
	if operation.DocumentID == "" {
		return nil, fmt.Errorf("%w: %s", ErrDocumentIDRequired, operation.Type)
	}

	return call()
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{}
}

// AddCreate adds a document creation.
func (b *BatchBuilder) AddCreate(id string, document interface{}, options ...HeaderAdder) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: OperationCreate, Document: document, Options: options})
}

// AddUpsert adds a document upsert.
func (b *BatchBuilder) AddUpsert(id string, document interface{}, options ...HeaderAdder) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: OperationUpsert, Document: document, Options: options})
}

// AddReplace adds a document replace.
func (b *BatchBuilder) AddReplace(id, documentID string, document interface{}, options ...HeaderAdder) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID:         id,
		Type:       OperationReplace,
		DocumentID: documentID,
		Document:   document,
		Options:    options,
	})
}

// AddDelete adds a document deletion.
func (b *BatchBuilder) AddDelete(id, documentID string, options ...HeaderAdder) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: OperationDelete, DocumentID: documentID, Options: options})
}

// AddGet adds a document read.
func (b *BatchBuilder) AddGet(id, documentID string, options ...HeaderAdder) *BatchBuilder {
	return b.AddOperation(BatchOperation{ID: id, Type: OperationGet, DocumentID: documentID, Options: options})
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}

// BatchTransaction runs a batch and, on failure, deletes the documents its
// successful creates produced. Replaces and deletes are not undone.
type BatchTransaction struct {
	operations []BatchOperation
	executor   *BatchExecutor
	rollback   bool
}

// NewBatchTransaction creates a new batch transaction.
func NewBatchTransaction(executor *BatchExecutor) *BatchTransaction {
	return &BatchTransaction{
		executor: executor,
		rollback: true,
	}
}

// Add adds an operation to the transaction.
func (t *BatchTransaction) Add(operation BatchOperation) *BatchTransaction {
	t.operations = append(t.operations, operation)

	return t
}

// SetRollback sets whether to rollback on failure.
func (t *BatchTransaction) SetRollback(rollback bool) *BatchTransaction {
	t.rollback = rollback

	return t
}

// Execute executes the transaction.
func (t *BatchTransaction) Execute(ctx context.Context) ([]BatchResult, error) {
	results, err := t.executor.Execute(ctx, t.operations)
	if err == nil || !t.rollback {
		return results, err
	}

	rollbackErr := t.performRollback(ctx, results)

	return results, multierror.Append(fmt.Errorf("%w: %w", ErrTransactionFailed, err), rollbackErr).ErrorOrNil()
}

func (t *BatchTransaction) performRollback(ctx context.Context, results []BatchResult) error {
	var rollbackOps []BatchOperation

	for i, result := range results {
		if !result.Success || t.operations[i].Type != OperationCreate {
			continue
		}

		if id := documentID(result.Response); id != "" {
			rollbackOps = append(rollbackOps, BatchOperation{
				ID:         "rollback_" + result.ID,
				Type:       OperationDelete,
				DocumentID: id,
				Options:    partitionOptions(t.operations[i].Options),
			})
		}
	}

	if len(rollbackOps) == 0 {
		return nil
	}

	_, err := t.executor.Execute(ctx, rollbackOps)

	return err
}

// partitionOptions keeps only the options that address the document's
// partition, which a delete needs.
func partitionOptions(options []HeaderAdder) []HeaderAdder {
	var kept []HeaderAdder

	for _, option := range options {
		if keys, ok := option.(PartitionKeys); ok {
			kept = append(kept, keys)
		}
	}

	return kept
}
