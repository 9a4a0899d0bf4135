package cosmos

import "context"

// CreateDocument inserts doc and returns the stored document.
func CreateDocument[T any](ctx context.Context, docs DocumentsClient, doc Document[T], options ...HeaderAdder) (Document[T], error) {
	resp, err := docs.Create(ctx, doc, options...)
	if err != nil {
		return Document[T]{}, err
	}

	return DocumentFromResponse[T](resp.Headers, resp.Body)
}

// UpsertDocument inserts doc or replaces the document with the same id. An
// IsUpsert option in options takes the place of the default.
func UpsertDocument[T any](ctx context.Context, docs DocumentsClient, doc Document[T], options ...HeaderAdder) (Document[T], error) {
	if !hasOption[IsUpsert](options) {
		options = append([]HeaderAdder{IsUpsertYes}, options...)
	}

	return CreateDocument(ctx, docs, doc, options...)
}

// GetDocument reads the document with the given id.
func GetDocument[T any](ctx context.Context, docs DocumentsClient, id string, options ...HeaderAdder) (Document[T], error) {
	if id == "" {
		return Document[T]{}, ErrDocumentIDRequired
	}

	resp, err := docs.Get(ctx, id, options...)
	if err != nil {
		return Document[T]{}, err
	}

	return DocumentFromResponse[T](resp.Headers, resp.Body)
}

// ReplaceDocument replaces a stored document. When the document carries an
// ETag and options hold no condition of their own, the replace is
// conditional on it.
func ReplaceDocument[T any](ctx context.Context, docs DocumentsClient, doc Document[T], options ...HeaderAdder) (Document[T], error) {
	if doc.ID() == "" {
		return Document[T]{}, ErrDocumentIDRequired
	}

	if doc.Attributes.ETag != "" && !hasOption[IfMatchCondition](options) {
		options = append([]HeaderAdder{IfMatch(doc.Attributes.ETag)}, options...)
	}

	resp, err := docs.Replace(ctx, doc.ID(), doc, options...)
	if err != nil {
		return Document[T]{}, err
	}

	return DocumentFromResponse[T](resp.Headers, resp.Body)
}

// DeleteDocument deletes the document with the given id.
func DeleteDocument(ctx context.Context, docs DocumentsClient, id string, options ...HeaderAdder) error {
	if id == "" {
		return ErrDocumentIDRequired
	}

	_, err := docs.Delete(ctx, id, options...)
	if err != nil {
		return err
	}

	return nil
}

// ListDocuments reads one page of the collection's document feed.
func ListDocuments[T any](ctx context.Context, docs DocumentsClient, options ...HeaderAdder) (*DocumentList[T], error) {
	resp, err := docs.List(ctx, options...)
	if err != nil {
		return nil, err
	}

	return DocumentListFromResponse[T](resp.Headers, resp.Body)
}

// QueryDocuments runs a query and decodes one page of results.
func QueryDocuments[T any](ctx context.Context, docs DocumentsClient, query *Query, options ...HeaderAdder) (*DocumentList[T], error) {
	resp, err := docs.Query(ctx, query, options...)
	if err != nil {
		return nil, err
	}

	return DocumentListFromResponse[T](resp.Headers, resp.Body)
}

// ListAllDocuments follows continuation tokens until the feed is exhausted.
func ListAllDocuments[T any](ctx context.Context, docs DocumentsClient, options ...HeaderAdder) ([]Document[T], error) {
	var (
		all          []Document[T]
		continuation Continuation
	)

	for {
		pageOptions := append(append([]HeaderAdder{}, options...), continuation)

		page, err := ListDocuments[T](ctx, docs, pageOptions...)
		if err != nil {
			return all, err
		}

		all = append(all, page.Documents...)

		if page.Continuation == "" {
			return all, nil
		}

		continuation = Continuation(page.Continuation)
	}
}

// hasOption reports whether options hold an option of type O.
func hasOption[O HeaderAdder](options []HeaderAdder) bool {
	for _, option := range options {
		if _, ok := option.(O); ok {
			return true
		}
	}

	return false
}
