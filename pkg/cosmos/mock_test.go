package cosmos_test

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/cosmos-client/pkg/cosmos"
	"github.com/stretchr/testify/mock"
)

// MockDocuments implements cosmos.DocumentsClient for testing.
type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) response(args mock.Arguments) (*cosmos.Response, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*cosmos.Response), args.Error(1)
}

func (m *MockDocuments) Create(ctx context.Context, document interface{}, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, document, options))
}

func (m *MockDocuments) Get(ctx context.Context, id string, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, id, options))
}

func (m *MockDocuments) Replace(ctx context.Context, id string, document interface{}, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, id, document, options))
}

func (m *MockDocuments) Delete(ctx context.Context, id string, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, id, options))
}

func (m *MockDocuments) List(ctx context.Context, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, options))
}

func (m *MockDocuments) Query(ctx context.Context, query *cosmos.Query, options ...cosmos.HeaderAdder) (*cosmos.Response, error) {
	return m.response(m.Called(ctx, query, options))
}

// jsonResponse builds a 200 response with the given body and header pairs.
func jsonResponse(body string, headers ...string) *cosmos.Response {
	resp := &cosmos.Response{StatusCode: http.StatusOK, Headers: make(http.Header), Body: []byte(body)}
	for i := 0; i+1 < len(headers); i += 2 {
		resp.Headers.Set(headers[i], headers[i+1])
	}

	return resp
}

// headersOf renders options the way a request would carry them.
func headersOf(options []cosmos.HeaderAdder) http.Header {
	return cosmos.NewRequestBuilder("GET", "").With(options...).Headers()
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger implements cosmos.Logger and keeps every entry.
type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"debug", msg, fields})
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"info", msg, fields})
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"warn", msg, fields})
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"error", msg, fields})
}
