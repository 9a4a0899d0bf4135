package cosmos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Resource is anything addressable by a service link.
type Resource interface {
	URI() string
}

// DocumentAttributes are the service-assigned fields of a stored document.
type DocumentAttributes struct {
	ID          string `json:"id"                     yaml:"id"`
	Rid         string `json:"_rid,omitempty"         yaml:"_rid,omitempty"`
	Ts          int64  `json:"_ts,omitempty"          yaml:"_ts,omitempty"`
	Self        string `json:"_self"                  yaml:"_self"`
	ETag        string `json:"_etag,omitempty"        yaml:"_etag,omitempty"`
	Attachments string `json:"_attachments,omitempty" yaml:"_attachments,omitempty"`
}

// SelfLink returns the self link.
func (a DocumentAttributes) SelfLink() string {
	return a.Self
}

// LastModified returns the _ts timestamp, or the zero time when unset.
func (a DocumentAttributes) LastModified() time.Time {
	if a.Ts == 0 {
		return time.Time{}
	}

	return time.Unix(a.Ts, 0).UTC()
}

// requiredDocumentFields must be present in every document the service returns.
var requiredDocumentFields = []string{"id", "_self"}

// Document pairs service metadata with caller-owned payload. On the wire the
// two are a single flat JSON object; the payload must not use the metadata
// field names (id, _rid, _ts, _self, _etag, _attachments) for other data.
type Document[T any] struct {
	Attributes DocumentAttributes
	Payload    T
}

// NewDocument wraps a payload that has not been stored yet.
func NewDocument[T any](payload T) Document[T] {
	return Document[T]{Payload: payload}
}

// WithID returns a copy of the document with its id set.
func (d Document[T]) WithID(id string) Document[T] {
	d.Attributes.ID = id

	return d
}

// ID returns the document id.
func (d Document[T]) ID() string {
	return d.Attributes.ID
}

// URI implements Resource and returns the self link.
func (d Document[T]) URI() string {
	return d.Attributes.SelfLink()
}

// alwaysWrittenFields are emitted even when empty so that a serialized new
// document can be read back by DocumentFromResponse.
var alwaysWrittenFields = map[string]bool{"id": true, "_self": true}

// MarshalJSON flattens metadata and payload into one object. Metadata fields
// that are set take precedence over payload fields of the same name; empty
// ones never replace a payload value.
func (d Document[T]) MarshalJSON() ([]byte, error) {
	fields, err := objectFields(d.Payload)
	if err != nil {
		return nil, err
	}

	attributes, err := objectFields(d.Attributes)
	if err != nil {
		return nil, err
	}

	for key, value := range attributes {
		if _, ok := fields[key]; ok && alwaysWrittenFields[key] && isEmptyString(value) {
			continue
		}

		fields[key] = value
	}

	return json.Marshal(fields)
}

func isEmptyString(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte(`""`))
}

// UnmarshalJSON fills metadata and payload from the same flat object.
func (d *Document[T]) UnmarshalJSON(data []byte) error {
	var attributes DocumentAttributes

	err := json.Unmarshal(data, &attributes)
	if err != nil {
		return fmt.Errorf("decoding document attributes: %w", err)
	}

	var payload T

	err = json.Unmarshal(data, &payload)
	if err != nil {
		return fmt.Errorf("decoding document payload: %w", err)
	}

	d.Attributes = attributes
	d.Payload = payload

	return nil
}

// DocumentFromResponse rebuilds a document from a response body. The body
// must be a JSON object carrying at least id and _self. When the body has no
// _etag the ETag response header is used.
func DocumentFromResponse[T any](headers http.Header, body []byte) (Document[T], error) {
	var doc Document[T]

	var raw map[string]json.RawMessage

	err := json.Unmarshal(body, &raw)
	if err != nil {
		return doc, &ParseError{Err: err}
	}

	if raw == nil {
		return doc, &ParseError{Err: ErrNotAnObject}
	}

	for _, field := range requiredDocumentFields {
		if _, ok := raw[field]; !ok {
			return doc, &ParseError{Field: field, Err: ErrMissingField}
		}
	}

	err = json.Unmarshal(body, &doc)
	if err != nil {
		return doc, &ParseError{Err: err}
	}

	if doc.Attributes.ETag == "" && headers != nil {
		doc.Attributes.ETag = headers.Get(HeaderETag)
	}

	return doc, nil
}

// DocumentList is one page of a document feed or query.
type DocumentList[T any] struct {
	Rid          string        `json:"_rid,omitempty"`
	Documents    []Document[T] `json:"Documents"`
	Count        int           `json:"_count"`
	Continuation string        `json:"-"`
	SessionToken string        `json:"-"`
	Charge       float64       `json:"-"`
}

// DocumentListFromResponse decodes a feed or query page and its paging headers.
func DocumentListFromResponse[T any](headers http.Header, body []byte) (*DocumentList[T], error) {
	var list DocumentList[T]

	if len(bytes.TrimSpace(body)) > 0 {
		err := json.Unmarshal(body, &list)
		if err != nil {
			return nil, &ParseError{Err: err}
		}
	}

	list.Continuation = ContinuationOf(headers)
	list.SessionToken = SessionTokenOf(headers)
	list.Charge = RequestCharge(headers)

	return &list, nil
}

// objectFields encodes value and returns its top-level fields.
func objectFields(value interface{}) (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	fields := make(map[string]json.RawMessage)

	if strings.TrimSpace(string(encoded)) == "null" {
		return fields, nil
	}

	err = json.Unmarshal(encoded, &fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPayloadNotObject, encoded)
	}

	return fields, nil
}

// ErrPayloadNotObject is returned when a payload does not encode to a JSON object.
var ErrPayloadNotObject = errors.New("document payload must encode to a JSON object")
