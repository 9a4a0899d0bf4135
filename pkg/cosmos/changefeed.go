package cosmos

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fivetwenty-io/cosmos-client/internal/constants"
)

// ChangeFeedPage is one read of a partition's change feed.
type ChangeFeedPage[T any] struct {
	Documents []Document[T]
	// ETag is the position after this page; pass it back to resume.
	ETag string
	// NotModified is set when the feed had no changes since the last read.
	NotModified bool
	Charge      float64
}

// ChangeFeedReader reads the incremental change feed of one partition key
// range. It tracks the feed position between reads.
type ChangeFeedReader[T any] struct {
	documents    DocumentsClient
	rangeID      PartitionRangeID
	etag         string
	options      []HeaderAdder
	pollInterval time.Duration
	maxInterval  time.Duration
}

// NewChangeFeedReader creates a reader for the partition key range rangeID.
// options are sent with every read, e.g. MaxItemCount.
func NewChangeFeedReader[T any](documents DocumentsClient, rangeID string, options ...HeaderAdder) *ChangeFeedReader[T] {
	return &ChangeFeedReader[T]{
		documents:    documents,
		rangeID:      NewPartitionRangeID(rangeID),
		options:      options,
		pollInterval: constants.DefaultPollInterval,
		maxInterval:  constants.MaxPollInterval,
	}
}

// StartFrom resumes the feed after the position etag.
func (r *ChangeFeedReader[T]) StartFrom(etag string) *ChangeFeedReader[T] {
	r.etag = etag

	return r
}

// SetPollInterval sets the first and the largest wait between idle reads.
func (r *ChangeFeedReader[T]) SetPollInterval(interval, maxInterval time.Duration) *ChangeFeedReader[T] {
	r.pollInterval = interval
	r.maxInterval = maxInterval

	return r
}

// ETag returns the current feed position.
func (r *ChangeFeedReader[T]) ETag() string {
	return r.etag
}

// Next reads the changes since the current position. A feed without new
// changes yields an empty page with NotModified set.
func (r *ChangeFeedReader[T]) Next(ctx context.Context) (*ChangeFeedPage[T], error) {
	options := make([]HeaderAdder, 0, len(r.options)+3)
	options = append(options, ChangeFeedIncremental, r.rangeID)
	options = append(options, r.options...)

	if r.etag != "" {
		options = append(options, IfNoneMatch(r.etag))
	}

	resp, err := r.documents.List(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("reading change feed of range %s: %w", r.rangeID, err)
	}

	page := &ChangeFeedPage[T]{
		ETag:   r.etag,
		Charge: RequestCharge(resp.Headers),
	}

	if etag := ETagOf(resp.Headers); etag != "" {
		page.ETag = etag
	}

	if resp.StatusCode == http.StatusNotModified {
		page.NotModified = true
		r.etag = page.ETag

		return page, nil
	}

	list, err := DocumentListFromResponse[T](resp.Headers, resp.Body)
	if err != nil {
		return nil, err
	}

	page.Documents = list.Documents
	r.etag = page.ETag

	return page, nil
}

// Poll reads the feed until ctx is done or handler fails. While the feed is
// idle the wait between reads grows exponentially up to the max interval;
// any change resets it.
func (r *ChangeFeedReader[T]) Poll(ctx context.Context, handler func(ctx context.Context, documents []Document[T]) error) error {
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = r.pollInterval
	wait.MaxInterval = r.maxInterval
	wait.MaxElapsedTime = 0
	wait.Reset()

	for {
		page, err := r.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return err
		}

		if len(page.Documents) > 0 {
			err = handler(ctx, page.Documents)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrChangeFeedStopped, err)
			}

			wait.Reset()

			continue
		}

		timer := time.NewTimer(wait.NextBackOff())

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}
