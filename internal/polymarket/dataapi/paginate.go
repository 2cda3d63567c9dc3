package dataapi

import (
	"context"

	"github.com/barissdev/polylook/internal/metrics"
)

// PageFunc fetches one page of rows at the given offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// PageResult is the outcome of draining a paginated endpoint. Complete is
// false when a page request failed mid-collection or the page cap was reached
// before a terminating page, so callers can tell a full drain from a
// truncated one.
type PageResult[T any] struct {
	Rows     []T
	Complete bool
	Err      error // last page error, nil when truncated only by the cap
}

// CollectPages repeatedly requests pages at increasing offsets until an empty
// page, a short page, or the page cap. A failed page request returns whatever
// was already gathered rather than discarding prior pages.
func CollectPages[T any](ctx context.Context, pageSize, maxPages int, fn PageFunc[T]) PageResult[T] {
	var rows []T

	for page := 0; page < maxPages; page++ {
		chunk, err := fn(ctx, page*pageSize, pageSize)
		if err != nil {
			metrics.CollectionsTruncated.Inc()
			return PageResult[T]{Rows: rows, Complete: false, Err: err}
		}
		metrics.PagesCollected.Inc()

		if len(chunk) == 0 {
			return PageResult[T]{Rows: rows, Complete: true}
		}

		rows = append(rows, chunk...)

		if len(chunk) < pageSize {
			// Short page signals the last page.
			return PageResult[T]{Rows: rows, Complete: true}
		}
	}

	// Page cap reached with a full final page: more rows may exist upstream.
	metrics.CollectionsTruncated.Inc()
	return PageResult[T]{Rows: rows, Complete: false}
}
