// Package resilient centralizes the fall-back-and-log pattern used around
// every external call in the answer pipeline: auxiliary calls may fail, the
// pipeline may not.
package resilient

import (
	"context"

	"medassist-ai/internal/contextutil"
)

// Call runs fn and returns its value on success. On failure it logs the
// error and returns fallback instead; the second return reports whether the
// primary call succeeded. Context cancellation is not special-cased here —
// a cancelled fn fails like any other and the caller's own ctx checks stop
// the pipeline.
func Call[T any](ctx context.Context, op string, fallback T, fn func(context.Context) (T, error)) (T, bool) {
	value, err := fn(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "call failed, using fallback",
			"op", op,
			"error", err,
		)
		return fallback, false
	}
	return value, true
}
