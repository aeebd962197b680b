package shard

import (
	"context"
	"errors"
)

// IsCancellationError reports whether err stems from a cancelled context or
// an aborted pipeline.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrCancelled) || errors.Is(err, ErrAborted)
}
