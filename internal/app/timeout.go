package app

import (
	"context"
	"errors"
	"time"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

const defaultOpTimeout = 5 * time.Second

// bounded caps an operation so lock waits cannot block a caller forever.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultOpTimeout
	}
	return context.WithTimeout(ctx, d)
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}
