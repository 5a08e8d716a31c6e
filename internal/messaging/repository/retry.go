package repository

import (
	"context"
	"time"

	errprocess "social_network_service/pkg/err"
)

const (
	readRetryCount    = 3
	readRetryInterval = 100 * time.Millisecond
)

// retryRead 只重試冪等的讀取，寫入不可盲目重試（會產生重複訊息）
func retryRead[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for i := 0; i < readRetryCount; i++ {
		out, err = fn()
		if err == nil || errprocess.KindOf(err) != errprocess.KindTransient {
			return out, err
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(readRetryInterval):
		}
	}
	return out, err
}
