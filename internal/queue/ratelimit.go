package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

// RateLimit holds each dispatch until the limiter admits it, bounding the
// rate at which tasks start.
func RateLimit(limiter *rate.Limiter) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return next.ProcessTask(ctx, t)
		})
	}
}
