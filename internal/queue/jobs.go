package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PrintReady/internal/model"
)

const (
	// RenderPrintReadyTask is scheduled once per order line item fulfillment.
	RenderPrintReadyTask = "render:print-ready"
)

// Enqueuer is the part of *asynq.Client the preparer needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewRenderTask serializes a validated payload into a task.
func NewRenderTask(payload model.RenderPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(RenderPrintReadyTask, data), nil
}

// EnqueueRender enqueues a render job on the named queue with the policy's
// attempt limit.
func EnqueueRender(ctx context.Context, client Enqueuer, payload model.RenderPayload, queueName string, policy RetryPolicy) (*asynq.TaskInfo, error) {
	task, err := NewRenderTask(payload)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task, asynq.Queue(queueName), asynq.MaxRetry(policy.MaxRetry()))
	if err != nil {
		return nil, fmt.Errorf("enqueue render task: %w", err)
	}
	return info, nil
}
