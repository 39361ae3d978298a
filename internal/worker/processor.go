// Package worker plugs the render pipeline into the asynq worker loop.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/queue"
	"github.com/dharsanguruparan/PrintReady/internal/render"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
)

// Renderer runs one payload; *render.Pipeline implements it.
type Renderer interface {
	Run(ctx context.Context, payload model.RenderPayload) (*render.Outcome, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	renderer Renderer
	docs     repository.Store
	lease    queue.Lease
	log      *logger.Logger
	now      func() time.Time
}

// NewProcessor constructs a worker processor. A nil lease admits every
// delivery.
func NewProcessor(renderer Renderer, docs repository.Store, lease queue.Lease, log *logger.Logger) *Processor {
	if lease == nil {
		lease = queue.NoopLease{}
	}
	return &Processor{
		renderer: renderer,
		docs:     docs,
		lease:    lease,
		log:      log.WithComponent("worker"),
		now:      time.Now,
	}
}

// Handler registers the render job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RenderPrintReadyTask, p.ProcessTask)
	return mux
}

// ProcessTask renders one delivery. Every failure is returned to asynq;
// failures a retry cannot fix are marked with asynq.SkipRetry so the task is
// archived instead of rescheduled.
func (p *Processor) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := model.DecodePayload(task.Payload())
	if err != nil {
		orderID, lineItemID := identity(task.Payload())
		ctx = logger.ContextWithLineItem(ctx, orderID, lineItemID)
		p.log.FromContext(ctx).Error("rejecting malformed payload", slog.String("error", err.Error()))
		if orderID != "" && lineItemID != "" {
			p.recordFailure(ctx, orderID, lineItemID, err, nil)
		}
		return classify(err)
	}
	ctx = logger.ContextWithLineItem(ctx, payload.OrderID, payload.LineItemID)
	log := p.log.FromContext(ctx)

	release, err := p.lease.Acquire(ctx, payload.OrderID, payload.LineItemID)
	if err != nil {
		log.Warn("lease not acquired", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("release lease", slog.String("error", err.Error()))
		}
	}()

	outcome, err := p.renderer.Run(ctx, payload)
	if err != nil {
		var checks *model.Checks
		if outcome != nil && outcome.Report != nil {
			checks = &outcome.Report.Checks
		}
		p.recordFailure(ctx, payload.OrderID, payload.LineItemID, err, checks)
		log.Error("render failed",
			slog.String("code", string(rerrors.GetCode(err))),
			slog.Bool("retryable", rerrors.Retryable(err)),
			slog.String("error", err.Error()),
		)
		return classify(err)
	}
	log.Info("render task done", slog.String("checksum", outcome.Checksum))
	return nil
}

// classify keeps err visible to asynq and disables retries when another
// attempt with the same payload cannot succeed.
func classify(err error) error {
	if rerrors.Retryable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// recordFailure writes the failure onto the line item. It is best effort:
// the task error is what drives retries.
func (p *Processor) recordFailure(ctx context.Context, orderID, lineItemID string, cause error, checks *model.Checks) {
	status := repository.StatusFailed
	switch {
	case rerrors.IsPreflight(cause):
		status = repository.StatusRejected
	case rerrors.Retryable(cause) && !lastAttempt(ctx):
		status = repository.StatusRetrying
	}
	renderError := map[string]any{
		"code":      string(rerrors.GetCode(cause)),
		"message":   cause.Error(),
		"retryable": rerrors.Retryable(cause),
		"at":        repository.Timestamp(p.now()),
	}
	if retried, ok := asynq.GetRetryCount(ctx); ok {
		renderError["attempt"] = retried + 1
	}
	if fields, ok := rerrors.GetFields(cause)["fields"].([]rerrors.FieldError); ok {
		renderError["fields"] = fieldsToAny(fields)
	}
	if checks != nil {
		if data, err := json.Marshal(checks); err == nil {
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				renderError["checks"] = m
			}
		}
	}
	err := p.docs.Merge(context.WithoutCancel(ctx), repository.LineItems(orderID), lineItemID, map[string]any{
		"renderStatus": string(status),
		"renderError":  renderError,
	})
	if err != nil {
		p.log.FromContext(ctx).Warn("record render failure", slog.String("error", err.Error()))
	}
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	max, ok := asynq.GetMaxRetry(ctx)
	return ok && retried >= max
}

func fieldsToAny(fields []rerrors.FieldError) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"field": f.Field, "message": f.Message})
	}
	return out
}

// identity pulls the line item ids out of a payload that failed validation.
func identity(data []byte) (orderID, lineItemID string) {
	var ids struct {
		OrderID    string `json:"orderId"`
		LineItemID string `json:"lineItemId"`
	}
	_ = json.Unmarshal(data, &ids)
	return ids.OrderID, ids.LineItemID
}

// IsSkipRetry reports whether err was marked non-retryable.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
