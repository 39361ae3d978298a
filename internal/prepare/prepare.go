// Package prepare turns a line item fulfillment request into an enqueued
// render task.
package prepare

import (
	"context"
	"log/slog"
	"strings"
	"time"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/queue"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/resolver"
)

// Request identifies the line item to render.
type Request struct {
	DesignID      string `json:"designId"`
	SKU           string `json:"sku"`
	CatalogItemID string `json:"catalogItemId,omitempty"`
	OrderID       string `json:"orderId"`
	LineItemID    string `json:"lineItemId"`
	OutputBucket  string `json:"outputBucket,omitempty"`
}

// Validate reports the first missing identifier.
func (r Request) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"designId", r.DesignID},
		{"orderId", r.OrderID},
		{"lineItemId", r.LineItemID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return rerrors.ValidationField(f.name, f.name+" is required")
		}
	}
	for _, f := range []struct{ name, value string }{
		{"orderId", r.OrderID},
		{"lineItemId", r.LineItemID},
	} {
		if msg := model.PathSegmentProblem(f.value); msg != "" {
			return rerrors.ValidationField(f.name, f.name+" "+msg)
		}
	}
	return nil
}

// Result describes what was enqueued.
type Result struct {
	Payload    model.RenderPayload
	Resolution resolver.Result
	TaskID     string
	Queue      string
}

// Preparer fetches records, resolves the print contract and enqueues it.
type Preparer struct {
	docs      repository.Store
	resolver  *resolver.Resolver
	enqueuer  queue.Enqueuer
	queueName string
	policy    queue.RetryPolicy
	log       *logger.Logger
	now       func() time.Time
}

// New constructs a Preparer.
func New(docs repository.Store, res *resolver.Resolver, enqueuer queue.Enqueuer, queueName string, policy queue.RetryPolicy, log *logger.Logger) *Preparer {
	return &Preparer{
		docs:      docs,
		resolver:  res,
		enqueuer:  enqueuer,
		queueName: queueName,
		policy:    policy,
		log:       log.WithComponent("prepare"),
		now:       time.Now,
	}
}

// Resolve reads the design and catalog item and resolves them without
// enqueuing anything.
func (p *Preparer) Resolve(ctx context.Context, req Request) (resolver.Result, error) {
	const op = "prepare.resolve"
	design, err := p.fetch(ctx, repository.Designs, req.DesignID)
	if err != nil {
		return resolver.Result{}, rerrors.Unavailable(err, op, "read design "+req.DesignID)
	}
	catalogID := req.CatalogItemID
	if catalogID == "" {
		catalogID = req.SKU
	}
	var item map[string]any
	if catalogID != "" {
		if item, err = p.fetch(ctx, repository.CatalogItems, catalogID); err != nil {
			return resolver.Result{}, rerrors.Unavailable(err, op, "read catalog item "+catalogID)
		}
	}
	return p.resolver.Resolve(resolver.Input{
		DesignID:    req.DesignID,
		Design:      design,
		CatalogItem: item,
		SKU:         req.SKU,
	})
}

// Prepare resolves the request, marks the line item queued and enqueues the
// render task. The queued mark lands before the task exists so a worker
// finishing early is never overwritten.
func (p *Preparer) Prepare(ctx context.Context, req Request) (*Result, error) {
	const op = "prepare.prepare"
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = logger.ContextWithLineItem(ctx, req.OrderID, req.LineItemID)
	log := p.log.FromContext(ctx)

	res, err := p.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	payload := res.Payload(req.DesignID, req.OrderID, req.LineItemID)
	resolvedAt := p.now().UTC()
	payload.ResolvedAt = &resolvedAt
	if req.OutputBucket != "" {
		payload.Output = &model.OutputTarget{Bucket: req.OutputBucket}
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	lineItems := repository.LineItems(req.OrderID)
	err = p.docs.Merge(ctx, lineItems, req.LineItemID, map[string]any{
		"designId":          req.DesignID,
		"renderStatus":      string(repository.StatusQueued),
		"renderRequestedAt": repository.Timestamp(resolvedAt),
		"renderError":       nil,
	})
	if err != nil {
		return nil, rerrors.Wrap(err, op, "mark line item queued")
	}

	info, err := queue.EnqueueRender(ctx, p.enqueuer, payload, p.queueName, p.policy)
	if err != nil {
		if rerrors.GetCode(err) != rerrors.CodeContract {
			err = rerrors.Unavailable(err, op, "enqueue render")
		}
		p.markFailed(ctx, lineItems, req.LineItemID, err)
		return nil, err
	}

	// Only the task id is written here; the status may already belong to the worker.
	err = p.docs.Merge(ctx, lineItems, req.LineItemID, map[string]any{"renderTaskId": info.ID})
	if err != nil {
		log.Warn("record render task id", slog.String("task_id", info.ID), slog.String("error", err.Error()))
	}

	log.Info("render enqueued",
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
		slog.String("print_spec_origin", res.PrintSpecOrigin),
		slog.String("safe_area_origin", res.SafeAreaOrigin),
		slog.String("source_origin", res.SourceOrigin),
	)
	return &Result{Payload: payload, Resolution: res, TaskID: info.ID, Queue: info.Queue}, nil
}

// markFailed is best effort; the enqueue error is what the caller sees.
func (p *Preparer) markFailed(ctx context.Context, collection, lineItemID string, cause error) {
	err := p.docs.Merge(context.WithoutCancel(ctx), collection, lineItemID, map[string]any{
		"renderStatus": string(repository.StatusFailed),
		"renderError": map[string]any{
			"code":      string(rerrors.GetCode(cause)),
			"message":   cause.Error(),
			"retryable": rerrors.Retryable(cause),
			"at":        repository.Timestamp(p.now()),
		},
	})
	if err != nil {
		p.log.FromContext(ctx).Warn("record enqueue failure", slog.String("error", err.Error()))
	}
}

// fetch returns nil for a missing record; the resolver treats absent and
// empty records alike.
func (p *Preparer) fetch(ctx context.Context, collection, id string) (map[string]any, error) {
	doc, err := p.docs.Get(ctx, collection, id)
	if rerrors.IsNotFound(err) {
		return nil, nil
	}
	return doc, err
}
