// Package repository is the document store role: records addressed by
// (collection, id), read whole and updated by deep merge.
package repository

import (
	"context"
	"time"
)

// Collections read and written by the render services.
const (
	Designs      = "designs"
	CatalogItems = "catalogItems"
)

// LineItems is the collection holding one order's line items.
func LineItems(orderID string) string {
	return "orders/" + orderID + "/lineItems"
}

// RenderStatus enumerates the lifecycle of a line item's render.
type RenderStatus string

const (
	StatusQueued    RenderStatus = "queued"
	StatusRetrying  RenderStatus = "retrying"
	StatusCompleted RenderStatus = "completed"
	StatusRejected  RenderStatus = "rejected"
	StatusFailed    RenderStatus = "failed"
)

// Store reads and merge-writes documents.
type Store interface {
	// Get returns the document. A missing document is a NotFound error.
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// Merge deep-merges partial into the document, creating it if absent.
	// Fields not named in partial are preserved.
	Merge(ctx context.Context, collection, id string, partial map[string]any) error
}

// Timestamp formats t the way every record stores time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
