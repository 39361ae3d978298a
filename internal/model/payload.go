package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

// OutputTarget overrides where artifacts are written.
type OutputTarget struct {
	Bucket string `json:"bucket,omitempty"`
}

// PayloadMetadata carries optional provenance resolved upstream.
type PayloadMetadata struct {
	DesignChecksum string `json:"designChecksum,omitempty"`
	OwnerID        string `json:"ownerId,omitempty"`
}

// RenderPayload is the fully resolved job description consumed by the worker.
// Its idempotency identity is (OrderID, LineItemID).
type RenderPayload struct {
	DesignID   string           `json:"designId"`
	OrderID    string           `json:"orderId"`
	LineItemID string           `json:"lineItemId"`
	Source     StorageReference `json:"source"`
	Output     *OutputTarget    `json:"output,omitempty"`
	PrintSpec  PrintSpec        `json:"printSpec"`
	SafeArea   SafeArea         `json:"safeArea"`
	Metadata   *PayloadMetadata `json:"metadata,omitempty"`
	ResolvedAt *time.Time       `json:"resolvedAt,omitempty"`
}

// OutputBucket returns the payload override, else fallback, else the source bucket.
func (p RenderPayload) OutputBucket(fallback string) string {
	if p.Output != nil && p.Output.Bucket != "" {
		return p.Output.Bucket
	}
	if fallback != "" {
		return fallback
	}
	return p.Source.Bucket
}

// Validate checks the wire contract and returns a contract error listing
// every offending field.
func (p RenderPayload) Validate() error {
	var errs []rerrors.FieldError
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, rerrors.FieldError{Field: field, Message: "required"})
		}
	}
	required("designId", p.DesignID)
	required("orderId", p.OrderID)
	required("lineItemId", p.LineItemID)
	for _, id := range []struct{ field, value string }{{"orderId", p.OrderID}, {"lineItemId", p.LineItemID}} {
		if msg := PathSegmentProblem(id.value); msg != "" {
			errs = append(errs, rerrors.FieldError{Field: id.field, Message: msg})
		}
	}
	required("source.bucket", p.Source.Bucket)
	required("source.path", p.Source.Path)
	errs = append(errs, p.PrintSpec.Validate("printSpec.")...)
	errs = append(errs, p.SafeArea.Validate("safeArea.")...)
	if len(errs) > 0 {
		return rerrors.Contract(errs)
	}
	return nil
}

// PathSegmentProblem describes why id cannot name a single artifact path
// segment, or returns "" when it can. Empty ids are left to the required check.
func PathSegmentProblem(id string) string {
	switch {
	case id == "":
		return ""
	case id == "." || id == "..":
		return "must not be a relative path element"
	case strings.ContainsAny(id, `/\`):
		return "must not contain a path separator"
	}
	return ""
}

// DecodePayload parses and validates a task payload.
func DecodePayload(data []byte) (RenderPayload, error) {
	var p RenderPayload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return RenderPayload{}, rerrors.Contract([]rerrors.FieldError{{Field: "payload", Message: err.Error()}})
	}
	if err := p.Validate(); err != nil {
		return RenderPayload{}, err
	}
	return p, nil
}
