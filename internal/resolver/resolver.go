// Package resolver derives the print contract for a design from the design
// record and the catalog item, walking each setting's candidate locations in
// fixed precedence order.
package resolver

import (
	"strings"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// Input holds the raw upstream records. Either map may be nil.
type Input struct {
	DesignID    string
	Design      map[string]any
	CatalogItem map[string]any
	SKU         string
}

// Result is the resolved render preparation.
type Result struct {
	PrintSpec      model.PrintSpec
	SafeArea       model.SafeArea
	Source         model.StorageReference
	OwnerID        string
	SourceChecksum string

	// Origins name the record location each value was read from, or
	// "default" for the fallback.
	PrintSpecOrigin string
	SafeAreaOrigin  string
	SourceOrigin    string
}

// Resolver resolves render preparation results. It is stateless.
type Resolver struct {
	defaultBucket string
}

// New creates a Resolver. defaultBucket qualifies bare object paths.
func New(defaultBucket string) *Resolver {
	return &Resolver{defaultBucket: defaultBucket}
}

// Resolve returns the print spec, safe area and source for a design.
// A design with no usable source asset, or a page too small to hold the
// default safe area, is a configuration error.
func (r *Resolver) Resolve(in Input) (Result, error) {
	var res Result

	source, origin, raw, ok := r.resolveSource(in)
	if !ok {
		return Result{}, rerrors.Configuration("design %s has no resolvable source asset", in.DesignID).
			WithField("design_id", in.DesignID)
	}
	res.Source, res.SourceOrigin = source, origin
	res.SourceChecksum = checksumOf(raw)
	if res.SourceChecksum == "" {
		res.SourceChecksum = firstString(in.Design, "checksum")
	}
	res.OwnerID = firstString(in.Design, "ownerId", "userId", "creatorId")

	res.PrintSpec, res.PrintSpecOrigin = model.DefaultPrintSpec(), "default"
	for _, c := range printSpecCandidates {
		if spec, ok := r.parsePrintSpec(c.extract(in)); ok {
			res.PrintSpec, res.PrintSpecOrigin = spec, c.origin
			break
		}
	}

	found := false
	for _, c := range safeAreaCandidates {
		if area, ok := parseSafeArea(c.extract(in), res.PrintSpec); ok {
			res.SafeArea, res.SafeAreaOrigin = area, c.origin
			found = true
			break
		}
	}
	if !found {
		res.SafeArea, res.SafeAreaOrigin = model.InsetSafeArea(res.PrintSpec), "default"
		if errs := res.SafeArea.Validate("safeArea."); len(errs) > 0 {
			return Result{}, rerrors.Configuration(
				"design %s: page %vx%vmm cannot hold a %vmm safe zone",
				in.DesignID, res.PrintSpec.WidthMM, res.PrintSpec.HeightMM, res.PrintSpec.SafeZoneMM,
			).WithField("design_id", in.DesignID)
		}
	}

	return res, nil
}

// Payload assembles the render payload for one order line item.
func (res Result) Payload(designID, orderID, lineItemID string) model.RenderPayload {
	p := model.RenderPayload{
		DesignID:   designID,
		OrderID:    orderID,
		LineItemID: lineItemID,
		Source:     res.Source,
		PrintSpec:  res.PrintSpec,
		SafeArea:   res.SafeArea,
	}
	if res.OwnerID != "" || res.SourceChecksum != "" {
		p.Metadata = &model.PayloadMetadata{DesignChecksum: res.SourceChecksum, OwnerID: res.OwnerID}
	}
	return p
}

func (r *Resolver) resolveSource(in Input) (model.StorageReference, string, any, bool) {
	for _, c := range sourceCandidates {
		raw := c.extract(in)
		if raw == nil {
			continue
		}
		ref, err := model.ParseStorageReferenceIn(raw, r.defaultBucket)
		if err == nil {
			return ref, c.origin, raw, true
		}
	}
	return model.StorageReference{}, "", nil, false
}

func checksumOf(raw any) string {
	m, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	return firstString(m, "checksum", "sha256", "md5")
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
