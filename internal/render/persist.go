package render

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
)

const (
	contentTypeTIFF = "image/tiff"
	contentTypePDF  = "application/pdf"
	contentTypeJSON = "application/json; charset=utf-8"
)

// Paths are the fixed artifact locations of one line item.
type Paths struct {
	Prefix string
	TIFF   string
	PDF    string
	Report string
}

// ArtifactPaths derives the artifact locations from the line item identity
// alone, so a re-run overwrites the previous artifacts in place.
func ArtifactPaths(orderID, lineItemID string) Paths {
	prefix := path.Join("prints", orderID, lineItemID)
	return Paths{
		Prefix: prefix,
		TIFF:   prefix + "/print-ready.tif",
		PDF:    prefix + "/print-ready.pdf",
		Report: prefix + "/render-report.json",
	}
}

// Files are the encoded outputs of one render.
type Files struct {
	TIFF     []byte
	PDF      []byte
	Checksum string
}

// Outcome is what a successful render hands back to its caller.
type Outcome struct {
	Report    *model.RenderReport
	Checksum  string
	TIFFURL   string
	PDFURL    string
	ReportURL string
}

// Persister writes artifacts and merges the production summary into the
// design and line item records.
type Persister struct {
	blobs         blobstore.Store
	docs          repository.Store
	defaultBucket string
}

// NewPersister constructs a Persister. defaultBucket receives artifacts when
// the payload names no output bucket; without one the source bucket is used.
func NewPersister(blobs blobstore.Store, docs repository.Store, defaultBucket string) *Persister {
	return &Persister{blobs: blobs, docs: docs, defaultBucket: defaultBucket}
}

// Persist uploads the files and report, then updates both records. A render
// without a PDF removes any PDF left at the line item's path. Every step is
// last-write-wins, so a repeated call converges on the same state.
func (p *Persister) Persist(ctx context.Context, payload model.RenderPayload, report *model.RenderReport, files Files) (*Outcome, error) {
	const op = "render.persist"
	bucket := payload.OutputBucket(p.defaultBucket)
	paths := ArtifactPaths(payload.OrderID, payload.LineItemID)
	ref := func(objectPath string) model.StorageReference {
		return model.StorageReference{Bucket: bucket, Path: objectPath}
	}
	out := &Outcome{Report: report, Checksum: files.Checksum}

	report.Checksum = files.Checksum
	report.Assets = report.Assets[:0]

	if err := p.blobs.Upload(ctx, ref(paths.TIFF), files.TIFF, contentTypeTIFF); err != nil {
		return nil, rerrors.Unavailable(err, op, "upload tiff")
	}
	out.TIFFURL = blobstore.URL(p.blobs, ref(paths.TIFF))
	report.Assets = append(report.Assets, model.Asset{
		Format: "tiff", Path: paths.TIFF, URL: out.TIFFURL, ContentType: contentTypeTIFF, Bytes: len(files.TIFF),
	})

	if files.PDF != nil {
		if err := p.blobs.Upload(ctx, ref(paths.PDF), files.PDF, contentTypePDF); err != nil {
			return nil, rerrors.Unavailable(err, op, "upload pdf")
		}
		out.PDFURL = blobstore.URL(p.blobs, ref(paths.PDF))
		report.Assets = append(report.Assets, model.Asset{
			Format: "pdf", Path: paths.PDF, URL: out.PDFURL, ContentType: contentTypePDF, Bytes: len(files.PDF),
		})
	} else if err := p.blobs.Delete(ctx, ref(paths.PDF)); err != nil {
		return nil, rerrors.Unavailable(err, op, "remove stale pdf")
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, rerrors.Wrap(err, op, "encode report")
	}
	if err := p.blobs.Upload(ctx, ref(paths.Report), append(body, '\n'), contentTypeJSON); err != nil {
		return nil, rerrors.Unavailable(err, op, "upload report")
	}
	out.ReportURL = blobstore.URL(p.blobs, ref(paths.Report))

	asset := productionAsset(payload, report, out)
	if err := p.docs.Merge(ctx, repository.Designs, payload.DesignID, map[string]any{
		"productionAsset": asset,
	}); err != nil {
		return nil, rerrors.Wrap(err, op, fmt.Sprintf("update design %s", payload.DesignID))
	}

	if err := p.docs.Merge(ctx, repository.LineItems(payload.OrderID), payload.LineItemID, map[string]any{
		"renderStatus":     string(repository.StatusCompleted),
		"productionAsset":  asset,
		"outputFiles":      map[string]any{"tiff": out.TIFFURL, "pdf": nilIfEmpty(out.PDFURL)},
		"renderReportPath": out.ReportURL,
		"renderError":      nil,
		"renderedAt":       repository.Timestamp(report.GeneratedAt),
	}); err != nil {
		return nil, rerrors.Wrap(err, op, fmt.Sprintf("update line item %s/%s", payload.OrderID, payload.LineItemID))
	}
	return out, nil
}

func productionAsset(payload model.RenderPayload, report *model.RenderReport, out *Outcome) map[string]any {
	spec := payload.PrintSpec
	var profile any
	if report.Checks.ICC.Applied {
		profile = report.Checks.ICC.Name
	}
	return map[string]any{
		"url":          out.TIFFURL,
		"pdfUrl":       nilIfEmpty(out.PDFURL),
		"format":       string(spec.OutputFormat),
		"dpi":          spec.DPI,
		"colorProfile": profile,
		"checksum":     out.Checksum,
		"reportPath":   out.ReportURL,
		"bleedMm":      spec.BleedMM,
		"safeZoneMm":   spec.SafeZoneMM,
		"widthPx":      report.Output.WidthPx,
		"heightPx":     report.Output.HeightPx,
		"safeArea": map[string]any{
			"xMm":      payload.SafeArea.XMM,
			"yMm":      payload.SafeArea.YMM,
			"widthMm":  payload.SafeArea.WidthMM,
			"heightMm": payload.SafeArea.HeightMM,
		},
		"updatedAt": repository.Timestamp(report.GeneratedAt),
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
