// Package render runs one print-ready render: download, preflight, transform,
// encode and persist.
package render

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	pdfutil "github.com/dharsanguruparan/PrintReady/internal/pdf"
	"github.com/dharsanguruparan/PrintReady/internal/preflight"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/transform"
	"github.com/dharsanguruparan/PrintReady/internal/units"
)

// pageTolerancePt absorbs the two-decimal rounding of PDF page boxes.
const pageTolerancePt = 0.01

// Pipeline renders payloads. Steps within one run are sequential; separate
// runs share nothing but the stores.
type Pipeline struct {
	blobs     blobstore.Store
	persister *Persister
	log       *logger.Logger
	tempDir   string
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTempDir sets where ICC profiles are staged.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) { p.tempDir = dir }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline wires a pipeline over the given stores.
func NewPipeline(blobs blobstore.Store, docs repository.Store, outputBucket string, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		blobs:     blobs,
		persister: NewPersister(blobs, docs, outputBucket),
		log:       log.WithComponent("render"),
		tempDir:   os.TempDir(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the render. On a preflight failure the returned outcome still
// carries the report with every check populated.
func (p *Pipeline) Run(ctx context.Context, payload model.RenderPayload) (*Outcome, error) {
	const op = "render.run"
	log := p.log.FromContext(ctx)
	spec := payload.PrintSpec
	started := p.now()

	source, err := p.blobs.Download(ctx, payload.Source)
	if err != nil {
		return nil, rerrors.Unavailable(err, op, "download source "+blobstore.URL(p.blobs, payload.Source))
	}
	img, format, err := transform.Decode(source)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	log.Debug("source decoded",
		slog.String("format", format),
		slog.Int("width_px", bounds.Dx()),
		slog.Int("height_px", bounds.Dy()),
	)

	report := &model.RenderReport{
		DesignID:     payload.DesignID,
		OrderID:      payload.OrderID,
		LineItemID:   payload.LineItemID,
		OutputFormat: spec.OutputFormat,
		Source:       model.Dimensions{WidthPx: bounds.Dx(), HeightPx: bounds.Dy()},
		DPI:          spec.DPI,
		GeneratedAt:  started.UTC(),
		Warnings:     []string{},
	}

	var profile *transform.ProfileFile
	if spec.ICCProfile != nil {
		data, err := p.blobs.Download(ctx, spec.ICCProfile.StorageReference)
		if err != nil {
			return nil, rerrors.Unavailable(err, op, "download icc profile "+blobstore.URL(p.blobs, spec.ICCProfile.StorageReference))
		}
		profile, err = transform.StageProfile(p.tempDir, data, spec.ICCProfile.DisplayName())
		if err != nil {
			return nil, rerrors.Wrap(err, op, "stage icc profile")
		}
		defer func() {
			if err := profile.Close(); err != nil {
				log.Warn("remove icc temp file", slog.String("path", profile.Path), slog.String("error", err.Error()))
			}
		}()
	}

	checks, err := preflight.Validate(bounds.Dx(), bounds.Dy(), payload)
	if spec.ICCProfile != nil {
		checks.ICC.Source = blobstore.URL(p.blobs, spec.ICCProfile.StorageReference)
	}
	report.Checks = checks
	if err != nil {
		log.Info("preflight rejected source",
			slog.String("code", string(rerrors.GetCode(err))),
			slog.String("reason", err.Error()),
		)
		return &Outcome{Report: report}, err
	}

	width, height := preflight.RequiredPixels(spec)
	res, err := transform.Render(img, transform.Options{
		WidthPx:    width,
		HeightPx:   height,
		DPI:        spec.DPI,
		Background: spec.Background,
		Profile:    profile,
		PDF:        spec.OutputFormat.IncludesPDF(),
	})
	if err != nil {
		return nil, rerrors.Wrap(err, op, "transform")
	}
	report.Output = model.Dimensions{WidthPx: width, HeightPx: height}
	report.Checks.ICC.Applied = res.ICCApplied
	if res.ICCApplied {
		report.Checks.ICC.Name = res.ICCName
	}
	for _, w := range res.Warnings {
		report.Warn(w)
	}
	if bounds.Dx() > 2*width && bounds.Dy() > 2*height {
		report.Warn("source is more than twice the required size and was downscaled")
	}

	if res.PDF != nil {
		if err := pdfutil.Verify(res.PDF, units.PixelsToPoints(width, spec.DPI), units.PixelsToPoints(height, spec.DPI), pageTolerancePt); err != nil {
			return nil, rerrors.Wrap(err, op, "verify pdf")
		}
	}

	outcome, err := p.persister.Persist(ctx, payload, report, Files{TIFF: res.TIFF, PDF: res.PDF, Checksum: res.Checksum})
	if err != nil {
		return nil, err
	}
	log.Info("render completed",
		slog.String("checksum", outcome.Checksum),
		slog.String("tiff_url", outcome.TIFFURL),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("elapsed", p.now().Sub(started)),
	)
	return outcome, nil
}
