// Package preflight checks decoded source dimensions against a print spec
// before any pixels are transformed.
package preflight

import (
	"math"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
	"github.com/dharsanguruparan/PrintReady/internal/units"
)

// ToleranceMM is the allowance applied to the bleed and safe-zone checks.
const ToleranceMM = 0.1

// RequiredPixels returns the output raster size: the trimmed page plus bleed
// on both sides, at the requested dpi.
func RequiredPixels(spec model.PrintSpec) (width, height int) {
	return units.MMToPixelsRounded(spec.WidthMM+2*spec.BleedMM, spec.DPI),
		units.MMToPixelsRounded(spec.HeightMM+2*spec.BleedMM, spec.DPI)
}

// Validate runs every check and records each result, then returns the first
// failure in the order resolution, dpi, safe zone, bleed. The returned checks
// are populated even when err is non-nil.
func Validate(widthPx, heightPx int, p model.RenderPayload) (model.Checks, error) {
	spec := p.PrintSpec
	var checks model.Checks

	res, minDPI := resolution(widthPx, heightPx, spec)
	checks.Resolution = res
	checks.SafeZone = safeZone(spec, p.SafeArea)
	checks.Bleed = bleed(widthPx, spec)
	checks.ICC = model.ICCCheck{Requested: spec.ICCProfile != nil, Passed: true}
	if spec.ICCProfile != nil {
		checks.ICC.Name = spec.ICCProfile.DisplayName()
	}

	switch {
	case !res.PixelsPassed:
		return checks, rerrors.Newf(rerrors.CodeInsufficientResolution,
			"source is %dx%d px, print needs at least %dx%d px",
			widthPx, heightPx, res.RequiredWidthPx, res.RequiredHeightPx)
	case !res.DPIPassed:
		return checks, rerrors.Newf(rerrors.CodeBelowMinimumDPI,
			"source delivers %.3f dpi, minimum is %.3f", res.ActualDPI, minDPI)
	case !checks.SafeZone.Passed:
		m := checks.SafeZone.Margins
		return checks, rerrors.Newf(rerrors.CodeSafeZoneViolation,
			"safe area margins left=%.3f top=%.3f right=%.3f bottom=%.3f mm, need %.3f mm",
			m.Left, m.Top, m.Right, m.Bottom, spec.SafeZoneMM)
	case !checks.Bleed.Passed:
		return checks, rerrors.Newf(rerrors.CodeInsufficientBleed,
			"source carries %.3f mm bleed, need %.3f mm", checks.Bleed.ActualMM, spec.BleedMM)
	}
	return checks, nil
}

// resolution also returns the effective floor it compared against.
// The fixed 300 dpi floor gives up half a pixel along the limiting axis:
// a raster rounded to the nearest pixel at exactly 300 dpi can land a
// fraction below it. Half a pixel is a larger share of a short axis, so a
// page whose limiting side is 127mm or less can pass at 299.9 dpi.
func resolution(widthPx, heightPx int, spec model.PrintSpec) (model.ResolutionCheck, float64) {
	reqW, reqH := RequiredPixels(spec)
	fullW := spec.WidthMM + 2*spec.BleedMM
	fullH := spec.HeightMM + 2*spec.BleedMM

	dpi, limitingMM := units.EffectiveDPI(widthPx, fullW), fullW
	if h := units.EffectiveDPI(heightPx, fullH); h < dpi {
		dpi, limitingMM = h, fullH
	}
	floor := model.MinimumDPI - 0.5*units.MMPerInch/limitingMM

	c := model.ResolutionCheck{
		RequiredWidthPx:  reqW,
		RequiredHeightPx: reqH,
		ActualWidthPx:    widthPx,
		ActualHeightPx:   heightPx,
		RequestedDPI:     spec.DPI,
		MinimumDPI:       model.MinimumDPI,
		ActualDPI:        units.Round3(dpi),
		PixelsPassed:     widthPx >= reqW && heightPx >= reqH,
		DPIPassed:        dpi >= floor,
	}
	c.Passed = c.PixelsPassed && c.DPIPassed
	return c, units.Round3(floor)
}

func safeZone(spec model.PrintSpec, area model.SafeArea) model.SafeZoneCheck {
	left := area.XMM
	top := area.YMM
	right := spec.WidthMM - (area.XMM + area.WidthMM)
	bottom := spec.HeightMM - (area.YMM + area.HeightMM)
	need := spec.SafeZoneMM - ToleranceMM

	return model.SafeZoneCheck{
		RequiredMM:  spec.SafeZoneMM,
		ToleranceMM: ToleranceMM,
		Margins: model.Margins{
			Left:   units.Round3(left),
			Top:    units.Round3(top),
			Right:  units.Round3(right),
			Bottom: units.Round3(bottom),
		},
		Passed: math.Min(math.Min(left, top), math.Min(right, bottom)) >= need,
	}
}

func bleed(widthPx int, spec model.PrintSpec) model.BleedCheck {
	actual := (units.PixelsToMM(widthPx, spec.DPI) - spec.WidthMM) / 2
	return model.BleedCheck{
		RequiredMM:  spec.BleedMM,
		ActualMM:    units.Round3(actual),
		ToleranceMM: ToleranceMM,
		Passed:      actual+ToleranceMM >= spec.BleedMM,
	}
}
