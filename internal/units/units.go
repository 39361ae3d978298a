// Package units converts between physical print units and pixels.
package units

import "math"

const (
	// MMPerInch is the number of millimeters in one inch.
	MMPerInch = 25.4
	// PointsPerInch is the PostScript point density.
	PointsPerInch = 72.0
)

// MMToPixels returns the exact (unrounded) pixel extent of mm at dpi.
func MMToPixels(mm, dpi float64) float64 {
	return mm / MMPerInch * dpi
}

// MMToPixelsRounded rounds MMToPixels to the nearest whole pixel.
func MMToPixelsRounded(mm, dpi float64) int {
	return int(math.Round(MMToPixels(mm, dpi)))
}

// PixelsToMM returns the physical extent of px pixels printed at dpi.
func PixelsToMM(px int, dpi float64) float64 {
	return float64(px) * MMPerInch / dpi
}

// EffectiveDPI is the resolution px pixels deliver when stretched over mm.
func EffectiveDPI(px int, mm float64) float64 {
	return float64(px) * MMPerInch / mm
}

// PixelsToPoints returns the page extent in points of px pixels at dpi.
func PixelsToPoints(px int, dpi float64) float64 {
	return float64(px) / dpi * PointsPerInch
}

// Round3 rounds v to three decimal places for reporting.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
