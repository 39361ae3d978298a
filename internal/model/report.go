package model

import "time"

// ResolutionCheck records the pixel and effective-DPI requirements.
type ResolutionCheck struct {
	RequiredWidthPx  int     `json:"requiredWidthPx"`
	RequiredHeightPx int     `json:"requiredHeightPx"`
	ActualWidthPx    int     `json:"actualWidthPx"`
	ActualHeightPx   int     `json:"actualHeightPx"`
	RequestedDPI     float64 `json:"requestedDpi"`
	MinimumDPI       float64 `json:"minimumDpi"`
	ActualDPI        float64 `json:"actualDpi"`
	PixelsPassed     bool    `json:"pixelsPassed"`
	DPIPassed        bool    `json:"dpiPassed"`
	Passed           bool    `json:"passed"`
}

// BleedCheck records the bleed extent carried by the source.
type BleedCheck struct {
	RequiredMM  float64 `json:"requiredMm"`
	ActualMM    float64 `json:"actualMm"`
	ToleranceMM float64 `json:"toleranceMm"`
	Passed      bool    `json:"passed"`
}

// Margins are the distances of the safe area from each trim edge.
type Margins struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// SafeZoneCheck records the safe-area margins against the safe zone.
type SafeZoneCheck struct {
	RequiredMM  float64 `json:"requiredMm"`
	ToleranceMM float64 `json:"toleranceMm"`
	Margins     Margins `json:"margins"`
	Passed      bool    `json:"passed"`
}

// ICCCheck records whether a color profile was requested and attached.
type ICCCheck struct {
	Requested bool   `json:"requested"`
	Applied   bool   `json:"applied"`
	Name      string `json:"name,omitempty"`
	Source    string `json:"source,omitempty"`
	Passed    bool   `json:"passed"`
}

// Checks groups every preflight result.
type Checks struct {
	Resolution ResolutionCheck `json:"resolution"`
	Bleed      BleedCheck      `json:"bleed"`
	SafeZone   SafeZoneCheck   `json:"safeZone"`
	ICC        ICCCheck        `json:"icc"`
}

// Asset is one produced file.
type Asset struct {
	Format      string `json:"format"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Bytes       int    `json:"bytes"`
}

// Dimensions is a pixel size.
type Dimensions struct {
	WidthPx  int `json:"widthPx"`
	HeightPx int `json:"heightPx"`
}

// RenderReport is written fresh on every successful attempt and replaces the
// previous one at the same path.
type RenderReport struct {
	DesignID     string       `json:"designId"`
	OrderID      string       `json:"orderId"`
	LineItemID   string       `json:"lineItemId"`
	Checks       Checks       `json:"checks"`
	Assets       []Asset      `json:"assets"`
	OutputFormat OutputFormat `json:"outputFormat"`
	Source       Dimensions   `json:"source"`
	Output       Dimensions   `json:"output"`
	DPI          float64      `json:"dpi"`
	Checksum     string       `json:"checksum,omitempty"`
	GeneratedAt  time.Time    `json:"generatedAt"`
	Warnings     []string     `json:"warnings"`
}

// Warn appends a warning.
func (r *RenderReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
