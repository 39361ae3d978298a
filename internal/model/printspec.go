package model

import (
	"encoding/json"
	"fmt"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

// OutputFormat selects which production files a render produces.
type OutputFormat string

const (
	FormatTIFF OutputFormat = "tiff"
	FormatPDF  OutputFormat = "pdf"
	FormatBoth OutputFormat = "both"
)

// Valid reports whether f is a known format.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatTIFF, FormatPDF, FormatBoth:
		return true
	}
	return false
}

// IncludesPDF reports whether a paged document is produced next to the raster.
func (f OutputFormat) IncludesPDF() bool {
	return f == FormatPDF || f == FormatBoth
}

const (
	DefaultDPI        = 300.0
	DefaultBleedMM    = 3.0
	DefaultSafeZoneMM = 3.0
	// MinimumDPI is the delivered-resolution floor, independent of the
	// requested dpi.
	MinimumDPI = 300.0
)

// ICCProfile names a color profile to embed in the outputs.
type ICCProfile struct {
	StorageReference
	Name string `json:"name,omitempty"`
}

// DisplayName is the explicit name, else the last path segment.
func (p ICCProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Base()
}

// UnmarshalJSON accepts any storage-reference encoding plus an optional name.
func (p *ICCProfile) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	profile, err := ParseICCProfile(raw, "")
	if err != nil {
		return err
	}
	*p = profile
	return nil
}

// ParseICCProfile reads a profile location and its optional name.
func ParseICCProfile(v any, defaultBucket string) (ICCProfile, error) {
	ref, err := ParseStorageReferenceIn(v, defaultBucket)
	if err != nil {
		return ICCProfile{}, err
	}
	profile := ICCProfile{StorageReference: ref}
	if m, ok := v.(map[string]any); ok {
		profile.Name, _ = m["name"].(string)
	}
	return profile, nil
}

// PrintSpec is the physical contract for one print job.
type PrintSpec struct {
	WidthMM      float64      `json:"widthMm"`
	HeightMM     float64      `json:"heightMm"`
	DPI          float64      `json:"dpi"`
	BleedMM      float64      `json:"bleedMm"`
	SafeZoneMM   float64      `json:"safeZoneMm"`
	ICCProfile   *ICCProfile  `json:"iccProfile,omitempty"`
	Background   *Color       `json:"background,omitempty"`
	OutputFormat OutputFormat `json:"outputFormat"`
}

// DefaultPrintSpec is the A4-equivalent fallback.
func DefaultPrintSpec() PrintSpec {
	return PrintSpec{
		WidthMM:      210,
		HeightMM:     297,
		DPI:          DefaultDPI,
		BleedMM:      DefaultBleedMM,
		SafeZoneMM:   DefaultSafeZoneMM,
		OutputFormat: FormatTIFF,
	}
}

// UnmarshalJSON applies the schema defaults for absent optional fields.
func (s *PrintSpec) UnmarshalJSON(data []byte) error {
	var wire struct {
		WidthMM      float64      `json:"widthMm"`
		HeightMM     float64      `json:"heightMm"`
		DPI          *float64     `json:"dpi"`
		BleedMM      *float64     `json:"bleedMm"`
		SafeZoneMM   *float64     `json:"safeZoneMm"`
		ICCProfile   *ICCProfile  `json:"iccProfile"`
		Background   *Color       `json:"background"`
		OutputFormat OutputFormat `json:"outputFormat"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := DefaultPrintSpec()
	out.WidthMM = wire.WidthMM
	out.HeightMM = wire.HeightMM
	if wire.DPI != nil {
		out.DPI = *wire.DPI
	}
	if wire.BleedMM != nil {
		out.BleedMM = *wire.BleedMM
	}
	if wire.SafeZoneMM != nil {
		out.SafeZoneMM = *wire.SafeZoneMM
	}
	if wire.OutputFormat != "" {
		out.OutputFormat = wire.OutputFormat
	}
	out.ICCProfile = wire.ICCProfile
	out.Background = wire.Background
	*s = out
	return nil
}

// Validate returns one FieldError per violated constraint.
func (s PrintSpec) Validate(prefix string) []rerrors.FieldError {
	var errs []rerrors.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, rerrors.FieldError{Field: prefix + field, Message: fmt.Sprintf(format, args...)})
	}
	if !(s.WidthMM > 0) {
		add("widthMm", "must be positive, got %v", s.WidthMM)
	}
	if !(s.HeightMM > 0) {
		add("heightMm", "must be positive, got %v", s.HeightMM)
	}
	if !(s.DPI >= DefaultDPI) {
		add("dpi", "must be >= %v, got %v", DefaultDPI, s.DPI)
	}
	if !(s.BleedMM >= 0) {
		add("bleedMm", "must not be negative, got %v", s.BleedMM)
	}
	if !(s.SafeZoneMM >= 0) {
		add("safeZoneMm", "must not be negative, got %v", s.SafeZoneMM)
	}
	if !s.OutputFormat.Valid() {
		add("outputFormat", "must be one of tiff, pdf, both; got %q", s.OutputFormat)
	}
	if s.ICCProfile != nil && (s.ICCProfile.Bucket == "" || s.ICCProfile.Path == "") {
		add("iccProfile", "must name a bucket and path")
	}
	if s.Background != nil && !(s.Background.Alpha >= 0 && s.Background.Alpha <= 1) {
		add("background.alpha", "must be within 0..1, got %v", s.Background.Alpha)
	}
	return errs
}

// SafeArea is the rectangle, relative to the trimmed page's top-left corner,
// that critical artwork must occupy.
type SafeArea struct {
	XMM      float64 `json:"xMm"`
	YMM      float64 `json:"yMm"`
	WidthMM  float64 `json:"widthMm"`
	HeightMM float64 `json:"heightMm"`
}

// InsetSafeArea is the page interior inset by the safe-zone margin.
func InsetSafeArea(spec PrintSpec) SafeArea {
	return SafeArea{
		XMM:      spec.SafeZoneMM,
		YMM:      spec.SafeZoneMM,
		WidthMM:  spec.WidthMM - 2*spec.SafeZoneMM,
		HeightMM: spec.HeightMM - 2*spec.SafeZoneMM,
	}
}

// Validate returns one FieldError per violated constraint.
func (a SafeArea) Validate(prefix string) []rerrors.FieldError {
	var errs []rerrors.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, rerrors.FieldError{Field: prefix + field, Message: fmt.Sprintf(format, args...)})
	}
	if !(a.XMM >= 0) {
		add("xMm", "must not be negative, got %v", a.XMM)
	}
	if !(a.YMM >= 0) {
		add("yMm", "must not be negative, got %v", a.YMM)
	}
	if !(a.WidthMM > 0) {
		add("widthMm", "must be positive, got %v", a.WidthMM)
	}
	if !(a.HeightMM > 0) {
		add("heightMm", "must be positive, got %v", a.HeightMM)
	}
	return errs
}
