package resolver

import (
	"testing"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

func design(extra map[string]any) map[string]any {
	d := map[string]any{"source": "gs://art/d1/master.png"}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

func TestResolveDefaults(t *testing.T) {
	res, err := New("").Resolve(Input{DesignID: "d1", Design: design(nil)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.PrintSpec != model.DefaultPrintSpec() || res.PrintSpecOrigin != "default" {
		t.Fatalf("expected default print spec, got %+v from %s", res.PrintSpec, res.PrintSpecOrigin)
	}
	want := model.SafeArea{XMM: 3, YMM: 3, WidthMM: 204, HeightMM: 291}
	if res.SafeArea != want {
		t.Fatalf("safe area = %+v, want %+v", res.SafeArea, want)
	}
	if res.Source != (model.StorageReference{Bucket: "art", Path: "d1/master.png"}) {
		t.Fatalf("source = %+v", res.Source)
	}
}

func TestResolvePrintSpecPrecedence(t *testing.T) {
	catalog := map[string]any{
		"printSpecs": map[string]any{
			"POSTER-A3": map[string]any{"widthMm": 297.0, "heightMm": 420.0},
			"POSTER-A4": map[string]any{"widthMm": 210.0, "heightMm": 297.0, "dpi": 350.0},
		},
		"attributes": map[string]any{"widthMm": 100.0, "heightMm": 100.0},
	}
	tests := []struct {
		name       string
		design     map[string]any
		sku        string
		wantWidth  float64
		wantOrigin string
	}{
		{
			name: "renderSpec.printSpec wins over everything",
			design: design(map[string]any{
				"renderSpec": map[string]any{"printSpec": map[string]any{"widthMm": 50.0, "heightMm": 50.0}},
				"printSpec":  map[string]any{"widthMm": 60.0, "heightMm": 60.0},
			}),
			sku:        "POSTER-A3",
			wantWidth:  50,
			wantOrigin: "design.renderSpec.printSpec",
		},
		{
			name:       "print-spec shaped renderSpec",
			design:     design(map[string]any{"renderSpec": map[string]any{"widthMm": 55.0, "heightMm": 55.0}}),
			wantWidth:  55,
			wantOrigin: "design.renderSpec",
		},
		{
			name: "invalid candidate is skipped",
			design: design(map[string]any{
				"renderSpec": map[string]any{"printSpec": map[string]any{"widthMm": 50.0, "heightMm": 50.0, "dpi": 150.0}},
				"printSpec":  map[string]any{"widthMm": 60.0, "heightMm": 60.0},
			}),
			wantWidth:  60,
			wantOrigin: "design.printSpec",
		},
		{
			name:       "catalog entry for the requested sku",
			design:     design(map[string]any{"defaultSku": "POSTER-A4"}),
			sku:        "POSTER-A3",
			wantWidth:  297,
			wantOrigin: "catalogItem.printSpecs[sku]",
		},
		{
			name:       "catalog entry for the design default sku",
			design:     design(map[string]any{"defaultSku": "POSTER-A4"}),
			sku:        "UNKNOWN",
			wantWidth:  210,
			wantOrigin: "catalogItem.printSpecs[defaultSku]",
		},
		{
			name:       "catalog attributes section",
			design:     design(nil),
			sku:        "UNKNOWN",
			wantWidth:  100,
			wantOrigin: "catalogItem.attributes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New("").Resolve(Input{DesignID: "d1", Design: tt.design, CatalogItem: catalog, SKU: tt.sku})
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if res.PrintSpec.WidthMM != tt.wantWidth || res.PrintSpecOrigin != tt.wantOrigin {
				t.Fatalf("got width %v from %s, want %v from %s",
					res.PrintSpec.WidthMM, res.PrintSpecOrigin, tt.wantWidth, tt.wantOrigin)
			}
		})
	}
}

func TestResolvePrintSpecDefaultsAndFormats(t *testing.T) {
	d := design(map[string]any{"printSpec": map[string]any{
		"widthMm":      148.0,
		"heightMm":     210.0,
		"outputFormat": "BOTH",
		"background":   "#ffffff",
		"iccProfile":   map[string]any{"path": "icc/FOGRA39.icc", "name": "Coated FOGRA39"},
	}})
	res, err := New("profiles").Resolve(Input{DesignID: "d1", Design: d})
	if err != nil {
		t.Fatal(err)
	}
	spec := res.PrintSpec
	if spec.DPI != 300 || spec.BleedMM != 3 || spec.SafeZoneMM != 3 || spec.OutputFormat != model.FormatBoth {
		t.Fatalf("defaults not filled: %+v", spec)
	}
	if spec.ICCProfile == nil || spec.ICCProfile.Bucket != "profiles" || spec.ICCProfile.DisplayName() != "Coated FOGRA39" {
		t.Fatalf("icc profile: %+v", spec.ICCProfile)
	}
	if spec.Background == nil || *spec.Background != model.White {
		t.Fatalf("background: %+v", spec.Background)
	}
}

func TestResolveSafeAreaPartialFill(t *testing.T) {
	d := design(map[string]any{
		"printSpec": map[string]any{"widthMm": 100.0, "heightMm": 200.0, "safeZoneMm": 5.0},
		"safeArea":  map[string]any{"xMm": 10.0},
	})
	res, err := New("").Resolve(Input{DesignID: "d1", Design: d})
	if err != nil {
		t.Fatal(err)
	}
	want := model.SafeArea{XMM: 10, YMM: 5, WidthMM: 85, HeightMM: 190}
	if res.SafeArea != want || res.SafeAreaOrigin != "design.safeArea" {
		t.Fatalf("safe area = %+v from %s, want %+v", res.SafeArea, res.SafeAreaOrigin, want)
	}
}

func TestResolveSafeAreaSkipsDegenerate(t *testing.T) {
	d := design(map[string]any{
		"renderSpec": map[string]any{"safeArea": map[string]any{"xMm": 300.0}},
		"safeArea":   map[string]any{"xMm": 4.0, "yMm": 4.0, "widthMm": 200.0, "heightMm": 280.0},
	})
	res, err := New("").Resolve(Input{DesignID: "d1", Design: d})
	if err != nil {
		t.Fatal(err)
	}
	if res.SafeAreaOrigin != "design.safeArea" || res.SafeArea.WidthMM != 200 {
		t.Fatalf("degenerate candidate should be skipped: %+v from %s", res.SafeArea, res.SafeAreaOrigin)
	}
}

func TestResolveSafeAreaFromCatalog(t *testing.T) {
	catalog := map[string]any{
		"safeAreas": map[string]any{"MUG": map[string]any{"xMm": 20.0, "yMm": 20.0, "widthMm": 100.0, "heightMm": 50.0}},
	}
	res, err := New("").Resolve(Input{DesignID: "d1", Design: design(nil), CatalogItem: catalog, SKU: "MUG"})
	if err != nil {
		t.Fatal(err)
	}
	if res.SafeAreaOrigin != "catalogItem.safeAreas[sku]" || res.SafeArea.XMM != 20 {
		t.Fatalf("catalog safe area not used: %+v from %s", res.SafeArea, res.SafeAreaOrigin)
	}
}

func TestResolveSafeAreaFromDefaultSKUPrintSpec(t *testing.T) {
	d := design(map[string]any{"defaultSku": "POSTER-A4"})
	catalog := map[string]any{
		"printSpecs": map[string]any{
			"POSTER-A4": map[string]any{
				"widthMm": 210.0, "heightMm": 297.0,
				"safeArea": map[string]any{"xMm": 12.0, "yMm": 12.0, "widthMm": 186.0, "heightMm": 273.0},
			},
		},
		"attributes": map[string]any{"safeArea": map[string]any{"xMm": 1.0, "yMm": 1.0, "widthMm": 50.0, "heightMm": 50.0}},
	}
	res, err := New("").Resolve(Input{DesignID: "d1", Design: d, CatalogItem: catalog, SKU: "MUG"})
	if err != nil {
		t.Fatal(err)
	}
	want := model.SafeArea{XMM: 12, YMM: 12, WidthMM: 186, HeightMM: 273}
	if res.SafeAreaOrigin != "catalogItem.printSpecs[defaultSku].safeArea" || res.SafeArea != want {
		t.Fatalf("safe area = %+v from %s, want %+v", res.SafeArea, res.SafeAreaOrigin, want)
	}
}

func TestResolveSourceCandidates(t *testing.T) {
	d := map[string]any{
		"source":       12.0,
		"primaryAsset": map[string]any{"bucket": "art", "path": "p.png", "sha256": "abc"},
		"masterAsset":  "gs://art/m.png",
		"userId":       "u-7",
		"checksum":     "design-sum",
	}
	res, err := New("").Resolve(Input{DesignID: "d1", Design: d})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source.Path != "p.png" || res.SourceOrigin != "design.primaryAsset" {
		t.Fatalf("source = %+v from %s", res.Source, res.SourceOrigin)
	}
	if res.SourceChecksum != "abc" || res.OwnerID != "u-7" {
		t.Fatalf("extras: checksum %q owner %q", res.SourceChecksum, res.OwnerID)
	}

	delete(d, "primaryAsset")
	res, err = New("").Resolve(Input{DesignID: "d1", Design: d})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source.Path != "m.png" || res.SourceChecksum != "design-sum" {
		t.Fatalf("fallback source: %+v checksum %q", res.Source, res.SourceChecksum)
	}
}

func TestResolveMissingSource(t *testing.T) {
	for _, d := range []map[string]any{nil, {"source": "relative/path.png"}, {"renderSource": map[string]any{}}} {
		_, err := New("").Resolve(Input{DesignID: "d1", Design: d})
		if !rerrors.IsCode(err, rerrors.CodeConfiguration) {
			t.Errorf("design %v: expected configuration error, got %v", d, err)
		}
	}
	res, err := New("art").Resolve(Input{DesignID: "d1", Design: map[string]any{"source": "relative/path.png"}})
	if err != nil || res.Source.Bucket != "art" {
		t.Fatalf("default bucket should qualify a bare path: %+v %v", res.Source, err)
	}
}

func TestResolveDefaultSafeAreaTooSmall(t *testing.T) {
	d := design(map[string]any{"printSpec": map[string]any{"widthMm": 5.0, "heightMm": 5.0}})
	_, err := New("").Resolve(Input{DesignID: "d1", Design: d})
	if !rerrors.IsCode(err, rerrors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestResultPayload(t *testing.T) {
	res, err := New("").Resolve(Input{DesignID: "d1", Design: design(map[string]any{"ownerId": "u1"})})
	if err != nil {
		t.Fatal(err)
	}
	p := res.Payload("d1", "o1", "li1")
	if err := p.Validate(); err != nil {
		t.Fatalf("resolved payload should satisfy the contract: %v", err)
	}
	if p.Metadata == nil || p.Metadata.OwnerID != "u1" {
		t.Fatalf("metadata: %+v", p.Metadata)
	}
}
