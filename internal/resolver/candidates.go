package resolver

import (
	"strings"

	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// candidate is one configuration location, read lazily in precedence order.
type candidate struct {
	origin  string
	extract func(in Input) any
}

var sourceCandidates = []candidate{
	{"design.renderSource", designField("renderSource")},
	{"design.source", designField("source")},
	{"design.primaryAsset", designField("primaryAsset")},
	{"design.masterAsset", designField("masterAsset")},
}

var printSpecCandidates = []candidate{
	{"design.renderSpec.printSpec", designField("renderSpec", "printSpec")},
	{"design.renderSpec", designField("renderSpec")},
	{"design.printSpec", designField("printSpec")},
	{"catalogItem.printSpecs[sku]", requestedSKU("printSpecs")},
	{"catalogItem.printSpecs[defaultSku]", defaultSKU("printSpecs")},
	{"catalogItem.attributes.printSpec", catalogField("attributes", "printSpec")},
	{"catalogItem.attributes", catalogField("attributes")},
	{"catalogItem.production.printSpec", catalogField("production", "printSpec")},
	{"catalogItem.production", catalogField("production")},
	{"catalogItem.render.printSpec", catalogField("render", "printSpec")},
	{"catalogItem.render", catalogField("render")},
}

var safeAreaCandidates = []candidate{
	{"design.renderSpec.safeArea", designField("renderSpec", "safeArea")},
	{"design.safeArea", designField("safeArea")},
	{"catalogItem.safeAreas[sku]", requestedSKU("safeAreas")},
	{"catalogItem.safeAreas[defaultSku]", defaultSKU("safeAreas")},
	{"catalogItem.printSpecs[sku].safeArea", requestedSKU("printSpecs", "safeArea")},
	{"catalogItem.printSpecs[defaultSku].safeArea", defaultSKU("printSpecs", "safeArea")},
	{"catalogItem.attributes.safeArea", catalogField("attributes", "safeArea")},
	{"catalogItem.production.safeArea", catalogField("production", "safeArea")},
	{"catalogItem.render.safeArea", catalogField("render", "safeArea")},
}

func designField(path ...string) func(Input) any {
	return func(in Input) any { return dig(in.Design, path...) }
}

func catalogField(path ...string) func(Input) any {
	return func(in Input) any { return dig(in.CatalogItem, path...) }
}

func requestedSKU(field string, rest ...string) func(Input) any {
	return func(in Input) any {
		if in.SKU == "" {
			return nil
		}
		return dig(in.CatalogItem, append([]string{field, in.SKU}, rest...)...)
	}
}

func defaultSKU(field string, rest ...string) func(Input) any {
	return func(in Input) any {
		sku, _ := dig(in.Design, "defaultSku").(string)
		if sku == "" || sku == in.SKU {
			return nil
		}
		return dig(in.CatalogItem, append([]string{field, sku}, rest...)...)
	}
}

func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[key]
		if !ok {
			return nil
		}
	}
	if obj, ok := cur.(map[string]any); ok && obj == nil {
		return nil
	}
	return cur
}

// parsePrintSpec accepts a print-spec-shaped object, filling unset optional
// fields from the schema defaults. Any present but invalid field rejects the
// whole candidate.
func (r *Resolver) parsePrintSpec(v any) (model.PrintSpec, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.PrintSpec{}, false
	}
	spec := model.DefaultPrintSpec()
	var valid bool
	if spec.WidthMM, valid = requiredNumber(m, "widthMm"); !valid || spec.WidthMM <= 0 {
		return model.PrintSpec{}, false
	}
	if spec.HeightMM, valid = requiredNumber(m, "heightMm"); !valid || spec.HeightMM <= 0 {
		return model.PrintSpec{}, false
	}
	if spec.DPI, valid = optionalNumber(m, "dpi", model.DefaultDPI); !valid || spec.DPI < model.DefaultDPI {
		return model.PrintSpec{}, false
	}
	if spec.BleedMM, valid = optionalNumber(m, "bleedMm", model.DefaultBleedMM); !valid || spec.BleedMM < 0 {
		return model.PrintSpec{}, false
	}
	if spec.SafeZoneMM, valid = optionalNumber(m, "safeZoneMm", model.DefaultSafeZoneMM); !valid || spec.SafeZoneMM < 0 {
		return model.PrintSpec{}, false
	}
	if raw, ok := m["outputFormat"]; ok && raw != nil {
		s, _ := raw.(string)
		format := model.OutputFormat(strings.ToLower(strings.TrimSpace(s)))
		if !format.Valid() {
			return model.PrintSpec{}, false
		}
		spec.OutputFormat = format
	}
	if raw, ok := m["iccProfile"]; ok && raw != nil {
		profile, err := model.ParseICCProfile(raw, r.defaultBucket)
		if err != nil {
			return model.PrintSpec{}, false
		}
		spec.ICCProfile = &profile
	}
	if raw, ok := m["background"]; ok && raw != nil {
		bg, err := model.ParseColor(raw)
		if err != nil {
			return model.PrintSpec{}, false
		}
		spec.Background = &bg
	}
	return spec, true
}

// parseSafeArea fills missing offsets with the safe zone and missing extents
// with the page interior left after the offset and one safe-zone margin.
func parseSafeArea(v any, spec model.PrintSpec) (model.SafeArea, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.SafeArea{}, false
	}
	var area model.SafeArea
	var valid bool
	if area.XMM, valid = optionalNumber(m, "xMm", spec.SafeZoneMM); !valid || area.XMM < 0 {
		return model.SafeArea{}, false
	}
	if area.YMM, valid = optionalNumber(m, "yMm", spec.SafeZoneMM); !valid || area.YMM < 0 {
		return model.SafeArea{}, false
	}
	if area.WidthMM, valid = optionalNumber(m, "widthMm", spec.WidthMM-area.XMM-spec.SafeZoneMM); !valid || area.WidthMM <= 0 {
		return model.SafeArea{}, false
	}
	if area.HeightMM, valid = optionalNumber(m, "heightMm", spec.HeightMM-area.YMM-spec.SafeZoneMM); !valid || area.HeightMM <= 0 {
		return model.SafeArea{}, false
	}
	return area, true
}

func requiredNumber(m map[string]any, key string) (float64, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, false
	}
	return model.Number(raw)
}

func optionalNumber(m map[string]any, key string, def float64) (float64, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return def, true
	}
	return model.Number(raw)
}
