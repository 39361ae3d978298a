package model

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is an sRGB color with straight alpha. Unset channels default to
// opaque white.
type Color struct {
	R     uint8   `json:"r"`
	G     uint8   `json:"g"`
	B     uint8   `json:"b"`
	Alpha float64 `json:"alpha"`
}

// White is the default flattening color.
var White = Color{R: 255, G: 255, B: 255, Alpha: 1}

// NRGBA converts the color for compositing.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(c.Alpha * 255))}
}

// UnmarshalJSON accepts {r,g,b,alpha} with optional channels or a hex string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseColor(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor builds a Color from a channel object or a #rgb / #rrggbb string.
func ParseColor(v any) (Color, error) {
	switch t := v.(type) {
	case string:
		return parseHexColor(t)
	case map[string]any:
		out := White
		for _, ch := range []struct {
			key string
			dst *uint8
		}{{"r", &out.R}, {"g", &out.G}, {"b", &out.B}} {
			raw, ok := t[ch.key]
			if !ok || raw == nil {
				continue
			}
			n, ok := Number(raw)
			if !ok || n < 0 || n > 255 {
				return Color{}, fmt.Errorf("color channel %s must be a number in 0..255", ch.key)
			}
			*ch.dst = uint8(math.Round(n))
		}
		if raw, ok := t["alpha"]; ok && raw != nil {
			n, ok := Number(raw)
			if !ok || n < 0 || n > 1 {
				return Color{}, fmt.Errorf("color alpha must be a number in 0..1")
			}
			out.Alpha = n
		}
		return out, nil
	default:
		return Color{}, fmt.Errorf("unsupported color value %T", v)
	}
}

func parseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), Alpha: 1}, nil
}

// Number coerces JSON-decoded numeric values.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
