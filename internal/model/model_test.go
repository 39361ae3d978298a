package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

func TestParseStorageReference(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want StorageReference
	}{
		{"gs uri", "gs://art-bucket/designs/d1/master.png", StorageReference{"art-bucket", "designs/d1/master.png"}},
		{"s3 uri", "s3://raw/a.png", StorageReference{"raw", "a.png"}},
		{"path-style https", "https://storage.googleapis.com/art-bucket/designs/x.png", StorageReference{"art-bucket", "designs/x.png"}},
		{"virtual-host https", "https://art-bucket.storage.googleapis.com/designs/x.png", StorageReference{"art-bucket", "designs/x.png"}},
		{"firebase https", "https://firebasestorage.googleapis.com/v0/b/app.appspot.com/o/designs%2Fd1%2Fmaster.png?alt=media", StorageReference{"app.appspot.com", "designs/d1/master.png"}},
		{"object bucket+path", map[string]any{"bucket": "b", "path": "p/q.png"}, StorageReference{"b", "p/q.png"}},
		{"object bucket+object", map[string]any{"bucket": "b", "object": "/o.png"}, StorageReference{"b", "o.png"}},
		{"object bucket+gcsPath relative", map[string]any{"bucket": "b", "gcsPath": "g.png"}, StorageReference{"b", "g.png"}},
		{"object gcsPath uri", map[string]any{"gcsPath": "gs://c/d.png"}, StorageReference{"c", "d.png"}},
		{"object uri", map[string]any{"uri": "gs://e/f.png", "bucket": "ignored"}, StorageReference{"e", "f.png"}},
		{"object storagePath", map[string]any{"bucket": "b", "storagePath": "s.png"}, StorageReference{"b", "s.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStorageReference(tt.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseStorageReferenceRejects(t *testing.T) {
	for _, in := range []any{nil, "", "designs/x.png", "gs://bucket-only", 42, map[string]any{"path": "p.png"}, "https://example.com"} {
		if _, err := ParseStorageReference(in); !errors.Is(err, ErrUnrecognizedReference) {
			t.Errorf("ParseStorageReference(%#v) err = %v, want ErrUnrecognizedReference", in, err)
		}
	}
}

func TestParseStorageReferenceDefaultBucket(t *testing.T) {
	got, err := ParseStorageReferenceIn("designs/x.png", "fallback")
	if err != nil || got != (StorageReference{"fallback", "designs/x.png"}) {
		t.Fatalf("bare path: %+v %v", got, err)
	}
	got, err = ParseStorageReferenceIn(map[string]any{"storagePath": "y.png"}, "fallback")
	if err != nil || got != (StorageReference{"fallback", "y.png"}) {
		t.Fatalf("object without bucket: %+v %v", got, err)
	}
}

func TestColor(t *testing.T) {
	c, err := ParseColor(map[string]any{"r": 10.0})
	if err != nil {
		t.Fatal(err)
	}
	if c != (Color{R: 10, G: 255, B: 255, Alpha: 1}) {
		t.Fatalf("missing channels should default to opaque white: %+v", c)
	}
	c, err = ParseColor("#0f8")
	if err != nil || c != (Color{R: 0x00, G: 0xff, B: 0x88, Alpha: 1}) {
		t.Fatalf("short hex: %+v %v", c, err)
	}
	if _, err := ParseColor(map[string]any{"g": 300.0}); err == nil {
		t.Fatal("expected out of range channel to fail")
	}
	if _, err := ParseColor(map[string]any{"alpha": 1.5}); err == nil {
		t.Fatal("expected out of range alpha to fail")
	}
	if got := (Color{R: 1, G: 2, B: 3, Alpha: 0.5}).NRGBA(); got.A != 128 {
		t.Fatalf("alpha conversion: %+v", got)
	}
}

func TestPrintSpecDefaults(t *testing.T) {
	var spec PrintSpec
	if err := json.Unmarshal([]byte(`{"widthMm":100,"heightMm":150}`), &spec); err != nil {
		t.Fatal(err)
	}
	if spec.DPI != 300 || spec.BleedMM != 3 || spec.SafeZoneMM != 3 || spec.OutputFormat != FormatTIFF {
		t.Fatalf("defaults not applied: %+v", spec)
	}
	if err := json.Unmarshal([]byte(`{"widthMm":100,"heightMm":150,"bleedMm":0,"outputFormat":"both"}`), &spec); err != nil {
		t.Fatal(err)
	}
	if spec.BleedMM != 0 || spec.OutputFormat != FormatBoth {
		t.Fatalf("explicit zero bleed lost: %+v", spec)
	}
}

func TestICCProfileJSON(t *testing.T) {
	var spec PrintSpec
	body := `{"widthMm":100,"heightMm":150,"iccProfile":{"uri":"gs://profiles/icc/FOGRA39.icc"}}`
	if err := json.Unmarshal([]byte(body), &spec); err != nil {
		t.Fatal(err)
	}
	if spec.ICCProfile == nil || spec.ICCProfile.Bucket != "profiles" || spec.ICCProfile.DisplayName() != "FOGRA39.icc" {
		t.Fatalf("unexpected profile: %+v", spec.ICCProfile)
	}
	out, err := json.Marshal(spec.ICCProfile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"bucket":"profiles"`) {
		t.Fatalf("profile should marshal inline: %s", out)
	}
}

func validPayloadJSON() string {
	return `{
		"designId": "d1",
		"orderId": "o1",
		"lineItemId": "li1",
		"source": "gs://art/d1.png",
		"printSpec": {"widthMm": 210, "heightMm": 297},
		"safeArea": {"xMm": 3, "yMm": 3, "widthMm": 204, "heightMm": 291}
	}`
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(validPayloadJSON()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Source != (StorageReference{"art", "d1.png"}) || p.PrintSpec.DPI != 300 {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.OutputBucket("") != "art" || p.OutputBucket("prints") != "prints" {
		t.Fatal("unexpected output bucket fallback")
	}
}

func TestDecodePayloadContractErrors(t *testing.T) {
	body := `{"designId":"","orderId":"o1","lineItemId":"li1","source":{"bucket":"b","path":"p"},
		"printSpec":{"widthMm":-1,"heightMm":297,"dpi":200,"outputFormat":"png"},
		"safeArea":{"xMm":0,"yMm":0,"widthMm":0,"heightMm":10}}`
	_, err := DecodePayload([]byte(body))
	if !rerrors.IsCode(err, rerrors.CodeContract) {
		t.Fatalf("expected contract error, got %v", err)
	}
	fields, _ := rerrors.GetFields(err)["fields"].([]rerrors.FieldError)
	got := map[string]bool{}
	for _, f := range fields {
		got[f.Field] = true
	}
	for _, want := range []string{"designId", "printSpec.widthMm", "printSpec.dpi", "printSpec.outputFormat", "safeArea.widthMm"} {
		if !got[want] {
			t.Errorf("missing field error for %s in %v", want, fields)
		}
	}

	if _, err := DecodePayload([]byte(`{not json`)); !rerrors.IsCode(err, rerrors.CodeContract) {
		t.Fatalf("malformed json should be a contract error, got %v", err)
	}
	if _, err := DecodePayload([]byte(`{"source":"not-a-ref"}`)); !rerrors.IsCode(err, rerrors.CodeContract) {
		t.Fatalf("bad source should be a contract error, got %v", err)
	}
}

func TestPayloadRejectsPathLikeIDs(t *testing.T) {
	valid, err := DecodePayload([]byte(validPayloadJSON()))
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		name       string
		orderID    string
		lineItemID string
		field      string
	}{
		{"parent order", "../x", "li1", "orderId"},
		{"dot dot line item", "o1", "..", "lineItemId"},
		{"dot order", ".", "li1", "orderId"},
		{"slash line item", "o1", "a/b", "lineItemId"},
		{"backslash order", `o1\li`, "li1", "orderId"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.OrderID, p.LineItemID = tt.orderID, tt.lineItemID
			err := p.Validate()
			if !rerrors.IsCode(err, rerrors.CodeContract) {
				t.Fatalf("expected contract error, got %v", err)
			}
			fields, _ := rerrors.GetFields(err)["fields"].([]rerrors.FieldError)
			if len(fields) != 1 || fields[0].Field != tt.field {
				t.Fatalf("fields = %v, want one error on %s", fields, tt.field)
			}
		})
	}

	p := valid
	p.OrderID, p.LineItemID = "order.2024-05", "li..1"
	if err := p.Validate(); err != nil {
		t.Fatalf("dots inside an id are allowed: %v", err)
	}
}
