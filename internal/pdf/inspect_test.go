package pdfutil

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
)

func buildPDF(t *testing.T, pages int, w, h float64) []byte {
	t.Helper()
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: fpdf.SizeType{Wd: w, Ht: h}})
	for i := 0; i < pages; i++ {
		doc.AddPage()
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(buildPDF(t, 1, 612.24, 858.96))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Pages != 1 || info.WidthPt != 612.24 || info.HeightPt != 858.96 {
		t.Fatalf("unexpected page info: %+v", info)
	}
}

func TestVerify(t *testing.T) {
	one := buildPDF(t, 1, 300, 400)
	if err := Verify(one, 300, 400, 0.01); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := Verify(one, 301, 400, 0.01); err == nil {
		t.Fatal("expected size mismatch")
	}
	if err := Verify(buildPDF(t, 2, 300, 400), 300, 400, 0.01); err == nil {
		t.Fatal("expected page count mismatch")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := Inspect([]byte("not a pdf")); err == nil {
		t.Fatal("expected an error")
	}
}
