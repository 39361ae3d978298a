// Package pdfutil reads back the page geometry of produced documents.
package pdfutil

import (
	"bytes"
	"fmt"
	"math"

	pdf "github.com/ledongthuc/pdf"
)

// PageInfo describes a document's page count and first-page size in points.
type PageInfo struct {
	Pages    int
	WidthPt  float64
	HeightPt float64
}

// Inspect parses PDF bytes with ledongthuc/pdf and resolves the first page's
// MediaBox, following inheritance through the page tree.
func Inspect(data []byte) (PageInfo, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PageInfo{}, fmt.Errorf("new pdf reader: %w", err)
	}
	info := PageInfo{Pages: doc.NumPage()}
	if info.Pages == 0 {
		return info, fmt.Errorf("pdf has no pages")
	}
	page := doc.Page(1)
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		info.WidthPt = box.Index(2).Float64() - box.Index(0).Float64()
		info.HeightPt = box.Index(3).Float64() - box.Index(1).Float64()
		return info, nil
	}
	return info, fmt.Errorf("page 1 has no media box")
}

// Verify checks that data is a single page of the given size, within tol points.
func Verify(data []byte, widthPt, heightPt, tol float64) error {
	info, err := Inspect(data)
	if err != nil {
		return err
	}
	if info.Pages != 1 {
		return fmt.Errorf("pdf has %d pages, want 1", info.Pages)
	}
	if math.Abs(info.WidthPt-widthPt) > tol || math.Abs(info.HeightPt-heightPt) > tol {
		return fmt.Errorf("pdf page is %.2fx%.2fpt, want %.2fx%.2fpt", info.WidthPt, info.HeightPt, widthPt, heightPt)
	}
	return nil
}
