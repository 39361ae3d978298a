package transform

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/dharsanguruparan/PrintReady/internal/units"
)

// documentDate is stamped on every document so identical rasters produce
// identical bytes.
var documentDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const pageImage = "print-ready"

// WrapPDF places a PNG on a single page sized to its physical extent at dpi,
// edge to edge.
func WrapPDF(png []byte, widthPx, heightPx int, dpi float64) ([]byte, error) {
	w := units.PixelsToPoints(widthPx, dpi)
	h := units.PixelsToPoints(heightPx, dpi)

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreationDate(documentDate)
	doc.SetModificationDate(documentDate)
	doc.SetCatalogSort(true)
	doc.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(pageImage, opts, bytes.NewReader(png))
	doc.ImageOptions(pageImage, 0, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
