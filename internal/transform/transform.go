// Package transform turns a validated source image into the production raster
// and the optional single-page document.
package transform

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// aspectTolerance is the relative aspect difference reported as a crop.
const aspectTolerance = 0.01

// Decode reads the source and applies its EXIF orientation. The returned
// bounds are the displayed dimensions.
func Decode(data []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", rerrors.WrapWithCode(err, rerrors.CodeValidation, "transform.decode", "unrecognized source image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", rerrors.WrapWithCode(err, rerrors.CodeValidation, "transform.decode", "decode "+format+" source")
	}
	return img, format, nil
}

// Options controls one render.
type Options struct {
	WidthPx  int
	HeightPx int
	DPI      float64
	// Background flattens transparency when set.
	Background *model.Color
	// Profile, when set, is embedded in the raster.
	Profile *ProfileFile
	PDF     bool
}

// Result holds the encoded files and what was done to produce them.
type Result struct {
	TIFF []byte
	PDF  []byte
	// Checksum is the hex SHA-256 of TIFF.
	Checksum   string
	ICCApplied bool
	ICCName    string
	Warnings   []string
}

// Render flattens, fits and encodes src. The output is a pure function of
// src and opts.
func Render(src image.Image, opts Options) (*Result, error) {
	if opts.WidthPx <= 0 || opts.HeightPx <= 0 {
		return nil, fmt.Errorf("transform: target size %dx%d", opts.WidthPx, opts.HeightPx)
	}
	res := &Result{}
	img := src

	if opts.Background != nil {
		img = Flatten(img, *opts.Background)
	} else if !opaque(img) {
		res.Warnings = append(res.Warnings, "source has transparency and no background was specified; alpha retained")
	}

	var icc []byte
	if opts.Profile != nil {
		data, err := opts.Profile.Load()
		if err != nil {
			return nil, err
		}
		icc = data
		res.ICCApplied = true
		res.ICCName = opts.Profile.Name
	} else {
		res.Warnings = append(res.Warnings, "no ICC profile requested; output carries density metadata only")
	}

	b := img.Bounds()
	srcAspect := float64(b.Dx()) / float64(b.Dy())
	dstAspect := float64(opts.WidthPx) / float64(opts.HeightPx)
	if math.Abs(srcAspect-dstAspect)/dstAspect > aspectTolerance {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"source aspect %.3f differs from print aspect %.3f; edges cropped", srcAspect, dstAspect))
	}
	if b.Dx() < opts.WidthPx || b.Dy() < opts.HeightPx {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"source %dx%d upscaled to %dx%d", b.Dx(), b.Dy(), opts.WidthPx, opts.HeightPx))
	}
	fitted := imaging.Fill(img, opts.WidthPx, opts.HeightPx, imaging.Center, imaging.Lanczos)

	tiffData, err := EncodeTIFF(fitted, opts.DPI, icc)
	if err != nil {
		return nil, err
	}
	res.TIFF = tiffData
	res.Checksum = Checksum(tiffData)

	if opts.PDF {
		var png bytes.Buffer
		if err := imaging.Encode(&png, fitted, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode png intermediate: %w", err)
		}
		doc, err := WrapPDF(png.Bytes(), opts.WidthPx, opts.HeightPx, opts.DPI)
		if err != nil {
			return nil, err
		}
		res.PDF = doc
	}
	return res, nil
}

// Flatten composites img over an opaque-or-translucent background color.
func Flatten(img image.Image, bg model.Color) *image.NRGBA {
	b := img.Bounds()
	dst := imaging.New(b.Dx(), b.Dy(), bg.NRGBA())
	return imaging.Overlay(dst, img, image.Pt(0, 0), 1.0)
}

// Checksum is the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}
