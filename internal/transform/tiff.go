package transform

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"sort"

	"golang.org/x/image/tiff"
)

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296
	tagICCProfile     = 34675

	typeShort     = 3
	typeRational  = 5
	typeUndefined = 7

	resolutionUnitInch = 2
)

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value [4]byte
}

// EncodeTIFF writes a Deflate-compressed raster with horizontal differencing
// and stamps dpi and the optional ICC profile into its first IFD.
func EncodeTIFF(img image.Image, dpi float64, icc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return nil, fmt.Errorf("encode tiff: %w", err)
	}
	return stampTIFF(buf.Bytes(), dpi, icc)
}

// stampTIFF rewrites the first IFD with the density tags and the ICC profile.
// The new IFD and its values are appended and the header repointed, so strip
// offsets of the original stay valid.
func stampTIFF(data []byte, dpi float64, icc []byte) ([]byte, error) {
	bo, entries, err := readFirstIFD(data)
	if err != nil {
		return nil, err
	}

	kept := entries[:0]
	for _, e := range entries {
		switch e.tag {
		case tagXResolution, tagYResolution, tagResolutionUnit, tagICCProfile:
			continue
		}
		kept = append(kept, e)
	}
	entries = kept

	out := append([]byte(nil), data...)
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	ifdStart := len(out)
	count := len(entries) + 3
	if len(icc) > 0 {
		count++
	}
	valueStart := ifdStart + 2 + 12*count + 4

	num, den := rational(dpi)
	var values []byte
	values = bo.AppendUint32(values, num)
	values = bo.AppendUint32(values, den)

	var rat [4]byte
	bo.PutUint32(rat[:], uint32(valueStart))
	entries = append(entries,
		ifdEntry{tag: tagXResolution, typ: typeRational, count: 1, value: rat},
		ifdEntry{tag: tagYResolution, typ: typeRational, count: 1, value: rat},
	)
	var unit [4]byte
	bo.PutUint16(unit[:], resolutionUnitInch)
	entries = append(entries, ifdEntry{tag: tagResolutionUnit, typ: typeShort, count: 1, value: unit})

	if len(icc) > 0 {
		var val [4]byte
		if len(icc) <= 4 {
			copy(val[:], icc)
		} else {
			bo.PutUint32(val[:], uint32(valueStart+len(values)))
			values = append(values, icc...)
		}
		entries = append(entries, ifdEntry{tag: tagICCProfile, typ: typeUndefined, count: uint32(len(icc)), value: val})
	}
	if uint64(valueStart)+uint64(len(values)) > math.MaxUint32 {
		return nil, fmt.Errorf("tiff exceeds 4GiB")
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	out = bo.AppendUint16(out, uint16(len(entries)))
	for _, e := range entries {
		out = bo.AppendUint16(out, e.tag)
		out = bo.AppendUint16(out, e.typ)
		out = bo.AppendUint32(out, e.count)
		out = append(out, e.value[:]...)
	}
	out = bo.AppendUint32(out, 0)
	out = append(out, values...)

	bo.PutUint32(out[4:8], uint32(ifdStart))
	return out, nil
}

// rational expresses dpi to two decimal places in lowest terms.
func rational(dpi float64) (uint32, uint32) {
	num, den := uint32(math.Round(dpi*100)), uint32(100)
	a, b := num, den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return num, den
	}
	return num / a, den / a
}

// TIFFMetadata is the density and color information of a TIFF's first IFD.
type TIFFMetadata struct {
	XDPI           float64
	YDPI           float64
	ResolutionUnit uint16
	ICCProfile     []byte
}

// InspectTIFF reads the density tags and any embedded ICC profile.
func InspectTIFF(data []byte) (TIFFMetadata, error) {
	bo, entries, err := readFirstIFD(data)
	if err != nil {
		return TIFFMetadata{}, err
	}
	var md TIFFMetadata
	for _, e := range entries {
		switch e.tag {
		case tagXResolution, tagYResolution:
			off := bo.Uint32(e.value[:])
			if e.typ != typeRational || int(off)+8 > len(data) {
				return TIFFMetadata{}, fmt.Errorf("tiff: bad resolution tag %d", e.tag)
			}
			num, den := bo.Uint32(data[off:]), bo.Uint32(data[off+4:])
			if den == 0 {
				return TIFFMetadata{}, fmt.Errorf("tiff: zero resolution denominator")
			}
			if e.tag == tagXResolution {
				md.XDPI = float64(num) / float64(den)
			} else {
				md.YDPI = float64(num) / float64(den)
			}
		case tagResolutionUnit:
			md.ResolutionUnit = bo.Uint16(e.value[:])
		case tagICCProfile:
			if e.count <= 4 {
				md.ICCProfile = append([]byte(nil), e.value[:e.count]...)
				continue
			}
			off := bo.Uint32(e.value[:])
			if uint64(off)+uint64(e.count) > uint64(len(data)) {
				return TIFFMetadata{}, fmt.Errorf("tiff: icc profile out of range")
			}
			md.ICCProfile = append([]byte(nil), data[off:off+e.count]...)
		}
	}
	return md, nil
}

func readFirstIFD(data []byte) (byteOrder, []ifdEntry, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("tiff: short header")
	}
	var bo byteOrder
	switch string(data[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("tiff: bad byte order %q", data[:2])
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, nil, fmt.Errorf("tiff: bad magic")
	}
	off := int(bo.Uint32(data[4:8]))
	if off+2 > len(data) {
		return nil, nil, fmt.Errorf("tiff: ifd offset out of range")
	}
	n := int(bo.Uint16(data[off:]))
	if off+2+12*n > len(data) {
		return nil, nil, fmt.Errorf("tiff: truncated ifd")
	}
	entries := make([]ifdEntry, n)
	for i := range entries {
		p := data[off+2+12*i:]
		entries[i] = ifdEntry{
			tag:   bo.Uint16(p[0:]),
			typ:   bo.Uint16(p[2:]),
			count: bo.Uint32(p[4:]),
		}
		copy(entries[i].value[:], p[8:12])
	}
	return bo, entries, nil
}
