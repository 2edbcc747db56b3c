// Package heifcore decodes HEIF/HEIC still images into Go's standard
// image.Image. It wires together the box parser (bmff), the file model and
// item-graph interpreter (heif), and a pluggable HEVC decoder.Plugin to
// produce a final, transform-applied pixel image — the same role
// goheif.Decode/DecodeConfig play over libde265, except the decoder
// backend here is supplied by the caller rather than linked in via cgo.
package heifcore

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/hfimage/heifcore/decoder"
	"github.com/hfimage/heifcore/heif"
	"github.com/hfimage/heifcore/heiferr"
)

// Decoders is the registry Decode uses to decode leaf images; DecodeConfig
// decodes no pixels and does not consult it. Callers register a real HEVC backend here
// at init time; with no plugin registered, Decode fails with
// heiferr.UnsupportedCodec the first time it needs to decode a leaf image.
var Decoders = decoder.NewRegistry()

func init() {
	// A HEIF file's first bytes are a variable-length box size, so the
	// "ftyp" fourcc itself always lands at offset 4, matching the pattern
	// libheif's own sniffing uses.
	image.RegisterFormat("heic", "????ftyp", Decode, DecodeConfig)
}

// Decode reads a complete HEIF file from r, decodes its primary item via
// Decoders, and returns the fully assembled, transform-applied image.
func Decode(r io.Reader) (image.Image, error) {
	ra, err := asReaderAt(r)
	if err != nil {
		return nil, err
	}
	f, g, err := openAndInterpret(ra)
	if err != nil {
		return nil, err
	}
	asm := heif.NewAssembler(f, g, Decoders)
	di, err := asm.DecodeImage(g.Primary, heif.DecodeOptions{})
	if err != nil {
		return nil, err
	}
	return di.Pixels, nil
}

// DecodeConfig reads just enough of a HEIF file to report the primary
// item's displayed dimensions, without decoding any pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	ra, err := asReaderAt(r)
	if err != nil {
		return image.Config{}, err
	}
	_, g, err := openAndInterpret(ra)
	if err != nil {
		return image.Config{}, err
	}
	img, ok := g.Image(g.Primary)
	if !ok {
		return image.Config{}, heiferr.New(heiferr.UsageError, heiferr.NoOrInvalidPrimaryImage, "no primary image")
	}
	return image.Config{
		ColorModel: color.YCbCrModel,
		Width:      img.Width,
		Height:     img.Height,
	}, nil
}

// ExtractExif returns the Exif metadata blob attached to ra's primary
// image, parsed and re-validated through goexif so malformed metadata is
// reported rather than handed back opaquely.
func ExtractExif(ra io.ReaderAt) ([]byte, error) {
	_, g, err := openAndInterpret(ra)
	if err != nil {
		return nil, err
	}
	img, ok := g.Image(g.Primary)
	if !ok {
		return nil, heiferr.New(heiferr.UsageError, heiferr.NoOrInvalidPrimaryImage, "no primary image")
	}
	for _, md := range img.Metadata {
		if md.ItemType != "Exif" {
			continue
		}
		data := md.Data
		// Exif items carry a 4-byte big-endian offset to the start of the
		// actual TIFF header before the "Exif\0\0" marker; goexif wants the
		// TIFF header directly.
		if len(data) < 4 {
			return nil, heiferr.New(heiferr.InvalidInput, heiferr.Unspecified, "Exif item is too short")
		}
		skip := 4 + (int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3]))
		if skip > len(data) {
			skip = 4
		}
		tiff := data[skip:]
		if _, err := exif.Decode(bytes.NewReader(tiff)); err != nil {
			return nil, heiferr.New(heiferr.InvalidInput, heiferr.Unspecified, "parsing Exif metadata: %v", err)
		}
		return tiff, nil
	}
	return nil, heiferr.New(heiferr.UsageError, heiferr.Unspecified, "primary image has no attached Exif metadata")
}

func openAndInterpret(ra io.ReaderAt) (*heif.File, *heif.Graph, error) {
	f, err := heif.Open(ra)
	if err != nil {
		return nil, nil, err
	}
	g, err := heif.Interpret(f)
	if err != nil {
		return nil, nil, err
	}
	return f, g, nil
}

func asReaderAt(r io.Reader) (io.ReaderAt, error) {
	if ra, ok := r.(io.ReaderAt); ok {
		return ra, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}
