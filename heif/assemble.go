package heif

import (
	"image"
	"image/color"

	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/decoder"
	"github.com/hfimage/heifcore/heiferr"
)

// maxDecodeDepth bounds grid/iden/iovl nesting. The reference reader has no
// such guard; a crafted item graph can reference itself through dimg edges
// and recurse until the stack overflows. We cap it with a dedicated error
// subcode instead (§9).
const maxDecodeDepth = 4

// DecodeOptions controls how Assembler.DecodeImage resolves one item.
type DecodeOptions struct {
	// IgnoreTransformations skips applying irot/imir/clap properties after
	// assembly, returning pixels in the item's native orientation.
	IgnoreTransformations bool
}

// DecodedImage is the pixel result of assembling one item: either an
// *image.YCbCr (hvc1 leaves, grid and iden composites) or an
// *image.NRGBA64 (iovl composites), plus an optional alpha mask installed
// from an auxiliary alpha image's luma plane.
type DecodedImage struct {
	Pixels image.Image
	Alpha  *image.Gray
}

// Assembler drives a decoder.Registry against a File/Graph pair to produce
// pixel images for any item named in the graph.
type Assembler struct {
	File     *File
	Graph    *Graph
	Decoders *decoder.Registry
}

// NewAssembler returns an Assembler over f/g, decoding hvc1 leaves with reg.
func NewAssembler(f *File, g *Graph, reg *decoder.Registry) *Assembler {
	return &Assembler{File: f, Graph: g, Decoders: reg}
}

// DecodeImage assembles item id into a pixel image, recursively decoding
// any grid tiles, overlay images or identity targets it depends on.
func (a *Assembler) DecodeImage(id uint32, opts DecodeOptions) (*DecodedImage, error) {
	return a.decodeImage(id, opts, 0)
}

func (a *Assembler) decodeImage(id uint32, opts DecodeOptions, depth int) (*DecodedImage, error) {
	if depth > maxDecodeDepth {
		return nil, heiferr.New(heiferr.UnsupportedFeature, heiferr.TooManyNestedImages,
			"decoding item %d exceeds the nesting limit of %d", id, maxDecodeDepth)
	}
	img, ok := a.Graph.Image(id)
	if !ok {
		return nil, heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced, "item %d is not a known image", id)
	}

	var di *DecodedImage
	var err error
	switch img.ItemType {
	case "hvc1":
		di, err = a.decodeLeaf(id)
	case "grid":
		di, err = a.decodeGrid(id, depth)
	case "iden":
		di, err = a.decodeIden(id, opts, depth)
	case "iovl":
		di, err = a.decodeOverlay(id, depth)
	default:
		return nil, heiferr.New(heiferr.UnsupportedFeature, heiferr.UnsupportedImageType,
			"item %d has unsupported image type %q", id, img.ItemType)
	}
	if err != nil {
		return nil, err
	}

	if img.AlphaChild != 0 {
		alphaDi, err := a.decodeImage(img.AlphaChild, DecodeOptions{IgnoreTransformations: opts.IgnoreTransformations}, depth+1)
		if err != nil {
			return nil, heiferr.Wrap(err, "decoding alpha auxiliary")
		}
		di.Alpha = extractLuma(alphaDi.Pixels)
	}

	if !opts.IgnoreTransformations {
		di, err = a.applyTransformChain(di, id)
		if err != nil {
			return nil, err
		}
	}
	return di, nil
}

func (a *Assembler) decodeLeaf(id uint32) (*DecodedImage, error) {
	data, err := a.File.ItemData(id)
	if err != nil {
		return nil, err
	}
	img, err := a.Decoders.Decode(decoder.CodecHEVC, data)
	if err != nil {
		return nil, heiferr.Wrap(err, "decoding item")
	}
	return &DecodedImage{Pixels: img}, nil
}

func (a *Assembler) decodeIden(id uint32, opts DecodeOptions, depth int) (*DecodedImage, error) {
	ref, ok := a.File.ReferenceOfType(id, "dimg")
	if !ok || len(ref.ToItemIDs) != 1 {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.Unspecified,
			"identity item %d does not name exactly one dimg target", id)
	}
	return a.decodeImage(ref.ToItemIDs[0], opts, depth+1)
}

func (a *Assembler) decodeGrid(id uint32, depth int) (*DecodedImage, error) {
	data, err := a.File.ItemData(id)
	if err != nil {
		return nil, err
	}
	grid, err := parseImageGrid(data)
	if err != nil {
		return nil, err
	}

	ref, ok := a.File.ReferenceOfType(id, "dimg")
	if !ok {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.MissingGridImages, "grid item %d has no dimg references", id)
	}
	expected := grid.Rows * grid.Columns
	if len(ref.ToItemIDs) != expected {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.MissingGridImages,
			"grid item %d names %dx%d=%d tiles but has %d dimg targets", id, grid.Rows, grid.Columns, expected, len(ref.ToItemIDs))
	}

	tiles := make([]*image.YCbCr, len(ref.ToItemIDs))
	for i, tid := range ref.ToItemIDs {
		tdi, err := a.decodeImage(tid, DecodeOptions{IgnoreTransformations: true}, depth+1)
		if err != nil {
			return nil, heiferr.Wrap(err, "decoding grid tile")
		}
		tiles[i] = asYCbCr(tdi.Pixels)
	}

	tileW, tileH := tiles[0].Bounds().Dx(), tiles[0].Bounds().Dy()
	outW, outH := grid.OutputWidth, grid.OutputHeight
	if outW <= 0 {
		outW = grid.Columns * tileW
	}
	if outH <= 0 {
		outH = grid.Rows * tileH
	}

	dst := image.NewYCbCr(image.Rect(0, 0, outW, outH), image.YCbCrSubsampleRatio420)
	oy := 0
	for r := 0; r < grid.Rows; r++ {
		ox, rowH := 0, 0
		for c := 0; c < grid.Columns; c++ {
			tile := tiles[r*grid.Columns+c]
			copyTileInto(dst, tile, ox, oy)
			ox += tile.Bounds().Dx()
			rowH = tile.Bounds().Dy()
		}
		oy += rowH
	}
	return &DecodedImage{Pixels: dst}, nil
}

func copyTileInto(dst, tile *image.YCbCr, ox, oy int) {
	tb := tile.Bounds()
	db := dst.Bounds()
	for y := 0; y < tb.Dy(); y++ {
		dy := oy + y
		if dy < db.Min.Y || dy >= db.Max.Y {
			continue
		}
		for x := 0; x < tb.Dx(); x++ {
			dx := ox + x
			if dx < db.Min.X || dx >= db.Max.X {
				continue
			}
			c := tile.YCbCrAt(tb.Min.X+x, tb.Min.Y+y)
			yi := dst.YOffset(dx, dy)
			dst.Y[yi] = c.Y
			ci := dst.COffset(dx, dy)
			dst.Cb[ci] = c.Cb
			dst.Cr[ci] = c.Cr
		}
	}
}

func (a *Assembler) decodeOverlay(id uint32, depth int) (*DecodedImage, error) {
	data, err := a.File.ItemData(id)
	if err != nil {
		return nil, err
	}

	ref, ok := a.File.ReferenceOfType(id, "dimg")
	if !ok {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.MissingGridImages, "overlay item %d has no dimg references", id)
	}

	ov, err := parseImageOverlay(data, len(ref.ToItemIDs))
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA64(image.Rect(0, 0, ov.CanvasWidth, ov.CanvasHeight))
	bg := color.NRGBA64{R: ov.Background[0], G: ov.Background[1], B: ov.Background[2], A: ov.Background[3]}
	for y := 0; y < ov.CanvasHeight; y++ {
		for x := 0; x < ov.CanvasWidth; x++ {
			dst.SetNRGBA64(x, y, bg)
		}
	}
	canvasRect := image.Rect(0, 0, ov.CanvasWidth, ov.CanvasHeight)

	for i, tid := range ref.ToItemIDs {
		tdi, err := a.decodeImage(tid, DecodeOptions{IgnoreTransformations: true}, depth+1)
		if err != nil {
			return nil, heiferr.Wrap(err, "decoding overlay image")
		}
		rgba := asNRGBA64(tdi.Pixels)
		tb := rgba.Bounds()
		off := ov.Offsets[i]
		destRect := image.Rect(off.X, off.Y, off.X+tb.Dx(), off.Y+tb.Dy())
		inter := destRect.Intersect(canvasRect)
		if inter.Empty() {
			softErr := heiferr.New(heiferr.InvalidInput, heiferr.OverlayImageOutsideOfCanvas,
				"overlay image %d placed at (%d,%d) size %dx%d lies outside the %dx%d canvas",
				tid, off.X, off.Y, tb.Dx(), tb.Dy(), ov.CanvasWidth, ov.CanvasHeight)
			if heiferr.Soft(softErr) {
				continue
			}
			return nil, softErr
		}
		for y := inter.Min.Y; y < inter.Max.Y; y++ {
			for x := inter.Min.X; x < inter.Max.X; x++ {
				sx, sy := x-off.X, y-off.Y
				dst.Set(x, y, rgba.At(tb.Min.X+sx, tb.Min.Y+sy))
			}
		}
	}
	return &DecodedImage{Pixels: dst}, nil
}

// applyTransformChain folds id's irot/imir/clap properties, in ipma
// association order, into di's pixel and (if present) alpha planes.
func (a *Assembler) applyTransformChain(di *DecodedImage, id uint32) (*DecodedImage, error) {
	props, err := a.File.Properties(id)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		switch v := p.Payload.(type) {
		case *bmff.IrotBox:
			di = rotateDecoded(di, int(v.Angle))
		case *bmff.ImirBox:
			di = mirrorDecoded(di, v.Axis)
		case *bmff.ClapBox:
			b := di.Pixels.Bounds()
			win, err := ComputeClapWindow(v, b.Dx(), b.Dy())
			if err != nil {
				return nil, err
			}
			di = cropDecoded(di, win)
		}
	}
	return di, nil
}

func rotateDecoded(di *DecodedImage, quarterTurns int) *DecodedImage {
	out := &DecodedImage{}
	switch p := di.Pixels.(type) {
	case *image.YCbCr:
		out.Pixels = rotateYCbCrCCW(p, quarterTurns)
	default:
		out.Pixels = rotateDrawImage(di.Pixels, quarterTurns, newNRGBA64Image)
	}
	if di.Alpha != nil {
		out.Alpha = rotateDrawImage(di.Alpha, quarterTurns, newGrayImage).(*image.Gray)
	}
	return out
}

func mirrorDecoded(di *DecodedImage, axis bmff.MirrorAxis) *DecodedImage {
	out := &DecodedImage{}
	switch p := di.Pixels.(type) {
	case *image.YCbCr:
		out.Pixels = mirrorYCbCr(p, axis)
	default:
		out.Pixels = mirrorDrawImage(di.Pixels, axis, newNRGBA64Image)
	}
	if di.Alpha != nil {
		out.Alpha = mirrorDrawImage(di.Alpha, axis, newGrayImage).(*image.Gray)
	}
	return out
}

func cropDecoded(di *DecodedImage, win ClapWindow) *DecodedImage {
	out := &DecodedImage{}
	switch p := di.Pixels.(type) {
	case *image.YCbCr:
		out.Pixels = cropYCbCr(p, win)
	default:
		out.Pixels = cropDrawImage(di.Pixels, win, newNRGBA64Image)
	}
	if di.Alpha != nil {
		out.Alpha = cropDrawImage(di.Alpha, win, newGrayImage).(*image.Gray)
	}
	return out
}
