package heif

import (
	"image"
	"image/draw"

	"github.com/hfimage/heifcore/bmff"
)

// These pixel-moving helpers are intentionally plain nested loops: rotate,
// mirror and crop are routine, well-understood operations and are not a
// place to spend cleverness. They assume 8-bit 4:2:0 YCbCr for tiled
// content (per §9's "hard-coded until tile properties are consulted" note)
// and 16-bit-per-channel NRGBA for the overlay canvas.

func rotateYCbCrCCW(src *image.YCbCr, quarterTurns int) *image.YCbCr {
	quarterTurns &= 3
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch quarterTurns {
	case 0:
		return src
	case 1:
		return mapYCbCr(src, image.Rect(0, 0, h, w), func(dx, dy int) (int, int) { return w - 1 - dy, dx })
	case 2:
		return mapYCbCr(src, image.Rect(0, 0, w, h), func(dx, dy int) (int, int) { return w - 1 - dx, h - 1 - dy })
	default: // 3
		return mapYCbCr(src, image.Rect(0, 0, h, w), func(dx, dy int) (int, int) { return dy, h - 1 - dx })
	}
}

func mirrorYCbCr(src *image.YCbCr, axis bmff.MirrorAxis) *image.YCbCr {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if axis == bmff.MirrorHorizontal { // flips rows: vertical flip
		return mapYCbCr(src, image.Rect(0, 0, w, h), func(dx, dy int) (int, int) { return dx, h - 1 - dy })
	}
	return mapYCbCr(src, image.Rect(0, 0, w, h), func(dx, dy int) (int, int) { return w - 1 - dx, dy })
}

func cropYCbCr(src *image.YCbCr, win ClapWindow) *image.YCbCr {
	return mapYCbCr(src, image.Rect(0, 0, win.Width(), win.Height()), func(dx, dy int) (int, int) {
		return win.Left + dx, win.Top + dy
	})
}

func mapYCbCr(src *image.YCbCr, dstBounds image.Rectangle, mapFn func(dx, dy int) (int, int)) *image.YCbCr {
	dst := image.NewYCbCr(dstBounds, src.SubsampleRatio)
	sb := src.Bounds()
	for dy := 0; dy < dstBounds.Dy(); dy++ {
		for dx := 0; dx < dstBounds.Dx(); dx++ {
			sx, sy := mapFn(dx, dy)
			sx += sb.Min.X
			sy += sb.Min.Y
			c := src.YCbCrAt(sx, sy)
			yi := dst.YOffset(dx, dy)
			dst.Y[yi] = c.Y
			ci := dst.COffset(dx, dy)
			dst.Cb[ci] = c.Cb
			dst.Cr[ci] = c.Cr
		}
	}
	return dst
}

// rotateDrawImage/mirrorDrawImage/cropDrawImage operate generically on any
// image.Image via At/Set, used for the overlay canvas (*image.NRGBA64) and
// the alpha plane (*image.Gray), neither of which need chroma-subsampling
// awareness.

func rotateDrawImage(src image.Image, quarterTurns int, newImg func(image.Rectangle) draw.Image) draw.Image {
	quarterTurns &= 3
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch quarterTurns {
	case 0:
		dst := newImg(b)
		drawCopy(dst, src, func(dx, dy int) (int, int) { return dx, dy })
		return dst
	case 1:
		dst := newImg(image.Rect(0, 0, h, w))
		drawCopy(dst, src, func(dx, dy int) (int, int) { return w - 1 - dy, dx })
		return dst
	case 2:
		dst := newImg(image.Rect(0, 0, w, h))
		drawCopy(dst, src, func(dx, dy int) (int, int) { return w - 1 - dx, h - 1 - dy })
		return dst
	default:
		dst := newImg(image.Rect(0, 0, h, w))
		drawCopy(dst, src, func(dx, dy int) (int, int) { return dy, h - 1 - dx })
		return dst
	}
}

func mirrorDrawImage(src image.Image, axis bmff.MirrorAxis, newImg func(image.Rectangle) draw.Image) draw.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := newImg(image.Rect(0, 0, w, h))
	if axis == bmff.MirrorHorizontal {
		drawCopy(dst, src, func(dx, dy int) (int, int) { return dx, h - 1 - dy })
	} else {
		drawCopy(dst, src, func(dx, dy int) (int, int) { return w - 1 - dx, dy })
	}
	return dst
}

func cropDrawImage(src image.Image, win ClapWindow, newImg func(image.Rectangle) draw.Image) draw.Image {
	dst := newImg(image.Rect(0, 0, win.Width(), win.Height()))
	drawCopy(dst, src, func(dx, dy int) (int, int) { return win.Left + dx, win.Top + dy })
	return dst
}

func drawCopy(dst draw.Image, src image.Image, mapFn func(dx, dy int) (int, int)) {
	db := dst.Bounds()
	sb := src.Bounds()
	for dy := 0; dy < db.Dy(); dy++ {
		for dx := 0; dx < db.Dx(); dx++ {
			sx, sy := mapFn(dx, dy)
			dst.Set(db.Min.X+dx, db.Min.Y+dy, src.At(sb.Min.X+sx, sb.Min.Y+sy))
		}
	}
}

func newGrayImage(r image.Rectangle) draw.Image    { return image.NewGray(r) }
func newNRGBA64Image(r image.Rectangle) draw.Image { return image.NewNRGBA64(r) }
