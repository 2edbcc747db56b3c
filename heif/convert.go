package heif

import (
	"image"
	"image/color"
)

// asYCbCr coerces any decoded image.Image into 8-bit 4:2:0 YCbCr, which is
// the only pixel format the grid/iden assembly paths operate on (§9: the
// reader hard-codes this until tile color properties are consulted). A
// decoder.Plugin that already returns *image.YCbCr is passed through
// untouched; anything else is resampled pixel by pixel.
func asYCbCr(img image.Image) *image.YCbCr {
	if y, ok := img.(*image.YCbCr); ok {
		return y
	}
	b := img.Bounds()
	dst := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio420)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			yi := dst.YOffset(x, y)
			dst.Y[yi] = yy
			ci := dst.COffset(x, y)
			dst.Cb[ci] = cb
			dst.Cr[ci] = cr
		}
	}
	return dst
}

// asNRGBA64 coerces any decoded image.Image into 16-bit-per-channel NRGBA,
// the format the overlay canvas is composited in.
func asNRGBA64(img image.Image) *image.NRGBA64 {
	if n, ok := img.(*image.NRGBA64); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// extractLuma pulls the Y (or gray) plane out of a decoded auxiliary image
// for use as an alpha mask, per §4.5's "install its luma plane as the
// result's alpha" rule.
func extractLuma(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if y, ok := img.(*image.YCbCr); ok {
		for yy := 0; yy < b.Dy(); yy++ {
			for xx := 0; xx < b.Dx(); xx++ {
				yi := y.YOffset(b.Min.X+xx, b.Min.Y+yy)
				dst.SetGray(xx, yy, color.Gray{Y: y.Y[yi]})
			}
		}
		return dst
	}
	for yy := 0; yy < b.Dy(); yy++ {
		for xx := 0; xx < b.Dx(); xx++ {
			dst.Set(xx, yy, img.At(b.Min.X+xx, b.Min.Y+yy))
		}
	}
	return dst
}
