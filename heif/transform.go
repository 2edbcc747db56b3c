package heif

import (
	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/fraction"
	"github.com/hfimage/heifcore/heiferr"
)

// ClapWindow is the resolved, pixel-clamped clean-aperture rectangle:
// [Left,Right] x [Top,Bottom], both bounds inclusive.
type ClapWindow struct {
	Left, Right, Top, Bottom int
}

func (w ClapWindow) Width() int  { return w.Right - w.Left + 1 }
func (w ClapWindow) Height() int { return w.Bottom - w.Top + 1 }

// ComputeClapWindow applies the clean-aperture rounding arithmetic of §4.2:
// the clap rectangle's centre is offset from the image centre by
// (horizOff, vertOff), and pcX/pcY/left/right/top/bottom are computed over
// exact fractions before rounding to the nearest integer. The result is
// then clamped into [0,imgW-1]x[0,imgH-1]; a window that is empty even
// after clamping is rejected.
func ComputeClapWindow(clap *bmff.ClapBox, imgW, imgH int) (ClapWindow, error) {
	clapW := fraction.New(int64(clap.WidthN), int64(clap.WidthD))
	clapH := fraction.New(int64(clap.HeightN), int64(clap.HeightD))
	hOff := fraction.New(int64(clap.HorizOffN), int64(clap.HorizOffD))
	vOff := fraction.New(int64(clap.VertOffN), int64(clap.VertOffD))

	half := func(f fraction.Fraction) fraction.Fraction { return f.DivScalar(2) }

	pcX := hOff.Add(half(fraction.New(int64(imgW-1), 1)))
	left := pcX.Sub(half(clapW.Sub(fraction.New(1, 1))))
	right := left.Add(clapW).Sub(fraction.New(1, 1))

	pcY := vOff.Add(half(fraction.New(int64(imgH-1), 1)))
	top := pcY.Sub(half(clapH.Sub(fraction.New(1, 1))))
	bottom := top.Add(clapH).Sub(fraction.New(1, 1))

	w := ClapWindow{
		Left:   int(left.RoundNearest()),
		Right:  int(right.RoundNearest()),
		Top:    int(top.RoundNearest()),
		Bottom: int(bottom.RoundNearest()),
	}

	if w.Left < 0 {
		w.Left = 0
	}
	if w.Top < 0 {
		w.Top = 0
	}
	if w.Right > imgW-1 {
		w.Right = imgW - 1
	}
	if w.Bottom > imgH-1 {
		w.Bottom = imgH - 1
	}

	if w.Left > w.Right || w.Top > w.Bottom {
		return ClapWindow{}, heiferr.New(heiferr.InvalidInput, heiferr.InvalidCleanAperture,
			"clean aperture window is empty after clamping to %dx%d", imgW, imgH)
	}
	return w, nil
}
