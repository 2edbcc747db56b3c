package heif

import "github.com/hfimage/heifcore/heiferr"

// ImageOverlay is the parsed payload of an "iovl" item (§6): a canvas of a
// given size and background color, with N referenced images (N = number of
// "dimg" iref targets) each placed at a signed (x,y) offset.
type ImageOverlay struct {
	CanvasWidth, CanvasHeight int
	Background                [4]uint16 // R,G,B,A
	Offsets                   []OverlayOffset
}

type OverlayOffset struct {
	X, Y int
}

func parseImageOverlay(data []byte, numImages int) (*ImageOverlay, error) {
	if len(data) < 10 {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.InvalidOverlayData, "overlay payload is only %d bytes, need at least 10", len(data))
	}
	version := data[0]
	if version != 0 {
		return nil, heiferr.New(heiferr.UnsupportedFeature, heiferr.UnsupportedDataVersion,
			"overlay item has version %d, only 0 is supported", version)
	}
	flags := data[1]
	fieldSize := 2
	if flags&1 != 0 {
		fieldSize = 4
	}

	ov := &ImageOverlay{}
	for i := 0; i < 4; i++ {
		ov.Background[i] = uint16(data[2+2*i])<<8 | uint16(data[3+2*i])
	}

	pos := 10
	readField := func() (int, error) {
		if pos+fieldSize > len(data) {
			return 0, heiferr.New(heiferr.InvalidInput, heiferr.InvalidOverlayData, "overlay payload truncated")
		}
		var v uint32
		for i := 0; i < fieldSize; i++ {
			v = v<<8 | uint32(data[pos+i])
		}
		pos += fieldSize
		return int(v), nil
	}
	readSignedField := func() (int, error) {
		if pos+fieldSize > len(data) {
			return 0, heiferr.New(heiferr.InvalidInput, heiferr.InvalidOverlayData, "overlay payload truncated")
		}
		var v uint32
		for i := 0; i < fieldSize; i++ {
			v = v<<8 | uint32(data[pos+i])
		}
		pos += fieldSize
		signBit := uint32(1) << (fieldSize*8 - 1)
		if v&signBit != 0 {
			return int(v) - int(signBit)<<1, nil
		}
		return int(v), nil
	}

	w, err := readField()
	if err != nil {
		return nil, err
	}
	h, err := readField()
	if err != nil {
		return nil, err
	}
	ov.CanvasWidth, ov.CanvasHeight = w, h

	for i := 0; i < numImages; i++ {
		x, err := readSignedField()
		if err != nil {
			return nil, err
		}
		y, err := readSignedField()
		if err != nil {
			return nil, err
		}
		ov.Offsets = append(ov.Offsets, OverlayOffset{X: x, Y: y})
	}
	return ov, nil
}
