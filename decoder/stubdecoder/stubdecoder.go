// Package stubdecoder provides a minimal decoder.Plugin used by tests and
// examples in place of a real HEVC decoder backend (libde265, etc, which
// are cgo-based and out of scope for this reader — see decoder.Plugin).
//
// It understands a tiny synthetic bitstream format so that file-model and
// assembler tests can exercise the full decode path without linking a real
// codec: push(es) are just concatenated, and DecodeImage scans the final
// buffer for a 12-byte header produced by Encode, which may follow a
// parameter-set prelude.
package stubdecoder

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/hfimage/heifcore/decoder"
)

const headerSize = 12

// Encode packs a solid-fill YCbCr 4:2:0 test picture into the synthetic
// bitstream format this plugin decodes. It exists so tests can manufacture
// "compressed" item data without a real encoder.
func Encode(width, height int, yFill, cbFill, crFill byte) []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(height))
	buf[8] = yFill
	buf[9] = cbFill
	buf[10] = crFill
	buf[11] = 0
	return buf
}

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) APIVersion() int { return decoder.APIVersion }
func (p *Plugin) Name() string    { return "stubdecoder" }

func (p *Plugin) DoesSupportFormat(tag decoder.CodecTag) int {
	if tag == decoder.CodecHEVC {
		return 1
	}
	return -1
}

func (p *Plugin) NewDecoder() (decoder.Handle, error) {
	return &handle{}, nil
}

type handle struct {
	buf []byte
}

func (h *handle) Push(data []byte) error {
	h.buf = append(h.buf, data...)
	return nil
}

func (h *handle) DecodeImage() (image.Image, error) {
	// Parameter-set prelude bytes (the hvcC GetHeaders() output, each NAL
	// 4-byte length prefixed) may precede our header; scan for it instead
	// of assuming it starts at offset 0.
	buf := h.buf
	idx := -1
	for i := 0; i+headerSize <= len(buf); i++ {
		w := binary.BigEndian.Uint32(buf[i : i+4])
		ht := binary.BigEndian.Uint32(buf[i+4 : i+8])
		if w > 0 && w < 1<<20 && ht > 0 && ht < 1<<20 && i+headerSize <= len(buf) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("stubdecoder: no synthetic header found in %d pushed bytes", len(buf))
	}
	hdr := buf[idx : idx+headerSize]
	width := int(binary.BigEndian.Uint32(hdr[0:4]))
	height := int(binary.BigEndian.Uint32(hdr[4:8]))
	yFill, cbFill, crFill := hdr[8], hdr[9], hdr[10]

	ycc := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for i := range ycc.Y {
		ycc.Y[i] = yFill
	}
	for i := range ycc.Cb {
		ycc.Cb[i] = cbFill
		ycc.Cr[i] = crFill
	}
	return ycc, nil
}

func (h *handle) Free() {}
