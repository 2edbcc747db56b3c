package heif

import "github.com/hfimage/heifcore/heiferr"

// ImageGrid is the parsed payload of a "grid" item (§6): a rows x columns
// arrangement of tiles, each an independently-coded image
// item referenced via a "dimg" iref edge in the tile's reading order
// (left to right, top to bottom).
type ImageGrid struct {
	Rows, Columns            int
	OutputWidth, OutputHeight int
}

func parseImageGrid(data []byte) (*ImageGrid, error) {
	if len(data) < 8 {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.InvalidGridData, "grid payload is only %d bytes, need at least 8", len(data))
	}
	flags := data[1]
	rows := int(data[2]) + 1
	cols := int(data[3]) + 1

	var w, h int
	if flags&1 != 0 {
		if len(data) < 12 {
			return nil, heiferr.New(heiferr.InvalidInput, heiferr.InvalidGridData, "32-bit grid payload is only %d bytes, need at least 12", len(data))
		}
		w = int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		h = int(data[8])<<24 | int(data[9])<<16 | int(data[10])<<8 | int(data[11])
	} else {
		w = int(data[4])<<8 | int(data[5])
		h = int(data[6])<<8 | int(data[7])
	}

	return &ImageGrid{Rows: rows, Columns: cols, OutputWidth: w, OutputHeight: h}, nil
}
