package heif

import "github.com/hfimage/heifcore/seiparse"

// Metadata is an attached blob of non-pixel data (currently only Exif).
type Metadata struct {
	ItemType string // four-cc, e.g. "Exif"
	Data     []byte
}

// Image is a resolved logical image: one node of the item graph built by
// Interpret, after `ispe`/`clap`/`irot` have been folded into a single
// displayed width/height (§3, §4.4).
type Image struct {
	ID       uint32
	ItemType string // hvc1 | grid | iden | iovl
	Width    int
	Height   int
	Hidden   bool

	IsPrimary bool

	ThumbnailOf uint32 // 0 if this image is not a thumbnail
	AlphaOf     uint32 // 0 if this image is not an alpha auxiliary
	DepthOf     uint32 // 0 if this image is not a depth auxiliary

	AlphaChild uint32 // 0 if no alpha auxiliary is attached
	DepthChild uint32 // 0 if no depth auxiliary is attached

	DepthInfo *seiparse.DepthRepresentationInfo

	Thumbnails []uint32
	Metadata   []Metadata
}

// Graph is the complete, resolved item graph of one HEIF file: every
// hvc1/grid/iden/iovl item, keyed by id, plus the primary item id and the
// subset of non-hidden, non-attached images that are top-level.
type Graph struct {
	Images    map[uint32]*Image
	Primary   uint32
	TopLevel  []uint32
}

// Image looks up a resolved image by id.
func (g *Graph) Image(id uint32) (*Image, bool) {
	im, ok := g.Images[id]
	return im, ok
}
