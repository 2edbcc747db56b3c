package heif

import (
	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/heiferr"
)

// ItemData returns the item's compressed bitstream bytes. For hvc1 items
// this is the hvcC parameter-set prelude (as 4-byte length-prefixed NAL
// units) followed by the concatenated extent bytes; for grid/iovl/Exif
// items it is just the extent bytes.
func (f *File) ItemData(id uint32) ([]byte, error) {
	rec, ok := f.items[id]
	if !ok {
		return nil, heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced, "unknown item %d", id)
	}
	if rec.location == nil {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoItemData, "item %d has no iloc entry", id)
	}

	body, err := f.readExtents(rec.location)
	if err != nil {
		return nil, err
	}

	if rec.info != nil && rec.info.ItemType == "hvc1" {
		hvcc, ok := f.hevcConfig(id)
		if !ok {
			return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoHvcCBox, "item %d has no hvcC property", id)
		}
		prelude := hvcc.GetHeaders()
		out := make([]byte, 0, len(prelude)+len(body))
		out = append(out, prelude...)
		out = append(out, body...)
		return out, nil
	}
	return body, nil
}

func (f *File) hevcConfig(id uint32) (*bmff.HvcCBox, bool) {
	props, err := f.Properties(id)
	if err != nil {
		return nil, false
	}
	for _, p := range props {
		if hvcc, ok := p.Payload.(*bmff.HvcCBox); ok {
			return hvcc, true
		}
	}
	return nil, false
}

const maxMaterializedExtentBytes = 50 << 20 // 50 MiB, §3 item limit

func (f *File) readExtents(loc *bmff.IlocEntry) ([]byte, error) {
	if len(loc.Extents) > 32 {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.SecurityLimitExceeded,
			"item declares %d extents, exceeding the 32-extent limit", len(loc.Extents))
	}

	var total uint64
	for _, ex := range loc.Extents {
		total += ex.Length
	}
	if total > maxMaterializedExtentBytes {
		return nil, heiferr.New(heiferr.MemoryAllocationError, heiferr.SecurityLimitExceeded,
			"item's extents sum to %d bytes, exceeding the %d byte limit", total, maxMaterializedExtentBytes)
	}

	out := make([]byte, 0, total)
	for _, ex := range loc.Extents {
		var chunk []byte
		var err error
		if loc.ConstructionMethod == bmff.ConstructionIdat {
			chunk, err = f.readFromIdat(ex.Offset, ex.Length)
		} else {
			chunk, err = f.readFromFile(loc.BaseOffset+ex.Offset, ex.Length)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (f *File) readFromIdat(offset, length uint64) ([]byte, error) {
	idat := f.boxes.Meta.Idat
	if idat == nil {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoIdatBox, "extent uses idat construction method but file has no idat box")
	}
	if offset+length > uint64(len(idat.Data)) {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.EndOfData,
			"idat extent [%d,%d) out of bounds of %d byte idat box", offset, offset+length, len(idat.Data))
	}
	return idat.Data[offset : offset+length], nil
}

func (f *File) readFromFile(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := f.ra.ReadAt(buf, int64(offset))
	if err != nil && uint64(n) != length {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.EndOfData,
			"reading %d bytes at offset %d: %v", length, offset, err)
	}
	return buf, nil
}
