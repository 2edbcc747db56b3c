// Package heif implements the file model, item-graph interpretation and
// image assembler of a HEIF reader: it walks a parsed bmff.Box tree,
// validates the required boxes, resolves the item-reference graph into a
// tree of logical Images, and assembles the final pixel image for any one
// of them by driving a registered decoder.Plugin.
package heif

import (
	"io"

	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/heiferr"
)

// assumedMaxSize bounds the top-level SectionReader span; it is not a real
// limit on file size, only large enough that no real file exceeds it.
const assumedMaxSize = 1 << 48

// BoxSet holds the top-level and meta-child boxes the file model depends
// on, already type-asserted out of the generic bmff.Box tree.
type BoxSet struct {
	Ftyp *bmff.FtypBox
	Meta struct {
		Hdlr *bmff.HdlrBox
		Pitm *bmff.PitmBox
		Iinf *bmff.IinfBox
		Iprp *bmff.IprpBox
		Iloc *bmff.IlocBox
		Idat *bmff.IdatBox
		Iref *bmff.IrefBox
	}
}

// File is the parsed, immutable box/item model of one HEIF container. All
// accessors are safe to call concurrently; File never mutates itself after
// Open returns. Decoded pixel images are produced per request by the
// separate Assembler (assemble.go) and are not cached here.
type File struct {
	ra    io.ReaderAt
	boxes BoxSet
	items map[uint32]*itemRecord
}

// itemRecord is the per-item view assembled from iinf/iloc/ipco+ipma/iref,
// keyed by ItemId.
type itemRecord struct {
	id       uint32
	info     *bmff.InfeBox
	location *bmff.IlocEntry
	props    []bmff.Box // resolved, in ipma association order
	refsFrom []bmff.IrefEntry
}

// Open parses ra as a HEIF file and validates the required box set. It
// does not decode any pixels.
func Open(ra io.ReaderAt) (*File, error) {
	sr := io.NewSectionReader(ra, 0, assumedMaxSize)
	cursor := bmff.NewCursor(sr)

	topLevel, err := bmff.ReadChildren(cursor)
	if err != nil && len(topLevel) == 0 {
		return nil, heiferr.Wrap(err, "reading top-level boxes")
	}

	f := &File{ra: ra, items: map[uint32]*itemRecord{}}

	var metaBox *bmff.MetaBox
	for _, box := range topLevel {
		switch v := box.Payload.(type) {
		case *bmff.FtypBox:
			f.boxes.Ftyp = v
		case *bmff.MetaBox:
			metaBox = v
		}
	}

	if f.boxes.Ftyp == nil {
		return nil, heiferr.New(heiferr.UnsupportedFiletype, heiferr.NoFtypBox, "no ftyp box found")
	}
	if !f.boxes.Ftyp.HasBrand("heic") {
		return nil, heiferr.New(heiferr.UnsupportedFiletype, heiferr.Unspecified,
			"ftyp does not list the heic brand (major=%q, compatible=%v)", f.boxes.Ftyp.MajorBrand, f.boxes.Ftyp.Compatible)
	}
	if metaBox == nil {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoMetaBox, "no meta box found")
	}

	for _, box := range metaBox.Boxes {
		switch v := box.Payload.(type) {
		case *bmff.HdlrBox:
			f.boxes.Meta.Hdlr = v
		case *bmff.PitmBox:
			f.boxes.Meta.Pitm = v
		case *bmff.IinfBox:
			f.boxes.Meta.Iinf = v
		case *bmff.IprpBox:
			f.boxes.Meta.Iprp = v
		case *bmff.IlocBox:
			f.boxes.Meta.Iloc = v
		case *bmff.IdatBox:
			f.boxes.Meta.Idat = v
		case *bmff.IrefBox:
			f.boxes.Meta.Iref = v
		}
	}

	if err := f.validateRequiredBoxes(); err != nil {
		return nil, err
	}

	f.buildItemTable()
	return f, nil
}

func (f *File) validateRequiredBoxes() error {
	m := &f.boxes.Meta
	if m.Hdlr == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoHdlrBox, "meta box has no hdlr child")
	}
	if m.Hdlr.HandlerType.String() != "pict" {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoPictHandler,
			"hdlr handler_type is %q, expected \"pict\"", m.Hdlr.HandlerType)
	}
	if m.Pitm == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoPitmBox, "meta box has no pitm child")
	}
	if m.Iinf == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoIinfBox, "meta box has no iinf child")
	}
	if m.Iprp == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoIprpBox, "meta box has no iprp child")
	}
	if m.Iprp.Container == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoIpcoBox, "iprp has no ipco child")
	}
	if len(m.Iprp.Associations) == 0 {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoIpmaBox, "iprp has no ipma child")
	}
	if m.Iloc == nil {
		return heiferr.New(heiferr.InvalidInput, heiferr.NoIlocBox, "meta box has no iloc child")
	}
	// idat and iref are optional, per spec.
	return nil
}

func (f *File) buildItemTable() {
	m := &f.boxes.Meta

	for _, infe := range m.Iinf.Items {
		f.items[infe.ItemID] = &itemRecord{id: infe.ItemID, info: infe}
	}

	for i := range m.Iloc.Items {
		loc := &m.Iloc.Items[i]
		if rec, ok := f.items[loc.ItemID]; ok {
			rec.location = loc
		}
	}

	if m.Iref != nil {
		for _, entry := range m.Iref.Entries {
			if rec, ok := f.items[entry.FromItemID]; ok {
				rec.refsFrom = append(rec.refsFrom, entry)
			}
		}
	}

	allProps := m.Iprp.Container.Properties
	for _, ipma := range m.Iprp.Associations {
		for _, entry := range ipma.Entries {
			rec, ok := f.items[entry.ItemID]
			if !ok {
				continue
			}
			if len(rec.props) > 0 {
				// Mirrors the upstream reader: only the first
				// ItemPropertyAssociation box that mentions an item wins.
				continue
			}
			for _, assoc := range entry.Associations {
				if assoc.Index == 0 {
					continue // "no property"
				}
				if assoc.Index > len(allProps) {
					continue // recorded lazily; Properties surfaces the error
				}
				rec.props = append(rec.props, allProps[assoc.Index-1])
			}
		}
	}
}

// ItemIDs returns every item id known to the file, in no particular order.
func (f *File) ItemIDs() []uint32 {
	ids := make([]uint32, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	return ids
}

// ItemType returns the four-cc item type for id, or "" if id is unknown.
func (f *File) ItemType(id uint32) string {
	rec, ok := f.items[id]
	if !ok || rec.info == nil {
		return ""
	}
	return rec.info.ItemType
}

// ItemInfo returns the parsed infe entry for id.
func (f *File) ItemInfo(id uint32) (*bmff.InfeBox, bool) {
	rec, ok := f.items[id]
	if !ok {
		return nil, false
	}
	return rec.info, true
}

// PrimaryItemID returns the item id named by the pitm box.
func (f *File) PrimaryItemID() uint32 {
	return f.boxes.Meta.Pitm.ItemID
}

// Properties returns, in ipma association order, the property boxes
// associated with id. An out-of-range association index recorded during
// buildItemTable is surfaced here rather than at parse time, matching the
// "referenced index out of range is an error" invariant of §3.
func (f *File) Properties(id uint32) ([]bmff.Box, error) {
	rec, ok := f.items[id]
	if !ok {
		return nil, heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced, "unknown item %d", id)
	}
	allProps := f.boxes.Meta.Iprp.Container.Properties
	for _, ipma := range f.boxes.Meta.Iprp.Associations {
		for _, entry := range ipma.Entries {
			if entry.ItemID != id {
				continue
			}
			for _, assoc := range entry.Associations {
				if assoc.Index != 0 && assoc.Index > len(allProps) {
					return nil, heiferr.New(heiferr.InvalidInput, heiferr.IpmaBoxReferencesNonexistingProperty,
						"item %d references property index %d, but ipco has only %d entries", id, assoc.Index, len(allProps))
				}
			}
			break
		}
	}
	return rec.props, nil
}

// References returns the outgoing iref entries whose From item is id.
func (f *File) References(id uint32) []bmff.IrefEntry {
	rec, ok := f.items[id]
	if !ok {
		return nil
	}
	return rec.refsFrom
}

// ReferenceOfType returns the single outgoing reference of the given
// four-cc type for id, or ok=false if there is none.
func (f *File) ReferenceOfType(id uint32, refType string) (bmff.IrefEntry, bool) {
	for _, r := range f.References(id) {
		if r.Type.String() == refType {
			return r, true
		}
	}
	return bmff.IrefEntry{}, false
}
