package heif

// Hand-built ISOBMFF fixtures: no real .heic encoder is available, so every
// end-to-end test in this package constructs its own byte-exact box tree.
// These helpers mirror the field layouts in bmff/boxes.go exactly; they are
// the encode side of that package's decode side, kept deliberately free of
// any shared code with it so a layout bug in one isn't masked by the other.

func u32b(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func u16b(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

func fullBoxPrefix(version uint8, flags uint32) []byte {
	return []byte{version, byte(flags >> 16), byte(flags >> 8), byte(flags)}
}

// mkBox wraps content in a compact-size box header.
func mkBox(fourcc string, content []byte) []byte {
	size := uint32(8 + len(content))
	out := append(u32b(size), []byte(fourcc)...)
	return append(out, content...)
}

func mkFtyp(major string, compatible ...string) []byte {
	content := append([]byte(major), u32b(0)...)
	for _, c := range compatible {
		content = append(content, []byte(c)...)
	}
	return mkBox("ftyp", content)
}

func mkHdlr() []byte {
	content := u32b(0) // pre_defined
	content = append(content, []byte("pict")...)
	content = append(content, u32b(0)...)
	content = append(content, u32b(0)...)
	content = append(content, u32b(0)...)
	content = append(content, cstr("")...)
	return mkBox("hdlr", append(fullBoxPrefix(0, 0), content...))
}

func mkPitm(itemID uint16) []byte {
	content := append(fullBoxPrefix(0, 0), u16b(itemID)...)
	return mkBox("pitm", content)
}

func mkIspe(w, h uint32) []byte {
	content := append(fullBoxPrefix(0, 0), u32b(w)...)
	content = append(content, u32b(h)...)
	return mkBox("ispe", content)
}

// mkHvcCEmpty builds a minimal hvcC box (not a full box) declaring zero
// parameter-set arrays, which decoder/stubdecoder tolerates: its DecodeImage
// scans for the synthetic header rather than assuming it starts at offset 0.
func mkHvcCEmpty() []byte {
	content := []byte{
		1,    // configurationVersion
		0,    // profile_space/tier/profile_idc
		0, 0, 0, 0, // profile_compatibility_flags
		0, 0, 0, 0, 0, 0, // constraint_indicator_flags
		0,    // level_idc
		0, 0, // min_spatial_segmentation_idc
		0,    // parallelism_type
		1,    // chroma_format (4:2:0)
		0,    // bit_depth_luma_minus8
		0,    // bit_depth_chroma_minus8
		0, 0, // avg_frame_rate
		3, // constant_frame_rate/num_temporal_layers/nested/nal_length_size_minus1
		0, // numArrays
	}
	return mkBox("hvcC", content)
}

func mkAuxC(auxType string, subtype []byte) []byte {
	content := append(fullBoxPrefix(0, 0), cstr(auxType)...)
	content = append(content, subtype...)
	return mkBox("auxC", content)
}

func mkIpco(props ...[]byte) []byte {
	var content []byte
	for _, p := range props {
		content = append(content, p...)
	}
	return mkBox("ipco", content)
}

type ipmaAssoc struct {
	index     int
	essential bool
}

func mkIpma(entries map[uint16][]ipmaAssoc, order []uint16) []byte {
	content := append(fullBoxPrefix(0, 0), u32b(uint32(len(order)))...)
	for _, itemID := range order {
		assocs := entries[itemID]
		content = append(content, u16b(itemID)...)
		content = append(content, byte(len(assocs)))
		for _, a := range assocs {
			b := byte(a.index & 0x7F)
			if a.essential {
				b |= 0x80
			}
			content = append(content, b)
		}
	}
	return mkBox("ipma", content)
}

func mkIprp(ipco []byte, ipmas ...[]byte) []byte {
	content := append([]byte{}, ipco...)
	for _, p := range ipmas {
		content = append(content, p...)
	}
	return mkBox("iprp", content)
}

func mkInfe(itemID uint16, itemType string, hidden bool) []byte {
	if len(itemType) != 4 {
		panic("item type must be exactly 4 characters: " + itemType)
	}
	var flags uint32
	if hidden {
		flags |= 1
	}
	content := fullBoxPrefix(2, flags)
	content = append(content, u16b(itemID)...)
	content = append(content, u16b(0)...) // protection_index
	content = append(content, []byte(itemType)...)
	content = append(content, cstr("")...) // item_name
	return mkBox("infe", content)
}

func mkIinf(infeBoxes ...[]byte) []byte {
	content := append(fullBoxPrefix(0, 0), u16b(uint16(len(infeBoxes)))...)
	for _, b := range infeBoxes {
		content = append(content, b...)
	}
	return mkBox("iinf", content)
}

type ilocExtent struct {
	offset, length uint32
}

func ilocItem(itemID uint16, baseOffset uint32, extents []ilocExtent) []byte {
	content := u16b(itemID)
	content = append(content, u16b(0)...) // data_reference_index
	content = append(content, u32b(baseOffset)...)
	content = append(content, u16b(uint16(len(extents)))...)
	for _, ex := range extents {
		content = append(content, u32b(ex.offset)...)
		content = append(content, u32b(ex.length)...)
	}
	return content
}

func mkIloc(items ...[]byte) []byte {
	content := fullBoxPrefix(0, 0)
	content = append(content, 0x44) // offset_size=4, length_size=4
	content = append(content, 0x40) // base_offset_size=4, index_size=0
	content = append(content, u16b(uint16(len(items)))...)
	for _, it := range items {
		content = append(content, it...)
	}
	return mkBox("iloc", content)
}

func irefEntry(refType string, fromID uint16, toIDs []uint16) []byte {
	content := u16b(fromID)
	content = append(content, u16b(uint16(len(toIDs)))...)
	for _, id := range toIDs {
		content = append(content, u16b(id)...)
	}
	return mkBox(refType, content)
}

func mkIref(entries ...[]byte) []byte {
	content := fullBoxPrefix(0, 0)
	for _, e := range entries {
		content = append(content, e...)
	}
	return mkBox("iref", content)
}

func mkMeta(children ...[]byte) []byte {
	content := fullBoxPrefix(0, 0)
	for _, c := range children {
		content = append(content, c...)
	}
	return mkBox("meta", content)
}

func mkMdat(data []byte) []byte {
	return mkBox("mdat", data)
}

func mkIrot(angle uint8) []byte {
	return mkBox("irot", []byte{angle & 3})
}

// mkImageGridPayload builds the raw (non-box) payload of a "grid" item, per
// the 16-bit output-size encoding (flags bit 0 clear).
func mkImageGridPayload(rows, cols, outW, outH int) []byte {
	return []byte{
		0, 0,
		byte(rows - 1), byte(cols - 1),
		byte(outW >> 8), byte(outW),
		byte(outH >> 8), byte(outH),
	}
}

// mkImageOverlayPayload builds the raw payload of an "iovl" item with
// 16-bit fields (flags bit 0 clear): a canvas size, an RGBA16 background,
// and one signed (x,y) offset per referenced image, in dimg order.
func mkImageOverlayPayload(canvasW, canvasH int, bg [4]uint16, offsets [][2]int16) []byte {
	content := []byte{0, 0} // version, flags
	for _, c := range bg {
		content = append(content, u16b(c)...)
	}
	content = append(content, u16b(uint16(canvasW))...)
	content = append(content, u16b(uint16(canvasH))...)
	for _, off := range offsets {
		content = append(content, u16b(uint16(off[0]))...)
		content = append(content, u16b(uint16(off[1]))...)
	}
	return content
}

// buildFile assembles a complete HEIF-shaped byte buffer: ftyp, meta (whose
// iloc entries reference absolute offsets into the mdat that follows), and
// one mdat box holding every item's compressed bytes back to back.
//
// metaBuilder is called twice: once with a placeholder mdat offset to learn
// the meta box's length (which an offset's numeric value never changes,
// since it's a fixed-width field), and once with the real offset.
func buildFile(ftyp []byte, metaBuilder func(mdatStart uint32) []byte, mdatPayload []byte) []byte {
	placeholder := metaBuilder(0)
	mdatStart := uint32(len(ftyp) + len(placeholder) + 8) // +8: mdat's own compact header
	meta := metaBuilder(mdatStart)
	if len(meta) != len(placeholder) {
		panic("meta box length changed between placeholder and real offset passes")
	}
	out := append([]byte{}, ftyp...)
	out = append(out, meta...)
	out = append(out, mkMdat(mdatPayload)...)
	return out
}
