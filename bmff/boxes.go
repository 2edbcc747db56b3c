package bmff

import (
	"github.com/hfimage/heifcore/heiferr"
)

func init() {
	register("ftyp", parseFtyp)
	register("meta", parseMeta)
	register("hdlr", parseHdlr)
	register("pitm", parsePitm)
	register("iloc", parseIloc)
	register("iinf", parseIinf)
	register("infe", parseInfe)
	register("iprp", parseIprp)
	register("ipco", parseIpco)
	register("ipma", parseIpma)
	register("ispe", parseIspe)
	register("auxC", parseAuxC)
	register("irot", parseIrot)
	register("imir", parseImir)
	register("clap", parseClap)
	register("iref", parseIref)
	register("hvcC", parseHvcC)
	register("idat", parseIdat)
	register("grpl", parseGrpl)
	register("dinf", parseDinf)
	register("dref", parseDref)
	register("url ", parseURL)
}

// ---- ftyp ----

type FtypBox struct {
	MajorBrand   FourCC
	MinorVersion uint32
	Compatible   []FourCC
}

func (b *FtypBox) HasBrand(brand string) bool {
	fc := MakeFourCC(brand)
	if b.MajorBrand == fc {
		return true
	}
	for _, c := range b.Compatible {
		if c == fc {
			return true
		}
	}
	return false
}

func parseFtyp(h BoxHeader, c *Cursor) (any, error) {
	if !c.Read(8) {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.Unspecified, "ftyp: less than 8 bytes of content")
	}
	b := &FtypBox{
		MajorBrand:   FourCC{c.Read8(), c.Read8(), c.Read8(), c.Read8()},
		MinorVersion: c.Read32(),
	}
	for c.Read(4) {
		b.Compatible = append(b.Compatible, FourCC{c.Read8(), c.Read8(), c.Read8(), c.Read8()})
	}
	return b, c.Error()
}

// ---- meta ----

type MetaBox struct {
	FullBoxHeader
	Boxes []Box
}

func (b *MetaBox) children() []Box { return b.Boxes }

func parseMeta(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	boxes, err := ReadChildren(c)
	return &MetaBox{FullBoxHeader: fb, Boxes: boxes}, err
}

// ---- hdlr ----

type HdlrBox struct {
	FullBoxHeader
	HandlerType FourCC
	Name        string
}

func parseHdlr(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	c.Read32() // pre_defined
	handlerType := FourCC{c.Read8(), c.Read8(), c.Read8(), c.Read8()}
	for i := 0; i < 3; i++ {
		c.Read32() // reserved
	}
	name := c.ReadString()
	return &HdlrBox{FullBoxHeader: fb, HandlerType: handlerType, Name: name}, c.Error()
}

// ---- pitm ----

type PitmBox struct {
	FullBoxHeader
	ItemID uint32
}

func parsePitm(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	var id uint32
	if fb.Version == 0 {
		id = uint32(c.Read16())
	} else {
		id = c.Read32()
	}
	return &PitmBox{FullBoxHeader: fb, ItemID: id}, c.Error()
}

// ---- iloc ----

const (
	maxIlocItems          = 1024
	maxExtentsPerItem     = 32
	maxCumulativeExtentSz = 50 << 20 // 50 MiB
)

type ConstructionMethod uint8

const (
	ConstructionFile ConstructionMethod = 0
	ConstructionIdat ConstructionMethod = 1
)

type Extent struct {
	Index  uint64
	Offset uint64
	Length uint64
}

type IlocEntry struct {
	ItemID             uint32
	ConstructionMethod ConstructionMethod
	DataReferenceIndex uint16
	BaseOffset         uint64
	Extents            []Extent
}

type IlocBox struct {
	FullBoxHeader
	Items []IlocEntry
}

func parseIloc(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	b0 := c.Read8()
	b1 := c.Read8()
	offsetSize := int(b0 >> 4)
	lengthSize := int(b0 & 0xF)
	baseOffsetSize := int(b1 >> 4)
	indexSize := 0
	if fb.Version == 1 || fb.Version == 2 {
		indexSize = int(b1 & 0xF)
	}

	var itemCount uint32
	if fb.Version < 2 {
		itemCount = uint32(c.Read16())
	} else {
		itemCount = c.Read32()
	}
	if itemCount > maxIlocItems {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.SecurityLimitExceeded,
			"iloc declares %d items, exceeding limit of %d", itemCount, maxIlocItems)
	}

	ib := &IlocBox{FullBoxHeader: fb}
	var cumulative uint64
	for i := uint32(0); i < itemCount && c.Error() == nil; i++ {
		var ent IlocEntry
		if fb.Version < 2 {
			ent.ItemID = uint32(c.Read16())
		} else {
			ent.ItemID = c.Read32()
		}
		if fb.Version == 1 || fb.Version == 2 {
			cm := c.Read16()
			ent.ConstructionMethod = ConstructionMethod(cm & 0xF)
		}
		ent.DataReferenceIndex = c.Read16()
		if baseOffsetSize > 0 {
			ent.BaseOffset = c.ReadUintN(baseOffsetSize)
		}
		extentCount := c.Read16()
		if extentCount > maxExtentsPerItem {
			return nil, heiferr.New(heiferr.InvalidInput, heiferr.SecurityLimitExceeded,
				"item %d declares %d extents, exceeding limit of %d", ent.ItemID, extentCount, maxExtentsPerItem)
		}
		for j := uint16(0); j < extentCount && c.Error() == nil; j++ {
			var ex Extent
			if indexSize > 0 {
				ex.Index = c.ReadUintN(indexSize)
			}
			ex.Offset = c.ReadUintN(offsetSize)
			ex.Length = c.ReadUintN(lengthSize)
			cumulative += ex.Length
			if cumulative > maxCumulativeExtentSz {
				return nil, heiferr.New(heiferr.MemoryAllocationError, heiferr.SecurityLimitExceeded,
					"cumulative extent size %d exceeds %d byte limit", cumulative, maxCumulativeExtentSz)
			}
			ent.Extents = append(ent.Extents, ex)
		}
		ib.Items = append(ib.Items, ent)
	}
	return ib, c.Error()
}

// ---- infe / iinf ----

type InfeBox struct {
	FullBoxHeader
	ItemID          uint32
	ProtectionIndex uint16
	ItemType        string
	ItemName        string
	ContentType     string
	ContentEncoding string
	ItemURIType     string
	Hidden          bool
}

func parseInfe(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	ie := &InfeBox{FullBoxHeader: fb}

	if fb.Version <= 1 {
		ie.ItemID = uint32(c.Read16())
		ie.ProtectionIndex = c.Read16()
		ie.ItemName = c.ReadString()
		ie.ContentType = c.ReadString()
		if c.Read(1) {
			ie.ContentEncoding = c.ReadString()
		}
		ie.ItemType = "hvc1" // implied, per version<=1 semantics
		return ie, c.Error()
	}

	if fb.Version == 2 {
		ie.ItemID = uint32(c.Read16())
	} else {
		ie.ItemID = c.Read32()
	}
	ie.ProtectionIndex = c.Read16()
	typeBytes := c.ReadBytes(4)
	if typeBytes != nil {
		ie.ItemType = string(typeBytes)
	}
	ie.ItemName = c.ReadString()
	ie.Hidden = fb.Flags&1 != 0

	switch ie.ItemType {
	case "mime":
		ie.ContentType = c.ReadString()
		if c.Read(1) {
			ie.ContentEncoding = c.ReadString()
		}
	case "uri ":
		ie.ItemURIType = c.ReadString()
	}
	return ie, c.Error()
}

type IinfBox struct {
	FullBoxHeader
	Count uint32 // declared count; NOT used to bound parsing, see parseIinf
	Items []*InfeBox
}

func parseIinf(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	ib := &IinfBox{FullBoxHeader: fb}
	if fb.Version == 0 {
		ib.Count = uint32(c.Read16())
	} else {
		ib.Count = c.Read32()
	}

	// NOTE: the declared Count above is not used to bound the loop below;
	// boxes are read until the iinf container's content is exhausted
	// instead. This mirrors the reference reader, which has the same
	// discrepancy (TODO upstream); preserved rather than silently fixed.
	children, err := ReadChildren(c)
	if err != nil {
		return ib, err
	}
	for _, box := range children {
		if infe, ok := box.Payload.(*InfeBox); ok {
			ib.Items = append(ib.Items, infe)
		}
	}
	return ib, nil
}

// ---- iprp / ipco / ipma ----

type IpcoBox struct {
	Properties []Box
}

func (b *IpcoBox) children() []Box { return b.Properties }

func parseIpco(h BoxHeader, c *Cursor) (any, error) {
	children, err := ReadChildren(c)
	return &IpcoBox{Properties: children}, err
}

type PropertyAssociation struct {
	Index     int // 1-based; 0 means "no property"
	Essential bool
}

type IpmaEntry struct {
	ItemID       uint32
	Associations []PropertyAssociation
}

type IpmaBox struct {
	FullBoxHeader
	Entries []IpmaEntry
}

func parseIpma(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	ipa := &IpmaBox{FullBoxHeader: fb}
	count := c.Read32()

	wideIndex := fb.Flags&1 != 0

	for i := uint32(0); i < count && c.Error() == nil; i++ {
		var itemID uint32
		if fb.Version < 1 {
			itemID = uint32(c.Read16())
		} else {
			itemID = c.Read32()
		}
		assocCount := c.Read8()
		entry := IpmaEntry{ItemID: itemID}
		for j := uint8(0); j < assocCount && c.Error() == nil; j++ {
			first := c.Read8()
			essential := first&0x80 != 0
			var index int
			if wideIndex {
				second := c.Read8()
				index = int(first&0x7F)<<8 | int(second)
			} else {
				index = int(first & 0x7F)
			}
			entry.Associations = append(entry.Associations, PropertyAssociation{Index: index, Essential: essential})
		}
		ipa.Entries = append(ipa.Entries, entry)
	}
	return ipa, c.Error()
}

type IprpBox struct {
	Container    *IpcoBox
	Associations []*IpmaBox
}

func parseIprp(h BoxHeader, c *Cursor) (any, error) {
	children, err := ReadChildren(c)
	if err != nil {
		return nil, err
	}
	if len(children) < 1 {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoIpcoBox, "iprp has no children")
	}
	ipco, ok := children[0].Payload.(*IpcoBox)
	if !ok {
		return nil, heiferr.New(heiferr.InvalidInput, heiferr.NoIpcoBox, "iprp's first child is not ipco")
	}
	ip := &IprpBox{Container: ipco}
	for _, box := range children[1:] {
		if ipma, ok := box.Payload.(*IpmaBox); ok {
			ip.Associations = append(ip.Associations, ipma)
		}
	}
	return ip, nil
}

// ---- ispe ----

type IspeBox struct {
	FullBoxHeader
	ImageWidth, ImageHeight uint32
}

func parseIspe(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	w := c.Read32()
	ht := c.Read32()
	return &IspeBox{FullBoxHeader: fb, ImageWidth: w, ImageHeight: ht}, c.Error()
}

// ---- auxC ----

type AuxCBox struct {
	FullBoxHeader
	AuxType    string
	AuxSubtype []byte
}

func parseAuxC(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	auxType := c.ReadString()
	var rest []byte
	for c.Read(1) {
		rest = append(rest, c.Read8())
	}
	return &AuxCBox{FullBoxHeader: fb, AuxType: auxType, AuxSubtype: rest}, c.Error()
}

// ---- irot / imir ----

type IrotBox struct {
	Angle uint8 // number of 90-degree counter-clockwise rotations, 0..3
}

func parseIrot(h BoxHeader, c *Cursor) (any, error) {
	v := c.Read8()
	return &IrotBox{Angle: v & 3}, c.Error()
}

type MirrorAxis uint8

const (
	MirrorVertical   MirrorAxis = 0
	MirrorHorizontal MirrorAxis = 1
)

type ImirBox struct {
	Axis MirrorAxis
}

func parseImir(h BoxHeader, c *Cursor) (any, error) {
	v := c.Read8()
	return &ImirBox{Axis: MirrorAxis(v & 1)}, c.Error()
}

// ---- clap ----

// ClapBox holds the four clean-aperture fractions. The width/height
// numerator-denominator pairs are non-negative; the offset pairs are
// signed (the clean-aperture centre may lie left of or above the picture
// centre), so they're read as int32 despite the 32-bit unsigned wire
// encoding shared by every field in this box.
type ClapBox struct {
	WidthN, WidthD       uint32
	HeightN, HeightD     uint32
	HorizOffN, HorizOffD int32
	VertOffN, VertOffD   int32
}

func parseClap(h BoxHeader, c *Cursor) (any, error) {
	b := &ClapBox{
		WidthN: c.Read32(), WidthD: c.Read32(),
		HeightN: c.Read32(), HeightD: c.Read32(),
		HorizOffN: int32(c.Read32()), HorizOffD: int32(c.Read32()),
		VertOffN: int32(c.Read32()), VertOffD: int32(c.Read32()),
	}
	return b, c.Error()
}

// ---- iref ----

type IrefEntry struct {
	Type         FourCC
	FromItemID   uint32
	ToItemIDs    []uint32
}

type IrefBox struct {
	FullBoxHeader
	Entries []IrefEntry
}

func parseIref(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	ib := &IrefBox{FullBoxHeader: fb}

	for !c.Eof() {
		entryH, err := readBoxHeader(c)
		if err != nil {
			return ib, err
		}
		var entryContent *Cursor
		var unbounded bool
		if entryH.Size == 0 {
			entryContent = c
			unbounded = true
		} else {
			entryContent = c.Sub(int64(entryH.Size) - entryH.HeaderSize)
		}

		var entry IrefEntry
		entry.Type = entryH.Type
		if fb.Version == 0 {
			entry.FromItemID = uint32(entryContent.Read16())
			count := entryContent.Read16()
			for i := uint16(0); i < count; i++ {
				entry.ToItemIDs = append(entry.ToItemIDs, uint32(entryContent.Read16()))
			}
		} else {
			entry.FromItemID = entryContent.Read32()
			count := entryContent.Read16()
			for i := uint16(0); i < count; i++ {
				entry.ToItemIDs = append(entry.ToItemIDs, entryContent.Read32())
			}
		}
		if entryContent.Error() != nil {
			return ib, entryContent.Error()
		}
		ib.Entries = append(ib.Entries, entry)

		if unbounded {
			entryContent.SkipToEndOfFile()
			break
		}
		entryContent.SkipToEndOfBox()
		// entryContent is a separate Cursor over the shared reader; charge c
		// for the entry's content as ReadBox does for its children.
		if c.remain >= 0 {
			c.remain -= int64(entryH.Size) - entryH.HeaderSize
		}
	}
	return ib, c.Error()
}

// ---- hvcC ----

type HevcNalArray struct {
	Completeness bool
	NalUnitType  uint8
	Units        [][]byte
}

type HvcCBox struct {
	GeneralProfileSpace uint8
	GeneralTierFlag     uint8
	GeneralProfileIdc   uint8
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintIndicatorFlags  [6]byte
	GeneralLevelIdc                  uint8
	MinSpatialSegmentationIdc        uint16
	ParallelismType                  uint8
	ChromaFormat                     uint8
	BitDepthLumaMinus8               uint8
	BitDepthChromaMinus8             uint8
	AvgFrameRate                     uint16
	ConstantFrameRate                uint8
	NumTemporalLayers                uint8
	TemporalIDNested                 uint8
	NalUnitLengthSize                int
	NalArrays                        []HevcNalArray
}

func parseHvcC(h BoxHeader, c *Cursor) (any, error) {
	b := &HvcCBox{}
	c.Read8() // configurationVersion

	ch := c.Read8()
	b.GeneralProfileSpace = (ch >> 6) & 3
	b.GeneralTierFlag = (ch >> 5) & 1
	b.GeneralProfileIdc = ch & 0x1F

	b.GeneralProfileCompatibilityFlags = c.Read32()
	for i := 0; i < 6; i++ {
		b.GeneralConstraintIndicatorFlags[i] = c.Read8()
	}
	b.GeneralLevelIdc = c.Read8()
	b.MinSpatialSegmentationIdc = c.Read16() & 0x0FFF
	b.ParallelismType = c.Read8() & 3
	b.ChromaFormat = c.Read8() & 3
	b.BitDepthLumaMinus8 = c.Read8() & 7
	b.BitDepthChromaMinus8 = c.Read8() & 7
	b.AvgFrameRate = c.Read16()

	ch = c.Read8()
	b.ConstantFrameRate = (ch >> 6) & 3
	b.NumTemporalLayers = (ch >> 3) & 7
	b.TemporalIDNested = (ch >> 2) & 1
	b.NalUnitLengthSize = int(ch&3) + 1

	numArrays := c.Read8()
	for i := uint8(0); i < numArrays && c.Error() == nil; i++ {
		ach := c.Read8()
		arr := HevcNalArray{
			Completeness: ach&0x80 != 0,
			NalUnitType:  ach & 0x3F,
		}
		numUnits := c.Read16()
		for j := uint16(0); j < numUnits && c.Error() == nil; j++ {
			size := c.Read16()
			if size == 0 {
				continue
			}
			unit := c.ReadBytes(int(size))
			if unit != nil {
				arr.Units = append(arr.Units, unit)
			}
		}
		b.NalArrays = append(b.NalArrays, arr)
	}
	return b, c.Error()
}

// GetHeaders emits the concatenation of every NAL unit in every array, each
// prefixed with its 4-byte big-endian length, ready to prepend to slice
// data as an AVCC/HVCC-framed parameter-set prelude.
func (b *HvcCBox) GetHeaders() []byte {
	var out []byte
	for _, arr := range b.NalArrays {
		for _, unit := range arr.Units {
			n := len(unit)
			out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
			out = append(out, unit...)
		}
	}
	return out
}

// ---- idat ----

type IdatBox struct {
	Data []byte
}

func parseIdat(h BoxHeader, c *Cursor) (any, error) {
	var data []byte
	for c.Read(1) {
		data = append(data, c.Read8())
	}
	return &IdatBox{Data: data}, c.Error()
}

// ---- grpl ----

type GrplBox struct {
	Groups []Box
}

func (b *GrplBox) children() []Box { return b.Groups }

func parseGrpl(h BoxHeader, c *Cursor) (any, error) {
	children, err := ReadChildren(c)
	return &GrplBox{Groups: children}, err
}

// ---- dinf / dref / url ----

type DinfBox struct {
	Children_ []Box
}

func (b *DinfBox) children() []Box { return b.Children_ }

func parseDinf(h BoxHeader, c *Cursor) (any, error) {
	children, err := ReadChildren(c)
	return &DinfBox{Children_: children}, err
}

type DrefBox struct {
	FullBoxHeader
	EntryCount uint32
	Entries    []Box
}

func (b *DrefBox) children() []Box { return b.Entries }

func parseDref(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	count := c.Read32()
	children, err := ReadChildren(c)
	return &DrefBox{FullBoxHeader: fb, EntryCount: count, Entries: children}, err
}

type URLBox struct {
	FullBoxHeader
	SelfContained bool
	Location      string
}

func parseURL(h BoxHeader, c *Cursor) (any, error) {
	fb := readFullBoxHeader(c)
	u := &URLBox{FullBoxHeader: fb, SelfContained: fb.Flags&1 != 0}
	if !u.SelfContained && c.Read(1) {
		u.Location = c.ReadString()
	}
	return u, c.Error()
}
