// Package bmff implements a generic, typed ISOBMFF box reader for the
// closed set of box types a HEIF still-image file can contain. It replaces
// the open-ended inheritance hierarchy of the reference C++ implementation
// with a tagged variant: every Box carries a Header and, once parsed, a
// concrete Payload value of one of the types declared in this package.
package bmff

import (
	"errors"
	"io"

	"github.com/hfimage/heifcore/heiferr"
)

// MaxChildrenPerBox bounds how many children a single container box may
// declare, guarding against a maliciously large child count driving
// unbounded allocation.
const MaxChildrenPerBox = 1024

// FourCC is a 4-byte box type tag.
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

func MakeFourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

// BoxHeader is the common prefix of every box: its total size (including
// the header itself), its type, and how many bytes the header occupied —
// content length is therefore Size-HeaderSize. Size==0 means "extends to
// end of file".
type BoxHeader struct {
	Size       uint64
	Type       FourCC
	UUID       [16]byte // only meaningful when Type == "uuid"
	HeaderSize int64
}

// FullBoxHeader is the (version, flags) word carried by "full boxes".
type FullBoxHeader struct {
	Version uint8
	Flags   uint32 // low 24 bits significant
}

// Box is one node of the parsed box tree.
type Box struct {
	Header   BoxHeader
	Payload  any   // concrete *FtypBox, *MetaBox, ... or nil if unparsed/unknown
	Children []Box // populated for container boxes
}

// readBoxHeader reads one box header from c, already positioned at the
// start of a box. io.EOF (wrapped) from ReadBox signals no more boxes.
func readBoxHeader(c *Cursor) (BoxHeader, error) {
	var h BoxHeader
	size32 := c.Read32()
	if err := c.Error(); err != nil {
		return h, err
	}
	h.Type = FourCC{c.Read8(), c.Read8(), c.Read8(), c.Read8()}
	h.HeaderSize = 8
	switch size32 {
	case 1:
		h.Size = c.Read64()
		h.HeaderSize += 8
	case 0:
		h.Size = 0 // extends to EOF
	default:
		h.Size = uint64(size32)
	}
	if h.Type.String() == "uuid" {
		copy(h.UUID[:], c.ReadBytes(16))
		h.HeaderSize += 16
	}
	if c.Error() != nil {
		return h, c.Error()
	}
	if h.Size != 0 && h.Size < uint64(h.HeaderSize) {
		return h, heiferr.New(heiferr.InvalidInput, heiferr.InvalidBoxSize,
			"box %q declares size %d smaller than its own header (%d)", h.Type, h.Size, h.HeaderSize)
	}
	return h, nil
}

type parserFunc func(h BoxHeader, c *Cursor) (any, error)

var registry = map[FourCC]parserFunc{}

func register(fourcc string, fn parserFunc) {
	registry[MakeFourCC(fourcc)] = fn
}

// ReadBox reads exactly one box (header + payload) from c, which must be
// positioned at a box boundary. Regardless of whether the concrete parser
// consumed its whole declared content, the cursor c is always left
// positioned immediately after this box so the caller can read the next
// sibling.
//
// Unknown box types produce a Box with a nil Payload; their content is
// simply skipped.
func ReadBox(c *Cursor) (Box, bool, error) {
	if c.Eof() {
		return Box{}, false, nil
	}
	h, err := readBoxHeader(c)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Box{}, false, nil
		}
		return Box{}, false, err
	}

	var content *Cursor
	var unbounded bool
	if h.Size == 0 {
		content = c
		unbounded = true
	} else {
		content = c.Sub(int64(h.Size) - h.HeaderSize)
	}

	box := Box{Header: h}
	if fn, ok := registry[h.Type]; ok {
		payload, perr := fn(h, content)
		box.Payload = payload
		if perr != nil {
			err = perr
		}
		if bc, ok := payload.(boxWithChildren); ok {
			box.Children = bc.children()
		}
	}

	if unbounded {
		content.SkipToEndOfFile()
	} else {
		content.SkipToEndOfBox()
		// content is a wholly separate Cursor over the shared reader
		// (Cursor.Sub); readBoxHeader already charged c for the header, so
		// charge it for the rest of this box's declared span too, or c would
		// still think this box's content was unconsumed and ReadChildren
		// would wander into the next sibling's bytes looking for it.
		if c.remain >= 0 {
			c.remain -= int64(h.Size) - h.HeaderSize
		}
	}
	return box, true, err
}

// boxWithChildren is implemented by container payload types so ReadBox can
// surface their parsed children on the generic Box.Children slice.
type boxWithChildren interface {
	children() []Box
}

// ReadChildren parses a sequence of sibling boxes filling exactly c's
// bounded content, enforcing MaxChildrenPerBox. Parse errors on an
// individual child abort the current box but the cursor is still advanced
// past that child so callers that tolerate partial failure (containers
// that merge best-effort) can continue; ReadChildren itself propagates the
// first error it sees after appending the partially-built list so far.
func ReadChildren(c *Cursor) ([]Box, error) {
	var out []Box
	for {
		box, ok, err := ReadBox(c)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, box)
		if len(out) > MaxChildrenPerBox {
			return out, heiferr.New(heiferr.InvalidInput, heiferr.SecurityLimitExceeded,
				"box exceeds %d children", MaxChildrenPerBox)
		}
	}
}

func readFullBoxHeader(c *Cursor) FullBoxHeader {
	v := c.Read8()
	b2 := c.Read8()
	b3 := c.Read8()
	b4 := c.Read8()
	flags := uint32(b2)<<16 | uint32(b3)<<8 | uint32(b4)
	return FullBoxHeader{Version: v, Flags: flags}
}
