package bmff

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Cursor is a bounded byte cursor over a sequential source, with a sticky
// error flag and a remaining-byte budget. Box parsing builds a tree of
// cursors: each box creates a child cursor scoped to exactly its content
// length, and the parent always advances past the child's full span when
// the child goes out of scope, regardless of how much the child itself
// consumed.
//
// A read that would exceed the remaining budget sets the error flag and
// returns a zero value; once set, the error is sticky and further reads
// are no-ops. Exhausting a child cursor does not propagate an error to its
// parent.
type Cursor struct {
	r      io.Reader
	remain int64 // -1 means unbounded: read until the underlying source is exhausted
	err    error
}

// NewCursor wraps r with an unbounded budget (used for the top-level box
// list and for boxes whose declared size extends to end-of-file). r is
// buffered so that Read can check availability on an unbounded cursor.
func NewCursor(r io.Reader) *Cursor {
	return &Cursor{r: bufio.NewReader(r), remain: -1}
}

// Sub constructs a child cursor scoped to exactly n bytes of this cursor's
// remaining budget. The parent's own remain is not decremented here; the
// caller (the box-reading driver) is responsible for skipping the parent
// past the child's span once the child is done, via SkipToEndOfBox on the
// child followed by accounting on the parent.
func (c *Cursor) Sub(n int64) *Cursor {
	return &Cursor{r: c.r, remain: n}
}

func (c *Cursor) Error() error { return c.err }

func (c *Cursor) Eof() bool {
	if c.err != nil {
		return true
	}
	return c.remain == 0
}

// Remaining reports the number of bytes left in the budget, or -1 if unbounded.
func (c *Cursor) Remaining() int64 { return c.remain }

// Read reports whether n bytes are available without consuming them; it is
// a check-only probe used before variable-length reads.
func (c *Cursor) Read(n int64) bool {
	if c.err != nil {
		return false
	}
	if c.remain >= 0 {
		return n <= c.remain
	}
	// Unbounded: peek at the underlying source without consuming it.
	if br, ok := c.r.(*bufio.Reader); ok {
		_, err := br.Peek(int(n))
		return err == nil
	}
	return true
}

func (c *Cursor) consume(buf []byte) bool {
	if c.err != nil {
		return false
	}
	n := int64(len(buf))
	if c.remain >= 0 {
		if n > c.remain {
			c.err = io.ErrUnexpectedEOF
			return false
		}
	}
	if _, err := io.ReadFull(c.r, buf); err != nil {
		c.err = err
		return false
	}
	if c.remain >= 0 {
		c.remain -= n
	}
	return true
}

func (c *Cursor) Read8() uint8 {
	var buf [1]byte
	if !c.consume(buf[:]) {
		return 0
	}
	return buf[0]
}

func (c *Cursor) Read16() uint16 {
	var buf [2]byte
	if !c.consume(buf[:]) {
		return 0
	}
	return binary.BigEndian.Uint16(buf[:])
}

func (c *Cursor) Read32() uint32 {
	var buf [4]byte
	if !c.consume(buf[:]) {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}

func (c *Cursor) Read64() uint64 {
	var buf [8]byte
	if !c.consume(buf[:]) {
		return 0
	}
	return binary.BigEndian.Uint64(buf[:])
}

// ReadUintN reads an n-byte (0,1,2,3,4,8) big-endian unsigned integer, as
// used by iloc's nibble-selected field widths.
func (c *Cursor) ReadUintN(nbytes int) uint64 {
	switch nbytes {
	case 0:
		return 0
	case 1:
		return uint64(c.Read8())
	case 2:
		return uint64(c.Read16())
	case 3:
		buf := c.ReadBytes(3)
		if len(buf) != 3 {
			return 0
		}
		return uint64(buf[0])<<16 | uint64(buf[1])<<8 | uint64(buf[2])
	case 4:
		return uint64(c.Read32())
	case 8:
		return c.Read64()
	default:
		c.err = io.ErrUnexpectedEOF
		return 0
	}
}

// ReadBytes reads exactly n raw bytes.
func (c *Cursor) ReadBytes(n int) []byte {
	buf := make([]byte, n)
	if !c.consume(buf) {
		return nil
	}
	return buf
}

// ReadString reads a null-terminated string, bounded by the remaining
// budget. A missing terminator within the budget sets the error.
func (c *Cursor) ReadString() string {
	if c.err != nil {
		return ""
	}
	var out []byte
	for {
		if c.remain == 0 {
			c.err = io.ErrUnexpectedEOF
			return ""
		}
		b := c.Read8()
		if c.err != nil {
			return ""
		}
		if b == 0 {
			return string(out)
		}
		out = append(out, b)
	}
}

// SkipToEndOfBox discards any unread bytes remaining in this cursor's
// bounded budget. It is a no-op for an unbounded cursor.
func (c *Cursor) SkipToEndOfBox() {
	if c.remain <= 0 {
		return
	}
	io.CopyN(io.Discard, c.r, c.remain)
	c.remain = 0
}

// SkipToEndOfFile drains the underlying source entirely; used when a box
// declares size 0 ("extends to end of file").
func (c *Cursor) SkipToEndOfFile() {
	io.Copy(io.Discard, c.r)
	c.remain = 0
}
