package bmff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func rawBox(fourcc string, content []byte) []byte {
	out := append([]byte{}, u32(uint32(8+len(content)))...)
	out = append(out, []byte(fourcc)...)
	out = append(out, content...)
	return out
}

func TestReadBoxCompactSize(t *testing.T) {
	data := rawBox("ftyp", append([]byte("heic"), u32(0)...))
	c := NewCursor(bytes.NewReader(data))
	box, ok, err := ReadBox(c)
	if err != nil {
		t.Fatalf("ReadBox: %v", err)
	}
	if !ok {
		t.Fatalf("expected a box")
	}
	if box.Header.Type.String() != "ftyp" {
		t.Fatalf("type = %q, want ftyp", box.Header.Type.String())
	}
	ft, ok := box.Payload.(*FtypBox)
	if !ok {
		t.Fatalf("payload type = %T, want *FtypBox", box.Payload)
	}
	if ft.MajorBrand.String() != "heic" {
		t.Fatalf("major brand = %q", ft.MajorBrand.String())
	}
}

func TestReadBoxSize1Extended(t *testing.T) {
	content := append([]byte("heic"), u32(0)...)
	var buf bytes.Buffer
	buf.Write(u32(1))     // size == 1 escapes to a 64-bit size
	buf.WriteString("ftyp")
	var sz64 [8]byte
	binary.BigEndian.PutUint64(sz64[:], uint64(16+len(content)))
	buf.Write(sz64[:])
	buf.Write(content)

	c := NewCursor(&buf)
	box, ok, err := ReadBox(c)
	if err != nil || !ok {
		t.Fatalf("ReadBox: ok=%v err=%v", ok, err)
	}
	if box.Header.HeaderSize != 16 {
		t.Fatalf("HeaderSize = %d, want 16", box.Header.HeaderSize)
	}
}

func TestReadBoxSize0ExtendsToEOF(t *testing.T) {
	content := append([]byte("heic"), u32(0)...)
	var buf bytes.Buffer
	buf.Write(u32(0)) // size==0: extends to EOF
	buf.WriteString("ftyp")
	buf.Write(content)

	c := NewCursor(&buf)
	box, ok, err := ReadBox(c)
	if err != nil || !ok {
		t.Fatalf("ReadBox: ok=%v err=%v", ok, err)
	}
	if box.Header.Size != 0 {
		t.Fatalf("Size = %d, want 0", box.Header.Size)
	}
	if !c.Eof() {
		t.Fatalf("cursor should be exhausted after a size==0 box")
	}
}

func TestReadBoxRejectsSizeSmallerThanHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(u32(4)) // smaller than the 8-byte header itself
	buf.WriteString("ftyp")
	c := NewCursor(&buf)
	_, _, err := ReadBox(c)
	if err == nil {
		t.Fatalf("expected an error for undersized box")
	}
}

func TestReadBoxAlwaysAdvancesPastPartiallyConsumedChild(t *testing.T) {
	// An "ispe" box whose 20-byte content is fullbox hdr 4 + width 4 +
	// height 4 = 12 bytes plus 8 bytes of trailing junk, followed by a
	// sibling ftyp box. ispe's parser only consumes 12 of the 20 content
	// bytes; the next ReadBox call must still land on the sibling, not mid-junk.
	ispeContent := append([]byte{0, 0, 0, 0}, append(u32(64), u32(48)...)...)
	ispeContent = append(ispeContent, make([]byte, 8)...) // extra unconsumed bytes
	var buf bytes.Buffer
	buf.Write(rawBox("ispe", ispeContent))
	ftypContent := append([]byte("heic"), u32(0)...)
	buf.Write(rawBox("ftyp", ftypContent))

	c := NewCursor(&buf)
	box1, ok, err := ReadBox(c)
	if err != nil || !ok {
		t.Fatalf("first ReadBox: ok=%v err=%v", ok, err)
	}
	if box1.Header.Type.String() != "ispe" {
		t.Fatalf("first box type = %q", box1.Header.Type.String())
	}
	box2, ok, err := ReadBox(c)
	if err != nil || !ok {
		t.Fatalf("second ReadBox: ok=%v err=%v", ok, err)
	}
	if box2.Header.Type.String() != "ftyp" {
		t.Fatalf("second box type = %q, want ftyp (parent should have skipped past ispe's unread tail)", box2.Header.Type.String())
	}
}

func TestReadChildrenEnforcesChildLimit(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < MaxChildrenPerBox+1; i++ {
		buf.Write(rawBox("free", nil))
	}
	c := NewCursor(&buf)
	_, err := ReadChildren(c)
	if err == nil {
		t.Fatalf("expected a child-count limit error")
	}
}

func TestReadChildrenUnknownBoxIsSkippedNotFailed(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(rawBox("zzzz", []byte{1, 2, 3, 4}))
	buf.Write(rawBox("ftyp", append([]byte("heic"), u32(0)...)))
	c := NewCursor(&buf)
	boxes, err := ReadChildren(c)
	if err != nil {
		t.Fatalf("ReadChildren: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	if boxes[0].Payload != nil {
		t.Fatalf("unknown box type should have a nil payload")
	}
}
