package heifcore_test

import (
	"bytes"
	"image"
	"testing"

	"github.com/hfimage/heifcore"
	"github.com/hfimage/heifcore/decoder/stubdecoder"
)

func init() {
	if err := heifcore.Decoders.Register(stubdecoder.New()); err != nil {
		panic(err)
	}
}

// The helpers below are a smaller, standalone copy of the box-construction
// helpers in heif/fixture_test.go: unexported test helpers don't cross
// package boundaries, and this package only needs one shape of fixture.

func u32b(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }
func u16b(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func cstr(s string) []byte { return append([]byte(s), 0) }
func fullBoxPrefix(version uint8, flags uint32) []byte {
	return []byte{version, byte(flags >> 16), byte(flags >> 8), byte(flags)}
}
func mkBox(fourcc string, content []byte) []byte {
	out := append(u32b(uint32(8+len(content))), []byte(fourcc)...)
	return append(out, content...)
}

func mkFtyp() []byte {
	content := append([]byte("heic"), u32b(0)...)
	content = append(content, []byte("heic")...)
	content = append(content, []byte("mif1")...)
	return mkBox("ftyp", content)
}

func mkHdlr() []byte {
	content := u32b(0)
	content = append(content, []byte("pict")...)
	content = append(content, u32b(0)...)
	content = append(content, u32b(0)...)
	content = append(content, u32b(0)...)
	content = append(content, cstr("")...)
	return mkBox("hdlr", append(fullBoxPrefix(0, 0), content...))
}

func mkPitm(id uint16) []byte { return mkBox("pitm", append(fullBoxPrefix(0, 0), u16b(id)...)) }

func mkIspe(w, h uint32) []byte {
	c := append(fullBoxPrefix(0, 0), u32b(w)...)
	return mkBox("ispe", append(c, u32b(h)...))
}

func mkHvcCEmpty() []byte {
	content := []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 3, 0}
	return mkBox("hvcC", content)
}

func mkIpco(props ...[]byte) []byte {
	var content []byte
	for _, p := range props {
		content = append(content, p...)
	}
	return mkBox("ipco", content)
}

func mkIpma(itemID uint16, indices []int) []byte {
	content := append(fullBoxPrefix(0, 0), u32b(1)...)
	content = append(content, u16b(itemID)...)
	content = append(content, byte(len(indices)))
	for _, idx := range indices {
		content = append(content, byte(idx&0x7F))
	}
	return mkBox("ipma", content)
}

func mkIprp(ipco, ipma []byte) []byte {
	return mkBox("iprp", append(append([]byte{}, ipco...), ipma...))
}

func mkInfe(itemID uint16, itemType string) []byte {
	content := fullBoxPrefix(2, 0)
	content = append(content, u16b(itemID)...)
	content = append(content, u16b(0)...)
	content = append(content, []byte(itemType)...)
	content = append(content, cstr("")...)
	return mkBox("infe", content)
}

func mkIinf(infe []byte) []byte {
	content := append(fullBoxPrefix(0, 0), u16b(1)...)
	return mkBox("iinf", append(content, infe...))
}

func mkIloc(itemID uint16, baseOffset, length uint32) []byte {
	content := fullBoxPrefix(0, 0)
	content = append(content, 0x44, 0x40)
	content = append(content, u16b(1)...)
	content = append(content, u16b(itemID)...)
	content = append(content, u16b(0)...)
	content = append(content, u32b(baseOffset)...)
	content = append(content, u16b(1)...)
	content = append(content, u32b(0)...)
	content = append(content, u32b(length)...)
	return mkBox("iloc", content)
}

func mkMeta(children ...[]byte) []byte {
	content := fullBoxPrefix(0, 0)
	for _, c := range children {
		content = append(content, c...)
	}
	return mkBox("meta", content)
}

// singleImageFixture builds a one-item 64x48 HEIF-shaped file decodable by
// stubdecoder, with no attached Exif metadata.
func singleImageFixture(payload []byte) []byte {
	ftyp := mkFtyp()
	metaBuilder := func(mdatStart uint32) []byte {
		ipco := mkIpco(mkIspe(64, 48), mkHvcCEmpty())
		ipma := mkIpma(1, []int{1, 2})
		iprp := mkIprp(ipco, ipma)
		iinf := mkIinf(mkInfe(1, "hvc1"))
		iloc := mkIloc(1, mdatStart, uint32(len(payload)))
		return mkMeta(mkHdlr(), mkPitm(1), iinf, iprp, iloc)
	}
	placeholder := metaBuilder(0)
	mdatStart := uint32(len(ftyp) + len(placeholder) + 8)
	meta := metaBuilder(mdatStart)
	out := append([]byte{}, ftyp...)
	out = append(out, meta...)
	out = append(out, mkBox("mdat", payload)...)
	return out
}

func TestDecodeReturnsAssembledImage(t *testing.T) {
	payload := stubdecoder.Encode(64, 48, 42, 128, 128)
	file := singleImageFixture(payload)

	img, err := heifcore.Decode(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("decoded bounds = %v, want 64x48", b)
	}
}

func TestDecodeConfigReportsDimensions(t *testing.T) {
	payload := stubdecoder.Encode(64, 48, 42, 128, 128)
	file := singleImageFixture(payload)

	cfg, err := heifcore.DecodeConfig(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Fatalf("config = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestExtractExifWithoutMetadataFails(t *testing.T) {
	payload := stubdecoder.Encode(64, 48, 42, 128, 128)
	file := singleImageFixture(payload)

	_, err := heifcore.ExtractExif(bytes.NewReader(file))
	if err == nil {
		t.Fatalf("expected an error for a file with no attached Exif metadata")
	}
}

func TestThumbnailNoOpWithinBounds(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 50))
	got := heifcore.Thumbnail(src, 200)
	if got != image.Image(src) {
		t.Fatalf("expected Thumbnail to return the source image unchanged")
	}
}

func TestThumbnailScalesLongerSide(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 200, 100))
	got := heifcore.Thumbnail(src, 50)
	b := got.Bounds()
	if b.Dx() != 50 {
		t.Fatalf("thumbnail width = %d, want 50", b.Dx())
	}
	if b.Dy() >= 100 {
		t.Fatalf("thumbnail height = %d, should have scaled down from 100", b.Dy())
	}
}

func TestApplyExifOrientationInvalidDataReturnsUnchanged(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	got := heifcore.ApplyExifOrientation(src, []byte("not exif data"))
	if got != image.Image(src) {
		t.Fatalf("expected the image to be returned unchanged when exif data is invalid")
	}
}
