package decoder

import (
	"errors"
	"image"
	"testing"
)

type fakePlugin struct {
	name     string
	priority int
	apiVer   int
	img      image.Image
	pushErr  error
	decErr   error
}

func (p *fakePlugin) APIVersion() int { return p.apiVer }
func (p *fakePlugin) Name() string    { return p.name }
func (p *fakePlugin) DoesSupportFormat(tag CodecTag) int {
	if tag == CodecHEVC {
		return p.priority
	}
	return -1
}
func (p *fakePlugin) NewDecoder() (Handle, error) { return &fakeHandle{p: p}, nil }

type fakeHandle struct {
	p   *fakePlugin
	buf []byte
}

func (h *fakeHandle) Push(data []byte) error {
	if h.p.pushErr != nil {
		return h.p.pushErr
	}
	h.buf = append(h.buf, data...)
	return nil
}
func (h *fakeHandle) DecodeImage() (image.Image, error) { return h.p.img, h.p.decErr }
func (h *fakeHandle) Free()                             {}

func TestRegisterRejectsWrongAPIVersion(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&fakePlugin{name: "bad", apiVer: APIVersion + 1, priority: 1})
	if err == nil {
		t.Fatalf("expected Register to reject a mismatched API version")
	}
}

func TestSelectPicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	low := &fakePlugin{name: "low", apiVer: APIVersion, priority: 1, img: image.NewGray(image.Rect(0, 0, 1, 1))}
	high := &fakePlugin{name: "high", apiVer: APIVersion, priority: 5, img: image.NewGray(image.Rect(0, 0, 1, 1))}
	if err := r.Register(low); err != nil {
		t.Fatalf("Register(low): %v", err)
	}
	if err := r.Register(high); err != nil {
		t.Fatalf("Register(high): %v", err)
	}
	got, err := r.Select(CodecHEVC)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.Name() != "high" {
		t.Fatalf("Select picked %q, want \"high\"", got.Name())
	}
}

func TestSelectNoSupportingPlugin(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Select(CodecHEVC); err == nil {
		t.Fatalf("expected an error with no registered plugins")
	}
}

func TestDecodeRejectsNilImage(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakePlugin{name: "nilimg", apiVer: APIVersion, priority: 1, img: nil})
	_, err := r.Decode(CodecHEVC, []byte{1})
	if err == nil {
		t.Fatalf("expected an error when the plugin returns a nil image")
	}
}

func TestDecodeSucceeds(t *testing.T) {
	want := image.NewGray(image.Rect(0, 0, 2, 2))
	r := NewRegistry()
	r.Register(&fakePlugin{name: "ok", apiVer: APIVersion, priority: 1, img: want})
	got, err := r.Decode(CodecHEVC, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != image.Image(want) {
		t.Fatalf("Decode returned a different image than the plugin produced")
	}
}

func TestDecodePropagatesPushError(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakePlugin{name: "pusherr", apiVer: APIVersion, priority: 1, pushErr: errors.New("boom")})
	_, err := r.Decode(CodecHEVC, []byte{1})
	if err == nil {
		t.Fatalf("expected Decode to surface the plugin's Push error")
	}
}
