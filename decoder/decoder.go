// Package decoder defines the pluggable HEVC bitstream decoder boundary.
// The box parser, file model and image assembler never decode a single
// pixel themselves; they hand a framed byte stream to whichever registered
// Plugin claims the highest priority for the codec and get back a planar
// image. This mirrors how goheif wires libde265 in as a cgo backend, but
// the dependency is inverted: the assembler depends only on this
// interface, and a concrete backend registers itself at init time.
package decoder

import (
	"image"

	"github.com/hfimage/heifcore/heiferr"
)

// CodecTag identifies a bitstream codec a Plugin might support. Only HEVC
// is in scope for this reader; the type exists so the registry contract
// matches the plugin ABI exactly (api_version, does_support_format, ...).
type CodecTag string

const CodecHEVC CodecTag = "hevc"

// APIVersion is the only plugin ABI version this registry accepts.
const APIVersion = 1

// Handle is an opaque per-decode decoder instance, owned by the context
// that created it via Plugin.NewDecoder and released with Handle.Free.
type Handle interface {
	// Push feeds framed bitstream bytes (parameter sets and/or slice data)
	// to the decoder. It may be called more than once before DecodeImage.
	Push(data []byte) error

	// DecodeImage flushes any pushed data and returns exactly one decoded
	// picture. A nil image with a nil error is never a valid return; the
	// caller (Assembler) treats that combination as a plugin bug.
	DecodeImage() (image.Image, error)

	// Free releases decoder-owned resources. Called exactly once, after
	// the handle's last use.
	Free()
}

// Plugin is the registrable decoder backend contract (§6 of the reader
// spec). Plugins are registered once, before any decode takes place; the
// registry is treated as append-only and quiescent while decodes are in
// flight (no decode holds a lock across Push/DecodeImage).
type Plugin interface {
	// APIVersion must equal decoder.APIVersion; a mismatch is rejected by
	// Register rather than silently accepted.
	APIVersion() int

	// Name identifies the plugin for diagnostics.
	Name() string

	// DoesSupportFormat returns a priority >= 0 if this plugin can decode
	// the given codec, or a negative value if it cannot. When more than
	// one registered plugin supports a format, the highest priority wins.
	DoesSupportFormat(tag CodecTag) int

	// NewDecoder allocates a fresh decode handle.
	NewDecoder() (Handle, error)
}

// Registry holds the set of plugins available to a decode context. The
// zero value is usable; a Registry must not be mutated concurrently with
// Select being called from a decode in flight.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a plugin. It rejects any plugin whose APIVersion doesn't
// match APIVersion.
func (r *Registry) Register(p Plugin) error {
	if p.APIVersion() != APIVersion {
		return heiferr.New(heiferr.UsageError, heiferr.UnsupportedPluginVersion,
			"plugin %q declares API version %d, expected %d", p.Name(), p.APIVersion(), APIVersion)
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Select returns the highest-priority registered plugin supporting tag, or
// an error if none do.
func (r *Registry) Select(tag CodecTag) (Plugin, error) {
	var best Plugin
	bestPriority := -1
	for _, p := range r.plugins {
		if pr := p.DoesSupportFormat(tag); pr > bestPriority {
			best = p
			bestPriority = pr
		}
	}
	if best == nil {
		return nil, heiferr.New(heiferr.UnsupportedFeature, heiferr.UnsupportedCodec,
			"no registered decoder plugin supports codec %q", tag)
	}
	return best, nil
}

// Decode is a convenience wrapper: select a plugin for tag, push data, and
// pull exactly one decoded image, releasing the handle afterward.
func (r *Registry) Decode(tag CodecTag, data []byte) (image.Image, error) {
	plugin, err := r.Select(tag)
	if err != nil {
		return nil, err
	}
	h, err := plugin.NewDecoder()
	if err != nil {
		return nil, heiferr.New(heiferr.DecoderPluginError, heiferr.Unspecified, "%v", err)
	}
	defer h.Free()

	if err := h.Push(data); err != nil {
		return nil, heiferr.New(heiferr.DecoderPluginError, heiferr.Unspecified, "%v", err)
	}
	img, err := h.DecodeImage()
	if err != nil {
		return nil, heiferr.New(heiferr.DecoderPluginError, heiferr.Unspecified, "%v", err)
	}
	if img == nil {
		return nil, heiferr.New(heiferr.DecoderPluginError, heiferr.Unspecified, "plugin %q returned a nil image", plugin.Name())
	}
	return img, nil
}
