// Package heiferr defines the error taxonomy shared by every layer of the
// HEIF reader: the box parser, the file model, interpretation and the image
// assembler all return *Error values built from this fixed set of codes and
// subcodes, mirroring the error surface of libheif's C API. The exception
// is a read failure inside bmff.Cursor: box parsers return it as the
// underlying io.EOF or io.ErrUnexpectedEOF, and Wrap passes such non-*Error
// values on as plain wrapped errors.
package heiferr

import "fmt"

// Code is the coarse error category.
type Code int

const (
	Ok Code = iota
	InvalidInput
	UnsupportedFeature
	UnsupportedFiletype
	UsageError
	MemoryAllocationError
	DecoderPluginError
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case InvalidInput:
		return "Invalid_input"
	case UnsupportedFeature:
		return "Unsupported_feature"
	case UnsupportedFiletype:
		return "Unsupported_filetype"
	case UsageError:
		return "Usage_error"
	case MemoryAllocationError:
		return "Memory_allocation_error"
	case DecoderPluginError:
		return "Decoder_plugin_error"
	default:
		return "Unknown"
	}
}

// Subcode narrows a Code down to the specific condition encountered.
type Subcode int

const (
	Unspecified Subcode = iota

	// Structural: a required top-level or meta box is missing or malformed.
	NoFtypBox
	NoMetaBox
	NoHdlrBox
	NoPictHandler
	NoPitmBox
	NoIprpBox
	NoIpcoBox
	NoIpmaBox
	NoIlocBox
	NoIinfBox
	NoInfeBox
	NoHvcCBox
	NoIrefBox
	NoIdatBox
	NoItemData
	InvalidBoxSize

	// Content: a box parsed structurally fine but its payload is invalid.
	EndOfData
	InvalidGridData
	InvalidOverlayData
	MissingGridImages
	OverlayImageOutsideOfCanvas // soft failure, silently discarded by the assembler
	InvalidCleanAperture
	IpmaBoxReferencesNonexistingProperty
	NoPropertiesAssignedToItem
	AuxiliaryImageTypeUnspecified

	// Policy: a declared size or count exceeded a hard-coded safety limit.
	SecurityLimitExceeded
	UnsupportedCodec
	UnsupportedImageType
	UnsupportedColorConversion
	UnsupportedDataVersion
	UnsupportedPluginVersion
	TooManyNestedImages

	// Usage: caller misuse of the public API.
	NullPointerArgument
	IndexOutOfRange
	NonexistingImageReferenced
	NoOrInvalidPrimaryImage
)

func (s Subcode) String() string {
	names := [...]string{
		"Unspecified",
		"No_ftyp_box", "No_meta_box", "No_hdlr_box", "No_pict_handler",
		"No_pitm_box", "No_iprp_box", "No_ipco_box", "No_ipma_box",
		"No_iloc_box", "No_iinf_box", "No_infe_box", "No_hvcC_box",
		"No_iref_box", "No_idat_box", "No_item_data", "Invalid_box_size",
		"End_of_data", "Invalid_grid_data", "Invalid_overlay_data",
		"Missing_grid_images", "Overlay_image_outside_of_canvas",
		"Invalid_clean_aperture", "Ipma_box_references_nonexisting_property",
		"No_properties_assigned_to_item", "Auxiliary_image_type_unspecified",
		"Security_limit_exceeded", "Unsupported_codec", "Unsupported_image_type",
		"Unsupported_color_conversion", "Unsupported_data_version",
		"Unsupported_plugin_version", "Too_many_nested_images",
		"Null_pointer_argument", "Index_out_of_range",
		"Nonexisting_image_referenced", "No_or_invalid_primary_image",
	}
	if int(s) < 0 || int(s) >= len(names) {
		return "Unknown"
	}
	return names[s]
}

// Error is the concrete error value returned across package boundaries.
type Error struct {
	Code    Code
	Sub     Subcode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Sub)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Sub, e.Message)
}

// New builds an Error with a formatted message.
func New(code Code, sub Subcode, format string, args ...any) *Error {
	return &Error{Code: code, Sub: sub, Message: fmt.Sprintf(format, args...)}
}

// Wrap adds context to an existing error without discarding a *Error's code/subcode.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if he, ok := err.(*Error); ok {
		return &Error{Code: he.Code, Sub: he.Sub, Message: context + ": " + he.Message}
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Is reports whether err is a *Error with the given subcode.
func Is(err error, sub Subcode) bool {
	he, ok := err.(*Error)
	return ok && he.Sub == sub
}

// Soft reports whether err represents a condition the caller should swallow
// rather than abort on (currently only overlay placement outside the canvas).
func Soft(err error) bool {
	return Is(err, OverlayImageOutsideOfCanvas)
}
