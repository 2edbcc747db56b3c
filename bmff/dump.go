package bmff

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented, human-readable listing of boxes to w, recursing
// into children. Its exact text format is not API-stable; it exists for
// interactive inspection (see cmd/heifdump), not for programmatic parsing.
func Dump(w io.Writer, boxes []Box) {
	dumpLevel(w, boxes, 0)
}

func dumpLevel(w io.Writer, boxes []Box, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, b := range boxes {
		fmt.Fprintf(w, "%sbox %q size=%d", indent, b.Header.Type, b.Header.Size)
		if b.Payload != nil {
			fmt.Fprintf(w, " (%T)", b.Payload)
		} else {
			fmt.Fprint(w, " (unparsed)")
		}
		fmt.Fprintln(w)
		if len(b.Children) > 0 {
			dumpLevel(w, b.Children, depth+1)
		}
	}
}
