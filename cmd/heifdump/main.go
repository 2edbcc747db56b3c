// Command heifdump prints the box tree and resolved item graph of a HEIF
// file, for interactive inspection while developing against this package.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/heif"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: heifdump <file.heic>")
		os.Exit(2)
	}

	path := flag.Arg(0)
	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cursor := bmff.NewCursor(io.NewSectionReader(file, 0, info.Size()))
	boxes, err := bmff.ReadChildren(cursor)
	if err != nil && len(boxes) == 0 {
		fmt.Fprintln(os.Stderr, "reading box tree:", err)
		os.Exit(1)
	}
	fmt.Println("box tree:")
	bmff.Dump(os.Stdout, boxes)

	f, err := heif.Open(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening file model:", err)
		os.Exit(1)
	}
	g, err := heif.Interpret(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "interpreting item graph:", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("primary item: %d\n", g.Primary)
	fmt.Println("top-level items:")
	for _, id := range g.TopLevel {
		img, _ := g.Image(id)
		fmt.Printf("  item %d: type=%s size=%dx%d\n", id, img.ItemType, img.Width, img.Height)
	}
}
