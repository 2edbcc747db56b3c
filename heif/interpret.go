package heif

import (
	"fmt"
	"sort"

	"github.com/hfimage/heifcore/bmff"
	"github.com/hfimage/heifcore/heiferr"
	"github.com/hfimage/heifcore/seiparse"
)

func isImageItemType(t string) bool {
	switch t {
	case "hvc1", "grid", "iden", "iovl":
		return true
	}
	return false
}

const (
	auxTypeAlphaMPEG = "urn:mpeg:avc:2015:auxid:1"
	auxTypeAlphaHEVC = "urn:mpeg:hevc:2015:auxid:1"
	auxTypeDepthHEVC = "urn:mpeg:hevc:2015:auxid:2"
)

// Interpret walks f's item table and builds the resolved image graph
// (§4.4): pass A wires thumbnail/alpha/depth edges via iref, pass B folds
// each image's property list into a single displayed resolution, and a
// final pass attaches any Exif item reachable via a cdsc edge.
func Interpret(f *File) (*Graph, error) {
	g := &Graph{Images: map[uint32]*Image{}}

	ids := f.ItemIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		info, _ := f.ItemInfo(id)
		if info == nil || !isImageItemType(info.ItemType) {
			continue
		}
		g.Images[id] = &Image{ID: id, ItemType: info.ItemType, Hidden: info.Hidden}
	}

	g.Primary = f.PrimaryItemID()
	if _, ok := g.Images[g.Primary]; !ok {
		return nil, heiferr.New(heiferr.UsageError, heiferr.NoOrInvalidPrimaryImage,
			"primary item %d is not a decodable image item", g.Primary)
	}
	for id, img := range g.Images {
		if !img.Hidden {
			g.TopLevel = append(g.TopLevel, id)
		}
	}
	for id := range g.Images {
		g.Images[id].IsPrimary = id == g.Primary
	}

	if err := resolveThumbnails(f, g); err != nil {
		return nil, err
	}
	if err := resolveAuxiliaries(f, g); err != nil {
		return nil, err
	}
	if err := resolveDimensions(f, g); err != nil {
		return nil, err
	}
	if err := attachExif(f, g); err != nil {
		return nil, err
	}

	sort.Slice(g.TopLevel, func(i, j int) bool { return g.TopLevel[i] < g.TopLevel[j] })
	return g, nil
}

func removeTopLevel(g *Graph, id uint32) {
	for i, v := range g.TopLevel {
		if v == id {
			g.TopLevel = append(g.TopLevel[:i], g.TopLevel[i+1:]...)
			return
		}
	}
}

func resolveThumbnails(f *File, g *Graph) error {
	thumbOf := map[uint32]uint32{} // src -> target
	for id := range g.Images {
		ref, ok := f.ReferenceOfType(id, "thmb")
		if !ok {
			continue
		}
		if len(ref.ToItemIDs) != 1 {
			return heiferr.New(heiferr.InvalidInput, heiferr.Unspecified,
				"item %d's thmb reference names %d targets, expected exactly 1", id, len(ref.ToItemIDs))
		}
		thumbOf[id] = ref.ToItemIDs[0]
	}

	for src, target := range thumbOf {
		if _, targetIsAlsoThumbnail := thumbOf[target]; targetIsAlsoThumbnail {
			return heiferr.New(heiferr.InvalidInput, heiferr.Unspecified,
				"thumbnail item %d points to item %d, which is itself a thumbnail", src, target)
		}
	}

	for src, target := range thumbOf {
		targetImg, ok := g.Images[target]
		if !ok {
			return heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced,
				"thumbnail item %d references nonexistent target %d", src, target)
		}
		srcImg := g.Images[src]
		srcImg.ThumbnailOf = target
		targetImg.Thumbnails = append(targetImg.Thumbnails, src)
		removeTopLevel(g, src)
	}
	return nil
}

func resolveAuxiliaries(f *File, g *Graph) error {
	for id, img := range g.Images {
		ref, ok := f.ReferenceOfType(id, "auxl")
		if !ok {
			continue
		}
		if len(ref.ToItemIDs) != 1 {
			return heiferr.New(heiferr.InvalidInput, heiferr.Unspecified,
				"item %d's auxl reference names %d targets, expected exactly 1", id, len(ref.ToItemIDs))
		}
		target := ref.ToItemIDs[0]
		targetImg, ok := g.Images[target]
		if !ok {
			return heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced,
				"auxiliary item %d references nonexistent target %d", id, target)
		}

		auxC, ok := auxCProperty(f, id)
		if !ok {
			return heiferr.New(heiferr.InvalidInput, heiferr.AuxiliaryImageTypeUnspecified,
				"auxiliary item %d has no auxC property", id)
		}

		switch auxC.AuxType {
		case auxTypeAlphaMPEG, auxTypeAlphaHEVC:
			img.AlphaOf = target
			targetImg.AlphaChild = id
		case auxTypeDepthHEVC:
			img.DepthOf = target
			targetImg.DepthChild = id
			info, err := seiparse.ParseAuxCSubtype(auxC.AuxSubtype)
			if err != nil {
				return heiferr.Wrap(err, "parsing depth SEI")
			}
			if info != nil {
				targetImg.DepthInfo = info
			}
		default:
			return heiferr.New(heiferr.InvalidInput, heiferr.AuxiliaryImageTypeUnspecified,
				"item %d has unrecognized auxC aux_type %q", id, auxC.AuxType)
		}
		removeTopLevel(g, id)
	}
	return nil
}

func auxCProperty(f *File, id uint32) (*bmff.AuxCBox, bool) {
	props, err := f.Properties(id)
	if err != nil {
		return nil, false
	}
	for _, p := range props {
		if auxC, ok := p.Payload.(*bmff.AuxCBox); ok {
			return auxC, true
		}
	}
	return nil, false
}

// resolveDimensions folds each image's property list, in ipma association
// order, into a single displayed width/height: ispe seeds it, a later clap
// replaces it with the rounded clean-aperture size, and a later irot of
// 90/270 degrees swaps width and height (§4.4 pass B).
func resolveDimensions(f *File, g *Graph) error {
	for id, img := range g.Images {
		props, err := f.Properties(id)
		if err != nil {
			return err
		}
		if len(props) == 0 {
			return heiferr.New(heiferr.InvalidInput, heiferr.NoPropertiesAssignedToItem,
				"item %d has no property associations", id)
		}

		haveSize := false
		for _, p := range props {
			switch v := p.Payload.(type) {
			case *bmff.IspeBox:
				if v.ImageWidth >= 1<<31 || v.ImageHeight >= 1<<31 {
					return heiferr.New(heiferr.InvalidInput, heiferr.SecurityLimitExceeded,
						"item %d declares oversized dimensions %dx%d", id, v.ImageWidth, v.ImageHeight)
				}
				img.Width = int(v.ImageWidth)
				img.Height = int(v.ImageHeight)
				haveSize = true
			case *bmff.ClapBox:
				if !haveSize {
					continue
				}
				win, err := ComputeClapWindow(v, img.Width, img.Height)
				if err != nil {
					return heiferr.Wrap(err, fmt.Sprintf("item %d", id))
				}
				img.Width = win.Width()
				img.Height = win.Height()
			case *bmff.IrotBox:
				if v.Angle == 1 || v.Angle == 3 {
					img.Width, img.Height = img.Height, img.Width
				}
			}
		}
	}
	return nil
}

func attachExif(f *File, g *Graph) error {
	for _, id := range f.ItemIDs() {
		info, _ := f.ItemInfo(id)
		if info == nil || info.ItemType != "Exif" {
			continue
		}
		ref, ok := f.ReferenceOfType(id, "cdsc")
		if !ok || len(ref.ToItemIDs) != 1 {
			return heiferr.New(heiferr.InvalidInput, heiferr.Unspecified,
				"Exif item %d does not have exactly one cdsc target", id)
		}
		target, ok := g.Images[ref.ToItemIDs[0]]
		if !ok {
			return heiferr.New(heiferr.UsageError, heiferr.NonexistingImageReferenced,
				"Exif item %d references nonexistent target %d", id, ref.ToItemIDs[0])
		}
		data, err := f.ItemData(id)
		if err != nil {
			return heiferr.Wrap(err, "reading Exif item data")
		}
		target.Metadata = append(target.Metadata, Metadata{ItemType: "Exif", Data: data})
	}
	return nil
}

