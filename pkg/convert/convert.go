// Package convert maps between the distributed per-image model and the
// aggregate record.
package convert

import (
	"fmt"

	"github.com/menta2k/coco-voc/pkg/coco"
	"github.com/menta2k/coco-voc/pkg/types"
	"github.com/menta2k/coco-voc/pkg/voc"
)

// ToAggregate builds the aggregate record for a distributed dataset.
//
// Categories get ids 1..N in label-set order. The image at position i gets id i.
// Annotation ids start at 0 and increase once per region across the whole record.
func ToAggregate(ds *voc.Dataset) (*coco.Dataset, error) {
	labels := ds.Labels
	if labels == nil {
		labels = types.NewLabelSet()
	}

	out := &coco.Dataset{
		Images:      make([]coco.Image, 0, len(ds.Images)),
		Annotations: make([]coco.Annotation, 0, ds.NumRegions()),
		Categories:  make([]coco.Category, 0, labels.Len()),
	}
	for i, name := range labels.Names() {
		out.Categories = append(out.Categories, coco.Category{ID: i + 1, Name: name})
	}

	annotationID := 0
	for i, img := range ds.Images {
		out.Images = append(out.Images, coco.Image{
			FileName: img.Image.Filename,
			Width:    img.Image.Width,
			Height:   img.Image.Height,
			Depth:    img.Image.Depth,
			ID:       i,
		})

		for _, r := range img.Regions {
			cat, ok := out.CategoryByName(r.Label)
			if !ok {
				return nil, fmt.Errorf("%s: label %q has no category: %w",
					img.Source, r.Label, types.ErrInconsistent)
			}
			out.Annotations = append(out.Annotations, coco.Annotation{
				ID:         annotationID,
				ImageID:    i,
				Name:       r.Label,
				CategoryID: cat.ID,
				BBox:       r.Box.Extent(),
				Area:       coco.Area(r.Box.Area()),
				IsCrowd:    0,
				Pose:       r.Pose,
				Truncated:  r.Truncated,
				Difficult:  r.Difficult,
			})
			annotationID++
		}
	}
	return out, nil
}

// GroupByImage indexes annotations by image id, keeping annotation order within
// each group.
func GroupByImage(anns []coco.Annotation) map[int][]coco.Annotation {
	groups := make(map[int][]coco.Annotation)
	for _, a := range anns {
		groups[a.ImageID] = append(groups[a.ImageID], a)
	}
	return groups
}

// ToDistributed splits an aggregate record into one annotated image per image
// entry, in image order. Each annotation is attributed at most once: when two
// images share an id, the first one receives the annotations and later ones get none.
func ToDistributed(ds *coco.Dataset) []types.AnnotatedImage {
	groups := GroupByImage(ds.Annotations)
	claimed := make(map[int]bool, len(ds.Images))

	out := make([]types.AnnotatedImage, 0, len(ds.Images))
	for _, img := range ds.Images {
		rec := types.AnnotatedImage{
			Image: types.ImageInfo{
				Filename: img.FileName,
				Width:    img.Width,
				Height:   img.Height,
				Depth:    img.Depth,
			},
		}
		if !claimed[img.ID] {
			claimed[img.ID] = true
			anns := groups[img.ID]
			rec.Regions = make([]types.Region, 0, len(anns))
			for _, a := range anns {
				rec.Regions = append(rec.Regions, types.Region{
					Label:     a.Name,
					Pose:      a.Pose,
					Truncated: a.Truncated,
					Difficult: a.Difficult,
					Box:       types.BoxFromExtent(a.BBox),
				})
			}
		}
		out = append(out, rec)
	}
	return out
}

// Descriptors converts annotated images into the descriptor documents to write
func Descriptors(imgs []types.AnnotatedImage) []voc.Descriptor {
	descs := make([]voc.Descriptor, 0, len(imgs))
	for _, img := range imgs {
		descs = append(descs, voc.NewDescriptor(img))
	}
	return descs
}
