package coco

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/menta2k/coco-voc/pkg/types"
)

// Defaults applied by a lenient Reader to annotations written by tools that
// do not carry the VOC region attributes.
const (
	DefaultPose      = "Unspecified"
	DefaultTruncated = 0
	DefaultDifficult = 0
)

// Reader loads aggregate files
type Reader struct {
	lenient bool
}

// NewReader creates a strict Reader: every field the descriptor format needs
// must be present in the file.
func NewReader() *Reader {
	return &Reader{}
}

// NewLenientReader creates a Reader that accepts aggregate files from other
// tools. Missing image sizes are left at zero, missing region attributes take
// the VOC defaults and missing annotation names are resolved from category_id.
func NewLenientReader() *Reader {
	return &Reader{lenient: true}
}

type rawDataset struct {
	Images      *[]rawImage      `json:"images"`
	Annotations *[]rawAnnotation `json:"annotations"`
	Categories  []Category       `json:"categories"`
}

type rawImage struct {
	FileName *string `json:"file_name"`
	Width    *int    `json:"width"`
	Height   *int    `json:"height"`
	Depth    *int    `json:"depth"`
	ID       *int    `json:"id"`
}

type rawAnnotation struct {
	ID           *int            `json:"id"`
	ImageID      *int            `json:"image_id"`
	Name         *string         `json:"name"`
	CategoryID   *int            `json:"category_id"`
	BBox         *[4]json.Number `json:"bbox"`
	Area         float64         `json:"area"`
	Segmentation any             `json:"segmentation"`
	IsCrowd      int             `json:"iscrowd"`
	Pose         *string         `json:"pose"`
	Truncated    *int            `json:"truncated"`
	Difficult    *int            `json:"difficult"`
}

// Load reads and parses the aggregate file at path
func (r *Reader) Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aggregate file: %w", err)
	}
	return r.Parse(data, path)
}

// Parse decodes an aggregate record. name is used only in error messages.
func (r *Reader) Parse(data []byte, name string) (*Dataset, error) {
	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, types.ErrMalformed, err)
	}
	if raw.Images == nil {
		return nil, types.Missing(name, "images")
	}
	if raw.Annotations == nil {
		return nil, types.Missing(name, "annotations")
	}

	ds := &Dataset{
		Images:      make([]Image, 0, len(*raw.Images)),
		Annotations: make([]Annotation, 0, len(*raw.Annotations)),
		Categories:  raw.Categories,
	}

	for i, ri := range *raw.Images {
		img, err := r.image(name, i, ri)
		if err != nil {
			return nil, err
		}
		ds.Images = append(ds.Images, img)
	}

	for i, ra := range *raw.Annotations {
		ann, err := r.annotation(ds, name, i, ra)
		if err != nil {
			return nil, err
		}
		ds.Annotations = append(ds.Annotations, ann)
	}
	return ds, nil
}

func (r *Reader) image(name string, i int, ri rawImage) (Image, error) {
	field := func(f string) string { return fmt.Sprintf("images[%d].%s", i, f) }

	if ri.FileName == nil {
		return Image{}, types.Missing(name, field("file_name"))
	}
	if ri.ID == nil {
		return Image{}, types.Missing(name, field("id"))
	}
	img := Image{FileName: *ri.FileName, ID: *ri.ID}

	sizes := []struct {
		key string
		src *int
		dst *int
	}{
		{"width", ri.Width, &img.Width},
		{"height", ri.Height, &img.Height},
		{"depth", ri.Depth, &img.Depth},
	}
	for _, s := range sizes {
		if s.src == nil {
			if r.lenient {
				continue
			}
			return Image{}, types.Missing(name, field(s.key))
		}
		*s.dst = *s.src
	}
	return img, nil
}

func (r *Reader) annotation(ds *Dataset, name string, i int, ra rawAnnotation) (Annotation, error) {
	field := func(f string) string { return fmt.Sprintf("annotations[%d].%s", i, f) }

	if ra.ImageID == nil {
		return Annotation{}, types.Missing(name, field("image_id"))
	}
	if ra.BBox == nil {
		return Annotation{}, types.Missing(name, field("bbox"))
	}
	bbox, err := r.bbox(*ra.BBox)
	if err != nil {
		return Annotation{}, &types.FieldError{Path: name, Field: field("bbox"), Err: err}
	}
	ann := Annotation{
		ImageID:      *ra.ImageID,
		BBox:         bbox,
		Area:         Area(ra.Area),
		Segmentation: ra.Segmentation,
		IsCrowd:      ra.IsCrowd,
		Pose:         DefaultPose,
		Truncated:    DefaultTruncated,
		Difficult:    DefaultDifficult,
	}
	if ra.ID != nil {
		ann.ID = *ra.ID
	}
	if ra.CategoryID != nil {
		ann.CategoryID = *ra.CategoryID
	}

	switch {
	case ra.Name != nil:
		ann.Name = *ra.Name
	case r.lenient && ra.CategoryID != nil:
		cat, ok := ds.CategoryByID(*ra.CategoryID)
		if !ok {
			return Annotation{}, fmt.Errorf("%s: %s: category id %d: %w",
				name, field("category_id"), *ra.CategoryID, types.ErrNotFound)
		}
		ann.Name = cat.Name
	default:
		return Annotation{}, types.Missing(name, field("name"))
	}

	attrs := []struct {
		key     string
		present bool
		apply   func()
	}{
		{"pose", ra.Pose != nil, func() { ann.Pose = *ra.Pose }},
		{"truncated", ra.Truncated != nil, func() { ann.Truncated = *ra.Truncated }},
		{"difficult", ra.Difficult != nil, func() { ann.Difficult = *ra.Difficult }},
	}
	for _, a := range attrs {
		if a.present {
			a.apply()
			continue
		}
		if !r.lenient {
			return Annotation{}, types.Missing(name, field(a.key))
		}
	}
	return ann, nil
}

// bbox converts the four bbox numbers to integers. A strict Reader accepts only
// integer literals; a lenient one also takes floats with no fractional part,
// which is how most tools write them.
func (r *Reader) bbox(nums [4]json.Number) ([4]int, error) {
	var out [4]int
	for i, n := range nums {
		if v, err := n.Int64(); err == nil {
			out[i] = int(v)
			continue
		}
		if !r.lenient {
			return out, fmt.Errorf("bbox value %s is not an integer", n)
		}
		f, err := n.Float64()
		if err != nil {
			return out, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return out, fmt.Errorf("bbox value %s has a fractional part", n)
		}
		out[i] = int(f)
	}
	return out, nil
}
