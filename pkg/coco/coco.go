// Package coco reads and writes the aggregate COCO-style annotation record.
package coco

import (
	"fmt"
	"math"
	"strconv"
)

// Dataset is the aggregate record: every image, every annotation and every category
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Image is one entry of the images array
type Image struct {
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	ID       int    `json:"id"`
}

// Annotation is one entry of the annotations array. BBox is [xmin, ymin, width, height].
type Annotation struct {
	ID           int    `json:"id"`
	ImageID      int    `json:"image_id"`
	Name         string `json:"name"`
	CategoryID   int    `json:"category_id"`
	BBox         [4]int `json:"bbox"`
	Area         Area   `json:"area"`
	Segmentation any    `json:"segmentation"`
	IsCrowd      int    `json:"iscrowd"`
	Pose         string `json:"pose"`
	Truncated    int    `json:"truncated"`
	Difficult    int    `json:"difficult"`
}

// Area is a region area. It is always written with a decimal point, so 2000
// encodes as 2000.0 and readers keep it a float.
type Area float64

// MarshalJSON implements json.Marshaler
func (a Area) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("unsupported area value %v", f)
	}
	b := strconv.AppendFloat(nil, f, 'f', -1, 64)
	if f == math.Trunc(f) {
		b = append(b, ".0"...)
	}
	return b, nil
}

// Category is one entry of the categories array
type Category struct {
	Supercategory *string `json:"supercategory"`
	ID            int     `json:"id"`
	Name          string  `json:"name"`
}

// CategoryByName returns the category with exactly the given name
func (d *Dataset) CategoryByName(name string) (Category, bool) {
	for _, c := range d.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryByID returns the category with the given id
func (d *Dataset) CategoryByID(id int) (Category, bool) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
