// Package voc reads and writes per-image annotation descriptors in the Pascal VOC XML layout.
package voc

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/menta2k/coco-voc/pkg/types"
)

// RegionType is the fixed type tag written on every object node
const RegionType = "bndbox"

// DefaultExtension is the file extension of descriptor files
const DefaultExtension = ".xml"

// Descriptor is the XML document written for one image. Field order matches the
// element order in the output.
type Descriptor struct {
	XMLName  xml.Name `xml:"annotation"`
	Filename string   `xml:"filename"`
	Size     Size     `xml:"size"`
	Objects  []Object `xml:"object"`
}

// Size is the size block of a descriptor
type Size struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// Object is one region block of a descriptor
type Object struct {
	Type      string    `xml:"type"`
	Name      string    `xml:"name"`
	Pose      string    `xml:"pose"`
	Truncated int       `xml:"truncated"`
	Difficult int       `xml:"difficult"`
	BndBox    types.Box `xml:"bndbox"`
}

// NewDescriptor builds the descriptor for an annotated image
func NewDescriptor(img types.AnnotatedImage) Descriptor {
	d := Descriptor{
		Filename: img.Image.Filename,
		Size: Size{
			Width:  img.Image.Width,
			Height: img.Image.Height,
			Depth:  img.Image.Depth,
		},
		Objects: make([]Object, 0, len(img.Regions)),
	}
	for _, r := range img.Regions {
		d.Objects = append(d.Objects, Object{
			Type:      RegionType,
			Name:      r.Label,
			Pose:      r.Pose,
			Truncated: r.Truncated,
			Difficult: r.Difficult,
			BndBox:    r.Box,
		})
	}
	return d
}

// The decode-side mirror of Descriptor. Every element is a pointer so that an
// absent element can be told apart from an empty one.
type rawAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename *string     `xml:"filename"`
	Size     *rawSize    `xml:"size"`
	Objects  []rawObject `xml:"object"`
}

type rawSize struct {
	Width  *string `xml:"width"`
	Height *string `xml:"height"`
	Depth  *string `xml:"depth"`
}

type rawObject struct {
	Name      *string    `xml:"name"`
	Pose      *string    `xml:"pose"`
	Truncated *string    `xml:"truncated"`
	Difficult *string    `xml:"difficult"`
	BndBox    *rawBndBox `xml:"bndbox"`
}

type rawBndBox struct {
	XMin *string `xml:"xmin"`
	YMin *string `xml:"ymin"`
	XMax *string `xml:"xmax"`
	YMax *string `xml:"ymax"`
}

// Decode parses one descriptor. name is used only in error messages.
// Text fields are kept verbatim; integer fields may carry surrounding whitespace.
func Decode(r io.Reader, name string) (types.AnnotatedImage, error) {
	var raw rawAnnotation
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&raw); err != nil {
		return types.AnnotatedImage{}, fmt.Errorf("%s: %w: %w", name, types.ErrMalformed, err)
	}

	img := types.AnnotatedImage{Source: name}
	if raw.Filename == nil {
		return img, types.Missing(name, "filename")
	}
	img.Image.Filename = *raw.Filename

	if raw.Size == nil {
		return img, types.Missing(name, "size")
	}
	var err error
	if img.Image.Width, err = parseInt(name, "size/width", raw.Size.Width); err != nil {
		return img, err
	}
	if img.Image.Height, err = parseInt(name, "size/height", raw.Size.Height); err != nil {
		return img, err
	}
	if img.Image.Depth, err = parseInt(name, "size/depth", raw.Size.Depth); err != nil {
		return img, err
	}

	img.Regions = make([]types.Region, 0, len(raw.Objects))
	for i, obj := range raw.Objects {
		region, err := decodeObject(name, fmt.Sprintf("object[%d]", i), obj)
		if err != nil {
			return img, err
		}
		img.Regions = append(img.Regions, region)
	}
	return img, nil
}

func decodeObject(name, prefix string, obj rawObject) (types.Region, error) {
	var r types.Region
	if obj.Name == nil {
		return r, types.Missing(name, prefix+"/name")
	}
	r.Label = *obj.Name
	if obj.Pose == nil {
		return r, types.Missing(name, prefix+"/pose")
	}
	r.Pose = *obj.Pose

	var err error
	if r.Truncated, err = parseInt(name, prefix+"/truncated", obj.Truncated); err != nil {
		return r, err
	}
	if r.Difficult, err = parseInt(name, prefix+"/difficult", obj.Difficult); err != nil {
		return r, err
	}

	if obj.BndBox == nil {
		return r, types.Missing(name, prefix+"/bndbox")
	}
	bb := obj.BndBox
	if r.Box.XMin, err = parseInt(name, prefix+"/bndbox/xmin", bb.XMin); err != nil {
		return r, err
	}
	if r.Box.YMin, err = parseInt(name, prefix+"/bndbox/ymin", bb.YMin); err != nil {
		return r, err
	}
	if r.Box.XMax, err = parseInt(name, prefix+"/bndbox/xmax", bb.XMax); err != nil {
		return r, err
	}
	if r.Box.YMax, err = parseInt(name, prefix+"/bndbox/ymax", bb.YMax); err != nil {
		return r, err
	}
	return r, nil
}

func parseInt(name, field string, s *string) (int, error) {
	if s == nil {
		return 0, types.Missing(name, field)
	}
	v, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return 0, &types.FieldError{Path: name, Field: field, Err: err}
	}
	return v, nil
}

// Encode writes d as an indented XML document
func Encode(w io.Writer, d Descriptor, indent string) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", indent)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode descriptor for %s: %w", d.Filename, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
