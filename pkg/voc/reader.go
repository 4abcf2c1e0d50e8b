package voc

import (
	"fmt"
	"os"

	"github.com/menta2k/coco-voc/internal/utils"
	"github.com/menta2k/coco-voc/pkg/types"
)

// Dataset is the in-memory form of a directory of descriptors
type Dataset struct {
	// Images holds one record per descriptor, in file name order.
	Images []types.AnnotatedImage
	// Labels holds every label name in order of first occurrence.
	Labels *types.LabelSet
}

// NumRegions returns the total number of regions across all images
func (d *Dataset) NumRegions() int {
	n := 0
	for _, img := range d.Images {
		n += len(img.Regions)
	}
	return n
}

// Reader loads descriptor directories
type Reader struct {
	extension string
}

// NewReader creates a Reader for .xml descriptors
func NewReader() *Reader {
	return &Reader{extension: DefaultExtension}
}

// NewReaderWithExtension creates a Reader that only considers files ending in ext.
// An empty ext reads every regular file in the directory.
func NewReaderWithExtension(ext string) *Reader {
	return &Reader{extension: ext}
}

// ReadDir parses every descriptor in dir. Files are processed in lexicographic
// order so that label order, and with it category ids, is reproducible.
// The first malformed descriptor aborts the read.
func (r *Reader) ReadDir(dir string) (*Dataset, error) {
	files, err := utils.ListFiles(dir, r.extension)
	if err != nil {
		return nil, fmt.Errorf("failed to list descriptor directory: %w", err)
	}

	ds := &Dataset{
		Images: make([]types.AnnotatedImage, 0, len(files)),
		Labels: types.NewLabelSet(),
	}
	for _, path := range files {
		img, err := r.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, region := range img.Regions {
			ds.Labels.Add(region.Label)
		}
		ds.Images = append(ds.Images, img)
	}
	return ds, nil
}

// ReadFile parses a single descriptor file
func (r *Reader) ReadFile(path string) (types.AnnotatedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.AnnotatedImage{}, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	return Decode(f, path)
}
