package voc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/coco-voc/internal/utils"
)

// Writer emits descriptor files into a directory
type Writer struct {
	indent string
}

// NewWriter creates a Writer that indents nested elements with a tab
func NewWriter() *Writer {
	return &Writer{indent: "\t"}
}

// NewWriterWithIndent creates a Writer with a custom indent string
func NewWriterWithIndent(indent string) *Writer {
	return &Writer{indent: indent}
}

// FileName returns the descriptor file name for an image file name
func FileName(imageFilename string) string {
	return utils.ReplaceExtension(imageFilename, DefaultExtension)
}

// WriteDir writes one file per descriptor into dir, creating dir if needed and
// overwriting existing files. It returns the written paths in input order.
func (w *Writer) WriteDir(dir string, descs []Descriptor) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(descs))
	for _, d := range descs {
		path := filepath.Join(dir, FileName(d.Filename))
		if err := w.WriteFile(path, d); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFile writes a single descriptor to path
func (w *Writer) WriteFile(path string, d Descriptor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create descriptor file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, d, w.indent); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
