package coco

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Output naming defaults
const (
	DefaultPrefix          = "voc2coco"
	DefaultTimestampLayout = "20060102150405"
)

// Writer serialises a Dataset into a timestamped file
type Writer struct {
	prefix string
	layout string
	indent string
}

// NewWriter creates a Writer producing compact voc2coco_<timestamp>.json files
func NewWriter() *Writer {
	return &Writer{prefix: DefaultPrefix, layout: DefaultTimestampLayout}
}

// NewWriterWithConfig creates a Writer with a custom file prefix, timestamp layout and
// JSON indent. An empty indent writes compact JSON.
func NewWriterWithConfig(prefix, layout, indent string) *Writer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return &Writer{prefix: prefix, layout: layout, indent: indent}
}

// FileName returns the output file name for a run started at now
func (w *Writer) FileName(now time.Time) string {
	return fmt.Sprintf("%s_%s.json", w.prefix, now.Format(w.layout))
}

// Marshal encodes the dataset
func (w *Writer) Marshal(ds *Dataset) ([]byte, error) {
	if w.indent == "" {
		return json.Marshal(ds)
	}
	return json.MarshalIndent(ds, "", w.indent)
}

// Save writes ds into dir under the name derived from now and returns the written path
func (w *Writer) Save(dir string, ds *Dataset, now time.Time) (string, error) {
	data, err := w.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal aggregate record: %w", err)
	}

	path := filepath.Join(dir, w.FileName(now))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write aggregate file: %w", err)
	}
	return path, nil
}
