package cocovoc

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/coco-voc/internal/config"
	"github.com/menta2k/coco-voc/pkg/coco"
	"github.com/menta2k/coco-voc/pkg/types"
	"github.com/menta2k/coco-voc/pkg/voc"
)

var runTime = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

const catXML = `<annotation>
	<filename>1.jpg</filename>
	<size><width>100</width><height>100</height><depth>3</depth></size>
	<object>
		<type>bndbox</type>
		<name>cat</name>
		<pose>Unspecified</pose>
		<truncated>0</truncated>
		<difficult>0</difficult>
		<bndbox><xmin>10</xmin><ymin>10</ymin><xmax>50</xmax><ymax>60</ymax></bndbox>
	</object>
</annotation>`

const emptyXML = `<annotation>
	<filename>2.jpg</filename>
	<size><width>100</width><height>100</height><depth>3</depth></size>
</annotation>`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.vocReader == nil || c.vocWriter == nil || c.cocoReader == nil || c.cocoWriter == nil || c.renderer == nil {
		t.Error("Converter has nil components")
	}
}

func TestNewWithConfigInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Preview.Quality = 500
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("Expected invalid config to be rejected")
	}
}

func TestVOCToCOCOScenario(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "1.xml"), catXML)
	writeFile(t, filepath.Join(src, "2.xml"), emptyXML)

	res, err := New().VOCToCOCO(src, dst, runTime, Options{})
	if err != nil {
		t.Fatalf("VOCToCOCO failed: %v", err)
	}
	if res.Images != 2 || res.Annotations != 1 || res.Categories != 1 {
		t.Errorf("Unexpected counts %+v", res)
	}

	expectedPath := filepath.Join(dst, "voc2coco_20210301120000.json")
	if len(res.Outputs) != 1 || res.Outputs[0] != expectedPath {
		t.Fatalf("Expected output %s, got %v", expectedPath, res.Outputs)
	}

	ds, err := coco.NewReader().Load(expectedPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ann := ds.Annotations[0]
	if ann.CategoryID != 1 || ann.BBox != [4]int{10, 10, 40, 50} || ann.Area != 2000.0 {
		t.Errorf("Unexpected annotation %+v", ann)
	}
	if len(ds.Categories) != 1 || ds.Categories[0].Name != "cat" || ds.Categories[0].ID != 1 {
		t.Errorf("Unexpected categories %+v", ds.Categories)
	}

	// The source directory is left as it was.
	entries, _ := os.ReadDir(src)
	if len(entries) != 2 {
		t.Errorf("Source directory changed: %d entries", len(entries))
	}
}

func TestCOCOToVOCScenario(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.json")
	writeFile(t, src, `{
		"images": [{"file_name": "a.jpg", "width": 64, "height": 48, "depth": 3, "id": 5}],
		"annotations": [{"id": 0, "image_id": 5, "name": "dog", "category_id": 1, "bbox": [0, 0, 30, 20],
			"area": 600.0, "segmentation": null, "iscrowd": 0, "pose": "Left", "truncated": 0, "difficult": 0}],
		"categories": [{"supercategory": null, "id": 1, "name": "dog"}]
	}`)
	dst := filepath.Join(t.TempDir(), "created")

	res, err := New().COCOToVOC(src, dst, Options{})
	if err != nil {
		t.Fatalf("COCOToVOC failed: %v", err)
	}
	expected := []string{filepath.Join(dst, "a.xml")}
	if diff := cmp.Diff(expected, res.Outputs); diff != "" {
		t.Fatalf("Outputs mismatch (-want +got):\n%s", diff)
	}

	img, err := voc.NewReader().ReadFile(expected[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := []types.Region{{Label: "dog", Pose: "Left", Box: types.Box{XMin: 0, YMin: 0, XMax: 30, YMax: 20}}}
	if diff := cmp.Diff(want, img.Regions); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}

	data, _ := os.ReadFile(expected[0])
	if !strings.Contains(string(data), "<type>bndbox</type>") {
		t.Error("Expected the type tag in the descriptor")
	}
}

func TestRoundTripThroughFiles(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "1.xml"), catXML)
	writeFile(t, filepath.Join(src, "2.xml"), emptyXML)

	conv := New()
	res, err := conv.VOCToCOCO(src, t.TempDir(), runTime, Options{})
	if err != nil {
		t.Fatalf("VOCToCOCO failed: %v", err)
	}
	back := t.TempDir()
	if _, err := conv.COCOToVOC(res.Outputs[0], back, Options{}); err != nil {
		t.Fatalf("COCOToVOC failed: %v", err)
	}

	orig, err := voc.NewReader().ReadDir(src)
	if err != nil {
		t.Fatal(err)
	}
	again, err := voc.NewReader().ReadDir(back)
	if err != nil {
		t.Fatal(err)
	}
	if len(orig.Images) != len(again.Images) {
		t.Fatalf("Expected %d images, got %d", len(orig.Images), len(again.Images))
	}
	for i := range orig.Images {
		if diff := cmp.Diff(orig.Images[i].Image, again.Images[i].Image); diff != "" {
			t.Errorf("Image %d mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(orig.Images[i].Regions, again.Images[i].Regions); diff != "" {
			t.Errorf("Image %d regions mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestKindMismatch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.json")
	writeFile(t, file, "{}")
	conv := New()

	tests := []struct {
		name string
		run  func() error
		kind error
	}{
		{"voc2coco file source", func() error { _, err := conv.VOCToCOCO(file, dir, runTime, Options{}); return err }, types.ErrUsage},
		{"voc2coco file destination", func() error { _, err := conv.VOCToCOCO(dir, file, runTime, Options{}); return err }, types.ErrUsage},
		{"voc2coco missing destination", func() error {
			_, err := conv.VOCToCOCO(dir, filepath.Join(dir, "nope"), runTime, Options{})
			return err
		}, types.ErrUsage},
		{"voc2coco missing source", func() error {
			_, err := conv.VOCToCOCO(filepath.Join(dir, "nope"), dir, runTime, Options{})
			return err
		}, types.ErrNotFound},
		{"coco2voc directory source", func() error { _, err := conv.COCOToVOC(dir, dir, Options{}); return err }, types.ErrUsage},
		{"coco2voc file destination", func() error { _, err := conv.COCOToVOC(file, file, Options{}); return err }, types.ErrUsage},
		{"coco2voc missing source", func() error {
			_, err := conv.COCOToVOC(filepath.Join(dir, "nope.json"), dir, Options{})
			return err
		}, types.ErrNotFound},
		{"image directory is a file", func() error {
			_, err := conv.COCOToVOC(file, dir, Options{ImageDir: file})
			return err
		}, types.ErrUsage},
		{"missing image directory", func() error {
			_, err := conv.COCOToVOC(file, dir, Options{ImageDir: filepath.Join(dir, "nope")})
			return err
		}, types.ErrNotFound},
		{"preview without images", func() error {
			_, err := conv.COCOToVOC(file, dir, Options{PreviewDir: dir})
			return err
		}, types.ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.kind) {
				t.Errorf("Expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestVOCToCOCOMalformedAborts(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "1.xml"), catXML)
	writeFile(t, filepath.Join(src, "2.xml"), `<annotation><filename>2.jpg</filename></annotation>`)

	_, err := New().VOCToCOCO(src, dst, runTime, Options{})
	if !errors.Is(err, types.ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	entries, _ := os.ReadDir(dst)
	if len(entries) != 0 {
		t.Errorf("Expected no output on failure, found %d files", len(entries))
	}
}

func TestCOCOToVOCProbesMissingSizeAndRenders(t *testing.T) {
	imageDir := t.TempDir()
	if err := imaging.Save(image.NewRGBA(image.Rect(0, 0, 40, 30)), filepath.Join(imageDir, "a.jpg")); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "in.json")
	writeFile(t, src, `{
		"images": [{"file_name": "a.jpg", "id": 1}],
		"annotations": [{"id": 0, "image_id": 1, "category_id": 3, "bbox": [2, 2, 10, 10]}],
		"categories": [{"id": 3, "name": "person"}]
	}`)

	cfg := config.Default()
	cfg.Reader.Lenient = true
	conv, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	opts := Options{
		ImageDir:   imageDir,
		PreviewDir: filepath.Join(out, "preview"),
		CropDir:    filepath.Join(out, "crops"),
	}
	res, err := conv.COCOToVOC(src, filepath.Join(out, "xml"), opts)
	if err != nil {
		t.Fatalf("COCOToVOC failed: %v", err)
	}

	img, err := voc.NewReader().ReadFile(res.Outputs[0])
	if err != nil {
		t.Fatal(err)
	}
	expected := types.ImageInfo{Filename: "a.jpg", Width: 40, Height: 30, Depth: 3}
	if img.Image != expected {
		t.Errorf("Expected probed size %+v, got %+v", expected, img.Image)
	}
	if img.Regions[0].Label != "person" || img.Regions[0].Pose != coco.DefaultPose {
		t.Errorf("Unexpected region %+v", img.Regions[0])
	}
	if len(res.Previews) != 1 || len(res.Crops) != 1 {
		t.Errorf("Expected one preview and one crop, got %v and %v", res.Previews, res.Crops)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version || Version == "" {
		t.Errorf("GetVersion() returned %s, expected %s", GetVersion(), Version)
	}
}
