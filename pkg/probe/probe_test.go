package probe

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/coco-voc/pkg/types"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
}

func opaqueRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestProbeFormats(t *testing.T) {
	dir := t.TempDir()

	writeJPEG(t, filepath.Join(dir, "rgb.jpg"), opaqueRGBA(40, 30))
	writePNG(t, filepath.Join(dir, "gray.png"), image.NewGray(image.Rect(0, 0, 12, 7)))
	writePNG(t, filepath.Join(dir, "opaque.png"), opaqueRGBA(20, 10))
	writePNG(t, filepath.Join(dir, "alpha.png"), image.NewNRGBA(image.Rect(0, 0, 5, 6)))

	tests := []struct {
		name     string
		expected types.ImageInfo
	}{
		{"rgb.jpg", types.ImageInfo{Filename: "rgb.jpg", Width: 40, Height: 30, Depth: 3}},
		{"gray.png", types.ImageInfo{Filename: "gray.png", Width: 12, Height: 7, Depth: 1}},
		{"opaque.png", types.ImageInfo{Filename: "opaque.png", Width: 20, Height: 10, Depth: 3}},
		{"alpha.png", types.ImageInfo{Filename: "alpha.png", Width: 5, Height: 6, Depth: 4}},
	}

	p := New(dir)
	for _, tt := range tests {
		got, err := p.Probe(tt.name)
		if err != nil {
			t.Errorf("Probe(%s) failed: %v", tt.name, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Probe(%s) = %+v, expected %+v", tt.name, got, tt.expected)
		}
	}
}

func TestProbeMissing(t *testing.T) {
	_, err := New(t.TempDir()).Probe("nope.jpg")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFillOnlyZeroFields(t *testing.T) {
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "a.jpg"), opaqueRGBA(16, 8))
	p := New(dir)

	got, err := p.Fill(types.ImageInfo{Filename: "a.jpg", Width: 100, Height: 50})
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	expected := types.ImageInfo{Filename: "a.jpg", Width: 100, Height: 50, Depth: 3}
	if got != expected {
		t.Errorf("Expected %+v, got %+v", expected, got)
	}

	// Complete records never hit the disk.
	complete := types.ImageInfo{Filename: "missing.jpg", Width: 1, Height: 1, Depth: 3}
	got, err = p.Fill(complete)
	if err != nil {
		t.Fatalf("Fill on a complete record failed: %v", err)
	}
	if got != complete {
		t.Errorf("Expected %+v unchanged, got %+v", complete, got)
	}
}

func TestDepthOf(t *testing.T) {
	tests := []struct {
		model color.Model
		depth int
		exact bool
	}{
		{color.GrayModel, 1, true},
		{color.YCbCrModel, 3, true},
		{color.CMYKModel, 4, true},
		{color.Palette{color.Black, color.White}, 3, true},
		{color.NRGBAModel, 4, false},
	}
	for i, tt := range tests {
		depth, exact := depthOf(tt.model)
		if depth != tt.depth || exact != tt.exact {
			t.Errorf("Case %d: expected (%d, %v), got (%d, %v)", i, tt.depth, tt.exact, depth, exact)
		}
	}
}
