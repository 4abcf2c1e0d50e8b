// Package probe reads image dimensions and channel depth from image files.
package probe

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/coco-voc/pkg/types"
)

// Prober looks up images relative to a root directory
type Prober struct {
	root string
}

// New creates a Prober resolving file names against root
func New(root string) *Prober {
	return &Prober{root: root}
}

// Probe returns the width, height and channel depth of the named image
func (p *Prober) Probe(filename string) (types.ImageInfo, error) {
	path := filepath.Join(p.root, filename)
	info := types.ImageInfo{Filename: filename}

	cfg, format, err := decodeConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return info, fmt.Errorf("image %s: %w", path, types.ErrNotFound)
		}
		return info, fmt.Errorf("failed to read image header %s: %w", path, err)
	}
	info.Width = cfg.Width
	info.Height = cfg.Height

	depth, exact := depthOf(cfg.ColorModel)
	if !exact {
		// RGBA-family models are reported for opaque PNGs too; only the pixels tell.
		depth, err = depthFromPixels(path, format)
		if err != nil {
			return info, err
		}
	}
	info.Depth = depth
	return info, nil
}

// Fill replaces zero width, height or depth in img with probed values.
// Images whose size is complete are returned untouched without touching the disk.
func (p *Prober) Fill(img types.ImageInfo) (types.ImageInfo, error) {
	if img.Width > 0 && img.Height > 0 && img.Depth > 0 {
		return img, nil
	}
	probed, err := p.Probe(img.Filename)
	if err != nil {
		return img, err
	}
	if img.Width <= 0 {
		img.Width = probed.Width
	}
	if img.Height <= 0 {
		img.Height = probed.Height
	}
	if img.Depth <= 0 {
		img.Depth = probed.Depth
	}
	return img, nil
}

func decodeConfig(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err == nil {
		return cfg, format, nil
	}

	// Extended webp variants the x/image decoder rejects.
	if _, serr := f.Seek(0, 0); serr != nil {
		return image.Config{}, "", err
	}
	if wcfg, werr := webp.DecodeConfig(f); werr == nil {
		return wcfg, "webp", nil
	}
	return image.Config{}, "", err
}

// depthOf maps a colour model to a channel count. exact is false when the model
// does not say whether the alpha channel is used.
func depthOf(m color.Model) (depth int, exact bool) {
	if _, ok := m.(color.Palette); ok {
		return 3, true
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1, true
	case color.YCbCrModel:
		return 3, true
	case color.NYCbCrAModel, color.CMYKModel:
		return 4, true
	}
	return 4, false
}

func depthFromPixels(path, format string) (int, error) {
	var img image.Image
	var err error
	if format == "webp" {
		img, err = decodeWebP(path)
	} else {
		img, err = imaging.Open(path)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3, nil
	}
	return 4, nil
}

func decodeWebP(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return webp.DecodeRGBA(data)
}
