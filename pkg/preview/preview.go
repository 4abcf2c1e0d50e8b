// Package preview draws annotated regions onto their images and cuts regions
// out as individual crops.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/coco-voc/internal/utils"
	"github.com/menta2k/coco-voc/pkg/types"
)

// Config holds output settings for rendered images
type Config struct {
	Format     string // jpg, png or webp
	Quality    int    // JPEG/WebP quality (1-100)
	Lossless   bool   // WebP lossless mode
	Stroke     int    // box line width in pixels; 0 picks one from the image size
	DrawLabels bool
}

// Renderer renders previews and crops
type Renderer struct {
	config Config
}

// New creates a Renderer writing labelled PNG previews
func New() *Renderer {
	return &Renderer{
		config: Config{
			Format:     "png",
			Quality:    92,
			DrawLabels: true,
		},
	}
}

// NewWithConfig creates a Renderer with custom configuration
func NewWithConfig(config Config) *Renderer {
	if config.Format == "" {
		config.Format = "png"
	}
	return &Renderer{config: config}
}

// Crop is one region cut out of an image
type Crop struct {
	Index int
	Label string
	Image image.Image
}

var palette = []color.NRGBA{
	{0, 255, 0, 255},
	{255, 204, 0, 255},
	{255, 0, 0, 255},
	{0, 170, 255, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{255, 128, 0, 255},
	{128, 0, 255, 255},
}

// LoadImage loads an image from a file path with WebP support
func (r *Renderer) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if img, err := webp.DecodeRGBA(data); err == nil {
			return img, nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("image %s: %w", path, types.ErrNotFound)
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// SaveImage saves an image using the configured format and quality
func (r *Renderer) SaveImage(img image.Image, path string) error {
	switch strings.ToLower(r.config.Format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: r.config.Lossless, Quality: float32(r.config.Quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			return err
		}
		return f.Close()
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(r.config.Quality))
	}
}

// Extension returns the file extension, with dot, of rendered files
func (r *Renderer) Extension() string {
	ext := strings.ToLower(r.config.Format)
	if ext == "jpeg" {
		ext = "jpg"
	}
	return "." + ext
}

// Overlay returns a copy of img with every region's box drawn on it.
// Regions with the same label share a colour.
func (r *Renderer) Overlay(img image.Image, regions []types.Region) *image.NRGBA {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	stroke := r.config.Stroke
	if stroke <= 0 {
		stroke = max(2, min(w, h)/250) // ~0.4% of min side
	}

	colors := map[string]color.NRGBA{}
	for _, region := range regions {
		c, ok := colors[region.Label]
		if !ok {
			c = palette[len(colors)%len(palette)]
			colors[region.Label] = c
		}
		drawBox(nrgba, region.Box, c, stroke)
		if r.config.DrawLabels {
			drawLabel(nrgba, region.Box, region.Label, c)
		}
	}
	return nrgba
}

// CropRegions cuts every region out of img. Regions that fall entirely outside
// the image are skipped.
func (r *Renderer) CropRegions(img image.Image, regions []types.Region) []Crop {
	bounds := img.Bounds()
	crops := make([]Crop, 0, len(regions))
	for i, region := range regions {
		b := region.Box
		rect := image.Rect(b.XMin, b.YMin, b.XMax, b.YMax).Add(bounds.Min).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		crops = append(crops, Crop{
			Index: i,
			Label: region.Label,
			Image: imaging.Crop(img, rect),
		})
	}
	return crops
}

// RenderDataset writes one <name>_preview image per annotated image into outDir,
// loading source images from imageDir. Records whose file name is not an image
// format are skipped.
func (r *Renderer) RenderDataset(imageDir, outDir string, imgs []types.AnnotatedImage) ([]string, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}

	var written []string
	for _, rec := range imgs {
		if !utils.IsImageFile(rec.Image.Filename) {
			continue
		}
		src, err := r.LoadImage(filepath.Join(imageDir, rec.Image.Filename))
		if err != nil {
			return written, err
		}
		path := utils.GenerateOutputFilename(rec.Image.Filename, outDir, "_preview", r.Extension())
		if err := r.SaveImage(r.Overlay(src, rec.Regions), path); err != nil {
			return written, fmt.Errorf("failed to save preview %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// CropDataset writes every region of every image as <name>_<index>_<label> into outDir
func (r *Renderer) CropDataset(imageDir, outDir string, imgs []types.AnnotatedImage) ([]string, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("failed to create crop directory: %w", err)
	}

	var written []string
	for _, rec := range imgs {
		if len(rec.Regions) == 0 || !utils.IsImageFile(rec.Image.Filename) {
			continue
		}
		src, err := r.LoadImage(filepath.Join(imageDir, rec.Image.Filename))
		if err != nil {
			return written, err
		}
		for _, c := range r.CropRegions(src, rec.Regions) {
			suffix := fmt.Sprintf("_%03d_%s", c.Index, utils.SanitizeFilename(c.Label))
			path := utils.GenerateOutputFilename(rec.Image.Filename, outDir, suffix, r.Extension())
			if err := r.SaveImage(c.Image, path); err != nil {
				return written, fmt.Errorf("failed to save crop %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func drawBox(img *image.NRGBA, box types.Box, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := box.XMin, box.YMin, box.XMax, box.YMax
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

// drawLabel writes the label just above the box, or inside it at the top edge of the image
func drawLabel(img *image.NRGBA, box types.Box, label string, c color.NRGBA) {
	face := basicfont.Face7x13
	y := box.YMin - 3
	if y < face.Ascent {
		y = box.YMin + face.Ascent + 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(box.XMin+2, y),
	}
	d.DrawString(label)
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
