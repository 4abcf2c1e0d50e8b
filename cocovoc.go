// Package cocovoc converts object-detection annotations between the aggregate
// COCO-style record (one JSON file for the whole dataset) and the distributed
// Pascal VOC-style layout (one XML descriptor per image).
//
// Basic usage:
//
//	conv := cocovoc.New()
//
//	// Directory of descriptors -> voc2coco_<timestamp>.json in out/
//	res, err := conv.VOCToCOCO("Annotations", "out", time.Now(), cocovoc.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Outputs[0])
//
//	// Aggregate file -> one descriptor per image in xml/
//	if _, err := conv.COCOToVOC("instances.json", "xml", cocovoc.Options{}); err != nil {
//		log.Fatal(err)
//	}
//
// The package is built from four components:
//
// 1. voc (pkg/voc): reads and writes per-image descriptors
// 2. coco (pkg/coco): reads and writes the aggregate record
// 3. convert (pkg/convert): maps one model onto the other
// 4. probe and preview (pkg/probe, pkg/preview): optional image-side helpers
//
// Descriptor files are read in lexicographic file name order, so category ids
// are the same on every run over the same directory.
package cocovoc

import (
	"fmt"
	"time"

	"github.com/menta2k/coco-voc/internal/config"
	"github.com/menta2k/coco-voc/internal/utils"
	"github.com/menta2k/coco-voc/pkg/coco"
	"github.com/menta2k/coco-voc/pkg/convert"
	"github.com/menta2k/coco-voc/pkg/preview"
	"github.com/menta2k/coco-voc/pkg/probe"
	"github.com/menta2k/coco-voc/pkg/types"
	"github.com/menta2k/coco-voc/pkg/voc"
)

// Version of the converter
const Version = "1.0.0"

// Converter runs conversions in either direction
type Converter struct {
	config     *config.Config
	vocReader  *voc.Reader
	vocWriter  *voc.Writer
	cocoReader *coco.Reader
	cocoWriter *coco.Writer
	renderer   *preview.Renderer
}

// Options selects the optional image-side work done after a conversion.
// Every directory is optional; PreviewDir and CropDir need ImageDir.
type Options struct {
	ImageDir   string // source images, used for size probing, previews and crops
	PreviewDir string // where <name>_preview images are written
	CropDir    string // where per-region crops are written
}

// Result summarises a conversion
type Result struct {
	Images      int
	Annotations int
	Categories  int
	Outputs     []string
	Previews    []string
	Crops       []string
}

// New creates a Converter with default configuration
func New() *Converter {
	c, _ := NewWithConfig(config.Default())
	return c
}

// NewWithConfig creates a Converter with custom configuration
func NewWithConfig(cfg *config.Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cocoReader := coco.NewReader()
	if cfg.Reader.Lenient {
		cocoReader = coco.NewLenientReader()
	}

	return &Converter{
		config:     cfg,
		vocReader:  voc.NewReaderWithExtension(cfg.Reader.Extension),
		vocWriter:  voc.NewWriterWithIndent(cfg.Writer.XMLIndent),
		cocoReader: cocoReader,
		cocoWriter: coco.NewWriterWithConfig(cfg.Writer.OutputPrefix, cfg.Writer.TimestampLayout, cfg.Writer.JSONIndent),
		renderer: preview.NewWithConfig(preview.Config{
			Format:     cfg.Preview.Format,
			Quality:    cfg.Preview.Quality,
			Lossless:   cfg.Preview.Lossless,
			Stroke:     cfg.Preview.Stroke,
			DrawLabels: cfg.Preview.DrawLabels,
		}),
	}, nil
}

// VOCToCOCO reads every descriptor in srcDir and writes one aggregate file into
// dstDir, named after now. It returns the written path in Result.Outputs.
func (c *Converter) VOCToCOCO(srcDir, dstDir string, now time.Time, opts Options) (Result, error) {
	if err := requireDir(srcDir, "VOC to COCO must input a directory as source"); err != nil {
		return Result{}, err
	}
	if !utils.DirExists(dstDir) {
		return Result{}, fmt.Errorf("VOC to COCO must input a directory as destination: %s: %w", dstDir, types.ErrUsage)
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	ds, err := c.vocReader.ReadDir(srcDir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read descriptors: %w", err)
	}

	agg, err := convert.ToAggregate(ds)
	if err != nil {
		return Result{}, err
	}

	path, err := c.cocoWriter.Save(dstDir, agg, now)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Images:      len(agg.Images),
		Annotations: len(agg.Annotations),
		Categories:  len(agg.Categories),
		Outputs:     []string{path},
	}
	return c.render(res, ds.Images, opts)
}

// COCOToVOC reads the aggregate file srcFile and writes one descriptor per image
// into dstDir, creating it if needed.
func (c *Converter) COCOToVOC(srcFile, dstDir string, opts Options) (Result, error) {
	if err := requireFile(srcFile, "COCO to VOC must input a file as source"); err != nil {
		return Result{}, err
	}
	if utils.PathExists(dstDir) && !utils.DirExists(dstDir) {
		return Result{}, fmt.Errorf("COCO to VOC must input a directory as destination: %s: %w", dstDir, types.ErrUsage)
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}

	agg, err := c.cocoReader.Load(srcFile)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read aggregate file: %w", err)
	}

	imgs := convert.ToDistributed(agg)
	if opts.ImageDir != "" && c.config.Probe.FillMissingSize {
		prober := probe.New(opts.ImageDir)
		for i := range imgs {
			if imgs[i].Image, err = prober.Fill(imgs[i].Image); err != nil {
				return Result{}, err
			}
		}
	}

	paths, err := c.vocWriter.WriteDir(dstDir, convert.Descriptors(imgs))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Images:     len(imgs),
		Categories: len(agg.Categories),
		Outputs:    paths,
	}
	for _, img := range imgs {
		res.Annotations += len(img.Regions)
	}
	return c.render(res, imgs, opts)
}

func (c *Converter) render(res Result, imgs []types.AnnotatedImage, opts Options) (Result, error) {
	var err error
	if opts.PreviewDir != "" {
		if res.Previews, err = c.renderer.RenderDataset(opts.ImageDir, opts.PreviewDir, imgs); err != nil {
			return res, fmt.Errorf("preview rendering failed: %w", err)
		}
	}
	if opts.CropDir != "" {
		if res.Crops, err = c.renderer.CropDataset(opts.ImageDir, opts.CropDir, imgs); err != nil {
			return res, fmt.Errorf("crop extraction failed: %w", err)
		}
	}
	return res, nil
}

func (o Options) validate() error {
	if (o.PreviewDir != "" || o.CropDir != "") && o.ImageDir == "" {
		return fmt.Errorf("previews and crops need an image directory: %w", types.ErrUsage)
	}
	if o.ImageDir != "" {
		return requireDir(o.ImageDir, "image directory must be a directory")
	}
	return nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func requireDir(path, msg string) error {
	if !utils.PathExists(path) {
		return fmt.Errorf("%s: %w", path, types.ErrNotFound)
	}
	if !utils.DirExists(path) {
		return fmt.Errorf("%s: %s: %w", msg, path, types.ErrUsage)
	}
	return nil
}

func requireFile(path, msg string) error {
	if !utils.PathExists(path) {
		return fmt.Errorf("%s: %w", path, types.ErrNotFound)
	}
	if !utils.FileExists(path) {
		return fmt.Errorf("%s: %s: %w", msg, path, types.ErrUsage)
	}
	return nil
}
