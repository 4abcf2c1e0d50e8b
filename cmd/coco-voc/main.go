package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	cocovoc "github.com/menta2k/coco-voc"
	"github.com/menta2k/coco-voc/internal/config"
	"github.com/menta2k/coco-voc/internal/utils"
	"github.com/menta2k/coco-voc/pkg/types"
)

// options is the parsed command line
type options struct {
	src, dst    string
	voc2coco    bool
	coco2voc    bool
	configPath  string
	writeConfig string
	imageDir    string
	previewDir  string
	cropDir     string
	lenient     bool
	quiet       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr, time.Now()))
}

// run executes one invocation and returns the process exit code:
// 0 on success, 2 for usage errors and 1 for everything else.
func run(args []string, stderr io.Writer, now time.Time) int {
	logger := log.New(stderr, "", log.LstdFlags)

	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logger.Printf("%v", err)
		return 2
	}
	if opts.quiet {
		logger.SetOutput(io.Discard)
	}

	if opts.writeConfig != "" {
		if err := config.Default().SaveToFile(opts.writeConfig); err != nil {
			logger.Printf("%v", err)
			return 1
		}
		logger.Printf("wrote %s", opts.writeConfig)
		return 0
	}

	configPath := opts.configPath
	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			logger.Printf("%v", err)
			return 1
		}
	}
	if opts.lenient {
		cfg.Reader.Lenient = true
	}

	conv, err := cocovoc.NewWithConfig(cfg)
	if err != nil {
		logger.Printf("%v", err)
		return 1
	}

	extra := cocovoc.Options{
		ImageDir:   opts.imageDir,
		PreviewDir: opts.previewDir,
		CropDir:    opts.cropDir,
	}

	var res cocovoc.Result
	if opts.voc2coco {
		res, err = conv.VOCToCOCO(opts.src, opts.dst, now, extra)
	} else {
		res, err = conv.COCOToVOC(opts.src, opts.dst, extra)
	}
	if err != nil {
		logger.Printf("conversion failed: %v", err)
		if errors.Is(err, types.ErrUsage) {
			return 2
		}
		return 1
	}

	for _, p := range res.Outputs {
		if opts.voc2coco {
			logger.Printf("wrote %s (%s)", p, utils.FormatFileSize(utils.FileSize(p)))
		}
	}
	if opts.coco2voc {
		logger.Printf("wrote %d descriptors to %s", len(res.Outputs), opts.dst)
	}
	if len(res.Previews) > 0 {
		logger.Printf("wrote %d previews to %s", len(res.Previews), opts.previewDir)
	}
	if len(res.Crops) > 0 {
		logger.Printf("wrote %d crops to %s", len(res.Crops), opts.cropDir)
	}
	logger.Printf("images=%d annotations=%d categories=%d", res.Images, res.Annotations, res.Categories)
	return 0
}

// parseArgs parses flags and positionals in any order. It only inspects the
// arguments, never the filesystem.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("coco-voc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s <src> <dst> (--voc2coco | --coco2voc) [flags]\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.voc2coco, "voc2coco", false, "convert a directory of VOC descriptors into one COCO file")
	fs.BoolVar(&opts.coco2voc, "coco2voc", false, "convert one COCO file into a directory of VOC descriptors")
	fs.StringVar(&opts.configPath, "config", "", "path to a JSON config file (default "+config.GetConfigPath()+" if present)")
	fs.StringVar(&opts.writeConfig, "write-config", "", "write the default config to this path and exit")
	fs.StringVar(&opts.imageDir, "images", "", "directory with the source images (size probing, previews, crops)")
	fs.StringVar(&opts.previewDir, "preview", "", "write box overlay previews into this directory")
	fs.StringVar(&opts.cropDir, "crops", "", "write one cropped image per region into this directory")
	fs.BoolVar(&opts.lenient, "lenient", false, "accept COCO files without VOC attributes or image sizes")
	fs.BoolVar(&opts.quiet, "quiet", false, "suppress progress output")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		if fs.NArg() == 0 {
			break
		}
		// Parse stops after "--"; everything left is positional.
		if consumed := len(args) - fs.NArg(); consumed > 0 && args[consumed-1] == "--" {
			positional = append(positional, fs.Args()...)
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if opts.writeConfig != "" {
		return opts, nil
	}

	if opts.voc2coco && opts.coco2voc {
		return opts, fmt.Errorf("can not operate VOC to COCO and COCO to VOC simultaneously: %w", types.ErrUsage)
	}
	if !opts.voc2coco && !opts.coco2voc {
		return opts, fmt.Errorf("one of --voc2coco or --coco2voc is required: %w", types.ErrUsage)
	}
	if len(positional) != 2 {
		return opts, fmt.Errorf("expected <src> and <dst>, got %d arguments: %w", len(positional), types.ErrUsage)
	}
	opts.src, opts.dst = positional[0], positional[1]
	return opts, nil
}
