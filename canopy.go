// Package canopy estimates fractional green canopy cover from field photographs.
//
// Each pixel is classified as vegetation when its red/green and blue/green
// ratios fall below their ceilings and its excess green index (2G-R-B)
// exceeds a floor, following Canopeo (Patrignani and Ochsner, 2015). The
// binary mask is cleaned with a 10x10 morphological opening and the cover
// of an image is the fraction of vegetation pixels.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		"github.com/menta2k/canopy-analyzer"
//	)
//
//	func main() {
//		opts := canopy.DefaultOptions()
//		opts.Parallel = true
//
//		table, err := canopy.CanopyCover(context.Background(), canopy.Path("plots/*.JPG"), opts)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := table.WriteCSV(os.Stdout); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package is a thin facade over its components:
//
//  1. Vegetation (pkg/vegetation): pixel classification and morphological opening
//  2. Cover (pkg/cover): one image to one record, with EXIF capture time and position
//  3. Batch (pkg/batch): pattern expansion, sequential or pooled execution, result table
//  4. Visualize (pkg/visualize): side by side rendering of an image and its mask
//
// Images that cannot be decoded are logged and left out of the table; files
// with an unsupported extension are skipped silently.
package canopy

import (
	"context"
	"fmt"
	"log"

	"github.com/menta2k/canopy-analyzer/internal/utils"
	"github.com/menta2k/canopy-analyzer/pkg/analyzer"
	"github.com/menta2k/canopy-analyzer/pkg/batch"
	"github.com/menta2k/canopy-analyzer/pkg/cover"
	"github.com/menta2k/canopy-analyzer/pkg/metadata"
	"github.com/menta2k/canopy-analyzer/pkg/types"
	"github.com/menta2k/canopy-analyzer/pkg/vegetation"
	"github.com/menta2k/canopy-analyzer/pkg/visualize"
)

// Version of the canopy analyzer library
const Version = "0.1.0"

// Options are the recognized batch options
type Options struct {
	Thresholds types.Thresholds
	Mode       vegetation.Mode
	// OpeningSize is the side of the opening element; 0 disables the opening
	OpeningSize   int
	ParseMetadata bool
	SaveMask      bool
	Parallel      bool
	// Workers bounds the pool in parallel mode; 0 means one per CPU
	Workers int
	// Formats overrides the accepted file extensions
	Formats  []string
	Progress batch.ProgressFunc
	Logger   *log.Logger
	// RenderQuality is the JPEG/WebP quality used by Plot
	RenderQuality int
}

// DefaultOptions returns thresholds (0.95, 0.95, 20), metadata parsing on,
// mask retention off and sequential execution
func DefaultOptions() Options {
	return Options{
		Thresholds:    types.DefaultThresholds(),
		Mode:          vegetation.ModeExGGated,
		OpeningSize:   vegetation.DefaultOpeningSize,
		ParseMetadata: true,
		SaveMask:      false,
		Parallel:      false,
		RenderQuality: 90,
	}
}

// Path is a single image path or a glob pattern
func Path(p string) batch.Source {
	return batch.Path(p)
}

// Paths is an explicit list of image paths
func Paths(paths ...string) batch.Source {
	return batch.Paths(paths...)
}

// Analyzer runs canopy cover with fixed options
type Analyzer struct {
	options   Options
	processor *cover.Processor
	runner    *batch.Runner
}

// New creates an Analyzer with default options
func New() *Analyzer {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an Analyzer with custom options
func NewWithOptions(options Options) *Analyzer {
	decoder := analyzer.NewWithConfig(analyzer.Config{SupportedFormats: options.Formats})
	processor := cover.NewProcessorWith(cover.Options{
		Thresholds:    options.Thresholds,
		Mode:          options.Mode,
		OpeningSize:   options.OpeningSize,
		ParseMetadata: options.ParseMetadata,
		SaveMask:      options.SaveMask,
	}, decoder, metadata.NewExifReader())

	return &Analyzer{
		options:   options,
		processor: processor,
		runner: batch.NewRunner(processor, batch.Config{
			Parallel: options.Parallel,
			Workers:  options.Workers,
			Progress: options.Progress,
			Logger:   options.Logger,
		}),
	}
}

// Options returns the analyzer options
func (a *Analyzer) Options() Options {
	return a.options
}

// Run processes every image of src and returns the full report
func (a *Analyzer) Run(ctx context.Context, src batch.Source) (*batch.Report, error) {
	return a.runner.Run(ctx, src)
}

// Process computes the outcome of a single image
func (a *Analyzer) Process(path string) cover.Outcome {
	return a.processor.Process(path)
}

// Mask decodes path and returns its vegetation mask
func (a *Analyzer) Mask(path string) (*types.Mask, error) {
	_, mask, err := a.processor.Mask(path)
	return mask, err
}

// Plot renders path next to its mask and writes the comparison to outPath.
// The output format follows the extension of outPath.
func (a *Analyzer) Plot(path, outPath string) (*types.Record, error) {
	img, mask, err := a.processor.Mask(path)
	if err != nil {
		return nil, err
	}

	record := &types.Record{Image: path, CanopyCover: mask.Fraction(), Mask: mask}
	note := visualize.Annotation{CanopyCover: record.CanopyCover}

	tags, err := metadata.NewExifReader().Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cover.ErrMetadata, err)
	}
	if tags.DateTimeOriginal != nil {
		record.DateTime = tags.DateTimeOriginal
		note.DateTime = *tags.DateTimeOriginal
	}
	record.Location = tags.Location()
	note.GPSInfo = tags.RawGPS

	quality := a.options.RenderQuality
	if quality <= 0 {
		quality = 90
	}

	canvas := visualize.New().Compare(img, mask, note)
	format := utils.GetFileExtension(outPath)
	if err := visualize.Save(canvas, outPath, format, quality, false); err != nil {
		return nil, fmt.Errorf("failed to save plot: %w", err)
	}

	return record, nil
}

// CanopyCover computes the canopy cover table of src
func CanopyCover(ctx context.Context, src batch.Source, options Options) (*types.Table, error) {
	report, err := NewWithOptions(options).Run(ctx, src)
	if err != nil {
		return nil, err
	}
	return report.Table, nil
}

// CoverImage returns the vegetation mask of one image using thresholds
func CoverImage(path string, thresholds types.Thresholds) (*types.Mask, error) {
	options := DefaultOptions()
	options.Thresholds = thresholds
	return NewWithOptions(options).Mask(path)
}

// Plot renders the comparison of one image using options
func Plot(path, outPath string, options Options) (*types.Record, error) {
	return NewWithOptions(options).Plot(path, outPath)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
