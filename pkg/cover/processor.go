// Package cover computes the canopy cover record of a single image.
package cover

import (
	"errors"
	"fmt"
	"image"

	"github.com/menta2k/canopy-analyzer/pkg/analyzer"
	"github.com/menta2k/canopy-analyzer/pkg/metadata"
	"github.com/menta2k/canopy-analyzer/pkg/types"
	"github.com/menta2k/canopy-analyzer/pkg/vegetation"
)

var (
	// ErrUnsupportedFormat marks files skipped because of their extension
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode wraps failures to open or decode an image
	ErrDecode = errors.New("decode failed")
	// ErrClassify wraps failures while building the mask
	ErrClassify = errors.New("classification failed")
	// ErrMetadata wraps failures while reading capture metadata
	ErrMetadata = errors.New("metadata extraction failed")
)

// Status is the kind of outcome of processing one image
type Status int

const (
	// StatusOK means the image produced a record
	StatusOK Status = iota
	// StatusSkipped means the extension is not a supported format
	StatusSkipped
	// StatusFailed means decoding, classification or metadata failed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is the result of processing one path. Record is set only for
// StatusOK; Err explains a skip or failure.
type Outcome struct {
	Path   string
	Status Status
	Record *types.Record
	Err    error
}

// OK reports whether the outcome produced a record
func (o Outcome) OK() bool {
	return o.Status == StatusOK && o.Record != nil
}

// Options controls what a Processor puts in each record
type Options struct {
	Thresholds    types.Thresholds
	Mode          vegetation.Mode
	OpeningSize   int
	ParseMetadata bool
	SaveMask      bool
}

// DefaultOptions returns default thresholds with metadata parsing on and mask retention off
func DefaultOptions() Options {
	return Options{
		Thresholds:    types.DefaultThresholds(),
		Mode:          vegetation.ModeExGGated,
		OpeningSize:   vegetation.DefaultOpeningSize,
		ParseMetadata: true,
		SaveMask:      false,
	}
}

// Decoder loads pixels for a path
type Decoder interface {
	IsSupported(path string) bool
	LoadImage(path string) (image.Image, error)
}

// Processor turns one image path into a canopy cover record
type Processor struct {
	options    Options
	decoder    Decoder
	metadata   metadata.Reader
	classifier *vegetation.Classifier
}

// NewProcessor creates a Processor using the default decoder and EXIF reader
func NewProcessor(options Options) *Processor {
	return NewProcessorWith(options, analyzer.New(), metadata.NewExifReader())
}

// NewProcessorWith creates a Processor with explicit collaborators
func NewProcessorWith(options Options, decoder Decoder, reader metadata.Reader) *Processor {
	return &Processor{
		options:  options,
		decoder:  decoder,
		metadata: reader,
		classifier: vegetation.NewWithConfig(vegetation.Config{
			Thresholds:  options.Thresholds,
			Mode:        options.Mode,
			OpeningSize: options.OpeningSize,
		}),
	}
}

// Options returns the processor options
func (p *Processor) Options() Options {
	return p.options
}

// Classifier returns the classifier used for masks
func (p *Processor) Classifier() *vegetation.Classifier {
	return p.classifier
}

// Process computes the record for path. It never panics; every problem is
// reported through the Outcome.
func (p *Processor) Process(path string) (out Outcome) {
	out.Path = path

	if !p.decoder.IsSupported(path) {
		out.Status = StatusSkipped
		out.Err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Path:   path,
				Status: StatusFailed,
				Err:    fmt.Errorf("%w: panic: %v", ErrClassify, r),
			}
		}
	}()

	record, err := p.record(path)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	out.Status = StatusOK
	out.Record = record
	return out
}

// Mask decodes path and returns its cleaned vegetation mask along with the decoded image
func (p *Processor) Mask(path string) (image.Image, *types.Mask, error) {
	img, err := p.decoder.LoadImage(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := analyzer.ValidateImage(img); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, p.classifier.Classify(img), nil
}

func (p *Processor) record(path string) (*types.Record, error) {
	_, mask, err := p.Mask(path)
	if err != nil {
		return nil, err
	}

	record := &types.Record{
		Image:       path,
		CanopyCover: mask.Fraction(),
	}

	if p.options.ParseMetadata {
		tags, err := p.metadata.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
		}
		record.DateTime = tags.DateTimeOriginal
		record.Location = tags.Location()
	}

	if p.options.SaveMask {
		record.Mask = mask
	}

	return record, nil
}
