// Package analyzer loads field photographs for canopy analysis.
package analyzer

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultFormats are the file extensions accepted for processing
var DefaultFormats = []string{"png", "jpg", "jpeg", "tiff", "tif", "bmp", "gif"}

// ErrEmptyImage is returned for images without pixels
var ErrEmptyImage = errors.New("image has no pixels")

// ImageAnalyzer decodes images and checks which files can be processed
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	formats := make([]string, len(DefaultFormats))
	copy(formats, DefaultFormats)
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: formats,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	if len(config.SupportedFormats) == 0 {
		return New()
	}
	return &ImageAnalyzer{config: config}
}

// IsSupported reports whether path has one of the supported extensions.
// The comparison is case-insensitive.
func (a *ImageAnalyzer) IsSupported(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(ext, strings.TrimPrefix(supported, ".")) {
			return true
		}
	}
	return false
}

// LoadImage decodes an image file. Pixels are returned as stored; EXIF
// orientation is not applied.
func (a *ImageAnalyzer) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	img, openErr := imaging.Open(path)
	if openErr == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	// Fallback: explicit WebP decode
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}

	return nil, fmt.Errorf("failed to decode image %s: %w", path, openErr)
}

// ValidateImage checks that an image has pixels to classify
func ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, bounds.Dx(), bounds.Dy())
	}
	return nil
}
