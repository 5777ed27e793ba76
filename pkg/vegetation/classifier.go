// Package vegetation classifies image pixels as green vegetation or background.
//
// The rule follows Canopeo (Patrignani and Ochsner, 2015): a pixel is
// vegetation when its red/green and blue/green ratios are below their
// ceilings and its excess green index 2G-R-B is above a floor. The raw mask
// is then cleaned with a morphological opening.
package vegetation

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/canopy-analyzer/pkg/types"
)

// Epsilon is added to the green channel before computing ratios
const Epsilon = 1e-10

// DefaultOpeningSize is the side of the square structuring element
const DefaultOpeningSize = 10

// Mode selects how the excess green test combines with the ratio tests
type Mode int

const (
	// ModeExGGated requires both ratio tests and ExG > ExGMin
	ModeExGGated Mode = iota
	// ModeRatioOnly evaluates ExG but classifies on the ratio tests alone,
	// matching results computed without the ExG test
	ModeRatioOnly
)

// String returns the mode name used in configuration
func (m Mode) String() string {
	switch m {
	case ModeRatioOnly:
		return "ratio-only"
	default:
		return "exg-gated"
	}
}

// ParseMode maps a configuration name to a Mode
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "", "exg-gated":
		return ModeExGGated, true
	case "ratio-only":
		return ModeRatioOnly, true
	}
	return ModeExGGated, false
}

// Config holds configuration for the classifier
type Config struct {
	Thresholds types.Thresholds
	Mode       Mode
	// OpeningSize is the structuring element side; 0 disables the opening
	OpeningSize int
}

// Classifier builds vegetation masks from decoded images
type Classifier struct {
	config Config
}

// New creates a Classifier with the default thresholds, ExG gating and a 10x10 opening
func New() *Classifier {
	return &Classifier{
		config: Config{
			Thresholds:  types.DefaultThresholds(),
			Mode:        ModeExGGated,
			OpeningSize: DefaultOpeningSize,
		},
	}
}

// NewWithConfig creates a Classifier with custom configuration
func NewWithConfig(config Config) *Classifier {
	return &Classifier{config: config}
}

// Config returns the classifier configuration
func (c *Classifier) Config() Config {
	return c.config
}

// Classify returns the cleaned vegetation mask of img
func (c *Classifier) Classify(img image.Image) *types.Mask {
	mask := c.RawMask(img)
	if c.config.OpeningSize > 0 {
		mask = Open(mask, c.config.OpeningSize)
	}
	return mask
}

// RawMask returns the per-pixel classification before the opening
func (c *Classifier) RawMask(img image.Image) *types.Mask {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	mask := types.NewMask(w, h)

	for y := 0; y < h; y++ {
		i := y * src.Stride
		for x := 0; x < w; x++ {
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			if c.IsVegetation(r, g, b) {
				mask.Pix[y*w+x] = 1
			}
			i += 4
		}
	}

	return mask
}

// IsVegetation applies the classification rule to one 8-bit RGB pixel
func (c *Classifier) IsVegetation(r, g, b uint8) bool {
	rg, bg, exg := PixelIndices(r, g, b)
	th := c.config.Thresholds

	ratios := rg < th.RedGreenMax && bg < th.BlueGreenMax
	if c.config.Mode == ModeRatioOnly {
		return ratios
	}
	return ratios && float64(exg) > th.ExGMin
}

// PixelIndices returns the red/green ratio, blue/green ratio and excess
// green index of one pixel. Samples are widened before subtraction so ExG
// may be negative.
func PixelIndices(r, g, b uint8) (redGreen, blueGreen float64, exg int) {
	gf := float64(g) + Epsilon
	redGreen = float64(r) / gf
	blueGreen = float64(b) / gf
	exg = 2*int(g) - int(r) - int(b)
	return redGreen, blueGreen, exg
}
