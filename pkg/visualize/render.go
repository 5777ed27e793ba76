// Package visualize renders an image next to its vegetation mask.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/canopy-analyzer/pkg/types"
)

const (
	lineHeight = 16
	margin     = 12
)

// Annotation is the text printed around the comparison
type Annotation struct {
	CanopyCover float64
	DateTime    string
	GPSInfo     string
}

// Config holds configuration for the renderer
type Config struct {
	// MaxPanelWidth caps the width of each panel; 0 keeps the original size
	MaxPanelWidth int
	Background    color.Color
	Foreground    color.Color
}

// Renderer draws side by side comparisons
type Renderer struct {
	config Config
}

// New creates a Renderer with panels capped at 800 px
func New() *Renderer {
	return &Renderer{
		config: Config{
			MaxPanelWidth: 800,
			Background:    color.White,
			Foreground:    color.Black,
		},
	}
}

// NewWithConfig creates a Renderer with custom configuration
func NewWithConfig(config Config) *Renderer {
	if config.Background == nil {
		config.Background = color.White
	}
	if config.Foreground == nil {
		config.Foreground = color.Black
	}
	return &Renderer{config: config}
}

// Compare draws the original image and its mask side by side with the cover
// percentage as title and capture information as footer.
func (r *Renderer) Compare(img image.Image, mask *types.Mask, note Annotation) *image.NRGBA {
	left := imaging.Clone(img)
	right := imaging.Clone(mask.Gray())

	if w := r.config.MaxPanelWidth; w > 0 && left.Bounds().Dx() > w {
		left = imaging.Resize(left, w, 0, imaging.Lanczos)
		// nearest neighbor keeps the mask binary
		right = imaging.Resize(right, w, 0, imaging.NearestNeighbor)
	}

	pw, ph := left.Bounds().Dx(), left.Bounds().Dy()
	footer := footerLines(note)

	header := margin + 2*lineHeight + margin/2
	width := 2*pw + 3*margin
	height := header + ph + margin + len(footer)*lineHeight + margin

	canvas := imaging.New(width, height, r.config.Background)
	canvas = imaging.Paste(canvas, left, image.Pt(margin, header))
	canvas = imaging.Paste(canvas, right, image.Pt(2*margin+pw, header))

	r.drawCentered(canvas, fmt.Sprintf("Canopy cover percentage: %.2f%%", note.CanopyCover*100), width/2, margin+lineHeight-4)
	r.drawCentered(canvas, "Original Image", margin+pw/2, header-4)
	r.drawCentered(canvas, "Masked Image", 2*margin+pw+pw/2, header-4)

	y := header + ph + margin + lineHeight - 4
	for _, line := range footer {
		r.drawCentered(canvas, line, width/2, y)
		y += lineHeight
	}

	return canvas
}

func footerLines(note Annotation) []string {
	var lines []string
	if note.DateTime != "" {
		lines = append(lines, "Date/Time: "+note.DateTime)
	}
	if note.GPSInfo != "" {
		lines = append(lines, "GPS Info: "+note.GPSInfo)
	}
	return lines
}

// drawCentered draws text with its baseline at y, centered on x
func (r *Renderer) drawCentered(dst *image.NRGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.config.Foreground),
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(text).Ceil()
	start := x - w/2
	if start < 0 {
		start = 0
	}
	d.Dot = fixed.P(start, y)
	d.DrawString(text)
}

// Save writes img to path in the given format (jpg, png or webp)
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	format = strings.ToLower(format)
	switch format {
	case "webp", "png", "jpg", "jpeg", "":
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "webp":
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Encode(f, img, imaging.PNG)
	default: // jpg
		return imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}
