package visualize

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/canopy-analyzer/pkg/types"
)

// createTestImage creates a green left half and a soil right half
func createTestImage(width, height int) (image.Image, *types.Mask) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	mask := types.NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{30, 180, 40, 255})
				mask.Set(x, y, true)
			} else {
				img.Set(x, y, color.RGBA{140, 110, 90, 255})
			}
		}
	}
	return img, mask
}

func TestCompareLayout(t *testing.T) {
	img, mask := createTestImage(200, 100)
	r := New()

	out := r.Compare(img, mask, Annotation{CanopyCover: 0.5})
	header := margin + 2*lineHeight + margin/2

	assert.Equal(t, 2*200+3*margin, out.Bounds().Dx())
	assert.Equal(t, header+100+2*margin, out.Bounds().Dy())

	// mask panel: vegetation is white, background black
	maskX := 2*margin + 200
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(maskX+10, header+50))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(maskX+190, header+50))

	// original panel keeps the source pixels
	assert.Equal(t, color.NRGBA{30, 180, 40, 255}, out.NRGBAAt(margin+10, header+50))
}

func TestCompareFooter(t *testing.T) {
	img, mask := createTestImage(120, 60)
	plain := New().Compare(img, mask, Annotation{CanopyCover: 0.5})
	noted := New().Compare(img, mask, Annotation{
		CanopyCover: 0.5,
		DateTime:    "2023:06:15 10:30:00",
		GPSInfo:     "GPSLatitudeRef=\"N\"",
	})
	assert.Equal(t, plain.Bounds().Dy()+2*lineHeight, noted.Bounds().Dy())
}

func TestCompareScalesLargeImages(t *testing.T) {
	img, mask := createTestImage(400, 200)
	r := NewWithConfig(Config{MaxPanelWidth: 100})

	out := r.Compare(img, mask, Annotation{})
	assert.Equal(t, 2*100+3*margin, out.Bounds().Dx())

	header := margin + 2*lineHeight + margin/2
	maskX := 2*margin + 100
	// nearest neighbor keeps mask pixels pure black or white
	for x := 0; x < 100; x++ {
		c := out.NRGBAAt(maskX+x, header+25)
		assert.True(t, c.R == 0 || c.R == 255, "mask pixel %d is %v", x, c)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img, mask := createTestImage(64, 32)
	out := New().Compare(img, mask, Annotation{CanopyCover: 0.5})

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "compare."+format)
		require.NoError(t, Save(out, path, format, 90, false), format)

		if format == "webp" {
			continue
		}
		back, err := imaging.Open(path)
		require.NoError(t, err)
		assert.Equal(t, out.Bounds().Size(), back.Bounds().Size())
	}

	assert.Error(t, Save(out, filepath.Join(dir, "x.gif"), "gif", 90, false))
}
