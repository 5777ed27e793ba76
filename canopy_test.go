package canopy

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/canopy-analyzer/pkg/cover"
	"github.com/menta2k/canopy-analyzer/pkg/types"
)

// createTestImage creates a plot photo with a square leaf patch on soil
func createTestImage(width, height, side int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < side && y < side {
				img.Set(x, y, color.RGBA{35, 150, 45, 255})
			} else {
				img.Set(x, y, color.RGBA{130, 100, 70, 255})
			}
		}
	}
	return img
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, imaging.Save(createTestImage(40, 40, 40), filepath.Join(dir, "full.png")))
	require.NoError(t, imaging.Save(createTestImage(40, 40, 20), filepath.Join(dir, "quarter.png")))
	require.NoError(t, imaging.Save(createTestImage(40, 40, 0), filepath.Join(dir, "bare.bmp")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.gif"), []byte("GIF89a nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# field notes"), 0o644))
	return dir
}

func quietOptions() (Options, *bytes.Buffer) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = log.New(&buf, "", 0)
	return opts, &buf
}

func covers(table *types.Table) map[string]float64 {
	out := map[string]float64{}
	for _, r := range table.Rows() {
		out[filepath.Base(r.Image)] = r.CanopyCover
	}
	return out
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, types.DefaultThresholds(), opts.Thresholds)
	assert.True(t, opts.ParseMetadata)
	assert.False(t, opts.SaveMask)
	assert.False(t, opts.Parallel)
	assert.Equal(t, 10, opts.OpeningSize)
}

func TestCanopyCoverPattern(t *testing.T) {
	dir := writeFixtures(t)
	opts, logs := quietOptions()

	table, err := CanopyCover(context.Background(), Path(filepath.Join(dir, "*")), opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"full.png":    1.0,
		"quarter.png": 0.25,
		"bare.bmp":    0.0,
	}, covers(table))
	assert.Equal(t, []string{"image", "canopy_cover"}, table.Columns())
	assert.Contains(t, logs.String(), "corrupt.gif")
	assert.NotContains(t, logs.String(), "notes.md")
}

func TestCanopyCoverParallelMatchesSequential(t *testing.T) {
	dir := writeFixtures(t)
	opts, _ := quietOptions()

	seq, err := CanopyCover(context.Background(), Path(filepath.Join(dir, "*")), opts)
	require.NoError(t, err)

	opts.Parallel = true
	opts.Workers = 3
	par, err := CanopyCover(context.Background(), Path(filepath.Join(dir, "*")), opts)
	require.NoError(t, err)

	assert.ElementsMatch(t, seq.Rows(), par.Rows())
}

func TestCanopyCoverSinglePathAndList(t *testing.T) {
	dir := writeFixtures(t)
	opts, _ := quietOptions()
	opts.SaveMask = true

	table, err := CanopyCover(context.Background(), Path(filepath.Join(dir, "quarter.png")), opts)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	require.NotNil(t, table.Row(0).Mask)
	assert.Equal(t, 400, table.Row(0).Mask.Count())
	assert.Contains(t, table.Columns(), "mask")

	table, err = CanopyCover(context.Background(), Paths(
		filepath.Join(dir, "full.png"),
		filepath.Join(dir, "notes.md"),
		filepath.Join(dir, "missing.png"),
	), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestCanopyCoverEmpty(t *testing.T) {
	opts, _ := quietOptions()

	table, err := CanopyCover(context.Background(), Paths(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	table, err = CanopyCover(context.Background(), Path(filepath.Join(t.TempDir(), "*.jpg")), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestCoverImage(t *testing.T) {
	dir := writeFixtures(t)

	mask, err := CoverImage(filepath.Join(dir, "quarter.png"), types.DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, 40, mask.Width)
	assert.InDelta(t, 0.25, mask.Fraction(), 1e-12)

	_, err = CoverImage(filepath.Join(dir, "corrupt.gif"), types.DefaultThresholds())
	assert.ErrorIs(t, err, cover.ErrDecode)
}

func TestProcess(t *testing.T) {
	dir := writeFixtures(t)
	a := New()

	out := a.Process(filepath.Join(dir, "notes.md"))
	assert.Equal(t, cover.StatusSkipped, out.Status)

	out = a.Process(filepath.Join(dir, "full.png"))
	require.True(t, out.OK())
	assert.Equal(t, 1.0, out.Record.CanopyCover)
}

func TestPlot(t *testing.T) {
	dir := writeFixtures(t)
	out := filepath.Join(dir, "quarter_plot.png")

	record, err := New().Plot(filepath.Join(dir, "quarter.png"), out)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, record.CanopyCover, 1e-12)
	require.NotNil(t, record.Mask)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 80)
}

func TestPlotWithOptions(t *testing.T) {
	dir := writeFixtures(t)
	out := filepath.Join(dir, "full_plot.jpg")

	opts := DefaultOptions()
	opts.RenderQuality = 60
	record, err := Plot(filepath.Join(dir, "full.png"), out, opts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, record.CanopyCover)

	_, err = imaging.Open(out)
	require.NoError(t, err)

	_, err = Plot(filepath.Join(dir, "full.png"), filepath.Join(dir, "plot.gif"), opts)
	assert.Error(t, err)
}

func TestFormatsOverride(t *testing.T) {
	dir := writeFixtures(t)
	opts, _ := quietOptions()
	opts.Formats = []string{"bmp"}

	table, err := CanopyCover(context.Background(), Path(filepath.Join(dir, "*")), opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"bare.bmp": 0}, covers(table))
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
