package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
}

func TestExpandSinglePath(t *testing.T) {
	paths, err := Expand(Path("plots/IMG_0001.JPG"))
	require.NoError(t, err)
	assert.Equal(t, []string{"plots/IMG_0001.JPG"}, paths)
	assert.False(t, Path("plots/IMG_0001.JPG").IsPattern())
}

func TestExpandList(t *testing.T) {
	in := []string{"b.jpg", "a*.jpg", "c.png"}
	src := Paths(in...)
	in[0] = "mutated"

	paths, err := Expand(src)
	require.NoError(t, err)
	// list entries are never globbed
	assert.Equal(t, []string{"b.jpg", "a*.jpg", "c.png"}, paths)
	assert.Equal(t, "3 paths", src.String())
}

func TestExpandPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "plot1.jpg"))
	touch(t, filepath.Join(dir, "plot2.jpg"))
	touch(t, filepath.Join(dir, "plot3.png"))

	src := Path(filepath.Join(dir, "*.jpg"))
	assert.True(t, src.IsPattern())

	paths, err := Expand(src)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "plot1.jpg"),
		filepath.Join(dir, "plot2.jpg"),
	}, paths)

	paths, err = Expand(Path(filepath.Join(dir, "plot?.png")))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "plot3.png")}, paths)
}

func TestExpandNoMatches(t *testing.T) {
	paths, err := Expand(Path(filepath.Join(t.TempDir(), "*.tif")))
	require.NoError(t, err)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestExpandMalformedPattern(t *testing.T) {
	_, err := Expand(Path("[a-"))
	assert.ErrorIs(t, err, filepath.ErrBadPattern)
}

func TestExpandLiteralNameWithWildcardChars(t *testing.T) {
	dir := t.TempDir()
	bracketed := filepath.Join(dir, "plot[1].jpg")
	unbalanced := filepath.Join(dir, "plot[2.jpg")
	touch(t, bracketed)
	touch(t, unbalanced)

	paths, err := Expand(Path(bracketed))
	require.NoError(t, err)
	assert.Equal(t, []string{bracketed}, paths)

	paths, err = Expand(Path(unbalanced))
	require.NoError(t, err)
	assert.Equal(t, []string{unbalanced}, paths)

	// a missing literal name still expands to nothing
	paths, err = Expand(Path(filepath.Join(dir, "plot[3].jpg")))
	require.NoError(t, err)
	assert.Empty(t, paths)
}
