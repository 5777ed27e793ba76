package vegetation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/menta2k/canopy-analyzer/pkg/types"
)

func fillRect(m *types.Mask, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, true)
		}
	}
}

func TestErodeAnchoring(t *testing.T) {
	m := types.NewMask(12, 12)
	fillRect(m, 1, 1, 11, 11) // exactly one 10x10 block

	eroded := Erode(m, 10)
	assert.Equal(t, 1, eroded.Count())
	// anchor sits at size/2 from the window's top-left corner
	assert.Equal(t, uint8(1), eroded.At(6, 6))
}

func TestOpenKeepsLargeBlocks(t *testing.T) {
	m := types.NewMask(30, 30)
	fillRect(m, 3, 4, 17, 20)
	m.Set(25, 25, true) // speckle

	opened := Open(m, 10)
	assert.Equal(t, 14*16, opened.Count())
	assert.Equal(t, uint8(0), opened.At(25, 25))
}

func TestOpenFullMask(t *testing.T) {
	m := types.NewMask(10, 10)
	fillRect(m, 0, 0, 10, 10)
	assert.Equal(t, 100, Open(m, 10).Count())

	small := types.NewMask(9, 20)
	fillRect(small, 0, 0, 9, 20)
	assert.Equal(t, 0, Open(small, 10).Count(), "mask narrower than the element empties")
}

func TestOpenIdempotent(t *testing.T) {
	m := types.NewMask(40, 30)
	fillRect(m, 2, 2, 15, 13)
	fillRect(m, 10, 10, 33, 26)
	fillRect(m, 35, 1, 38, 29)

	once := Open(m, 10)
	twice := Open(once, 10)
	assert.Equal(t, once.Pix, twice.Pix)
	assert.LessOrEqual(t, once.Count(), m.Count())
}

func TestOpenSizeOne(t *testing.T) {
	m := types.NewMask(3, 3)
	m.Set(1, 1, true)
	opened := Open(m, 1)
	assert.Equal(t, m.Pix, opened.Pix)
	opened.Set(0, 0, true)
	assert.Equal(t, 1, m.Count())
}

func TestOpenOddSize(t *testing.T) {
	m := types.NewMask(9, 9)
	fillRect(m, 2, 2, 5, 5) // 3x3 block
	m.Set(7, 7, true)

	opened := Open(m, 3)
	assert.Equal(t, 9, opened.Count())
	assert.Equal(t, uint8(0), opened.At(7, 7))
}

func TestIntegralSum(t *testing.T) {
	m := types.NewMask(4, 3)
	fillRect(m, 1, 0, 3, 2)
	s := newIntegral(m)

	assert.Equal(t, 4, s.sum(0, 0, 3, 2))
	assert.Equal(t, 2, s.sum(1, 1, 3, 2))
	assert.Equal(t, 4, s.sum(-5, -5, 10, 10))
	assert.Equal(t, 0, s.sum(3, 0, 3, 2))
	assert.Equal(t, 0, s.sum(5, 5, 6, 6))
}
