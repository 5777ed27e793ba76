package vegetation

import (
	"github.com/menta2k/canopy-analyzer/pkg/types"
)

// Open performs a binary opening (erosion then dilation) with a size x size
// square. Pixels outside the mask count as background, so a vegetation pixel
// survives only if some size x size window lying fully inside the mask and
// fully vegetated covers it. The window is anchored at size/2.
func Open(mask *types.Mask, size int) *types.Mask {
	if size <= 1 {
		return mask.Clone()
	}
	return Dilate(Erode(mask, size), size)
}

// Erode sets a pixel when the size x size window anchored on it is inside
// the mask and fully set.
func Erode(mask *types.Mask, size int) *types.Mask {
	w, h := mask.Width, mask.Height
	out := types.NewMask(w, h)
	if size <= 1 {
		copy(out.Pix, mask.Pix)
		return out
	}

	sat := newIntegral(mask)
	anchor := size / 2
	full := size * size

	for y := 0; y < h; y++ {
		y0 := y - anchor
		y1 := y0 + size - 1
		if y0 < 0 || y1 >= h {
			continue
		}
		for x := 0; x < w; x++ {
			x0 := x - anchor
			x1 := x0 + size - 1
			if x0 < 0 || x1 >= w {
				continue
			}
			if sat.sum(x0, y0, x1, y1) == full {
				out.Pix[y*w+x] = 1
			}
		}
	}

	return out
}

// Dilate sets every pixel covered by the size x size window of a set pixel.
// It is the reflected counterpart of Erode, so Dilate(Erode(m)) is an opening.
func Dilate(mask *types.Mask, size int) *types.Mask {
	w, h := mask.Width, mask.Height
	out := types.NewMask(w, h)
	if size <= 1 {
		copy(out.Pix, mask.Pix)
		return out
	}

	sat := newIntegral(mask)
	anchor := size / 2

	for y := 0; y < h; y++ {
		// anchors whose window covers row y
		y0 := y - (size - 1 - anchor)
		y1 := y + anchor
		for x := 0; x < w; x++ {
			x0 := x - (size - 1 - anchor)
			x1 := x + anchor
			if sat.sum(x0, y0, x1, y1) > 0 {
				out.Pix[y*w+x] = 1
			}
		}
	}

	return out
}

// integral is a summed-area table with a zero guard row and column
type integral struct {
	w, h   int
	stride int
	data   []int
}

func newIntegral(mask *types.Mask) *integral {
	w, h := mask.Width, mask.Height
	stride := w + 1
	data := make([]int, stride*(h+1))

	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(mask.Pix[y*w+x])
			data[(y+1)*stride+x+1] = data[y*stride+x+1] + rowSum
		}
	}

	return &integral{w: w, h: h, stride: stride, data: data}
}

// sum returns the number of set pixels in the inclusive rectangle, clipped to the mask
func (s *integral) sum(x0, y0, x1, y1 int) int {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= s.w {
		x1 = s.w - 1
	}
	if y1 >= s.h {
		y1 = s.h - 1
	}
	if x0 > x1 || y0 > y1 {
		return 0
	}
	a := s.data[y0*s.stride+x0]
	b := s.data[y0*s.stride+x1+1]
	c := s.data[(y1+1)*s.stride+x0]
	d := s.data[(y1+1)*s.stride+x1+1]
	return d - b - c + a
}
