package types

import (
	"image"
)

// Thresholds holds the pixel classification limits
type Thresholds struct {
	RedGreenMax  float64 `json:"red_green_max"`
	BlueGreenMax float64 `json:"blue_green_max"`
	ExGMin       float64 `json:"exg_min"`
}

// DefaultThresholds returns the Canopeo limits (0.95, 0.95, 20)
func DefaultThresholds() Thresholds {
	return Thresholds{
		RedGreenMax:  0.95,
		BlueGreenMax: 0.95,
		ExGMin:       20,
	}
}

// Location is a decimal-degree geocoordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is the result for one successfully processed image
type Record struct {
	Image       string    `json:"image"`
	CanopyCover float64   `json:"canopy_cover"`
	DateTime    *string   `json:"date_time,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Mask        *Mask     `json:"-"`
}

// Mask is a binary vegetation mask. Pix holds one byte per pixel, row major,
// with values 0 (background) or 1 (vegetation).
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty mask
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the value at (x, y), or 0 outside the mask
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as vegetation when v is true
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if v {
		m.Pix[y*m.Width+x] = 1
	} else {
		m.Pix[y*m.Width+x] = 0
	}
}

// Size returns the total pixel count
func (m *Mask) Size() int {
	return m.Width * m.Height
}

// Count returns the number of vegetation pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Fraction returns Count / Size, or 0 for an empty mask
func (m *Mask) Fraction() float64 {
	size := m.Size()
	if size == 0 {
		return 0
	}
	return float64(m.Count()) / float64(size)
}

// Rows returns the mask as a height x width grid of 0/1 values
func (m *Mask) Rows() [][]uint8 {
	rows := make([][]uint8, m.Height)
	for y := range rows {
		row := make([]uint8, m.Width)
		copy(row, m.Pix[y*m.Width:(y+1)*m.Width])
		rows[y] = row
	}
	return rows
}

// Grid returns the mask as a height x width grid of 0/1 integers. Unlike
// Rows it encodes as nested number arrays in JSON.
func (m *Mask) Grid() [][]int {
	grid := make([][]int, m.Height)
	for y := range grid {
		row := make([]int, m.Width)
		for x := range row {
			row[x] = int(m.Pix[y*m.Width+x])
		}
		grid[y] = row
	}
	return grid
}

// Gray renders the mask as a black and white image
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != 0 {
				img.Pix[y*img.Stride+x] = 0xff
			}
		}
	}
	return img
}

// Clone returns a deep copy of the mask
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}
