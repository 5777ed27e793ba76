package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecimalFromDMS(t *testing.T) {
	tests := []struct {
		name     string
		d, m, s  float64
		ref      string
		expected float64
	}{
		{"north", 39, 11, 2.4, North, 39.184},
		{"south", 39, 11, 2.4, South, -39.184},
		{"east", 96, 35, 0, East, 96.58333},
		{"west", 96, 35, 0, West, -96.58333},
		{"zero", 0, 0, 0, North, 0},
		{"nul terminated", 10, 30, 0, "S\x00", -10.5},
		{"unknown reference stays positive", 10, 30, 0, "X", 10.5},
		{"empty reference stays positive", 10, 30, 0, "", 10.5},
		{"lowercase is not a southern marker", 10, 30, 0, "s", 10.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecimalFromDMS(tt.d, tt.m, tt.s, tt.ref)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestDecimalFromDMSSymmetry(t *testing.T) {
	triples := [][3]float64{
		{0, 0, 1},
		{12, 34, 56.789},
		{89, 59, 59.99},
		{179, 0, 0.5},
	}

	for _, dms := range triples {
		north := DecimalFromTriple(dms, North)
		south := DecimalFromTriple(dms, South)
		east := DecimalFromTriple(dms, East)
		west := DecimalFromTriple(dms, West)

		assert.Equal(t, north, -south, "south should mirror north for %v", dms)
		assert.Equal(t, east, -west, "west should mirror east for %v", dms)

		raw := dms[0] + dms[1]/60 + dms[2]/3600
		assert.InDelta(t, math.Round(raw*1e5)/1e5, north, 1e-12)
	}
}

func TestDecimalFromDMSRounding(t *testing.T) {
	got := DecimalFromDMS(1, 0, 1, North) // 1.000277...
	assert.Equal(t, 1.00028, got)
}

func TestIsReference(t *testing.T) {
	for _, ref := range []string{"N", "S", "E", "W", "N\x00"} {
		assert.True(t, IsReference(ref), ref)
	}
	for _, ref := range []string{"", "n", "X", "NE"} {
		assert.False(t, IsReference(ref), ref)
	}
}
