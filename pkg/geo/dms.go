// Package geo converts EXIF style geocoordinates to signed decimal degrees.
package geo

import (
	"math"
	"strings"
)

// Hemisphere references as stored in the GPS IFD.
const (
	North = "N"
	South = "S"
	East  = "E"
	West  = "W"
)

// decimalPlaces is the precision of converted coordinates (about 1.1 m at the equator)
const decimalPlaces = 5

// DecimalFromDMS converts degrees, minutes and seconds to decimal degrees.
// The value is negative for the southern and western hemispheres. Any other
// reference, including unknown ones, yields a positive value.
func DecimalFromDMS(degrees, minutes, seconds float64, ref string) float64 {
	value := degrees + minutes/60.0 + seconds/3600.0

	switch normalizeRef(ref) {
	case South, West:
		value = -value
	}

	return round(value, decimalPlaces)
}

// DecimalFromTriple is DecimalFromDMS for a {degrees, minutes, seconds} triple.
func DecimalFromTriple(dms [3]float64, ref string) float64 {
	return DecimalFromDMS(dms[0], dms[1], dms[2], ref)
}

// IsReference reports whether ref is one of the four canonical hemisphere markers.
func IsReference(ref string) bool {
	switch normalizeRef(ref) {
	case North, South, East, West:
		return true
	}
	return false
}

// normalizeRef strips the NUL terminator and padding EXIF ASCII values carry
func normalizeRef(ref string) string {
	return strings.Trim(ref, "\x00 \t")
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
