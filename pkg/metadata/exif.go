// Package metadata extracts capture time and GPS position from EXIF data.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/menta2k/canopy-analyzer/pkg/geo"
	"github.com/menta2k/canopy-analyzer/pkg/types"
)

var (
	// ErrMalformedGPS is returned when a GPS tag exists but cannot be converted
	ErrMalformedGPS = errors.New("malformed GPS tag")
	// ErrCorruptExif is returned when an EXIF block is present but unreadable
	ErrCorruptExif = errors.New("corrupt EXIF block")
)

// GPSInfo holds the raw DMS values of the GPS IFD
type GPSInfo struct {
	LatitudeRef  string
	Latitude     [3]float64
	LongitudeRef string
	Longitude    [3]float64
}

// Location converts the DMS values to decimal degrees
func (g GPSInfo) Location() types.Location {
	return types.Location{
		Latitude:  geo.DecimalFromTriple(g.Latitude, g.LatitudeRef),
		Longitude: geo.DecimalFromTriple(g.Longitude, g.LongitudeRef),
	}
}

// Tags is the subset of EXIF used for canopy records. Nil fields were not
// present in the file.
type Tags struct {
	DateTimeOriginal *string
	GPS              *GPSInfo
	// RawGPS is a printable dump of whatever GPS tags were found
	RawGPS string
}

// Location returns the decimal coordinates when complete GPS data was found
func (t Tags) Location() *types.Location {
	if t.GPS == nil {
		return nil
	}
	loc := t.GPS.Location()
	return &loc
}

// Reader reads capture metadata from an image file
type Reader interface {
	Read(path string) (Tags, error)
}

// ExifReader reads EXIF blocks from JPEG and TIFF files
type ExifReader struct{}

// NewExifReader creates an EXIF backed Reader
func NewExifReader() *ExifReader {
	return &ExifReader{}
}

var gpsFields = []exif.FieldName{
	exif.GPSLatitudeRef,
	exif.GPSLatitude,
	exif.GPSLongitudeRef,
	exif.GPSLongitude,
}

// Read returns the capture metadata of path. A file without an EXIF block
// yields empty Tags and no error.
func (r *ExifReader) Read(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil {
		if isCorrupt(err) {
			return Tags{}, fmt.Errorf("%w: %s: %v", ErrCorruptExif, path, err)
		}
		// no EXIF block (PNG, GIF, stripped JPEG)
		return Tags{}, nil
	}

	return tagsFromExif(x)
}

// isCorrupt reports whether a Decode failure came from parsing an EXIF block
// that was found. Missing markers and short headers mean there is no block.
func isCorrupt(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "exif: decode failed")
}

// tagsFromExif collects the timestamp and GPS group from a decoded block
func tagsFromExif(x *exif.Exif) (Tags, error) {
	var tags Tags

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		value, err := tag.StringVal()
		if err != nil {
			return Tags{}, fmt.Errorf("invalid DateTimeOriginal: %w", err)
		}
		value = strings.TrimRight(value, "\x00")
		tags.DateTimeOriginal = &value
	}

	found := make(map[exif.FieldName]*tiff.Tag, len(gpsFields))
	var raw []string
	for _, name := range gpsFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		found[name] = tag
		raw = append(raw, fmt.Sprintf("%s=%s", name, tag.String()))
	}
	tags.RawGPS = strings.Join(raw, " ")

	if len(found) < len(gpsFields) {
		return tags, nil
	}

	gps, err := gpsFromTags(found)
	if err != nil {
		return Tags{}, err
	}
	tags.GPS = gps

	return tags, nil
}

func gpsFromTags(found map[exif.FieldName]*tiff.Tag) (*GPSInfo, error) {
	latRef, err := found[exif.GPSLatitudeRef].StringVal()
	if err != nil {
		return nil, fmt.Errorf("%w: latitude reference: %v", ErrMalformedGPS, err)
	}
	lonRef, err := found[exif.GPSLongitudeRef].StringVal()
	if err != nil {
		return nil, fmt.Errorf("%w: longitude reference: %v", ErrMalformedGPS, err)
	}
	lat, err := dmsTriple(found[exif.GPSLatitude])
	if err != nil {
		return nil, fmt.Errorf("%w: latitude: %v", ErrMalformedGPS, err)
	}
	lon, err := dmsTriple(found[exif.GPSLongitude])
	if err != nil {
		return nil, fmt.Errorf("%w: longitude: %v", ErrMalformedGPS, err)
	}

	return &GPSInfo{
		LatitudeRef:  strings.TrimRight(latRef, "\x00"),
		Latitude:     lat,
		LongitudeRef: strings.TrimRight(lonRef, "\x00"),
		Longitude:    lon,
	}, nil
}

// dmsTriple reads three unsigned rationals
func dmsTriple(tag *tiff.Tag) ([3]float64, error) {
	var dms [3]float64
	if tag.Count < 3 {
		return dms, fmt.Errorf("expected 3 values, got %d", tag.Count)
	}
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, err
		}
		if den == 0 {
			return dms, fmt.Errorf("zero denominator at index %d", i)
		}
		dms[i] = float64(num) / float64(den)
	}
	return dms, nil
}
