// Package bng implements the Ordnance Survey British National Grid
// reference codec (coord.BNG): a Transverse Mercator projection over the
// OSGB36 datum's Airy 1830 ellipsoid, with the 100km-square two-letter
// grid-square naming on top. Adapted from the teacher's osgridref.go
// (Chris Veness, movable-type.co.uk, MIT licence): the grid-letter
// encode/decode arithmetic is unchanged, but the Transverse Mercator
// projection math that file reimplemented is dropped in favour of this
// module's shared internal/projection.TransverseMercator, and the
// OSGB36<->WGS84 datum shift the teacher performed inline is left to the
// caller's internal/shift.Engine + a 7-parameter datum entry, the way
// every other coordinate system in this module defers datum shifting to
// the conversion service rather than hard-coding one transform.
package bng

import (
	"math"
	"strconv"
	"strings"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/projection"
	"github.com/mspgeo/geotrans/internal/xerr"
)

const (
	scaleFactor   = 0.9996012717
	falseEasting  = 400000.0
	falseNorthing = -100000.0

	maxEasting  = 700000.0
	maxNorthing = 1300000.0
)

// NatGrid true origin 49N 2W (OSGB "Guide to coordinate systems in Great
// Britain" C.1).
var (
	trueOriginLat = 49.0 * math.Pi / 180
	trueOriginLon = -2.0 * math.Pi / 180
)

// Composer converts between OSGB36 geodetic coordinates and British
// National Grid references, for the Airy 1830 ellipsoid (a, f passed by
// the caller the way every other composer in this module takes its
// ellipsoid parameters, rather than hard-coding Airy 1830's constants
// here).
type Composer struct {
	tm *projection.TransverseMercator
}

// New constructs a Composer over the given ellipsoid (Airy 1830: a =
// 6377563.396, f = 1/299.3249646, conventionally).
func New(a, f float64) (*Composer, error) {
	tm, err := projection.NewTransverseMercator(a, f, trueOriginLon, trueOriginLat, falseEasting, falseNorthing, scaleFactor)
	if err != nil {
		return nil, err
	}
	return &Composer{tm: tm}, nil
}

// ConvertFromGeodetic projects an OSGB36 geodetic coordinate to a grid
// reference string at the given digit count (0, 2, 4, 6, 8 or 10 digits,
// i.e. 0..5 digits of precision per axis).
func (c *Composer) ConvertFromGeodetic(geo coord.Tuple, digits int) (coord.Tuple, error) {
	proj, err := c.tm.ConvertFromGeodetic(geo)
	if err != nil {
		return coord.Tuple{}, err
	}
	if proj.Easting < 0 || proj.Easting > maxEasting || proj.Northing < 0 || proj.Northing > maxNorthing {
		return coord.Tuple{}, xerr.New(xerr.Easting, "outside the British National Grid")
	}
	s, err := Encode(int(proj.Easting), int(proj.Northing), digits)
	if err != nil {
		return coord.Tuple{}, err
	}
	out := coord.Tuple{Kind: coord.BNG, String: s, Precision: digits / 2}
	out.Warning = proj.Warning
	return out, nil
}

// ConvertToGeodetic decodes a grid reference back to an OSGB36 geodetic
// coordinate (at the grid square's southwest corner, per the reference's
// stated precision).
func (c *Composer) ConvertToGeodetic(ref coord.Tuple) (coord.Tuple, error) {
	easting, northing, err := Decode(ref.String)
	if err != nil {
		return coord.Tuple{}, err
	}
	return c.tm.ConvertToGeodetic(coord.Tuple{Kind: coord.MapProjection, Easting: float64(easting), Northing: float64(northing)})
}

// gridSize is the side of the 5x5 (minus I) square index, false origin at SV in the
// southwest, scanning west to east then south to north, per OSGB's grid
// diagram.
const gridSize = 5

// Encode formats an (easting, northing) pair in metres from the grid's
// false origin into a two-letter-prefixed numeric reference with the given
// number of digits (2, 4, 6, 8, or 10; i.e. 1..5 digits of precision per
// axis). digits == 0 yields the bare 2-letter 100km square.
func Encode(easting, northing, digits int) (string, error) {
	if digits < 0 || digits > 10 || digits%2 != 0 {
		return "", xerr.New(xerr.Precision, "grid reference digit count must be even, 0..10")
	}
	if easting < 0 || easting > int(maxEasting) || northing < 0 || northing > int(maxNorthing) {
		return "", xerr.New(xerr.Easting, "outside the British National Grid")
	}

	e100km := easting / 100000
	n100km := northing / 100000

	l1 := (19-n100km)-(19-n100km)%gridSize + (e100km+10)/gridSize
	l2 := (19-n100km)*gridSize%25 + e100km%gridSize
	if l1 > 7 {
		l1++
	}
	if l2 > 7 {
		l2++
	}
	letters := string([]byte{byte(l1 + 'A'), byte(l2 + 'A')})

	if digits == 0 {
		return letters, nil
	}

	pow := 1
	for i := 0; i < 5-digits/2; i++ {
		pow *= 10
	}
	e := (easting % 100000) / pow
	n := (northing % 100000) / pow

	width := digits / 2
	return letters + pad(e, width) + pad(n, width), nil
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// Decode parses a grid reference (with or without internal whitespace)
// back into a full-resolution (easting, northing) pair in metres, the
// southwest corner of the referenced square.
func Decode(s string) (easting, northing int, err error) {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(s) < 2 || len(s) > 12 || len(s)%2 != 0 {
		return 0, 0, xerr.New(xerr.Easting, "invalid grid reference: "+s)
	}

	l1 := int(s[0] - 'A')
	l2 := int(s[1] - 'A')
	if s[0] == 'I' || s[1] == 'I' || l1 < 0 || l1 > 25 || l2 < 0 || l2 > 25 {
		return 0, 0, xerr.New(xerr.Easting, "invalid grid reference letters: "+s)
	}
	if l1 > 7 {
		l1--
	}
	if l2 > 7 {
		l2--
	}
	if l1 < 8 || l1 > 18 {
		return 0, 0, xerr.New(xerr.Easting, "invalid grid reference letters: "+s)
	}

	e100km := ((l1-2)%5)*5 + (l2 % 5)
	n100km := (19 - (l1/5)*5) - (l2 / 5)

	digits := s[2:]
	half := len(digits) / 2
	eDigits, nDigits := digits[:half], digits[half:]

	pow := 1
	for i := 0; i < 5-half; i++ {
		pow *= 10
	}

	e, err := parseDigits(eDigits)
	if err != nil {
		return 0, 0, xerr.New(xerr.Easting, "invalid grid reference digits: "+s)
	}
	n, err := parseDigits(nDigits)
	if err != nil {
		return 0, 0, xerr.New(xerr.Northing, "invalid grid reference digits: "+s)
	}

	return e100km*100000 + e*pow, n100km*100000 + n*pow, nil
}

func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
