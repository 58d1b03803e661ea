// Package mgrs implements the MGRS/USNG grid reference encode/decode state
// machine (spec.md §4.6): zone/band lettering layered over the UTM
// composer for non-polar latitudes and the UPS composer for the poles,
// including the Norway/Svalbard-adjacent V/X-band extension rules and the
// legacy-ellipsoid grid-square pattern offset. Grounded on
// original_source/geotrans3.7's MGRS.cpp, transcribed function-by-function
// (fromUTM/toUTM/fromUPS/toUPS/getGridValues/getLatitudeLetter) rather than
// the compiled-in branch style of that file (see DESIGN.md).
package mgrs

import (
	"math"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/ups"
	"github.com/mspgeo/geotrans/internal/utm"
	"github.com/mspgeo/geotrans/internal/xerr"
)

// Composer converts between geodetic coordinates and MGRS/USNG strings for
// a given ellipsoid.
type Composer struct {
	ellipsoidCode string
	utm           *utm.Composer
	ups           *ups.Composer
}

// New constructs a Composer over the given ellipsoid. ellipsoidCode
// selects the legacy vs standard grid-square pattern offset.
func New(a, f float64, ellipsoidCode string) *Composer {
	return &Composer{
		ellipsoidCode: ellipsoidCode,
		utm:           utm.New(a, f),
		ups:           ups.New(a, f),
	}
}

// ConvertFromGeodetic encodes geo into an MGRS/USNG string at the given
// precision (0..5 digits per axis).
func (c *Composer) ConvertFromGeodetic(geo coord.Tuple, precision int) (coord.Tuple, error) {
	if precision < 0 || precision > maxPrecision {
		return coord.Tuple{}, xerr.New(xerr.Precision, "MGRS precision must be 0..5")
	}

	lat := geo.Lat
	if lat >= minNonPolarLat-epsilon && lat < maxNonPolarLat+epsilon {
		u, err := c.utm.ConvertFromGeodetic(geo, 0)
		if err != nil {
			return coord.Tuple{}, err
		}
		s, warn, err := c.fromUTM(u, geo.Lon, lat, precision)
		if err != nil {
			return coord.Tuple{}, err
		}
		out := coord.NewMGRSOrUSNG(s, precision)
		out.Warning = warn
		return out, nil
	}

	p, err := c.ups.ConvertFromGeodetic(geo)
	if err != nil {
		return coord.Tuple{}, err
	}
	s := c.fromUPS(p, precision)
	return coord.NewMGRSOrUSNG(s, precision), nil
}

// ConvertToGeodetic decodes an MGRS/USNG string back to geodetic.
func (c *Composer) ConvertToGeodetic(mgrs coord.Tuple) (coord.Tuple, error) {
	p, err := breakMGRSString(mgrs.String)
	if err != nil {
		return coord.Tuple{}, err
	}

	if p.zone != 0 {
		u, warn, err := c.toUTM(p)
		if err != nil {
			return coord.Tuple{}, err
		}
		geo, err := c.utm.ConvertToGeodetic(u)
		if err != nil {
			return coord.Tuple{}, err
		}
		geo.Warning = warn
		return geo, nil
	}

	u, err := c.toUPS(p)
	if err != nil {
		return coord.Tuple{}, err
	}
	return c.ups.ConvertToGeodetic(u)
}

// fromUTM is MGRS.cpp's fromUTM: rebase to the natural zone, apply the
// V/X-band extension rules, then derive the three grid letters.
func (c *Composer) fromUTM(u coord.Tuple, lon, lat float64, precision int) (string, string, error) {
	letter0, ok := getLatitudeLetter(lat)
	if !ok {
		return "", "", xerr.New(xerr.Latitude, "latitude out of MGRS range")
	}

	zone := u.Zone
	easting := u.Easting
	northing := u.Northing

	natural := utm.NaturalZone(lon)
	if zone != natural {
		geo := coord.NewGeodetic(lon, lat, 0)
		reconv, err := c.utm.ConvertFromGeodetic(geo, natural)
		if err != nil {
			return "", "", err
		}
		zone, easting, northing = reconv.Zone, reconv.Easting, reconv.Northing
	}

	override := 0
	switch {
	case letter0 == letterV:
		if zone == 31 && easting >= 500000.0 {
			override = 32
		}
	case letter0 == letterX:
		switch {
		case zone == 32 && easting < 500000.0:
			override = 31
		case (zone == 32 && easting >= 500000.0) || (zone == 34 && easting < 500000.0):
			override = 33
		case (zone == 34 && easting >= 500000.0) || (zone == 36 && easting < 500000.0):
			override = 35
		case zone == 36 && easting >= 500000.0:
			override = 37
		}
	}
	if override != 0 {
		geo := coord.NewGeodetic(lon, lat, 0)
		reconv, err := c.utm.ConvertFromGeodetic(geo, override)
		if err != nil {
			return "", "", err
		}
		zone, easting, northing = reconv.Zone, reconv.Easting, reconv.Northing
	}

	divisor := computeScale(precision)
	easting = float64(int64((easting+epsilon2)/divisor)) * divisor
	northing = float64(int64((northing+epsilon2)/divisor)) * divisor

	if lat <= 0.0 && northing == 1.0e7 {
		northing = 0.0
	}

	ltr2Low, _, patternOffset := getGridValues(zone, c.ellipsoidCode)

	gridNorthing := northing
	for gridNorthing >= twoMillion {
		gridNorthing -= twoMillion
	}
	gridNorthing += patternOffset
	if gridNorthing >= twoMillion {
		gridNorthing -= twoMillion
	}

	letter2 := int(gridNorthing / oneHundredThousand)
	if letter2 > letterH {
		letter2++
	}
	if letter2 > letterN {
		letter2++
	}

	letter1 := ltr2Low + int(easting/oneHundredThousand) - 1
	if ltr2Low == letterJ && letter1 > letterN {
		letter1++
	}

	letters := [3]int{letter0, letter1, letter2}
	return makeMGRSString(zone, letters, easting, northing, precision), "", nil
}

// toUTM is MGRS.cpp's toUTM: recover zone-relative easting/northing from
// the grid letters, validate against structurally-impossible band/zone
// pairs, and retry adjacent bands on a near-miss.
func (c *Composer) toUTM(p parsed) (coord.Tuple, string, error) {
	letter0, letter1, letter2 := p.letters[0], p.letters[1], p.letters[2]

	if letter0 == letterX && (p.zone == 32 || p.zone == 34 || p.zone == 36) {
		return coord.Tuple{}, "", xerr.New(xerr.MGRSString, "structurally impossible MGRS zone/band")
	}
	if letter0 == letterV && p.zone == 31 && letter1 > letterD {
		return coord.Tuple{}, "", xerr.New(xerr.MGRSString, "structurally impossible MGRS zone/band")
	}

	hemisphere := coord.South
	if letter0 >= letterN {
		hemisphere = coord.North
	}

	ltr2Low, ltr2High, patternOffset := getGridValues(p.zone, c.ellipsoidCode)
	if letter1 < ltr2Low || letter1 > ltr2High || letter2 > letterV {
		return coord.Tuple{}, "", xerr.New(xerr.MGRSString, "MGRS letters out of range for zone")
	}

	gridEasting := float64(letter1-ltr2Low+1) * oneHundredThousand
	if ltr2Low == letterJ && letter1 > letterO {
		gridEasting -= oneHundredThousand
	}

	rowLetterNorthing := float64(letter2) * oneHundredThousand
	if letter2 > letterO {
		rowLetterNorthing -= oneHundredThousand
	}
	if letter2 > letterI {
		rowLetterNorthing -= oneHundredThousand
	}
	if rowLetterNorthing >= twoMillion {
		rowLetterNorthing -= twoMillion
	}

	minNorthing, northingOffset, ok := getLatitudeBandMinNorthing(letter0)
	if !ok {
		return coord.Tuple{}, "", xerr.New(xerr.MGRSString, "invalid latitude band letter")
	}

	gridNorthing := rowLetterNorthing - patternOffset
	if gridNorthing < 0 {
		gridNorthing += twoMillion
	}
	gridNorthing += northingOffset
	if gridNorthing < minNorthing {
		gridNorthing += twoMillion
	}

	easting := gridEasting + p.easting
	northing := gridNorthing + p.northing

	u := coord.NewUTM(p.zone, hemisphere, easting, northing)

	geo, err := c.utm.ConvertToGeodetic(u)
	if err != nil {
		return coord.Tuple{}, "", err
	}
	lat := geo.Lat

	divisor := oneHundredThousand / computeScale(p.precision)
	border := (math.Pi / 180.0) / divisor
	if !inLatitudeRange(letter0, lat, border) {
		prevBand, nextBand := letter0-1, letter0+1
		if letter0 == letterC {
			prevBand = letter0
		}
		if letter0 == letterX {
			nextBand = letter0
		}
		if prevBand == letterI || prevBand == letterO {
			prevBand--
		}
		if nextBand == letterI || nextBand == letterO {
			nextBand++
		}
		if inLatitudeRange(prevBand, lat, border) || inLatitudeRange(nextBand, lat, border) {
			return u, "latitude band boundary: recovered latitude lies in an adjacent band", nil
		}
		return coord.Tuple{}, "", xerr.New(xerr.MGRSString, "recovered latitude outside MGRS band")
	}

	return u, "", nil
}

// fromUPS is MGRS.cpp's fromUPS.
func (c *Composer) fromUPS(p coord.Tuple, precision int) string {
	divisor := computeScale(precision)
	easting := float64(int64((p.Easting+epsilon2)/divisor)) * divisor
	northing := float64(int64((p.Northing+epsilon2)/divisor)) * divisor

	var letter0 int
	if p.Hemisphere == coord.North {
		if easting >= twoMillion {
			letter0 = letterZ
		} else {
			letter0 = letterY
		}
	} else {
		if easting >= twoMillion {
			letter0 = letterB
		} else {
			letter0 = letterA
		}
	}
	row, _ := upsRowByLetter(letter0)

	gridNorthing := northing - row.falseNorthing
	letter2 := int(gridNorthing / oneHundredThousand)
	if letter2 > letterH {
		letter2++
	}
	if letter2 > letterN {
		letter2++
	}

	gridEasting := easting - row.falseEasting
	letter1 := row.ltr2Low + int(gridEasting/oneHundredThousand)

	if easting < twoMillion {
		if letter1 > letterL {
			letter1 += 3
		}
		if letter1 > letterU {
			letter1 += 2
		}
	} else {
		if letter1 > letterC {
			letter1 += 2
		}
		if letter1 > letterH {
			letter1++
		}
		if letter1 > letterL {
			letter1 += 3
		}
	}

	letters := [3]int{letter0, letter1, letter2}
	return makeMGRSString(0, letters, easting, northing, precision)
}

// toUPS is MGRS.cpp's toUPS.
func (c *Composer) toUPS(p parsed) (coord.Tuple, error) {
	letter0, letter1, letter2 := p.letters[0], p.letters[1], p.letters[2]

	var hemisphere coord.Hemisphere
	switch letter0 {
	case letterY, letterZ:
		hemisphere = coord.North
	case letterA, letterB:
		hemisphere = coord.South
	default:
		return coord.Tuple{}, xerr.New(xerr.MGRSString, "invalid UPS latitude letter")
	}
	row, ok := upsRowByLetter(letter0)
	if !ok {
		return coord.Tuple{}, xerr.New(xerr.MGRSString, "invalid UPS latitude letter")
	}

	if letter1 < row.ltr2Low || letter1 > row.ltr2High ||
		letter1 == letterD || letter1 == letterE ||
		letter1 == letterM || letter1 == letterN ||
		letter1 == letterV || letter1 == letterW ||
		letter2 > row.ltr3High {
		return coord.Tuple{}, xerr.New(xerr.MGRSString, "invalid UPS grid letters")
	}

	gridNorthing := float64(letter2)*oneHundredThousand + row.falseNorthing
	if letter2 > letterI {
		gridNorthing -= oneHundredThousand
	}
	if letter2 > letterO {
		gridNorthing -= oneHundredThousand
	}

	gridEasting := float64(letter1-row.ltr2Low)*oneHundredThousand + row.falseEasting
	if row.ltr2Low != letterA {
		if letter1 > letterL {
			gridEasting -= 300000.0
		}
		if letter1 > letterU {
			gridEasting -= 200000.0
		}
	} else {
		if letter1 > letterC {
			gridEasting -= 200000.0
		}
		if letter1 > letterI {
			gridEasting -= oneHundredThousand
		}
		if letter1 > letterL {
			gridEasting -= 300000.0
		}
	}

	easting := gridEasting + p.easting
	northing := gridNorthing + p.northing
	return coord.NewUPS(hemisphere, easting, northing), nil
}
