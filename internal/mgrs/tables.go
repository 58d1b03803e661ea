package mgrs

import "math"

// Letter indices into the alphabet, A=0..Z=25, matching MGRS.cpp's LETTER_*
// defines so the table literals below read the same way.
const (
	letterA = iota
	letterB
	letterC
	letterD
	letterE
	letterF
	letterG
	letterH
	letterI
	letterJ
	letterK
	letterL
	letterM
	letterN
	letterO
	letterP
	letterQ
	letterR
	letterS
	letterT
	letterU
	letterV
	letterW
	letterX
	letterY
	letterZ
)

const (
	oneHundredThousand = 100000.0
	twoMillion         = 2000000.0
	maxPrecision       = 5

	minNonPolarLat = -80.0 * math.Pi / 180
	maxNonPolarLat = 84.0 * math.Pi / 180

	epsilon  = 1.75e-7  // ~1e-5 degrees, used for the UTM/UPS path split
	epsilon2 = 4.99e-4  // rounding bias before truncating to precision
)

// latitudeBand is one row of the UTM latitude band table: the band letter,
// its degree bounds, and the northing bookkeeping used to recover a grid
// square's absolute northing during decode.
type latitudeBand struct {
	letter         int
	minNorthing    float64
	north          float64 // degrees
	south          float64 // degrees
	northingOffset float64
}

// latitudeBandTable is MGRS.cpp's Latitude_Band_Table, indexed C..X
// (skipping I, O) from -80.5 to 84.5 degrees.
var latitudeBandTable = []latitudeBand{
	{letterC, 1100000.0, -72.0, -80.5, 0.0},
	{letterD, 2000000.0, -64.0, -72.0, 2000000.0},
	{letterE, 2800000.0, -56.0, -64.0, 2000000.0},
	{letterF, 3700000.0, -48.0, -56.0, 2000000.0},
	{letterG, 4600000.0, -40.0, -48.0, 4000000.0},
	{letterH, 5500000.0, -32.0, -40.0, 4000000.0},
	{letterJ, 6400000.0, -24.0, -32.0, 6000000.0},
	{letterK, 7300000.0, -16.0, -24.0, 6000000.0},
	{letterL, 8200000.0, -8.0, -16.0, 8000000.0},
	{letterM, 9100000.0, 0.0, -8.0, 8000000.0},
	{letterN, 0.0, 8.0, 0.0, 0.0},
	{letterP, 800000.0, 16.0, 8.0, 0.0},
	{letterQ, 1700000.0, 24.0, 16.0, 0.0},
	{letterR, 2600000.0, 32.0, 24.0, 2000000.0},
	{letterS, 3500000.0, 40.0, 32.0, 2000000.0},
	{letterT, 4400000.0, 48.0, 40.0, 4000000.0},
	{letterU, 5300000.0, 56.0, 48.0, 4000000.0},
	{letterV, 6200000.0, 64.0, 56.0, 6000000.0},
	{letterW, 7000000.0, 72.0, 64.0, 6000000.0},
	{letterX, 7900000.0, 84.5, 72.0, 6000000.0},
}

// bandRow maps a latitude band letter (C..H, J..N, P..X) to its row in
// latitudeBandTable, accounting for the I/O skip the way
// getLatitudeBandMinNorthing/inLatitudeRange do.
func bandRow(letter int) (int, bool) {
	switch {
	case letter >= letterC && letter <= letterH:
		return letter - 2, true
	case letter >= letterJ && letter <= letterN:
		return letter - 3, true
	case letter >= letterP && letter <= letterX:
		return letter - 4, true
	default:
		return 0, false
	}
}

// upsConstant is one row of the UPS constant table: the letter range for
// the second (column) letter and the false easting/northing it implies.
type upsConstant struct {
	letter        int
	ltr2Low       int
	ltr2High      int
	ltr3High      int
	falseEasting  float64
	falseNorthing float64
}

// upsConstantTable is MGRS.cpp's UPS_Constant_Table: A/B for the south
// pole, Y/Z for the north pole.
var upsConstantTable = []upsConstant{
	{letterA, letterJ, letterZ, letterZ, 800000.0, 800000.0},
	{letterB, letterA, letterR, letterZ, 2000000.0, 800000.0},
	{letterY, letterJ, letterZ, letterP, 800000.0, 1300000.0},
	{letterZ, letterA, letterJ, letterP, 2000000.0, 1300000.0},
}

func upsRowByLetter(letter int) (upsConstant, bool) {
	for _, row := range upsConstantTable {
		if row.letter == letter {
			return row, true
		}
	}
	return upsConstant{}, false
}

// legacyEllipsoidCodes are the ellipsoids whose grid-square pattern offset
// uses the "AL" sequence (1,000,000 / 1,500,000) instead of the standard
// "AA" sequence (0 / 500,000) — MGRS.cpp's CLARKE_1866/CLARKE_1880/
// BESSEL_1841/BESSEL_1841_NAMIBIA special case, expressed here as a data
// table per the REDESIGN FLAG rather than as compiled-in string branches.
var legacyEllipsoidCodes = map[string]bool{
	"CC": true, // Clarke 1866
	"CD": true, // Clarke 1880
	"BR": true, // Bessel 1841
	"BN": true, // Bessel 1841 (Namibia)
}

// patternOffsetTable gives the grid-square pattern_offset for a zone's set
// number (1..6), keyed by whether the ellipsoid uses the legacy ("AL")
// sequence.
var patternOffsetTable = map[bool]map[int]float64{
	false: {1: 0.0, 2: 500000.0, 3: 0.0, 4: 500000.0, 5: 0.0, 6: 500000.0},
	true:  {1: 1000000.0, 2: 1500000.0, 3: 1000000.0, 4: 1500000.0, 5: 1000000.0, 6: 1500000.0},
}

// getGridValues returns the second-letter range and pattern offset for a
// UTM zone, per MGRS.cpp's getGridValues.
func getGridValues(zone int, ellipsoidCode string) (low, high int, patternOffset float64) {
	setNumber := zone % 6
	if setNumber == 0 {
		setNumber = 6
	}

	switch setNumber {
	case 1, 4:
		low, high = letterA, letterH
	case 2, 5:
		low, high = letterJ, letterR
	case 3, 6:
		low, high = letterS, letterZ
	}

	legacy := legacyEllipsoidCodes[ellipsoidCode]
	patternOffset = patternOffsetTable[legacy][setNumber]
	return low, high, patternOffset
}

// getLatitudeBandMinNorthing returns the minimum northing and northing
// offset for a latitude band letter.
func getLatitudeBandMinNorthing(letter int) (minNorthing, northingOffset float64, ok bool) {
	row, ok := bandRow(letter)
	if !ok {
		return 0, 0, false
	}
	b := latitudeBandTable[row]
	return b.minNorthing, b.northingOffset, true
}

// inLatitudeRange reports whether latitude (radians) falls within letter's
// band, widened by border (radians) on each side.
func inLatitudeRange(letter int, latitude, border float64) bool {
	row, ok := bandRow(letter)
	if !ok {
		return false
	}
	b := latitudeBandTable[row]
	north := b.north * math.Pi / 180
	south := b.south * math.Pi / 180
	return (south-border) <= latitude && latitude <= (north+border)
}

// getLatitudeLetter returns the latitude band letter for latitude
// (radians), per MGRS.cpp's getLatitudeLetter.
func getLatitudeLetter(latitude float64) (int, bool) {
	const (
		deg8   = 8.0 * math.Pi / 180
		deg72  = 72.0 * math.Pi / 180
		deg80  = 80.0 * math.Pi / 180
		deg805 = 80.5 * math.Pi / 180
		deg845 = 84.5 * math.Pi / 180
	)
	switch {
	case latitude >= deg72 && latitude < deg845:
		return letterX, true
	case latitude > -deg805 && latitude < deg72:
		band := int((latitude+deg80)/deg8 + 1e-12)
		if band < 0 {
			band = 0
		}
		if band >= len(latitudeBandTable) {
			band = len(latitudeBandTable) - 1
		}
		return latitudeBandTable[band].letter, true
	default:
		return 0, false
	}
}

func computeScale(precision int) float64 {
	switch precision {
	case 0:
		return 1e5
	case 1:
		return 1e4
	case 2:
		return 1e3
	case 3:
		return 1e2
	case 4:
		return 10
	case 5:
		return 1
	default:
		return 1e5
	}
}
