package mgrs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mspgeo/geotrans/internal/xerr"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// parsed is the decomposition of an MGRS/USNG string: an optional UTM zone
// (0 means the string is UPS-like), three grid letters, and the scaled
// easting/northing digit pair.
type parsed struct {
	zone      int
	letters   [3]int
	easting   float64
	northing  float64
	precision int
}

// makeMGRSString builds an MGRS/USNG string from its component parts,
// per MGRS.cpp's makeMGRSString.
func makeMGRSString(zone int, letters [3]int, easting, northing float64, precision int) string {
	var b strings.Builder
	if zone != 0 {
		fmt.Fprintf(&b, "%02d", zone)
	}
	for _, l := range letters {
		b.WriteByte(alphabet[l])
	}

	divisor := computeScale(precision)

	e := math.Mod(easting, 100000.0)
	if e >= 99999.5 {
		e = 99999.0
	}
	east := int64((e + epsilon2) / divisor)

	n := math.Mod(northing, 100000.0)
	if n >= 99999.5 {
		n = 99999.0
	}
	north := int64((n + epsilon2) / divisor)

	if precision > 0 {
		fmt.Fprintf(&b, "%0*d%0*d", precision, east, precision, north)
	}
	return b.String()
}

// breakMGRSString parses an MGRS/USNG string into its component parts,
// per MGRS.cpp's breakMGRSString.
func breakMGRSString(s string) (parsed, error) {
	var clean strings.Builder
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if !isDigit(r) && !isAlpha(r) {
			return parsed{}, xerr.New(xerr.MGRSString, "invalid character in MGRS string")
		}
		clean.WriteRune(r)
	}
	t := clean.String()

	i := 0
	j := 0
	for i < len(t) && isDigit(rune(t[i])) {
		i++
	}
	numDigits := i - j
	var zone int
	if numDigits <= 2 {
		if numDigits > 0 {
			z, err := strconv.Atoi(t[j:i])
			if err != nil || z < 1 || z > 60 {
				return parsed{}, xerr.New(xerr.MGRSString, "invalid MGRS zone")
			}
			zone = z
		}
	} else {
		return parsed{}, xerr.New(xerr.MGRSString, "invalid MGRS string")
	}

	j = i
	for i < len(t) && isAlpha(rune(t[i])) {
		i++
	}
	if i-j != 3 {
		return parsed{}, xerr.New(xerr.MGRSString, "MGRS string must have exactly 3 letters")
	}
	var letters [3]int
	for k := 0; k < 3; k++ {
		l := int(upper(t[j+k]) - 'A')
		if l == letterI || l == letterO {
			return parsed{}, xerr.New(xerr.MGRSString, "MGRS letters may not contain I or O")
		}
		letters[k] = l
	}

	j = i
	for i < len(t) && isDigit(rune(t[i])) {
		i++
	}
	numDigits = i - j
	if numDigits > 10 || numDigits%2 != 0 {
		return parsed{}, xerr.New(xerr.MGRSString, "MGRS digit block must be even length, <= 10")
	}

	n := numDigits / 2
	precision := n
	var easting, northing float64
	if n > 0 {
		e, err1 := strconv.ParseInt(t[j:j+n], 10, 64)
		no, err2 := strconv.ParseInt(t[j+n:j+2*n], 10, 64)
		if err1 != nil || err2 != nil {
			return parsed{}, xerr.New(xerr.MGRSString, "invalid MGRS digit block")
		}
		multiplier := computeScale(n)
		easting = float64(e) * multiplier
		northing = float64(no) * multiplier
	}

	return parsed{zone: zone, letters: letters, easting: easting, northing: northing, precision: precision}, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
