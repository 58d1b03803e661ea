// Package utm composes sixty per-zone Transverse Mercator modules into the
// UTM coordinate system: natural-zone selection (including the Norway and
// Svalbard special zones), explicit zone overrides, and the hemisphere/
// false-northing convention (§4.5 of the specification this module
// implements). Grounded on the zone arithmetic in
// original_source/geotrans3.7's UTM.cpp, preserving its integer-degree
// truncation for the Norway/Svalbard thresholds exactly.
package utm

import (
	"math"
	"sync"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/projection"
	"github.com/mspgeo/geotrans/internal/xerr"
)

const (
	falseEasting  = 500000.0
	falseNorthing = 0.0
	scaleFactor   = 0.9996
	polarSouthFalseNorthing = 10000000.0
)

// Composer lazily builds and caches one TransverseMercator per zone,
// 1..60, for a given ellipsoid.
type Composer struct {
	a, f float64

	mu    sync.Mutex
	zones [61]*projection.TransverseMercator
}

// New constructs a Composer over the given ellipsoid.
func New(a, f float64) *Composer {
	return &Composer{a: a, f: f}
}

func centralMeridian(zone int) float64 {
	if zone >= 31 {
		return float64(6*zone-183) * math.Pi / 180
	}
	return float64(6*zone+177) * math.Pi / 180
}

func (c *Composer) zoneModule(zone int) (*projection.TransverseMercator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zones[zone] != nil {
		return c.zones[zone], nil
	}
	tm, err := projection.NewTransverseMercator(c.a, c.f, centralMeridian(zone), 0, falseEasting, falseNorthing, scaleFactor)
	if err != nil {
		return nil, err
	}
	c.zones[zone] = tm
	return tm, nil
}

func normalizeTo0_2Pi(lon float64) float64 {
	for lon < 0 {
		lon += 2 * math.Pi
	}
	for lon >= 2*math.Pi {
		lon -= 2 * math.Pi
	}
	return lon
}

// NaturalZone returns the UTM zone longitude alone selects, per UTM.cpp's
// temp_zone arithmetic: 31 + floor(degrees/6) for longitudes west of the
// antimeridian in the [0,2pi) convention, wrapping 61 back to 1.
func NaturalZone(lon float64) int {
	lonNorm := normalizeTo0_2Pi(lon)
	degLon := lonNorm * 180 / math.Pi

	var zone int
	if lonNorm < math.Pi {
		zone = 31 + int(math.Floor((degLon+1e-10)/6))
	} else {
		zone = int(math.Floor((degLon+1e-10)/6)) - 29
	}
	if zone > 60 {
		zone = 1
	}
	if zone < 1 {
		zone = 1
	}
	return zone
}

// specialZone applies the Norway/Svalbard overrides using the original
// implementation's integer-truncated degree comparisons (signed
// longitude convention, -180..180).
func specialZone(lonSigned, lat float64) (int, bool) {
	latDeg := int64(lat * 180 / math.Pi)
	lonDeg := int64(lonSigned * 180 / math.Pi)

	switch {
	case latDeg > 55 && latDeg < 64 && lonDeg > -1 && lonDeg < 3:
		return 31, true
	case latDeg > 55 && latDeg < 64 && lonDeg > 2 && lonDeg < 12:
		return 32, true
	case latDeg > 71 && lonDeg > -1 && lonDeg < 9:
		return 31, true
	case latDeg > 71 && lonDeg > 8 && lonDeg < 21:
		return 33, true
	case latDeg > 71 && lonDeg > 20 && lonDeg < 33:
		return 35, true
	case latDeg > 71 && lonDeg > 32 && lonDeg < 42:
		return 37, true
	default:
		return 0, false
	}
}

func signedLon(lon float64) float64 {
	for lon > math.Pi {
		lon -= 2 * math.Pi
	}
	for lon < -math.Pi {
		lon += 2 * math.Pi
	}
	return lon
}

// resolveZone picks the zone to use for a forward conversion: the
// explicit override if valid (within +-1 of natural, with 1<->60 wrap),
// else the natural zone with Norway/Svalbard special-casing applied.
func resolveZone(lon, lat float64, override int) (int, error) {
	natural := NaturalZone(lon)
	if override != 0 {
		diff := override - natural
		if diff == 1 || diff == -1 || diff == 0 ||
			(natural == 1 && override == 60) || (natural == 60 && override == 1) {
			return override, nil
		}
		return 0, xerr.New(xerr.ZoneOverride, "zone override not within +-1 of natural zone")
	}
	if z, ok := specialZone(signedLon(lon), lat); ok {
		return z, nil
	}
	return natural, nil
}

// ConvertFromGeodetic projects geo into UTM, applying zone resolution,
// hemisphere selection, and bounds validation. override of 0 means "no
// explicit override requested".
func (c *Composer) ConvertFromGeodetic(geo coord.Tuple, override int) (coord.Tuple, error) {
	lat := geo.Lat
	if lat < -80.5*math.Pi/180-1e-10 || lat > 84.5*math.Pi/180+1e-10 {
		return coord.Tuple{}, xerr.New(xerr.Latitude, "latitude out of UTM range")
	}
	if math.Abs(lat) < 1e-10 {
		lat = 0
	}

	zone, err := resolveZone(geo.Lon, lat, override)
	if err != nil {
		return coord.Tuple{}, err
	}

	tm, err := c.zoneModule(zone)
	if err != nil {
		return coord.Tuple{}, err
	}
	proj, err := tm.ConvertFromGeodetic(coord.NewGeodetic(geo.Lon, lat, geo.Height))
	if err != nil {
		return coord.Tuple{}, err
	}

	hemisphere := coord.North
	northing := proj.Northing
	if lat < 0 {
		hemisphere = coord.South
		northing += polarSouthFalseNorthing
	}

	if proj.Easting < 100000 || proj.Easting > 900000 {
		return coord.Tuple{}, xerr.New(xerr.Easting, "UTM easting out of range")
	}
	if northing < 0 || northing > 10000000 {
		return coord.Tuple{}, xerr.New(xerr.Northing, "UTM northing out of range")
	}

	out := coord.NewUTM(zone, hemisphere, proj.Easting, northing)
	out.Warning = proj.Warning
	return out, nil
}

// ConvertToGeodetic inverts a UTM tuple back to geodetic.
func (c *Composer) ConvertToGeodetic(utm coord.Tuple) (coord.Tuple, error) {
	if utm.Zone < 1 || utm.Zone > 60 {
		return coord.Tuple{}, xerr.New(xerr.Zone, "UTM zone out of range")
	}
	if utm.Easting < 100000 || utm.Easting > 900000 {
		return coord.Tuple{}, xerr.New(xerr.Easting, "UTM easting out of range")
	}

	northing := utm.Northing
	if utm.Hemisphere == coord.South {
		northing -= polarSouthFalseNorthing
	}

	tm, err := c.zoneModule(utm.Zone)
	if err != nil {
		return coord.Tuple{}, err
	}
	geo, err := tm.ConvertToGeodetic(coord.Tuple{Kind: coord.MapProjection, Easting: utm.Easting, Northing: northing})
	if err != nil {
		return coord.Tuple{}, err
	}
	return geo, nil
}
