package projection

import (
	"math"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/xerr"
)

// PolarStereographic converts between geodetic and Polar Stereographic
// projected coordinates using Snyder's ellipsoidal forward/inverse
// formulas (Map Projections: A Working Manual, 1987, §21). Loosely
// grounded on mmp-squall's spherical-earth grid_polar_stereographic.go
// (field naming, north/south pole convention) combined with GeoTrans's
// ellipsoidal parameterization conventions (false easting/northing,
// standard-parallel-at-a-given-latitude scale factor), since the
// spherical formulas in that file are not suitable for a 1/f in
// [250,350] ellipsoid (see DESIGN.md).
type PolarStereographic struct {
	a, f    float64
	e       float64
	isNorth bool

	falseEasting, falseNorthing float64
	centralMeridian              float64

	mc, tc float64 // scale terms evaluated at the standard parallel
}

// NewPolarStereographic constructs a module for the given pole.
// standardParallel is the latitude (radians, signed per hemisphere) at
// which the projection is true to scale; centralMeridian is the
// longitude of the straight grid line.
func NewPolarStereographic(a, f, standardParallel, centralMeridian, falseEasting, falseNorthing float64) (*PolarStereographic, error) {
	if a <= 0 {
		return nil, xerr.New(xerr.SemiMajorAxis, "semi-major axis must be > 0")
	}
	invF := 1 / f
	if invF < 250 || invF > 350 {
		return nil, xerr.New(xerr.EllipsoidFlattening, "inverse flattening out of range")
	}
	if standardParallel < -math.Pi/2 || standardParallel > math.Pi/2 {
		return nil, xerr.New(xerr.Latitude, "standard parallel out of range")
	}

	p := &PolarStereographic{
		a: a, f: f,
		isNorth:          standardParallel >= 0,
		centralMeridian:  centralMeridian,
		falseEasting:     falseEasting,
		falseNorthing:    falseNorthing,
	}
	e2 := 2*f - f*f
	p.e = math.Sqrt(e2)

	absLat := math.Abs(standardParallel)
	sinLat := math.Sin(absLat)
	p.mc = math.Cos(absLat) / math.Sqrt(1-e2*sinLat*sinLat)
	p.tc = snyderT(absLat, p.e)
	return p, nil
}

// NewPolarStereographicScale constructs a module parameterized directly by
// a central scale factor at the pole (Snyder eq. 21-33/21-34) rather than by
// a standard parallel; this is the convention UPS is defined in (k0=0.994),
// where there is no latitude at which the projection is true to scale.
func NewPolarStereographicScale(a, f, k0 float64, isNorth bool, centralMeridian, falseEasting, falseNorthing float64) (*PolarStereographic, error) {
	if a <= 0 {
		return nil, xerr.New(xerr.SemiMajorAxis, "semi-major axis must be > 0")
	}
	invF := 1 / f
	if invF < 250 || invF > 350 {
		return nil, xerr.New(xerr.EllipsoidFlattening, "inverse flattening out of range")
	}
	if k0 <= 0 {
		return nil, xerr.New(xerr.ScaleFactor, "scale factor must be > 0")
	}

	p := &PolarStereographic{
		a: a, f: f,
		isNorth:         isNorth,
		centralMeridian: centralMeridian,
		falseEasting:    falseEasting,
		falseNorthing:   falseNorthing,
	}
	e2 := 2*f - f*f
	p.e = math.Sqrt(e2)
	p.tc = 1
	p.mc = 2 * k0 / math.Sqrt(math.Pow(1+p.e, 1+p.e)*math.Pow(1-p.e, 1-p.e))
	return p, nil
}

// snyderT is Snyder's t(phi,e) auxiliary function (eq. 15-9), used on both
// standard-parallel evaluation and forward projection.
func snyderT(lat, e float64) float64 {
	sinLat := math.Sin(lat)
	return math.Tan(math.Pi/4-lat/2) / math.Pow((1-e*sinLat)/(1+e*sinLat), e/2)
}

// ConvertFromGeodetic projects geo into Polar Stereographic easting/northing.
func (p *PolarStereographic) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	lat := geo.Lat
	if p.isNorth && lat < 0 || !p.isNorth && lat > 0 {
		return coord.Tuple{}, xerr.New(xerr.Latitude, "latitude not on this projection's hemisphere")
	}
	absLat := math.Abs(lat)
	t := snyderT(absLat, p.e)
	rho := p.a * p.mc * t / p.tc

	lon := geo.Lon - p.centralMeridian
	lon = normalizeLon(lon)

	var easting, northing float64
	if p.isNorth {
		easting = p.falseEasting + rho*math.Sin(lon)
		northing = p.falseNorthing - rho*math.Cos(lon)
	} else {
		easting = p.falseEasting + rho*math.Sin(lon)
		northing = p.falseNorthing + rho*math.Cos(lon)
	}

	out := coord.Tuple{Kind: coord.MapProjection, Easting: easting, Northing: northing}
	if math.Abs(absLat-math.Pi/2) < 1e-10 {
		out = out.WithWarning("point at the pole, longitude undefined")
	}
	return out, nil
}

// ConvertToGeodetic inverts a Polar Stereographic easting/northing.
func (p *PolarStereographic) ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error) {
	dx := proj.Easting - p.falseEasting
	var dy float64
	if p.isNorth {
		dy = proj.Northing - p.falseNorthing
	} else {
		dy = p.falseNorthing - proj.Northing
	}

	rho := math.Hypot(dx, dy)
	if rho < 1e-12 {
		lat := math.Pi / 2
		if !p.isNorth {
			lat = -lat
		}
		return coord.Tuple{Kind: coord.Geodetic, Lon: p.centralMeridian, Lat: lat}, nil
	}

	t := rho * p.tc / (p.a * p.mc)
	lat := snyderInverseLat(t, p.e)
	if !p.isNorth {
		lat = -lat
	}

	var lon float64
	if p.isNorth {
		lon = p.centralMeridian + math.Atan2(dx, -dy)
	} else {
		lon = p.centralMeridian + math.Atan2(dx, -dy)
	}
	lon = normalizeLon(lon)

	return coord.Tuple{Kind: coord.Geodetic, Lon: lon, Lat: lat}, nil
}

// snyderInverseLat solves Snyder's eq. 7-9 (iterative form, eq. 3-5) for
// geodetic latitude given t and eccentricity e.
func snyderInverseLat(t, e float64) float64 {
	chi := math.Pi/2 - 2*math.Atan(t)
	lat := chi
	for i := 0; i < 8; i++ {
		sinLat := math.Sin(lat)
		lat = math.Pi/2 - 2*math.Atan(t*math.Pow((1-e*sinLat)/(1+e*sinLat), e/2))
	}
	return lat
}

func normalizeLon(lon float64) float64 {
	for lon > math.Pi {
		lon -= 2 * math.Pi
	}
	for lon < -math.Pi {
		lon += 2 * math.Pi
	}
	return lon
}
