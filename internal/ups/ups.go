// Package ups composes the two polar aspects (north, south) of the
// Universal Polar Stereographic grid: a scale-factor-parameterized Polar
// Stereographic projection (k0 = 0.994) with a false easting/northing of
// 2,000,000 m, used above 84 N and below 80 S where UTM's zone convergence
// becomes impractical (spec.md §4.5/§4.6). Grounded on UPS.h/UPS.cpp's
// constants as referenced from original_source's USNG.cpp and MGRS.cpp,
// composed over the TransverseMercator-sibling PolarStereographic module
// built for the map-projection layer (see DESIGN.md).
package ups

import (
	"math"
	"sync"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/projection"
	"github.com/mspgeo/geotrans/internal/xerr"
)

const (
	scaleFactor   = 0.994
	falseEasting  = 2000000.0
	falseNorthing = 2000000.0

	minNorthLat = 83.5 * math.Pi / 180
	maxSouthLat = -79.5 * math.Pi / 180
)

// Composer lazily builds and caches the north and south polar
// stereographic modules for a given ellipsoid.
type Composer struct {
	a, f float64

	mu    sync.Mutex
	north *projection.PolarStereographic
	south *projection.PolarStereographic
}

// New constructs a Composer over the given ellipsoid.
func New(a, f float64) *Composer {
	return &Composer{a: a, f: f}
}

func (c *Composer) module(isNorth bool) (*projection.PolarStereographic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isNorth {
		if c.north == nil {
			p, err := projection.NewPolarStereographicScale(c.a, c.f, scaleFactor, true, 0, falseEasting, falseNorthing)
			if err != nil {
				return nil, err
			}
			c.north = p
		}
		return c.north, nil
	}
	if c.south == nil {
		p, err := projection.NewPolarStereographicScale(c.a, c.f, scaleFactor, false, 0, falseEasting, falseNorthing)
		if err != nil {
			return nil, err
		}
		c.south = p
	}
	return c.south, nil
}

// ConvertFromGeodetic projects geo into UPS easting/northing, selecting the
// pole by sign of latitude. Callers are expected to have already checked
// latitude against the UTM/UPS split at +-80/84 degrees (§4.6); this method
// only enforces the wider +-79.5/83.5 degree range each polar aspect is
// actually valid over.
func (c *Composer) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	isNorth := geo.Lat >= 0
	if isNorth && geo.Lat < minNorthLat {
		return coord.Tuple{}, xerr.New(xerr.Latitude, "latitude below north UPS range")
	}
	if !isNorth && geo.Lat > maxSouthLat {
		return coord.Tuple{}, xerr.New(xerr.Latitude, "latitude above south UPS range")
	}

	p, err := c.module(isNorth)
	if err != nil {
		return coord.Tuple{}, err
	}
	proj, err := p.ConvertFromGeodetic(geo)
	if err != nil {
		return coord.Tuple{}, err
	}

	hemisphere := coord.North
	if !isNorth {
		hemisphere = coord.South
	}
	out := coord.NewUPS(hemisphere, proj.Easting, proj.Northing)
	out.Warning = proj.Warning
	return out, nil
}

// ConvertToGeodetic inverts a UPS tuple back to geodetic.
func (c *Composer) ConvertToGeodetic(ups coord.Tuple) (coord.Tuple, error) {
	isNorth := ups.Hemisphere == coord.North
	if !isNorth && ups.Hemisphere != coord.South {
		return coord.Tuple{}, xerr.New(xerr.Hemisphere, "UPS hemisphere must be N or S")
	}

	p, err := c.module(isNorth)
	if err != nil {
		return coord.Tuple{}, err
	}
	return p.ConvertToGeodetic(coord.Tuple{Kind: coord.MapProjection, Easting: ups.Easting, Northing: ups.Northing})
}
