// Package projection defines the projection module interface shared by
// every coordinate-system type that is not geodetic or geocentric, plus
// two concrete modules: TransverseMercator (the UTM workhorse) and
// PolarStereographic (the UPS workhorse). Every other map projection is
// treated as an opaque module per §4.4 and out of scope here.
package projection

import "github.com/mspgeo/geotrans/internal/coord"

// Module converts between geodetic coordinates and one map-projected
// coordinate system, per §4.4.
type Module interface {
	ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error)
	ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error)
}
