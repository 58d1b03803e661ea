// Package geotrans is the root conversion service: it ties the ellipsoid,
// datum, and geoid library singletons together with the projection modules
// (UTM, UPS, MGRS/USNG, and bare Transverse Mercator / Polar Stereographic)
// into the two-endpoint conversion pipeline of spec.md §4.8.
package geotrans

import (
	"math"

	"github.com/mspgeo/geotrans/internal/accuracy"
	"github.com/mspgeo/geotrans/internal/bng"
	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/datum"
	"github.com/mspgeo/geotrans/internal/ellipsoid"
	"github.com/mspgeo/geotrans/internal/geoid"
	"github.com/mspgeo/geotrans/internal/mgrs"
	"github.com/mspgeo/geotrans/internal/projection"
	"github.com/mspgeo/geotrans/internal/shift"
	"github.com/mspgeo/geotrans/internal/ups"
	"github.com/mspgeo/geotrans/internal/utm"
	"github.com/mspgeo/geotrans/internal/xerr"
)

// CSKind tags which coordinate-system variant an Endpoint describes.
// It mirrors coord.Kind but is restricted to the kinds a ConversionService
// endpoint can actually be: coord.Cartesian, coord.GEOREF and coord.GARS
// are recognised by the Tuple union but have no projection
// module wired here (see DESIGN.md).
type CSKind int

const (
	CSGeodetic CSKind = iota
	CSUTM
	CSUPS
	CSMGRSOrUSNG
	// CSMapProjection is a direct, caller-parameterized Transverse Mercator
	// or Polar Stereographic endpoint, for map grids that are not UTM/UPS
	// (e.g. a national grid built on the same two projection kernels).
	CSMapProjection
	// CSBNG is the Ordnance Survey British National Grid reference.
	CSBNG
)

// ProjectionKind selects which concrete projection.Module a CSMapProjection
// endpoint is built from.
type ProjectionKind int

const (
	ProjTransverseMercator ProjectionKind = iota
	ProjPolarStereographic
)

// MapProjectionParams parameterizes a CSMapProjection endpoint. Only the
// fields relevant to Projection are meaningful, mirroring §4.4's "params
// are variant records keyed by coordinate type".
type MapProjectionParams struct {
	Projection ProjectionKind

	// Transverse Mercator
	CentralMeridian, OriginLatitude, ScaleFactor float64

	// Polar Stereographic. IsNorth is not read: the pole follows the sign
	// of StandardParallel (>= 0 is north).
	StandardParallel float64
	IsNorth          bool

	FalseEasting, FalseNorthing float64
}

// Endpoint describes one side (source or target) of a ConversionService:
// the datum it is expressed in and the coordinate system layered on top of
// that datum's ellipsoid.
type Endpoint struct {
	DatumIndex int
	CS         CSKind

	// ZoneOverride is consulted only when CS == CSUTM; 0 means natural-zone
	// selection (spec.md §4.5).
	ZoneOverride int
	// Precision is consulted when CS == CSMGRSOrUSNG (spec.md §4.6, 0..5
	// digits per axis) or CS == CSBNG (0..5 digits per axis, doubled
	// internally to a digit count since a British National Grid reference
	// interleaves easting and northing digits).
	Precision int
	// MapProjection is consulted only when CS == CSMapProjection.
	MapProjection MapProjectionParams
}

// endpointModule is the common shape every projection composer in this
// package is adapted to, regardless of the extra per-call arguments
// (zone override, precision) the underlying composer actually takes.
type endpointModule interface {
	ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error)
	ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error)
}

type utmModule struct {
	c        *utm.Composer
	override int
}

func (m utmModule) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertFromGeodetic(geo, m.override)
}
func (m utmModule) ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertToGeodetic(proj)
}

type mgrsModule struct {
	c         *mgrs.Composer
	precision int
}

func (m mgrsModule) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertFromGeodetic(geo, m.precision)
}
func (m mgrsModule) ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertToGeodetic(proj)
}

type bngModule struct {
	c      *bng.Composer
	digits int
}

func (m bngModule) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertFromGeodetic(geo, m.digits)
}
func (m bngModule) ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error) {
	return m.c.ConvertToGeodetic(proj)
}

// endpointState is the built, ready-to-use form of an Endpoint: nil module
// means the endpoint is geodetic and no projection step is needed.
type endpointState struct {
	endpoint Endpoint
	module   endpointModule
}

func buildEndpointState(ep Endpoint, a, f float64, ellipsoidCode string) (endpointState, error) {
	switch ep.CS {
	case CSGeodetic:
		return endpointState{endpoint: ep}, nil
	case CSUTM:
		return endpointState{endpoint: ep, module: utmModule{c: utm.New(a, f), override: ep.ZoneOverride}}, nil
	case CSUPS:
		return endpointState{endpoint: ep, module: ups.New(a, f)}, nil
	case CSMGRSOrUSNG:
		return endpointState{endpoint: ep, module: mgrsModule{c: mgrs.New(a, f, ellipsoidCode), precision: ep.Precision}}, nil
	case CSBNG:
		c, err := bng.New(a, f)
		if err != nil {
			return endpointState{}, err
		}
		return endpointState{endpoint: ep, module: bngModule{c: c, digits: ep.Precision * 2}}, nil
	case CSMapProjection:
		p := ep.MapProjection
		switch p.Projection {
		case ProjTransverseMercator:
			tm, err := projection.NewTransverseMercator(a, f, p.CentralMeridian, p.OriginLatitude, p.FalseEasting, p.FalseNorthing, p.ScaleFactor)
			if err != nil {
				return endpointState{}, err
			}
			return endpointState{endpoint: ep, module: tm}, nil
		case ProjPolarStereographic:
			ps, err := projection.NewPolarStereographic(a, f, p.StandardParallel, p.CentralMeridian, p.FalseEasting, p.FalseNorthing)
			if err != nil {
				return endpointState{}, err
			}
			return endpointState{endpoint: ep, module: ps}, nil
		default:
			return endpointState{}, xerr.New(xerr.InvalidIndex, "unknown map projection kind")
		}
	default:
		return endpointState{}, xerr.New(xerr.InvalidIndex, "unknown coordinate system kind")
	}
}

// ConversionService holds one source and one target endpoint plus the
// three shared library handles (spec.md §4.8). Construct with New;
// Release must be called exactly once when the service is no longer
// needed, mirroring the reference-counted singletons it holds open.
type ConversionService struct {
	ellipsoids *ellipsoid.Library
	datums     *datum.Library
	geoids     *geoid.Library
	shiftEngine *shift.Engine

	endpoints [2]endpointState
}

const (
	sourceIndex = 0
	targetIndex = 1
)

// New constructs a ConversionService over the given source and target
// endpoints, acquiring the ellipsoid/datum/geoid library singletons from
// dataDir (see internal/config.DataDir for the environment-variable
// fallback every other library uses).
func New(dataDir string, source, target Endpoint) (*ConversionService, error) {
	ellipsoids, err := ellipsoid.Acquire(dataDir)
	if err != nil {
		return nil, err
	}
	datums, err := datum.Acquire(dataDir)
	if err != nil {
		ellipsoid.Release(ellipsoids)
		return nil, err
	}
	geoids, err := geoid.Acquire(dataDir)
	if err != nil {
		datum.Release(datums)
		ellipsoid.Release(ellipsoids)
		return nil, err
	}

	svc := &ConversionService{
		ellipsoids:  ellipsoids,
		datums:      datums,
		geoids:      geoids,
		shiftEngine: shift.New(ellipsoids, datums),
	}

	if err := svc.setEndpoint(sourceIndex, source); err != nil {
		svc.Release()
		return nil, err
	}
	if err := svc.setEndpoint(targetIndex, target); err != nil {
		svc.Release()
		return nil, err
	}
	return svc, nil
}

// Release gives up the service's hold on the three library singletons.
// Safe to call once; a ConversionService must not be used afterward.
func (s *ConversionService) Release() {
	geoid.Release(s.geoids)
	datum.Release(s.datums)
	ellipsoid.Release(s.ellipsoids)
}

func (s *ConversionService) ellipsoidForDatum(datumIndex int) (a, f float64, code string, err error) {
	d, err := s.datums.Get(datumIndex)
	if err != nil {
		return 0, 0, "", err
	}
	idx, err := s.ellipsoids.IndexOf(d.EllipsoidCode)
	if err != nil {
		return 0, 0, "", xerr.Wrap(xerr.Ellipse, err, "resolving ellipsoid for datum "+d.Code)
	}
	a, f, err = s.ellipsoids.Parameters(idx)
	if err != nil {
		return 0, 0, "", err
	}
	return a, f, d.EllipsoidCode, nil
}

// setEndpoint rebuilds endpoints[which] from ep, discarding whatever
// projection module the previous endpoint at that slot held (spec.md
// §4.8: "mutation replaces one endpoint ... and discards/rebuilds the
// affected projection module").
func (s *ConversionService) setEndpoint(which int, ep Endpoint) error {
	a, f, code, err := s.ellipsoidForDatum(ep.DatumIndex)
	if err != nil {
		return err
	}
	st, err := buildEndpointState(ep, a, f, code)
	if err != nil {
		return err
	}
	s.endpoints[which] = st
	return nil
}

// SetSource replaces the source endpoint.
func (s *ConversionService) SetSource(ep Endpoint) error { return s.setEndpoint(sourceIndex, ep) }

// SetTarget replaces the target endpoint.
func (s *ConversionService) SetTarget(ep Endpoint) error { return s.setEndpoint(targetIndex, ep) }

func toGeodetic(ep endpointState, c coord.Tuple) (coord.Tuple, error) {
	if ep.module == nil {
		if c.Lat < -math.Pi/2 || c.Lat > math.Pi/2 {
			return coord.Tuple{}, xerr.New(xerr.Latitude, "latitude out of range")
		}
		return c, nil
	}
	return ep.module.ConvertToGeodetic(c)
}

func fromGeodetic(ep endpointState, g coord.Tuple) (coord.Tuple, error) {
	if ep.module == nil {
		return g, nil
	}
	return ep.module.ConvertFromGeodetic(g)
}

// convert runs the spec.md §4.8 five-step pipeline from endpoints[from] to
// endpoints[to].
func (s *ConversionService) convert(from, to int, in coord.Tuple, inAcc accuracy.Accuracy) (coord.Tuple, accuracy.Accuracy, error) {
	src := s.endpoints[from]
	tgt := s.endpoints[to]

	g0, err := toGeodetic(src, in)
	if err != nil {
		return coord.Tuple{}, accuracy.Accuracy{}, err
	}

	shiftAcc := accuracy.ZeroContribution
	g1 := g0
	if src.endpoint.DatumIndex != tgt.endpoint.DatumIndex {
		result, err := s.shiftEngine.GeodeticShift(src.endpoint.DatumIndex, tgt.endpoint.DatumIndex, g0.Lon, g0.Lat, g0.Height)
		if err != nil {
			return coord.Tuple{}, accuracy.Accuracy{}, err
		}
		g1 = coord.NewGeodetic(result.Lon, result.Lat, result.Height)
		if result.Warning != "" {
			g1 = g1.WithWarning(result.Warning)
		}
		shiftAcc = result.Shift
	}
	if g0.Warning != "" {
		g1 = g1.WithWarning(g0.Warning)
	}

	out, err := fromGeodetic(tgt, g1)
	if err != nil {
		return coord.Tuple{}, accuracy.Accuracy{}, err
	}
	if g1.Warning != "" {
		out = out.WithWarning(g1.Warning)
	}

	outAcc := accuracy.Combine(inAcc, shiftAcc)
	return out, outAcc, nil
}

// ConvertSourceToTarget runs the forward conversion: source endpoint coordinate
// and accuracy in, target endpoint coordinate and accuracy out.
func (s *ConversionService) ConvertSourceToTarget(in coord.Tuple, inAcc accuracy.Accuracy) (coord.Tuple, accuracy.Accuracy, error) {
	return s.convert(sourceIndex, targetIndex, in, inAcc)
}

// ConvertTargetToSource runs the mirror of ConvertSourceToTarget, per
// spec.md §9's note on the original header's misspelt
// `sourceAccurac` parameter: this is the obvious reverse of the forward
// operation, swapping source and target.
func (s *ConversionService) ConvertTargetToSource(in coord.Tuple, inAcc accuracy.Accuracy) (coord.Tuple, accuracy.Accuracy, error) {
	return s.convert(targetIndex, sourceIndex, in, inAcc)
}

// ConversionResult is one element of a ConvertSourceToTargetCollection
// batch: failures are reported per-tuple via Err, never by aborting the
// batch (spec.md §4.8, §7).
type ConversionResult struct {
	Coord coord.Tuple
	Acc   accuracy.Accuracy
	Err   error
}

// ConvertSourceToTargetCollection applies ConvertSourceToTarget to each
// (coordinate, accuracy) pair independently; a failure on one element is
// recorded in that element's Err and does not stop the rest of the batch.
func (s *ConversionService) ConvertSourceToTargetCollection(in []coord.Tuple, inAcc []accuracy.Accuracy) []ConversionResult {
	out := make([]ConversionResult, len(in))
	for i := range in {
		var acc accuracy.Accuracy
		if i < len(inAcc) {
			acc = inAcc[i]
		}
		c, a, err := s.ConvertSourceToTarget(in[i], acc)
		out[i] = ConversionResult{Coord: c, Acc: a, Err: err}
	}
	return out
}

// HeightToGeoid converts an ellipsoid height at (lon, lat) to a geoid-
// referenced (orthometric) height using the given geoid model, via the
// service's geoid library handle (spec.md §4.7).
func (s *ConversionService) HeightToGeoid(model geoid.Model, lon, lat, ellipsoidHeight float64) (float64, error) {
	return s.geoids.EllipsoidHeightToGeoidHeight(model, lon, lat, ellipsoidHeight)
}

// HeightFromGeoid converts a geoid-referenced height at (lon, lat) back to
// an ellipsoid height using the given geoid model.
func (s *ConversionService) HeightFromGeoid(model geoid.Model, lon, lat, orthometricHeight float64) (float64, error) {
	return s.geoids.GeoidHeightToEllipsoidHeight(model, lon, lat, orthometricHeight)
}
