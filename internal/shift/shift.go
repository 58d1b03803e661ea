// Package shift implements the datum shift engine: geocentric shifts to
// and from WGS84 per datum type, the Molodensky and 3-step geodetic
// methods, the closed-form WGS72<->WGS84 formula, method selection, and
// error propagation (§4.3 of the specification this module implements).
//
// Grounded on latlon-ellipsoidal-datum.go's Cartesian<->geodetic
// (Bowring) and Helmert-transform code, generalized from a single fixed
// pivot-through-WGS84 routine into the full Molodensky/3-step/WGS72
// method-selection engine.
package shift

import (
	"math"

	"github.com/mspgeo/geotrans/internal/accuracy"
	"github.com/mspgeo/geotrans/internal/datum"
	"github.com/mspgeo/geotrans/internal/ellipsoid"
	"github.com/mspgeo/geotrans/internal/xerr"
)

// MolodenskyMax is the latitude beyond which the Molodensky differential
// method is not used; 89.75 degrees, taken from original_source (not
// stated numerically in the distilled spec).
const MolodenskyMax = 89.75 * math.Pi / 180

// Engine composes ellipsoid and datum library handles to shift geodetic
// or geocentric coordinates between datum indices via the WGS84 pivot.
type Engine struct {
	ellipsoids *ellipsoid.Library
	datums     *datum.Library
}

// New constructs a shift Engine over the given library handles.
func New(ellipsoids *ellipsoid.Library, datums *datum.Library) *Engine {
	return &Engine{ellipsoids: ellipsoids, datums: datums}
}

func (e *Engine) ellipsoidParams(d datum.Datum) (a, f float64, err error) {
	idx, err := e.ellipsoids.IndexOf(d.EllipsoidCode)
	if err != nil {
		return 0, 0, xerr.Wrap(xerr.Ellipse, err, "resolving ellipsoid for datum "+d.Code)
	}
	return e.ellipsoids.Parameters(idx)
}

// --- geodetic <-> geocentric, per ellipsoid ---

func geodeticToGeocentric(a, e2, lon, lat, h float64) (x, y, z float64) {
	sinPhi, cosPhi := math.Sincos(lat)
	sinLam, cosLam := math.Sincos(lon)
	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	x = (n + h) * cosPhi * cosLam
	y = (n + h) * cosPhi * sinLam
	z = (n*(1-e2) + h) * sinPhi
	return
}

// geocentricToGeodetic uses Bowring's 1985 closed-form approximation, the
// same formula latlon-ellipsoidal-datum.go's Cartesian.ToLatLon applies.
func geocentricToGeodetic(a, f, e2, x, y, z float64) (lon, lat, h float64) {
	b := a * (1 - f)
	ePrime2 := e2 / (1 - e2)
	p := math.Hypot(x, y)
	r := math.Hypot(p, z)

	tanBeta := (b * z) / (a * p) * (1 + ePrime2*b/r)
	sinBeta := tanBeta / math.Sqrt(1+tanBeta*tanBeta)
	cosBeta := 1 / math.Sqrt(1+tanBeta*tanBeta)
	if math.IsNaN(sinBeta) {
		sinBeta, cosBeta = 0, 1
	}

	phi := math.Atan2(z+ePrime2*b*sinBeta*sinBeta*sinBeta, p-e2*a*cosBeta*cosBeta*cosBeta)

	sinPhi := math.Sin(phi)
	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)

	lon = math.Atan2(y, x)
	lat = phi
	if p != 0 {
		h = p/math.Cos(phi) - n
	} else {
		h = math.Abs(z) - b
	}
	return
}

// --- geocentric shift to/from WGS84 ---

// ToWGS84Geocentric shifts a geocentric coordinate expressed in datum d to
// WGS84, per §4.3's per-type formulas.
func ToWGS84Geocentric(d datum.Datum, x, y, z float64) (x2, y2, z2 float64, err error) {
	switch d.Type {
	case datum.WGS84:
		return x, y, z, nil
	case datum.WGS72:
		return wgs72ToWGS84Geocentric(x, y, z)
	case datum.ThreeParam:
		return x + d.DX, y + d.DY, z + d.DZ, nil
	case datum.SevenParam:
		s := d.Scale
		x2 = x + d.DX + d.RZ*y - d.RY*z + s*x
		y2 = y + d.DY - d.RZ*x + d.RX*z + s*y
		z2 = z + d.DZ + d.RY*x - d.RX*y + s*z
		return x2, y2, z2, nil
	default:
		return 0, 0, 0, xerr.New(xerr.DatumType, "unknown datum type")
	}
}

// FromWGS84Geocentric shifts a WGS84 geocentric coordinate into datum d,
// applying the inverse of ToWGS84Geocentric's linearization.
func FromWGS84Geocentric(d datum.Datum, x, y, z float64) (x2, y2, z2 float64, err error) {
	switch d.Type {
	case datum.WGS84:
		return x, y, z, nil
	case datum.WGS72:
		return wgs84ToWGS72Geocentric(x, y, z)
	case datum.ThreeParam:
		return x - d.DX, y - d.DY, z - d.DZ, nil
	case datum.SevenParam:
		rx, ry, rz, sc := -d.RX, -d.RY, -d.RZ, -d.Scale
		tx, ty, tz := x-d.DX, y-d.DY, z-d.DZ
		x2 = tx + rz*ty - ry*tz + sc*tx
		y2 = ty - rz*tx + rx*tz + sc*ty
		z2 = tz + ry*tx - rx*ty + sc*tz
		return x2, y2, z2, nil
	default:
		return 0, 0, 0, xerr.New(xerr.DatumType, "unknown datum type")
	}
}

// --- WGS72 <-> WGS84 closed-form geocentric via geodetic round-trip ---
//
// §4.3 specifies the WGS72<->WGS84 shift in geodetic terms (dphi, dlambda,
// dh), not geocentric; applying it to a geocentric input round-trips
// through geodetic using WGS72's own ellipsoid, matching how the
// distillation's "distinguished WGS72<->WGS84 algorithm" is invoked by the
// geocentric shift path.

const (
	wgs72A     = 6378135.0
	wgs72InvF  = 298.26
	wgs84A     = 6378137.0
	wgs84InvF  = 298.257223563
)

func wgs72ToWGS84Geocentric(x, y, z float64) (float64, float64, float64, error) {
	f72 := 1 / wgs72InvF
	e2 := 2*f72 - f72*f72
	lon, lat, h := geocentricToGeodetic(wgs72A, f72, e2, x, y, z)
	dlat, dlon, dh := wgs72ToWGS84Geodetic(lat)
	lat2 := clampLatitude(lat + dlat)
	lon2 := normalizeLonSigned(lon + dlon)
	h2 := h + dh
	f84 := 1 / wgs84InvF
	e2_84 := 2*f84 - f84*f84
	x2, y2, z2 := geodeticToGeocentric(wgs84A, e2_84, lon2, lat2, h2)
	return x2, y2, z2, nil
}

func wgs84ToWGS72Geocentric(x, y, z float64) (float64, float64, float64, error) {
	f84 := 1 / wgs84InvF
	e2 := 2*f84 - f84*f84
	lon, lat, h := geocentricToGeodetic(wgs84A, f84, e2, x, y, z)
	dlat, dlon, dh := wgs84ToWGS72Geodetic(lat)
	lat2 := clampLatitude(lat + dlat)
	lon2 := normalizeLonSigned(lon + dlon)
	h2 := h + dh
	f72 := 1 / wgs72InvF
	e2_72 := 2*f72 - f72*f72
	x2, y2, z2 := geodeticToGeocentric(wgs72A, e2_72, lon2, lat2, h2)
	return x2, y2, z2, nil
}

// wgs72ToWGS84Geodetic returns (dphi, dlambda, dh) in radians/metres per
// §4.3's closed-form formula.
func wgs72ToWGS84Geodetic(lat float64) (dphi, dlambda, dh float64) {
	const secondsPerRadian = 206264.8062471
	q := math.Pi / 648000
	sinPhi := math.Sin(lat)
	da := wgs84A - wgs72A
	df := 1/wgs84InvF - 1/wgs72InvF

	dphi = ((4.5*math.Cos(lat))/(wgs72A*q) + (df*math.Sin(2*lat))/q) / secondsPerRadian
	dlambda = 0.554 / secondsPerRadian
	dh = 4.5*sinPhi + wgs72A*df*sinPhi*sinPhi - da + 1.4
	return
}

func wgs84ToWGS72Geodetic(lat float64) (dphi, dlambda, dh float64) {
	dphi, dlambda, dh = wgs72ToWGS84Geodetic(lat)
	return -dphi, -dlambda, -dh
}

func clampLatitude(lat float64) float64 {
	if lat > math.Pi/2 {
		return math.Pi - lat
	}
	if lat < -math.Pi/2 {
		return -math.Pi - lat
	}
	return lat
}

func normalizeLonSigned(lon float64) float64 {
	for lon > math.Pi {
		lon -= 2 * math.Pi
	}
	for lon <= -math.Pi {
		lon += 2 * math.Pi
	}
	return lon
}

func normalizeLonTarget(lon float64) float64 {
	// Normalize into (-pi, 2pi], per §4.3's Molodensky longitude note.
	for lon > 2*math.Pi {
		lon -= 2 * math.Pi
	}
	for lon <= -math.Pi {
		lon += 2 * math.Pi
	}
	return lon
}

// --- Molodensky differential shift ---

// molodensky applies the differential datum shift formula of §4.3 in the
// direction source -> target, given the source ellipsoid (aSrc, fSrc),
// the target ellipsoid (aTgt, fTgt), and the geocentric translation
// (dx, dy, dz) from source to target (computed by differencing each
// side's shift-to-WGS84 translation).
func molodensky(aSrc, fSrc, aTgt, fTgt, dx, dy, dz, lon, lat, h float64) (lon2, lat2, h2 float64) {
	e2 := 2*fSrc - fSrc*fSrc
	ePrime2 := e2 / (1 - e2)
	da := aTgt - aSrc
	df := fTgt - fSrc

	centeredLon := lon
	if centeredLon > math.Pi {
		centeredLon -= 2 * math.Pi
	}

	sinPhi, cosPhi := math.Sincos(lat)
	sinLam, cosLam := math.Sincos(centeredLon)

	w := math.Sqrt(1 - e2*sinPhi*sinPhi)
	m := aSrc * (1 - e2) / (w * w * w)
	n := aSrc / w

	dphi := (cosPhi*dz - sinPhi*cosLam*dx - sinPhi*sinLam*dy +
		(e2*sinPhi*cosPhi/w)*da +
		sinPhi*cosPhi*(2*n+ePrime2*m*sinPhi*sinPhi)*(1-fSrc)*df) / (m + h)

	dlambda := (-sinLam*dx + cosLam*dy) / ((n + h) * cosPhi)

	dh := cosPhi*cosLam*dx + cosPhi*sinLam*dy + sinPhi*dz - w*da + (aSrc*(1-fSrc)/w)*sinPhi*sinPhi*df

	lat2 = lat + dphi
	lon2 = normalizeLonTarget(lon + dlambda)
	h2 = h + dh
	return
}

// geocentricTranslation returns the net geocentric translation applied by
// ToWGS84Geocentric for a 3-param or 7-param datum, evaluated at the
// identity rotation/scale point (used as the Molodensky dx/dy/dz per
// §4.3, which takes simple per-axis deltas).
func geocentricTranslation(d datum.Datum) (dx, dy, dz float64) {
	return d.DX, d.DY, d.DZ
}

// --- method selection & public geodetic shift ---

// Result carries the shifted coordinate, any non-fatal warning, and the
// accuracy contribution of the shift stage.
type Result struct {
	Lon, Lat, Height float64
	Warning          string
	Shift            accuracy.Accuracy
}

// GeodeticShift converts a geodetic coordinate (radians, metres) from
// sourceIndex's datum to targetIndex's datum, choosing Molodensky or
// 3-step per §4.3's method-selection rule.
func (e *Engine) GeodeticShift(sourceIndex, targetIndex int, lon, lat, h float64) (Result, error) {
	if sourceIndex == targetIndex {
		return Result{Lon: lon, Lat: lat, Height: h}, nil
	}
	if lat < -math.Pi/2 || lat > math.Pi/2 {
		return Result{}, xerr.New(xerr.Latitude, "latitude out of range")
	}

	src, err := e.datums.Get(sourceIndex)
	if err != nil {
		return Result{}, err
	}
	tgt, err := e.datums.Get(targetIndex)
	if err != nil {
		return Result{}, err
	}

	srcSeven := src.Type == datum.SevenParam
	tgtSeven := tgt.Type == datum.SevenParam
	eligible := math.Abs(lat) <= MolodenskyMax

	switch {
	case srcSeven && tgtSeven:
		return e.threeStepShift(src, tgt, lon, lat, h)
	case srcSeven != tgtSeven:
		return e.mixedShift(src, tgt, srcSeven, lon, lat, h, eligible)
	case eligible:
		// Neither side is sevenParam: still pivot through WGS84 with two
		// independent Molodensky hops (source->WGS84, then WGS84->target),
		// each evaluated at its own position, rather than one combined
		// differential step evaluated only at the source position.
		pivot, err := e.hopToWGS84Eligible(src, lon, lat, h, eligible)
		if err != nil {
			return Result{}, err
		}
		return e.hopFromWGS84(tgt, pivot, eligible)
	default:
		return e.threeStepShift(src, tgt, lon, lat, h)
	}
}

// wgs84Stub is a synthetic WGS84 datum record used as the pivot endpoint
// of a single hop, without a library round-trip.
var wgs84Stub = datum.Datum{Type: datum.WGS84, Code: "WGE", EllipsoidCode: "WE"}

// mixedShift handles the "exactly one of source/target is sevenParam"
// case of §4.3: the sevenParam side always hops through WGS84 via the
// full geocentric (3-step) shift; the other side hops via Molodensky when
// eligible, falling back to 3-step otherwise.
func (e *Engine) mixedShift(src, tgt datum.Datum, srcSeven bool, lon, lat, h float64, eligible bool) (Result, error) {
	if srcSeven {
		pivot, err := e.hopToWGS84(src, lon, lat, h)
		if err != nil {
			return Result{}, err
		}
		return e.hopFromWGS84(tgt, pivot, eligible)
	}
	pivot, err := e.hopToWGS84Eligible(src, lon, lat, h, eligible)
	if err != nil {
		return Result{}, err
	}
	return e.hopFromWGS84(tgt, pivot, true)
}

func (e *Engine) hopToWGS84(src datum.Datum, lon, lat, h float64) (Result, error) {
	return e.threeStepShift(src, wgs84Stub, lon, lat, h)
}

func (e *Engine) hopToWGS84Eligible(src datum.Datum, lon, lat, h float64, eligible bool) (Result, error) {
	if eligible {
		return e.molodenskyShift(src, wgs84Stub, lon, lat, h)
	}
	return e.threeStepShift(src, wgs84Stub, lon, lat, h)
}

func (e *Engine) hopFromWGS84(tgt datum.Datum, pivot Result, eligible bool) (Result, error) {
	var out Result
	var err error
	if tgt.Type == datum.SevenParam {
		out, err = e.threeStepShift(wgs84Stub, tgt, pivot.Lon, pivot.Lat, pivot.Height)
	} else if eligible {
		out, err = e.molodenskyShift(wgs84Stub, tgt, pivot.Lon, pivot.Lat, pivot.Height)
	} else {
		out, err = e.threeStepShift(wgs84Stub, tgt, pivot.Lon, pivot.Lat, pivot.Height)
	}
	if err != nil {
		return Result{}, err
	}
	out.Shift = accuracy.Combine(pivot.Shift, out.Shift)
	return out, nil
}

func (e *Engine) molodenskyShift(src, tgt datum.Datum, lon, lat, h float64) (Result, error) {
	aSrc, fSrc, err := e.ellipsoidParams(src)
	if err != nil {
		return Result{}, err
	}
	aTgt, fTgt, err := e.ellipsoidParams(tgt)
	if err != nil {
		return Result{}, err
	}

	srcDX, srcDY, srcDZ := geocentricTranslation(src)
	tgtDX, tgtDY, tgtDZ := geocentricTranslation(tgt)
	dx, dy, dz := srcDX-tgtDX, srcDY-tgtDY, srcDZ-tgtDZ

	lon2, lat2, h2 := molodensky(aSrc, fSrc, aTgt, fTgt, dx, dy, dz, lon, lat, h)

	shiftAcc := accuracy.ZeroContribution
	if src.Type == datum.ThreeParam {
		shiftAcc = accuracy.Combine(shiftAcc, accuracy.ThreeParamShiftAccuracy(src.SigmaX, src.SigmaY, src.SigmaZ, lon, lat))
	}
	if tgt.Type == datum.ThreeParam {
		shiftAcc = accuracy.Combine(shiftAcc, accuracy.ThreeParamShiftAccuracy(tgt.SigmaX, tgt.SigmaY, tgt.SigmaZ, lon2, lat2))
	}

	return Result{Lon: lon2, Lat: lat2, Height: h2, Shift: shiftAcc}, nil
}

func (e *Engine) threeStepShift(src, tgt datum.Datum, lon, lat, h float64) (Result, error) {
	aSrc, fSrc, err := e.ellipsoidParams(src)
	if err != nil {
		return Result{}, err
	}
	aTgt, fTgt, err := e.ellipsoidParams(tgt)
	if err != nil {
		return Result{}, err
	}
	eSrc2 := 2*fSrc - fSrc*fSrc
	eTgt2 := 2*fTgt - fTgt*fTgt

	x, y, z := geodeticToGeocentric(aSrc, eSrc2, lon, lat, h)
	wx, wy, wz, err := ToWGS84Geocentric(src, x, y, z)
	if err != nil {
		return Result{}, err
	}
	tx, ty, tz, err := FromWGS84Geocentric(tgt, wx, wy, wz)
	if err != nil {
		return Result{}, err
	}
	lon2, lat2, h2 := geocentricToGeodetic(aTgt, fTgt, eTgt2, tx, ty, tz)
	lon2 = normalizeLonTarget(lon2)

	shiftAcc := accuracy.ZeroContribution
	if src.Type == datum.ThreeParam {
		shiftAcc = accuracy.Combine(shiftAcc, accuracy.ThreeParamShiftAccuracy(src.SigmaX, src.SigmaY, src.SigmaZ, lon, lat))
	}
	if tgt.Type == datum.ThreeParam {
		shiftAcc = accuracy.Combine(shiftAcc, accuracy.ThreeParamShiftAccuracy(tgt.SigmaX, tgt.SigmaY, tgt.SigmaZ, lon2, lat2))
	}

	return Result{Lon: lon2, Lat: lat2, Height: h2, Shift: shiftAcc}, nil
}
