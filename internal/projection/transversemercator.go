package projection

import (
	"math"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/mspgeo/geotrans/internal/xerr"
)

// nTerms is the number of trig-series terms summed from the 8-element
// Transverse Mercator coefficient arrays (Rollins 2006).
const nTerms = 6

// TransverseMercator converts between geodetic and Transverse Mercator
// projected coordinates using the Rollins (2006) trig-series algorithm.
// Grounded on tzneal-coordconv's TransverseMercator, generalized-ellipsoid
// branch only: the per-ellipsoid-code precomputed coefficient tables in
// that file are a caching optimization over the same general formula and
// are not reproduced here (see DESIGN.md).
type TransverseMercator struct {
	a float64 // semi-major axis
	f float64 // flattening

	eps float64 // first eccentricity

	k0R4    float64
	k0R4Inv float64

	aCoeff [8]float64
	bCoeff [8]float64

	originLat, originLon            float64
	falseEasting, falseNorthing     float64
	scaleFactor                     float64
	deltaEasting, deltaNorthing     float64
}

// NewTransverseMercator constructs a TransverseMercator module, validating
// axes, flattening, and parameter ranges per §4.4.
func NewTransverseMercator(a, f, centralMeridian, originLat, falseEasting, falseNorthing, scaleFactor float64) (*TransverseMercator, error) {
	if a <= 0 {
		return nil, xerr.New(xerr.SemiMajorAxis, "semi-major axis must be > 0")
	}
	invF := 1 / f
	if invF < 150 {
		return nil, xerr.New(xerr.EllipsoidFlattening, "inverse flattening out of range")
	}
	if originLat < -math.Pi/2 || originLat > math.Pi/2 {
		return nil, xerr.New(xerr.Latitude, "latitude of true scale out of range")
	}
	if centralMeridian < -math.Pi || centralMeridian > 2*math.Pi {
		return nil, xerr.New(xerr.Longitude, "central meridian out of range")
	}
	if scaleFactor < 0.1 || scaleFactor > 10.0 {
		return nil, xerr.New(xerr.ScaleFactor, "scale factor out of range")
	}

	t := &TransverseMercator{
		a: a, f: f,
		originLon: centralMeridian, originLat: originLat,
		falseEasting: falseEasting, falseNorthing: falseNorthing,
		scaleFactor:   scaleFactor,
		deltaEasting:  20000000.0,
		deltaNorthing: 10000000.0,
	}
	if t.originLon > math.Pi {
		t.originLon -= 2 * math.Pi
	}

	t.eps = math.Sqrt(2*f - f*f)
	n, r4oa := t.generateCoefficients()
	_ = n
	t.k0R4 = r4oa * scaleFactor * a
	t.k0R4Inv = 1 / t.k0R4
	return t, nil
}

// generateCoefficients computes Helmert's n, the trig-series coefficients
// for the general (non-table-cached) ellipsoid case, and R4/a.
func (t *TransverseMercator) generateCoefficients() (n1, r4oa float64) {
	invF := 1 / t.f
	n1 = 1.0 / (2*invF - 1.0)

	n2 := n1 * n1
	n3 := n2 * n1
	n4 := n3 * n1
	n5 := n4 * n1
	n6 := n5 * n1
	n7 := n6 * n1
	n8 := n7 * n1
	n9 := n8 * n1
	n10 := n9 * n1

	t.aCoeff[0] = (-18975107.0)*n8/50803200.0 + (72161.0)*n7/387072.0 + (7891.0)*n6/37800.0 +
		(-127.0)*n5/288.0 + (41.0)*n4/180.0 + (5.0)*n3/16.0 + (-2.0)*n2/3.0 + n1/2.0
	t.aCoeff[1] = (148003883.0)*n8/174182400.0 + (13769.0)*n7/28800.0 + (-1983433.0)*n6/1935360.0 +
		(281.0)*n5/630.0 + (557.0)*n4/1440.0 + (-3.0)*n3/5.0 + (13.0)*n2/48.0
	t.aCoeff[2] = (79682431.0)*n8/79833600.0 + (-67102379.0)*n7/29030400.0 + (167603.0)*n6/181440.0 +
		(15061.0)*n5/26880.0 + (-103.0)*n4/140.0 + (61.0)*n3/240.0
	t.aCoeff[3] = (-40176129013.0)*n8/7664025600.0 + (97445.0)*n7/49896.0 + (6601661.0)*n6/7257600.0 +
		(-179.0)*n5/168.0 + (49561.0)*n4/161280.0
	t.aCoeff[4] = (2605413599.0)*n8/622702080.0 + (14644087.0)*n7/9123840.0 + (-3418889.0)*n6/1995840.0 +
		(34729.0)*n5/80640.0
	t.aCoeff[5] = (175214326799.0)*n8/58118860800.0 + (-30705481.0)*n7/10378368.0 + (212378941.0)*n6/319334400.0
	t.aCoeff[6] = (-16759934899.0)*n8/3113510400.0 + (1522256789.0)*n7/1383782400.0
	t.aCoeff[7] = (1424729850961.0) * n8 / 743921418240.0

	t.bCoeff[0] = (-7944359.0)*n8/67737600.0 + (5406467.0)*n7/38707200.0 + (-96199.0)*n6/604800.0 +
		(81.0)*n5/512.0 + n4/360.0 + (-37.0)*n3/96.0 + (2.0)*n2/3.0 - n1/2.0
	t.bCoeff[1] = (-24749483.0)*n8/348364800.0 + (-51841.0)*n7/1209600.0 + (1118711.0)*n6/3870720.0 +
		(-46.0)*n5/105.0 + (437.0)*n4/1440.0 + (-1.0)*n3/15.0 + (-1.0)*n2/48.0
	t.bCoeff[2] = (6457463.0)*n8/17740800.0 + (-9261899.0)*n7/58060800.0 + (-5569.0)*n6/90720.0 +
		(209.0)*n5/4480.0 + (37.0)*n4/840.0 + (-17.0)*n3/480.0
	t.bCoeff[3] = (-324154477.0)*n8/7664025600.0 + (-466511.0)*n7/2494800.0 + (830251.0)*n6/7257600.0 +
		(11.0)*n5/504.0 + (-4397.0)*n4/161280.0
	t.bCoeff[4] = (-22894433.0)*n8/124540416.0 + (8005831.0)*n7/63866880.0 + (108847.0)*n6/3991680.0 +
		(-4583.0)*n5/161280.0
	t.bCoeff[5] = (2204645983.0)*n8/12915302400.0 + (16363163.0)*n7/518918400.0 + (-20648693.0)*n6/638668800.0
	t.bCoeff[6] = (497323811.0)*n8/12454041600.0 + (-219941297.0)*n7/5535129600.0
	t.bCoeff[7] = (-191773887257.0) * n8 / 3719607091200.0

	r4oa = (1 + 49*n10/65536.0 + 25*n8/16384.0 + n6/256.0 + n4/64.0 + n2/4) / (1 + n1)
	return n1, r4oa
}

func aTanH(x float64) float64 { return 0.5 * math.Log((1+x)/(1-x)) }

func computeHyperbolicSeries(twoX float64) (c2kx, s2kx [8]float64) {
	c2kx[0] = math.Cosh(twoX)
	s2kx[0] = math.Sinh(twoX)
	c2kx[1] = 2.0*c2kx[0]*c2kx[0] - 1.0
	s2kx[1] = 2.0 * c2kx[0] * s2kx[0]
	c2kx[2] = c2kx[0]*c2kx[1] + s2kx[0]*s2kx[1]
	s2kx[2] = c2kx[1]*s2kx[0] + c2kx[0]*s2kx[1]
	c2kx[3] = 2.0*c2kx[1]*c2kx[1] - 1.0
	s2kx[3] = 2.0 * c2kx[1] * s2kx[1]
	c2kx[4] = c2kx[0]*c2kx[3] + s2kx[0]*s2kx[3]
	s2kx[4] = c2kx[3]*s2kx[0] + c2kx[0]*s2kx[3]
	c2kx[5] = 2.0*c2kx[2]*c2kx[2] - 1.0
	s2kx[5] = 2.0 * c2kx[2] * s2kx[2]
	c2kx[6] = c2kx[0]*c2kx[5] + s2kx[0]*s2kx[5]
	s2kx[6] = c2kx[5]*s2kx[0] + c2kx[0]*s2kx[5]
	c2kx[7] = 2.0*c2kx[3]*c2kx[3] - 1.0
	s2kx[7] = 2.0 * c2kx[3] * s2kx[3]
	return
}

func computeTrigSeries(twoY float64) (c2ky, s2ky [8]float64) {
	c2ky[0] = math.Cos(twoY)
	s2ky[0] = math.Sin(twoY)
	c2ky[1] = 2.0*c2ky[0]*c2ky[0] - 1.0
	s2ky[1] = 2.0 * c2ky[0] * s2ky[0]
	c2ky[2] = c2ky[1]*c2ky[0] - s2ky[1]*s2ky[0]
	s2ky[2] = c2ky[1]*s2ky[0] + c2ky[0]*s2ky[1]
	c2ky[3] = 2.0*c2ky[1]*c2ky[1] - 1.0
	s2ky[3] = 2.0 * c2ky[1] * s2ky[1]
	c2ky[4] = c2ky[3]*c2ky[0] - s2ky[3]*s2ky[0]
	s2ky[4] = c2ky[3]*s2ky[0] + c2ky[0]*s2ky[3]
	c2ky[5] = 2.0*c2ky[2]*c2ky[2] - 1.0
	s2ky[5] = 2.0 * c2ky[2] * s2ky[2]
	c2ky[6] = c2ky[5]*c2ky[0] - s2ky[5]*s2ky[0]
	s2ky[6] = c2ky[5]*s2ky[0] + c2ky[0]*s2ky[5]
	c2ky[7] = 2.0*c2ky[3]*c2ky[3] - 1.0
	s2ky[7] = 2.0 * c2ky[3] * s2ky[3]
	return
}

func (t *TransverseMercator) checkLatLon(latitude, deltaLon float64) error {
	if deltaLon > math.Pi {
		deltaLon -= 2 * math.Pi
	}
	if deltaLon < -math.Pi {
		deltaLon += 2 * math.Pi
	}

	testAngle := math.Abs(deltaLon)
	if d := math.Abs(deltaLon - math.Pi); d < testAngle {
		testAngle = d
	}
	if d := math.Abs(deltaLon + math.Pi); d < testAngle {
		testAngle = d
	}
	if d := math.Pi/2 - latitude; d < testAngle {
		testAngle = d
	}
	if d := math.Pi/2 + latitude; d < testAngle {
		testAngle = d
	}

	const maxDeltaLong = math.Pi * 70 / 180.0
	if testAngle > maxDeltaLong {
		return xerr.New(xerr.Longitude, "longitude out of range for projection")
	}
	return nil
}

func (t *TransverseMercator) latLonToNorthingEasting(latitude, longitude float64) (northing, easting float64, err error) {
	lambda := longitude - t.originLon
	if lambda > math.Pi {
		lambda -= 2 * math.Pi
	}
	if lambda < -math.Pi {
		lambda += 2 * math.Pi
	}
	if err := t.checkLatLon(latitude, lambda); err != nil {
		return 0, 0, err
	}

	cosLam, sinLam := math.Cos(lambda), math.Sin(lambda)
	cosPhi, sinPhi := math.Cos(latitude), math.Sin(latitude)

	p := math.Exp(t.eps * aTanH(t.eps*sinPhi))
	part1 := (1 + sinPhi) / p
	part2 := (1 - sinPhi) * p
	denom := part1 + part2
	cosChi := 2 * cosPhi / denom
	sinChi := (part1 - part2) / denom

	u := aTanH(cosChi * sinLam)
	v := math.Atan2(sinChi, cosChi*cosLam)

	c2ku, s2ku := computeHyperbolicSeries(2.0 * u)
	c2kv, s2kv := computeTrigSeries(2.0 * v)

	xStar, yStar := 0.0, 0.0
	for k := nTerms - 1; k >= 0; k-- {
		xStar += t.aCoeff[k] * s2ku[k] * c2kv[k]
		yStar += t.aCoeff[k] * c2ku[k] * s2kv[k]
	}
	xStar += u
	yStar += v

	easting = t.k0R4 * xStar
	northing = t.k0R4 * yStar
	return
}

func geodeticLatFromConformal(sinChi, e float64) float64 {
	sOld := 1.0e99
	s := sinChi
	onePlus := 1.0 + sinChi
	oneMinus := 1.0 - sinChi

	for n := 0; n < 30; n++ {
		p := math.Exp(e * aTanH(e*s))
		pSq := p * p
		s = (onePlus*pSq - oneMinus) / (onePlus*pSq + oneMinus)
		if math.Abs(s-sOld) < 1.0e-12 {
			break
		}
		sOld = s
	}
	return math.Asin(s)
}

func (t *TransverseMercator) northingEastingToLatLon(northing, easting float64) (latitude, longitude float64) {
	xStar := t.k0R4Inv * easting
	yStar := t.k0R4Inv * northing

	c2kx, s2kx := computeHyperbolicSeries(2.0 * xStar)
	c2ky, s2ky := computeTrigSeries(2.0 * yStar)

	u, v := 0.0, 0.0
	for k := nTerms - 1; k >= 0; k-- {
		u += t.bCoeff[k] * s2kx[k] * c2ky[k]
		v += t.bCoeff[k] * c2kx[k] * s2ky[k]
	}
	u += xStar
	v += yStar

	coshU, sinhU := math.Cosh(u), math.Sinh(u)
	cosV, sinV := math.Cos(v), math.Sin(v)

	lambda := 0.0
	if math.Abs(cosV) >= 1e-11 || math.Abs(coshU) >= 1e-11 {
		lambda = math.Atan2(sinhU, cosV)
	}

	sinChi := sinV / coshU
	latitude = geodeticLatFromConformal(sinChi, t.eps)
	longitude = t.originLon + lambda
	return
}

// ConvertFromGeodetic projects geo into Transverse Mercator easting/northing.
func (t *TransverseMercator) ConvertFromGeodetic(geo coord.Tuple) (coord.Tuple, error) {
	lon, lat := geo.Lon, geo.Lat
	if lon > math.Pi {
		lon -= 2 * math.Pi
	}
	if lon < -math.Pi {
		lon += 2 * math.Pi
	}

	lambda := lon - t.originLon
	if lambda > math.Pi {
		lambda -= 2 * math.Pi
	}
	if lambda < -math.Pi {
		lambda += 2 * math.Pi
	}
	if err := t.checkLatLon(lat, lambda); err != nil {
		return coord.Tuple{}, err
	}

	northing, easting, err := t.latLonToNorthingEasting(lat, lon)
	if err != nil {
		return coord.Tuple{}, err
	}

	originNorthing, originEasting, err := t.latLonToNorthingEasting(t.originLat, t.originLon)
	if err != nil {
		return coord.Tuple{}, err
	}

	easting += t.falseEasting - originEasting
	northing += t.falseNorthing - originNorthing

	out := coord.Tuple{Kind: coord.MapProjection, Easting: easting, Northing: northing}
	if invF := 1 / t.f; invF < 290.0 || invF > 301.0 {
		out = out.WithWarning("eccentricity outside range the algorithm has been tested for")
	}
	return out, nil
}

// ConvertToGeodetic inverts a Transverse Mercator easting/northing to geodetic.
func (t *TransverseMercator) ConvertToGeodetic(proj coord.Tuple) (coord.Tuple, error) {
	easting, northing := proj.Easting, proj.Northing
	if easting < t.falseEasting-t.deltaEasting || easting > t.falseEasting+t.deltaEasting {
		return coord.Tuple{}, xerr.New(xerr.Easting, "easting out of range")
	}
	if northing < t.falseNorthing-t.deltaNorthing || northing > t.falseNorthing+t.deltaNorthing {
		return coord.Tuple{}, xerr.New(xerr.Northing, "northing out of range")
	}

	originNorthing, originEasting, err := t.latLonToNorthingEasting(t.originLat, t.originLon)
	if err != nil {
		return coord.Tuple{}, err
	}

	easting -= t.falseEasting - originEasting
	northing -= t.falseNorthing - originNorthing

	lat, lon := t.northingEastingToLatLon(northing, easting)

	if lon > math.Pi {
		lon -= 2 * math.Pi
	}
	if lon <= -math.Pi {
		lon += 2 * math.Pi
	}
	if math.Abs(lat) > math.Pi/2 {
		return coord.Tuple{}, xerr.New(xerr.Northing, "recovered latitude out of range")
	}

	out := coord.Tuple{Kind: coord.Geodetic, Lon: lon, Lat: lat}
	if invF := 1 / t.f; invF < 290.0 || invF > 301.0 {
		out = out.WithWarning("eccentricity outside range the algorithm has been tested for")
	}
	return out, nil
}
