// Package accuracy implements the 90% circular/linear/spherical error
// model and its propagation through conversion stages (§3, §4.3).
package accuracy

import "math"

// Unknown is the sentinel value for an unavailable accuracy component.
const Unknown = -1.0

// Accuracy holds 90% circular, linear, and spherical errors in metres.
// Unknown is represented by Unknown (-1).
type Accuracy struct {
	CE90, LE90, SE90 float64
}

// Precision is the rounding unit a coordinate was given to, from a whole
// degree down to a ten-thousandth of a second, per §3.
type Precision int

const (
	Degree Precision = iota
	TenMinute
	Minute
	TenSecond
	Second
	TenthSecond
	HundredthSecond
	ThousandthSecond
	TenThousandthSecond
)

var precisionMeters = [...]float64{1e5, 1e4, 1e3, 1e2, 10, 1, 0.1, 0.01, 0.001}

// ToMeters returns the rounding-unit size in metres for p.
func (p Precision) ToMeters() float64 {
	if p < 0 || int(p) >= len(precisionMeters) {
		return precisionMeters[len(precisionMeters)-1]
	}
	return precisionMeters[p]
}

const (
	circularScale  = 2.146
	linearScale    = 1.6449
	sphericalScale = 2.5003
)

func rss(values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// combineOne root-sum-squares a and b, propagating Unknown: if either
// input is negative the result is Unknown.
func combineOne(a, b float64) float64 {
	if a < 0 || b < 0 {
		return Unknown
	}
	return rss(a, b)
}

// Combine root-sum-squares two accuracies component-wise, propagating
// Unknown through each family independently.
func Combine(a, b Accuracy) Accuracy {
	return Accuracy{
		CE90: combineOne(a.CE90, b.CE90),
		LE90: combineOne(a.LE90, b.LE90),
		SE90: combineOne(a.SE90, b.SE90),
	}
}

// FloorAtOneMeter clamps every non-negative component up to at least 1m.
func FloorAtOneMeter(a Accuracy) Accuracy {
	clamp := func(v float64) float64 {
		if v < 0 {
			return v
		}
		if v < 1 {
			return 1
		}
		return v
	}
	return Accuracy{CE90: clamp(a.CE90), LE90: clamp(a.LE90), SE90: clamp(a.SE90)}
}

// RoundingSigma returns the three error-family contributions from
// rounding a coordinate to precision p: sigma = toMeters(p)/sqrt(12),
// scaled by each family's 90% factor.
func RoundingSigma(p Precision) Accuracy {
	sigma := p.ToMeters() / math.Sqrt(12)
	return Accuracy{
		CE90: circularScale * sigma,
		LE90: linearScale * sigma,
		SE90: sphericalScale * sigma,
	}
}

// InjectRounding combines a with the rounding-sigma contribution of p.
func InjectRounding(a Accuracy, p Precision) Accuracy {
	return Combine(a, RoundingSigma(p))
}

// ThreeParamShiftAccuracy computes the ce90/le90/se90 contribution of a
// 3-parameter datum shift at geodetic (lon, lat) radians, per §4.3's error
// propagation formulas. sigmaX/Y/Z of -1 ("unknown") make every component
// Unknown.
func ThreeParamShiftAccuracy(sigmaX, sigmaY, sigmaZ, lon, lat float64) Accuracy {
	if sigmaX < 0 || sigmaY < 0 || sigmaZ < 0 {
		return Accuracy{CE90: Unknown, LE90: Unknown, SE90: Unknown}
	}
	sinPhi, cosPhi := math.Sincos(lat)
	sinLam, cosLam := math.Sincos(lon)

	sigmaDPhi := rss(sigmaX*sinPhi*cosLam, sigmaY*sinPhi*sinLam, sigmaZ*cosPhi)
	sigmaDLam := rss(sigmaX*sinLam, sigmaY*cosLam)
	sigmaDH := rss(sigmaX*cosPhi*cosLam, sigmaY*cosPhi*sinLam, sigmaZ*sinPhi)

	return Accuracy{
		CE90: circularScale * (sigmaDPhi + sigmaDLam) / 2,
		LE90: linearScale * sigmaDH,
		SE90: sphericalScale * (sigmaX + sigmaY + sigmaZ) / 3,
	}
}

// ZeroContribution is the zero-valued (exact) accuracy contribution of
// WGS84, WGS72, and 7-parameter datum shifts, which carry no error term.
var ZeroContribution = Accuracy{CE90: 0, LE90: 0, SE90: 0}
