package accuracy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMeters(t *testing.T) {
	cases := map[Precision]float64{
		Degree:               1e5,
		TenMinute:            1e4,
		Minute:               1e3,
		TenSecond:            1e2,
		Second:               10,
		TenthSecond:          1,
		HundredthSecond:      0.1,
		ThousandthSecond:     0.01,
		TenThousandthSecond:  0.001,
	}
	for p, want := range cases {
		assert.InDelta(t, want, p.ToMeters(), 1e-12)
	}
}

func TestCombinePropagatesUnknown(t *testing.T) {
	a := Accuracy{CE90: 3, LE90: 4, SE90: 5}
	b := Accuracy{CE90: Unknown, LE90: 4, SE90: 5}
	got := Combine(a, b)
	assert.Equal(t, Unknown, got.CE90)
	assert.InDelta(t, math.Hypot(4, 4), got.LE90, 1e-9)
}

func TestFloorAtOneMeter(t *testing.T) {
	got := FloorAtOneMeter(Accuracy{CE90: 0.2, LE90: Unknown, SE90: 5})
	assert.InDelta(t, 1.0, got.CE90, 1e-9)
	assert.Equal(t, Unknown, got.LE90)
	assert.InDelta(t, 5.0, got.SE90, 1e-9)
}

func TestThreeParamShiftAccuracyUnknown(t *testing.T) {
	got := ThreeParamShiftAccuracy(-1, 5, 5, 0, 0)
	assert.Equal(t, Unknown, got.CE90)
	assert.Equal(t, Unknown, got.LE90)
	assert.Equal(t, Unknown, got.SE90)
}

func TestThreeParamShiftAccuracyAtEquator(t *testing.T) {
	got := ThreeParamShiftAccuracy(5, 5, 5, 0, 0)
	assert.InDelta(t, 15.0, got.SE90*3/2.5003, 1e-9)
}
