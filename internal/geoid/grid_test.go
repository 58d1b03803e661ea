package geoid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func smallGrid() *grid {
	// 4x4 grid, 1-degree spacing, values = row*10+col for easy corner checks.
	data := make([]float64, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			data[r*4+c] = float64(r*10 + c)
		}
	}
	return &grid{
		minLon: 0,
		maxLat: 3 * math.Pi / 180,
		dLon:   math.Pi / 180,
		dLat:   math.Pi / 180,
		rows:   4,
		cols:   4,
		data:   data,
	}
}

func TestBilinearInterpolateAtPost(t *testing.T) {
	g := smallGrid()
	v := g.bilinearInterpolate(1*math.Pi/180, 1*math.Pi/180) // col=1, row=2
	assert.InDelta(t, 21.0, v, 1e-9)
}

func TestBilinearInterpolateMidpoint(t *testing.T) {
	g := smallGrid()
	// midway between (row2,col1)=21 and (row2,col2)=22 at the same row: 21.5
	v := g.bilinearInterpolate(1.5*math.Pi/180, 1*math.Pi/180)
	assert.InDelta(t, 21.5, v, 1e-9)
}

func TestBilinearInterpolateClampsAtEdge(t *testing.T) {
	g := smallGrid()
	// beyond the last row/column should clamp to the last post's exact
	// value rather than extrapolate or index out of range.
	v := g.bilinearInterpolate(10*math.Pi/180, -10*math.Pi/180)
	assert.InDelta(t, 33.0, v, 1e-9)
}

func TestWrapLongitude(t *testing.T) {
	assert.InDelta(t, 350*math.Pi/180, wrapLongitude(-10*math.Pi/180), 1e-9)
	assert.InDelta(t, 10*math.Pi/180, wrapLongitude(10*math.Pi/180), 1e-9)
}

func TestWrapSigned(t *testing.T) {
	assert.InDelta(t, -10*math.Pi/180, wrapSigned(350*math.Pi/180), 1e-9)
	assert.InDelta(t, 10*math.Pi/180, wrapSigned(10*math.Pi/180), 1e-9)
}

func TestCubicSpline1DLinearDataStaysLinear(t *testing.T) {
	y := []float64{0, 1, 2, 3, 4}
	for _, tt := range []float64{0, 0.5, 1.5, 2.25, 3.9} {
		assert.InDelta(t, tt, cubicSpline1D(y, tt), 1e-9)
	}
}

func TestCubicSpline1DAtKnotsMatchesSamples(t *testing.T) {
	y := []float64{2, 5, -1, 7, 3}
	for i, v := range y {
		assert.InDelta(t, v, cubicSpline1D(y, float64(i)), 1e-9)
	}
}

func TestNaturalSplineSkipFactorReachesCoarserPosts(t *testing.T) {
	// 5x5 grid so skip=2 reaches a 3x3 sub-grid of posts.
	data := make([]float64, 25)
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			data[r*5+c] = float64(r*10 + c)
		}
	}
	g := &grid{minLon: 0, maxLat: 4 * math.Pi / 180, dLon: math.Pi / 180, dLat: math.Pi / 180, rows: 5, cols: 5, data: data}
	// skip=2 cell spacing is 2 degrees; querying exactly post (1,1) in the
	// sub-grid (= grid post row2,col2 = 22) should return that post's value.
	v := g.naturalSpline(2, 2*math.Pi/180, 2*math.Pi/180)
	assert.InDelta(t, 22.0, v, 1e-9)
}

func TestBicubicSplineFallsBackBelowWindowThree(t *testing.T) {
	g := smallGrid()
	v := bicubicSpline(g, 1*math.Pi/180, 1*math.Pi/180, 2)
	assert.InDelta(t, g.bilinearInterpolate(1*math.Pi/180, 1*math.Pi/180), v, 1e-9)
}

func TestBicubicSplineAtKnotMatchesSample(t *testing.T) {
	// 8x8 grid, smooth quadratic surface, so a 6x6 spline should reproduce
	// the sample exactly at a post well inside the grid.
	n := 8
	data := make([]float64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			data[r*n+c] = float64(r*r + c*c)
		}
	}
	g := &grid{minLon: 0, maxLat: float64(n-1) * math.Pi / 180, dLon: math.Pi / 180, dLat: math.Pi / 180, rows: n, cols: n, data: data}
	v := bicubicSpline(g, 3*math.Pi/180, 3*math.Pi/180, 6)
	// lat 3deg is row 4 (maxLat is 7deg), lon 3deg is column 3.
	assert.InDelta(t, float64(4*4+3*3), v, 1e-6)
}

func TestWindowStartClampsToGridBounds(t *testing.T) {
	start, local, ok := windowStart(0.2, 6, 8)
	assert.True(t, ok)
	assert.Equal(t, 0, start)
	assert.InDelta(t, 0.2, local, 1e-9)

	start, _, ok = windowStart(7.8, 6, 8)
	assert.True(t, ok)
	assert.LessOrEqual(t, start+6, 8)
}

func TestAOIColRadiusGrowsTowardPole(t *testing.T) {
	dLon := 2.5 / 60 * math.Pi / 180
	equator := aoiColRadius(dLon, 0)
	highLat := aoiColRadius(dLon, 80*math.Pi/180)
	assert.Greater(t, highLat, equator)
}
