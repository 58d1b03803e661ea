// Package geoid implements the EGM96/EGM84/EGM2008 geoid-height
// interpolators that convert between ellipsoid height and geoid-referenced
// (orthometric) height (spec.md §4.7). Grounded on
// original_source/geotrans3.7's GeoidLibrary.cpp: the same grid layout
// (north-to-south, northwest-origin posts), the same bilinear and
// natural-spline interpolation arithmetic, and the same FULL/AOI loading
// split for EGM2008.
package geoid

import (
	"encoding/binary"
	"io"
	"math"
)

// grid is an in-memory geoid-height array: rows run north to south (row 0
// is the grid's north edge), columns run west to east from minLon.
type grid struct {
	minLon, maxLat float64 // radians; the grid's northwest corner
	dLon, dLat     float64 // radians, cell spacing
	rows, cols     int
	data           []float64 // row-major, len == rows*cols
}

func readFloat32Grid(r io.Reader, rows, cols int) ([]float64, error) {
	raw := make([]float32, rows*cols)
	if err := binary.Read(r, binary.BigEndian, raw); err != nil {
		return nil, err
	}
	data := make([]float64, len(raw))
	for i, v := range raw {
		data[i] = float64(v)
	}
	return data, nil
}

func readFloat64Grid(r io.Reader, rows, cols int) ([]float64, error) {
	data := make([]float64, rows*cols)
	if err := binary.Read(r, binary.BigEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

// wrapLongitude brings lon (radians, any convention) into [0, 2pi), the
// convention every geoid grid file is stored in.
func wrapLongitude(lon float64) float64 {
	const twoPi = 2 * math.Pi
	lon = math.Mod(lon, twoPi)
	if lon < 0 {
		lon += twoPi
	}
	return lon
}

// clampOffset confines offset to [0, size-1] and splits it into a post
// index (with post+1 guaranteed in range) and a fractional part in [0,1],
// mirroring bilinearInterpolate's edge handling when an offset lands on or
// past the grid's last row/column. The fractional part is always derived
// from the clamped offset, never the original one, so a query exactly at
// or beyond the last post resolves to that post (weight 1), not to
// whatever lies one cell further in.
func clampOffset(offset float64, size int) (post int, next int, frac float64) {
	if offset < 0 {
		offset = 0
	}
	if offset > float64(size-1) {
		offset = float64(size - 1)
	}
	post = int(math.Floor(offset))
	if post >= size-1 {
		post = size - 2
	}
	if post < 0 {
		post = 0
	}
	return post, post + 1, offset - float64(post)
}

// bilinearInterpolate implements GeoidLibrary.cpp's bilinearInterpolate /
// bilinearInterpolateDoubleHeights: a four-post lookup assuming (0,0) is
// the grid's northwest corner.
func (g *grid) bilinearInterpolate(lon, lat float64) float64 {
	offsetX := (lon - g.minLon) / g.dLon
	offsetY := (g.maxLat - lat) / g.dLat

	postX, nextX, dx := clampOffset(offsetX, g.cols)
	postY, nextY, dy := clampOffset(offsetY, g.rows)

	nw := g.data[postY*g.cols+postX]
	ne := g.data[postY*g.cols+nextX]
	sw := g.data[nextY*g.cols+postX]
	se := g.data[nextY*g.cols+nextX]

	return nw*(1-dx)*(1-dy) + ne*dx*(1-dy) + sw*(1-dx)*dy + se*dx*dy
}

// hermite returns the pair of Hermite smoothstep blending weights
// h00(t) = 1-3t^2+2t^3, h01(t) = 3t^2-2t^3 that naturalSpline's corners are
// blended with (spec.md §4.7's "(1-3x^2+2x^3) etc.").
func hermite(t float64) (h0, h1 float64) {
	t2 := t * t
	t3 := t2 * t
	return 1 - 3*t2 + 2*t3, 3*t2 - 2*t3
}

// naturalSpline implements GeoidLibrary.cpp's naturalSplineInterpolate: a
// 2x2-neighbourhood Hermite-blended interpolation reached with stride skip
// into a shared, finer-resolution backing grid (skip=1 at native
// resolution; 2/4/8 for the EGM96 variable grid's 30'/1deg/2deg cases,
// all sub-sampled from the same 15' array rather than stored separately).
func (g *grid) naturalSpline(skip int, lon, lat float64) float64 {
	cellLon := g.dLon * float64(skip)
	cellLat := g.dLat * float64(skip)

	offsetX := (lon - g.minLon) / cellLon
	offsetY := (g.maxLat - lat) / cellLat

	maxX := (g.cols - 1) / skip
	maxY := (g.rows - 1) / skip
	postX, nextX, dx := clampOffset(offsetX, maxX+1)
	postY, nextY, dy := clampOffset(offsetY, maxY+1)

	at := func(col, row int) float64 { return g.data[(row*skip)*g.cols+(col*skip)] }

	wx0, wx1 := hermite(dx)
	wy0, wy1 := hermite(dy)

	return at(postX, postY)*wx0*wy0 +
		at(nextX, postY)*wx1*wy0 +
		at(postX, nextY)*wx0*wy1 +
		at(nextX, nextY)*wx1*wy1
}

// windowStart picks the starting index and fractional offset of a
// windowSize-wide interpolation window around offset, clamped to
// [0, maxIndex). Odd windows centre the post closest to offset; even
// windows centre the cell containing offset, per spec.md §4.7's "odd
// windows centre the post, even windows centre the cell" rule, fixed per
// call so the same query is always handled the same way.
func windowStart(offset float64, windowSize, maxIndex int) (start int, local float64, ok bool) {
	if maxIndex < windowSize {
		return 0, 0, false
	}
	var center int
	if windowSize%2 == 1 {
		center = int(math.Round(offset))
		start = center - windowSize/2
	} else {
		center = int(math.Floor(offset))
		start = center - (windowSize/2 - 1)
	}
	if start < 0 {
		start = 0
	}
	if start > maxIndex-windowSize {
		start = maxIndex - windowSize
	}
	return start, offset - float64(start), true
}

// splineMoments solves the natural cubic spline's second-derivative
// moments for unit-spaced samples y, via the tridiagonal system spec.md
// §4.7 describes as diag(2)+0.5*offDiag with right-hand side
// 3*(y[i+1]-2y[i]+y[i-1]) — that system is exactly half of the textbook
// natural-spline system (diag 4, offDiag 1, rhs 6*(...)), so solving it
// and solving the textbook system give identical moments; this solves the
// textbook form directly via the Thomas algorithm. Natural boundary
// condition: m[0] = m[n-1] = 0.
func splineMoments(y []float64) []float64 {
	n := len(y)
	m := make([]float64, n)
	if n < 3 {
		return m
	}
	k := n - 2 // interior unknowns m[1]..m[n-2]
	rhs := make([]float64, k)
	for i := 0; i < k; i++ {
		rhs[i] = 6 * (y[i+2] - 2*y[i+1] + y[i])
	}

	cp := make([]float64, k)
	dp := make([]float64, k)
	cp[0] = 1.0 / 4.0
	dp[0] = rhs[0] / 4.0
	for i := 1; i < k; i++ {
		denom := 4 - cp[i-1]
		cp[i] = 1 / denom
		dp[i] = (rhs[i] - dp[i-1]) / denom
	}

	x := make([]float64, k)
	x[k-1] = dp[k-1]
	for i := k - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}
	copy(m[1:], x)
	return m
}

// cubicSpline1D evaluates the natural cubic spline through unit-spaced
// samples y at fractional position t.
func cubicSpline1D(y []float64, t float64) float64 {
	n := len(y)
	if n == 1 {
		return y[0]
	}
	if n == 2 {
		return y[0] + t*(y[1]-y[0])
	}
	m := splineMoments(y)
	i := int(math.Floor(t))
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	tt := t - float64(i)
	oneMinus := 1 - tt
	return m[i]*oneMinus*oneMinus*oneMinus/6 +
		m[i+1]*tt*tt*tt/6 +
		(y[i]-m[i]/6)*oneMinus +
		(y[i+1]-m[i+1]/6)*tt
}

// bicubicSpline implements spec.md §4.7's windowed bicubic spline: a
// per-row spline across longitude produces one synthetic value per row,
// then a spline down that column of synthetic values in latitude produces
// the result. Falls back to plain bilinear interpolation when windowSize
// is too small to spline (< 3) or the grid is smaller than the window.
func bicubicSpline(g *grid, lon, lat float64, windowSize int) float64 {
	if windowSize < 3 {
		return g.bilinearInterpolate(lon, lat)
	}
	offsetX := (lon - g.minLon) / g.dLon
	offsetY := (g.maxLat - lat) / g.dLat

	startX, localX, ok := windowStart(offsetX, windowSize, g.cols)
	if !ok {
		return g.bilinearInterpolate(lon, lat)
	}
	startY, localY, ok := windowStart(offsetY, windowSize, g.rows)
	if !ok {
		return g.bilinearInterpolate(lon, lat)
	}

	column := make([]float64, windowSize)
	row := make([]float64, windowSize)
	for r := 0; r < windowSize; r++ {
		for c := 0; c < windowSize; c++ {
			row[c] = g.data[(startY+r)*g.cols+(startX+c)]
		}
		column[r] = cubicSpline1D(row, localX)
	}
	return cubicSpline1D(column, localY)
}
