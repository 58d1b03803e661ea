package geoid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRefCounting(t *testing.T) {
	l1, err := Acquire("/tmp/does-not-matter")
	require.NoError(t, err)
	l2, err := Acquire("/tmp/does-not-matter")
	require.NoError(t, err)
	assert.Same(t, l1, l2)

	Release(l1)
	assert.Same(t, processLib, l2)
	Release(l2)
	assert.Nil(t, processLib)
}

func flatGrid(value float64) *grid {
	data := make([]float64, 9)
	for i := range data {
		data[i] = value
	}
	return &grid{minLon: 0, maxLat: 1 * math.Pi / 180, dLon: math.Pi / 180, dLat: math.Pi / 180, rows: 3, cols: 3, data: data}
}

func TestGeoidHeightDispatchesToLoadedModel(t *testing.T) {
	lib := &Library{egm96: &egm96Grid{g: flatGrid(12.5)}}
	n, err := lib.GeoidHeight(EGM96Bilinear, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, n, 1e-9)
}

func TestEllipsoidHeightToGeoidHeightSubtractsSeparation(t *testing.T) {
	lib := &Library{egm96: &egm96Grid{g: flatGrid(30.0)}}
	orthometric, err := lib.EllipsoidHeightToGeoidHeight(EGM96Bilinear, 0, 0, 100.0)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, orthometric, 1e-9)
}

func TestGeoidHeightToEllipsoidHeightAddsSeparation(t *testing.T) {
	lib := &Library{egm96: &egm96Grid{g: flatGrid(30.0)}}
	ellipsoid, err := lib.GeoidHeightToEllipsoidHeight(EGM96Bilinear, 0, 0, 70.0)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, ellipsoid, 1e-9)
}

func TestGeoidHeightRoundTripsThroughGeoidSeparation(t *testing.T) {
	lib := &Library{egm96: &egm96Grid{g: flatGrid(-8.0)}}
	orthometric, err := lib.EllipsoidHeightToGeoidHeight(EGM96Bilinear, 0, 0, 50.0)
	require.NoError(t, err)
	back, err := lib.GeoidHeightToEllipsoidHeight(EGM96Bilinear, 0, 0, orthometric)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, back, 1e-9)
}
