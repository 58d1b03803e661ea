package projection

import (
	"math"
	"testing"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgs84A = 6378137.0
const wgs84F = 1.0 / 298.257223563

func zone31() (*TransverseMercator, error) {
	return NewTransverseMercator(wgs84A, wgs84F, 3*math.Pi/180, 0, 500000, 0, 0.9996)
}

func TestEquatorOriginUTM(t *testing.T) {
	tm, err := zone31()
	require.NoError(t, err)

	out, err := tm.ConvertFromGeodetic(coord.NewGeodetic(0, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 166021.4, out.Easting, 0.2)
	assert.InDelta(t, 0.0, out.Northing, 0.2)
}

func TestTransverseMercatorRoundTrip(t *testing.T) {
	tm, err := zone31()
	require.NoError(t, err)

	lon := 1.5 * math.Pi / 180
	lat := 45.0 * math.Pi / 180
	proj, err := tm.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0))
	require.NoError(t, err)

	back, err := tm.ConvertToGeodetic(proj)
	require.NoError(t, err)
	assert.InDelta(t, lon, back.Lon, 1e-9)
	assert.InDelta(t, lat, back.Lat, 1e-9)
}

func TestRejectsBadFlattening(t *testing.T) {
	_, err := NewTransverseMercator(wgs84A, 1.0/100.0, 0, 0, 0, 0, 1)
	assert.Error(t, err)
}
