package utm

import (
	"math"
	"testing"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgs84A = 6378137.0
const wgs84F = 1.0 / 298.257223563

func TestEquatorZone31(t *testing.T) {
	c := New(wgs84A, wgs84F)
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(0, 0, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, 31, out.Zone)
	assert.Equal(t, coord.North, out.Hemisphere)
	assert.InDelta(t, 166021.4, out.Easting, 0.2)
	assert.InDelta(t, 0.0, out.Northing, 0.2)
}

func TestNorwaySpecialZone(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := 3.0 * math.Pi / 180
	lat := 56.0 * math.Pi / 180
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, 32, out.Zone)
	assert.Equal(t, coord.North, out.Hemisphere)
}

func TestSvalbardSpecialZone(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := 9.0 * math.Pi / 180
	lat := 72.0 * math.Pi / 180
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, 33, out.Zone)
}

func TestRoundTrip(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := 10.0 * math.Pi / 180
	lat := -33.0 * math.Pi / 180
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, coord.South, out.Hemisphere)

	back, err := c.ConvertToGeodetic(out)
	require.NoError(t, err)
	assert.InDelta(t, lon, back.Lon, 1e-8)
	assert.InDelta(t, lat, back.Lat, 1e-8)
}

func TestZoneOverrideWraparound(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := -179.9 * math.Pi / 180
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, 0, 0), 60)
	require.NoError(t, err)
	assert.Equal(t, 60, out.Zone)

	_, err = c.ConvertFromGeodetic(coord.NewGeodetic(lon, 0, 0), 30)
	assert.Error(t, err)
}
