package ups

import (
	"math"
	"testing"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgs84A = 6378137.0
const wgs84F = 1.0 / 298.257223563

func TestNorthPoleRoundTrip(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := 120.0 * math.Pi / 180
	lat := 87.0 * math.Pi / 180

	proj, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0))
	require.NoError(t, err)
	assert.Equal(t, coord.North, proj.Hemisphere)

	back, err := c.ConvertToGeodetic(proj)
	require.NoError(t, err)
	assert.InDelta(t, lon, back.Lon, 1e-8)
	assert.InDelta(t, lat, back.Lat, 1e-8)
}

func TestSouthPoleRoundTrip(t *testing.T) {
	c := New(wgs84A, wgs84F)
	lon := -60.0 * math.Pi / 180
	lat := -85.0 * math.Pi / 180

	proj, err := c.ConvertFromGeodetic(coord.NewGeodetic(lon, lat, 0))
	require.NoError(t, err)
	assert.Equal(t, coord.South, proj.Hemisphere)

	back, err := c.ConvertToGeodetic(proj)
	require.NoError(t, err)
	assert.InDelta(t, lon, back.Lon, 1e-8)
	assert.InDelta(t, lat, back.Lat, 1e-8)
}

func TestRejectsLatitudeBelowNorthRange(t *testing.T) {
	c := New(wgs84A, wgs84F)
	_, err := c.ConvertFromGeodetic(coord.NewGeodetic(0, 82*math.Pi/180, 0))
	assert.Error(t, err)
}

func TestFalseOriginAtPole(t *testing.T) {
	c := New(wgs84A, wgs84F)
	out, err := c.ConvertFromGeodetic(coord.NewGeodetic(0, math.Pi/2, 0))
	require.NoError(t, err)
	assert.InDelta(t, falseEasting, out.Easting, 1e-6)
	assert.InDelta(t, falseNorthing, out.Northing, 1e-6)
}
