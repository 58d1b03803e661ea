package bng

import (
	"math"
	"testing"

	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Airy 1830 ellipsoid, as the British National Grid is defined over.
const (
	airyA = 6377563.396
	airyF = 1 / 299.3249646
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e, n, err := Decode("TG5113790401")
	require.NoError(t, err)

	s, err := Encode(e, n, 10)
	require.NoError(t, err)
	assert.Equal(t, "TG5113790401", s)
}

func TestEncodeBareGridSquareMatchesFullPrecisionPrefix(t *testing.T) {
	full, err := Encode(513900, 290401, 10)
	require.NoError(t, err)
	bare, err := Encode(513900, 290401, 0)
	require.NoError(t, err)
	assert.Equal(t, full[:2], bare)
}

func TestEncodeRejectsOddDigitCount(t *testing.T) {
	_, err := Encode(513900, 290401, 3)
	assert.Error(t, err)
}

func TestDecodeRejectsLetterI(t *testing.T) {
	_, _, err := Decode("IG5113790401")
	assert.Error(t, err)
}

func TestComposerRoundTrip(t *testing.T) {
	c, err := New(airyA, airyF)
	require.NoError(t, err)

	// Central England (52N, 1.5W), well within the grid.
	geo := coord.NewGeodetic(-1.5*math.Pi/180, 52*math.Pi/180, 0)
	ref, err := c.ConvertFromGeodetic(geo, 10)
	require.NoError(t, err)
	assert.Equal(t, coord.BNG, ref.Kind)
	assert.Len(t, ref.String, 12)

	back, err := c.ConvertToGeodetic(ref)
	require.NoError(t, err)
	assert.InDelta(t, geo.Lon, back.Lon, 1e-3)
	assert.InDelta(t, geo.Lat, back.Lat, 1e-3)
}

func TestComposerRejectsOutsideGrid(t *testing.T) {
	c, err := New(airyA, airyF)
	require.NoError(t, err)

	geo := coord.NewGeodetic(10*math.Pi/180, 60*math.Pi/180, 0)
	_, err = c.ConvertFromGeodetic(geo, 10)
	assert.Error(t, err)
}
