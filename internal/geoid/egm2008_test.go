package geoid

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mspgeo/geotrans/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEGM2008Fixture writes a tiny but structurally valid egm2008-style
// file: 28-byte header (nPad, nOrigRows, nOrigCols, dLat, dLon) followed
// by a padded rows*cols float32 grid, constant-valued so every
// interpolation strategy (bilinear fallback, full spline, AOI spline)
// agrees on the answer.
func writeEGM2008Fixture(t *testing.T, nPad, origRows, origCols int, value float32) string {
	t.Helper()
	rows := origRows + 2*nPad
	cols := origCols + 2*nPad

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(nPad)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(origRows)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(origCols)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, 1.0)) // dLat degrees
	require.NoError(t, binary.Write(&buf, binary.BigEndian, 1.0)) // dLon degrees
	for i := 0; i < rows*cols; i++ {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, value))
	}

	path := filepath.Join(t.TempDir(), "egm2008.grd")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadEGM2008FullStrategyLoadsBody(t *testing.T) {
	path := writeEGM2008Fixture(t, 1, 4, 4, 7.5)
	g, err := loadEGM2008(path, config.EGM2008Full)
	require.NoError(t, err)
	require.NotNil(t, g.full)
	assert.Equal(t, 6, g.rows)
	assert.Equal(t, 6, g.cols)

	height, err := g.height(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, height, 1e-4)
}

func TestLoadEGM2008AOIStrategyReadsHeaderOnly(t *testing.T) {
	path := writeEGM2008Fixture(t, 1, 4, 4, -3.25)
	g, err := loadEGM2008(path, config.EGM2008AOI)
	require.NoError(t, err)
	assert.Nil(t, g.full)

	height, err := g.height(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -3.25, height, 1e-4)
	assert.NotNil(t, g.aoi)
}

func TestEGM2008AOICacheReusedForNearbyRequest(t *testing.T) {
	// A padded 10x10 grid (nPad=2, 6x6 original) spans roughly
	// lon -182..-173, lat -92..-83 degrees; query near its centre so both
	// requests land inside the same AOI window.
	path := writeEGM2008Fixture(t, 2, 6, 6, 9.0)
	g, err := loadEGM2008(path, config.EGM2008AOI)
	require.NoError(t, err)

	centerLon := -178.0 * math.Pi / 180
	centerLat := -87.0 * math.Pi / 180

	_, err = g.height(centerLon, centerLat)
	require.NoError(t, err)
	firstAOI := g.aoi

	_, err = g.height(centerLon+0.1*math.Pi/180, centerLat)
	require.NoError(t, err)
	assert.Same(t, firstAOI, g.aoi)
}

func TestAoiRowRadiusEnforcesMinimumWindow(t *testing.T) {
	r := aoiRowRadius(30 * math.Pi / 180)
	assert.GreaterOrEqual(t, r, bicubicWindow)
}
