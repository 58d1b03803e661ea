package geoid

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEGM96Fixture writes a minimal, structurally valid egm96.grd: the
// six-float header followed by rows*cols float32 samples, all big-endian.
func writeEGM96Fixture(t *testing.T, rows, cols int, value func(r, c int) float32) string {
	t.Helper()
	var buf bytes.Buffer
	header := [6]float32{-90, 90, 0, 360, 180.0 / float32(rows-1), 360.0 / float32(cols-1)}
	require.NoError(t, binary.Write(&buf, binary.BigEndian, header))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			require.NoError(t, binary.Write(&buf, binary.BigEndian, value(r, c)))
		}
	}
	path := filepath.Join(t.TempDir(), "egm96.grd")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadEGM96ParsesHeaderAndBody(t *testing.T) {
	path := writeEGM96Fixture(t, egm96Rows, egm96Cols, func(r, c int) float32 { return float32(r*10 + c) })
	g, err := loadEGM96(path)
	require.NoError(t, err)
	assert.Equal(t, egm96Rows, g.g.rows)
	assert.Equal(t, egm96Cols, g.g.cols)
	assert.InDelta(t, math.Pi/2, g.g.maxLat, 1e-9)
	assert.InDelta(t, 0, g.g.minLon, 1e-9)
}

func TestLoadEGM96MissingFile(t *testing.T) {
	_, err := loadEGM96(filepath.Join(t.TempDir(), "missing.grd"))
	assert.Error(t, err)
}

func TestInInsetMatchesTableEntry(t *testing.T) {
	// Iceland inset: 63-67N, -25..-13E.
	assert.True(t, inInset(-20*math.Pi/180, 65*math.Pi/180))
	assert.False(t, inInset(0, 0)) // mid-Atlantic equator, not in any inset
}

func TestHeightVariablePicksInsetOverOpenOcean(t *testing.T) {
	g := &egm96Grid{g: flatGrid(1.0)}
	// Inside the Iceland inset: should take the skip=2 natural-spline path
	// without erroring on an out-of-range stride.
	v := g.heightVariable(-20*math.Pi/180, 65*math.Pi/180)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestHeightVariableHighLatitudeUsesCoarsestStride(t *testing.T) {
	// 17x17 posts so the stride-8 sub-grid still has 3x3 posts to blend.
	data := make([]float64, 17*17)
	for i := range data {
		data[i] = 2.0
	}
	g := &egm96Grid{g: &grid{minLon: 0, maxLat: 16 * math.Pi / 180, dLon: math.Pi / 180, dLat: math.Pi / 180, rows: 17, cols: 17, data: data}}
	v := g.heightVariable(0, 75*math.Pi/180)
	assert.InDelta(t, 2.0, v, 1e-9)
}
