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

func writeEGM84TenFixture(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	for r := 0; r < egm84TenRows; r++ {
		for c := 0; c < egm84TenCols; c++ {
			require.NoError(t, binary.Write(&buf, binary.BigEndian, float32(r*100+c)))
		}
	}
	path := filepath.Join(t.TempDir(), "egm84.grd")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadEGM84TenDegreeHasNoHeader(t *testing.T) {
	path := writeEGM84TenFixture(t)
	g, err := loadEGM84TenDegree(path)
	require.NoError(t, err)
	assert.Equal(t, egm84TenRows, g.g.rows)
	assert.Equal(t, egm84TenCols, g.g.cols)
	// top-left post should be the first sample written, r=0,c=0 -> 0
	assert.InDelta(t, 0.0, g.heightBilinear(0, math.Pi/2), 1e-6)
}

func writeEGM8430Fixture(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < egm8430Rows*egm8430Cols; i++ {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, float64(i)))
	}
	path := filepath.Join(t.TempDir(), "wwgrid.bin")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestLoadEGM8430MinDoublePrecision(t *testing.T) {
	path := writeEGM8430Fixture(t)
	g, err := loadEGM8430Min(path)
	require.NoError(t, err)
	assert.Equal(t, egm8430Rows, g.g.rows)
	assert.Equal(t, egm8430Cols, g.g.cols)
	assert.InDelta(t, 0.0, g.height(0, math.Pi/2), 1e-6)
}
