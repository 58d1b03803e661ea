package ellipsoid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mspgeo/geotrans/internal/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleData = `` +
	`World Geodetic System 1984    WE  6378137.000 6356752.314235 298.257223563` + "\n" +
	`Clarke 1866                   CC  6378206.400 6356583.800000 294.978698214` + "\n"

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ellips.dat"), []byte(sampleData), 0o644))
	return dir
}

func freshLibrary(t *testing.T) *Library {
	t.Helper()
	processMu.Lock()
	processLib = nil
	processRefs = 0
	processMu.Unlock()
	dir := writeSample(t)
	lib, err := Acquire(dir)
	require.NoError(t, err)
	t.Cleanup(func() { Release(lib) })
	return lib
}

func TestAcquireLoadsEntries(t *testing.T) {
	lib := freshLibrary(t)
	assert.Equal(t, 2, lib.Count())
}

func TestIndexOfCaseInsensitive(t *testing.T) {
	lib := freshLibrary(t)
	idx, err := lib.IndexOf("we")
	require.NoError(t, err)
	a, f, err := lib.Parameters(idx)
	require.NoError(t, err)
	assert.InDelta(t, 6378137.0, a, 1e-6)
	assert.InDelta(t, 1.0/298.257223563, f, 1e-12)
}

func TestIndexOfUnknownCode(t *testing.T) {
	lib := freshLibrary(t)
	_, err := lib.IndexOf("ZZ")
	assert.ErrorIs(t, err, xerr.InvalidEllipsoidCode)
}

func TestEccentricitySquared(t *testing.T) {
	lib := freshLibrary(t)
	idx, err := lib.IndexOf("WE")
	require.NoError(t, err)
	e2, err := lib.EccentricitySquared(idx)
	require.NoError(t, err)
	assert.InDelta(t, 0.00669437999014, e2, 1e-12)
}

func TestDefineAndRemove(t *testing.T) {
	lib := freshLibrary(t)

	idx, err := lib.Define("ZZ", "Test Ellipsoid", 6400000, 1.0/300.0)
	require.NoError(t, err)
	userDef, err := lib.UserDefinedAt(idx)
	require.NoError(t, err)
	assert.True(t, userDef)

	_, err = lib.Define("ZZ", "Dup", 6400000, 1.0/300.0)
	assert.ErrorIs(t, err, xerr.InvalidEllipsoidCode)

	err = lib.Remove("WE", nil)
	assert.ErrorIs(t, err, xerr.NotUserDefined)

	err = lib.Remove("ZZ", func(code string) bool { return true })
	assert.ErrorIs(t, err, xerr.EllipseInUse)

	err = lib.Remove("ZZ", func(code string) bool { return false })
	require.NoError(t, err)
	_, err = lib.IndexOf("ZZ")
	assert.ErrorIs(t, err, xerr.InvalidEllipsoidCode)
}

func TestDefineRejectsBadFlattening(t *testing.T) {
	lib := freshLibrary(t)
	_, err := lib.Define("YY", "Bad", 6400000, 1.0/1000.0)
	assert.ErrorIs(t, err, xerr.EllipsoidFlattening)
}

func TestDefineRejectsBadSemiMajor(t *testing.T) {
	lib := freshLibrary(t)
	_, err := lib.Define("YY", "Bad", -1, 1.0/300.0)
	assert.ErrorIs(t, err, xerr.SemiMajorAxis)
}
