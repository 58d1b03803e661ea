package shift

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mspgeo/geotrans/internal/datum"
	"github.com/mspgeo/geotrans/internal/ellipsoid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ellipsSample = `` +
	`World Geodetic System 1984  WE  6378137.000 6356752.314235 298.257223563` + "\n" +
	`Clarke 1866                 CC  6378206.400 6356583.800000 294.978698214` + "\n"

const threeParamSample = `NAS-C "North American 1927 (CONUS)" CC -8.0000 25.00 160.0000 25.00 176.0000 25.00 20.000000 50.000000 -130.000000 -60.000000` + "\n"

func setup(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ellips.dat"), []byte(ellipsSample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3_param.dat"), []byte(threeParamSample), 0o644))

	ellipLib, err := ellipsoid.Acquire(dir)
	require.NoError(t, err)
	datumLib, err := datum.Acquire(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		ellipsoid.Release(ellipLib)
		datum.Release(datumLib)
	})
	return New(ellipLib, datumLib)
}

func TestGeodeticShiftSameDatumIsIdentity(t *testing.T) {
	e := setup(t)
	res, err := e.GeodeticShift(0, 0, 0.1, 0.5, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.Lon, 1e-12)
	assert.InDelta(t, 0.5, res.Lat, 1e-12)
	assert.InDelta(t, 10.0, res.Height, 1e-12)
}

func TestMolodenskyThreeParamRoundTrip(t *testing.T) {
	e := setup(t)
	nasC, err := e.datums.IndexOf("NAS-C")
	require.NoError(t, err)
	wgs84, err := e.datums.IndexOf("WGE")
	require.NoError(t, err)

	lon := -77.0 * math.Pi / 180
	lat := 39.0 * math.Pi / 180
	h := 0.0

	toWGS84, err := e.GeodeticShift(nasC, wgs84, lon, lat, h)
	require.NoError(t, err)
	back, err := e.GeodeticShift(wgs84, nasC, toWGS84.Lon, toWGS84.Lat, toWGS84.Height)
	require.NoError(t, err)

	assert.InDelta(t, lon, back.Lon, 2e-7)
	assert.InDelta(t, lat, back.Lat, 2e-7)
}

func TestWGS72ToWGS84Geocentric(t *testing.T) {
	lon, lat, h := 0.0, 0.0, 0.0
	x, y, z := geodeticToGeocentric(wgs72A, 2*(1/wgs72InvF)-(1/wgs72InvF)*(1/wgs72InvF), lon, lat, h)
	x2, y2, z2, err := wgs72ToWGS84Geocentric(x, y, z)
	require.NoError(t, err)
	assert.NotEqual(t, x, x2)
	_ = y2
	_ = z2
}

func TestThreeStepSevenParamIdentityWhenZero(t *testing.T) {
	d := datum.Datum{Type: datum.SevenParam, EllipsoidCode: "WE"}
	x, y, z, err := ToWGS84Geocentric(d, 100, 200, 300)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, x, 1e-9)
	assert.InDelta(t, 200.0, y, 1e-9)
	assert.InDelta(t, 300.0, z, 1e-9)

	x2, y2, z2, err := FromWGS84Geocentric(d, x, y, z)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, x2, 1e-9)
	assert.InDelta(t, 200.0, y2, 1e-9)
	assert.InDelta(t, 300.0, z2, 1e-9)
}
