package geotrans

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mspgeo/geotrans/internal/accuracy"
	"github.com/mspgeo/geotrans/internal/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEllipsData = `` +
	`World Geodetic System 1984  WE  6378137.000 6356752.314235 298.257223563` + "\n" +
	`Clarke 1866                 CC  6378206.400 6356583.800000 294.978698214` + "\n"

const testThreeParamData = `NAS-C "North American 1927 (CONUS)" CC -8.0000 5.00 160.0000 5.00 176.0000 6.00 20.000000 50.000000 -130.000000 -60.000000` + "\n"

func newTestDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ellips.dat"), []byte(testEllipsData), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3_param.dat"), []byte(testThreeParamData), 0o644))
	return dir
}

const datumWGS84 = 0

// NAS-C lands at index 2: WGE=0, WGC=1, then the lone 3-param entry.
const datumNASCIndex = 2

func newTestService(t *testing.T, source, target Endpoint) *ConversionService {
	t.Helper()
	dir := newTestDataDir(t)
	svc, err := New(dir, source, target)
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc
}

func TestConvertSourceToTargetIdentityWhenSameEndpoint(t *testing.T) {
	ep := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	svc := newTestService(t, ep, ep)

	in := coord.NewGeodetic(0.3, 0.5, 12.0)
	out, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{CE90: 3, LE90: 4, SE90: 5})
	require.NoError(t, err)
	assert.InDelta(t, in.Lon, out.Lon, 1e-12)
	assert.InDelta(t, in.Lat, out.Lat, 1e-12)
	assert.InDelta(t, in.Height, out.Height, 1e-12)
}

func TestConvertSourceToTargetGeodeticToUTM(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{DatumIndex: datumWGS84, CS: CSUTM}
	svc := newTestService(t, source, target)

	in := coord.NewGeodetic(0, 0, 0)
	out, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{CE90: accuracy.Unknown, LE90: accuracy.Unknown, SE90: accuracy.Unknown})
	require.NoError(t, err)
	assert.Equal(t, coord.UTM, out.Kind)
	assert.Equal(t, 31, out.Zone)
	assert.Equal(t, coord.North, out.Hemisphere)
	assert.InDelta(t, 166021.4, out.Easting, 0.2)
	assert.InDelta(t, 0, out.Northing, 0.2)
}

func TestConvertSourceToTargetUTMRoundTrip(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSUTM}
	target := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	svc := newTestService(t, source, target)

	in := coord.NewUTM(31, coord.North, 500000, 1000000)
	out, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.Equal(t, coord.Geodetic, out.Kind)
	assert.InDelta(t, 3*math.Pi/180, out.Lon, 1e-3)
}

func TestConvertSourceToTargetAppliesDatumShiftAndAccuracy(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{DatumIndex: datumNASCIndex, CS: CSGeodetic}
	svc := newTestService(t, source, target)

	in := coord.NewGeodetic(-77*math.Pi/180, 39*math.Pi/180, 0)
	out, acc, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{CE90: 0, LE90: 0, SE90: 0})
	require.NoError(t, err)
	// NAS-C's translation is large enough that the shifted coordinate must
	// differ from the input.
	assert.NotEqual(t, in.Lon, out.Lon)
	assert.Greater(t, acc.CE90, 0.0)
}

func TestConvertTargetToSourceMirrorsForward(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{DatumIndex: datumNASCIndex, CS: CSGeodetic}
	svc := newTestService(t, source, target)

	in := coord.NewGeodetic(-77*math.Pi/180, 39*math.Pi/180, 0)
	shifted, acc, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{})
	require.NoError(t, err)

	back, _, err := svc.ConvertTargetToSource(shifted, acc)
	require.NoError(t, err)
	assert.InDelta(t, in.Lon, back.Lon, 2e-9)
	assert.InDelta(t, in.Lat, back.Lat, 2e-9)
}

func TestConvertSourceToTargetCollectionReportsPerTupleErrors(t *testing.T) {
	ep := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	svc := newTestService(t, ep, ep)

	good := coord.NewGeodetic(0, 0.1, 0)
	bad := coord.NewGeodetic(0, 5, 0) // latitude out of range

	results := svc.ConvertSourceToTargetCollection([]coord.Tuple{good, bad}, nil)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestSetTargetRebuildsProjectionModule(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	svc := newTestService(t, source, target)

	require.NoError(t, svc.SetTarget(Endpoint{DatumIndex: datumWGS84, CS: CSMGRSOrUSNG, Precision: 5}))

	in := coord.NewGeodetic(1.5*math.Pi/180, 0, 0)
	out, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.Equal(t, coord.MGRSOrUSNG, out.Kind)
	assert.NotEmpty(t, out.String)
}

func TestConvertSourceToTargetGeodeticToBNG(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{DatumIndex: datumWGS84, CS: CSBNG, Precision: 5}
	svc := newTestService(t, source, target)

	// Central England (52N, 1.5W), well within the grid.
	in := coord.NewGeodetic(-1.5*math.Pi/180, 52*math.Pi/180, 0)
	out, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.Equal(t, coord.BNG, out.Kind)
	assert.Len(t, out.String, 12)

	require.NoError(t, svc.SetSource(target))
	require.NoError(t, svc.SetTarget(source))
	back, _, err := svc.ConvertSourceToTarget(out, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.InDelta(t, in.Lat, back.Lat, 1e-3)
	assert.InDelta(t, in.Lon, back.Lon, 1e-3)
}

func TestMapProjectionEndpointRoundTrip(t *testing.T) {
	source := Endpoint{DatumIndex: datumWGS84, CS: CSGeodetic}
	target := Endpoint{
		DatumIndex: datumWGS84,
		CS:         CSMapProjection,
		MapProjection: MapProjectionParams{
			Projection:       ProjTransverseMercator,
			CentralMeridian:  3 * math.Pi / 180,
			ScaleFactor:      0.9996,
			FalseEasting:     500000,
			FalseNorthing:    0,
		},
	}
	svc := newTestService(t, source, target)

	in := coord.NewGeodetic(3*math.Pi/180, 10*math.Pi/180, 0)
	proj, _, err := svc.ConvertSourceToTarget(in, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.Equal(t, coord.MapProjection, proj.Kind)

	require.NoError(t, svc.SetSource(target))
	require.NoError(t, svc.SetTarget(source))
	back, _, err := svc.ConvertSourceToTarget(proj, accuracy.Accuracy{})
	require.NoError(t, err)
	assert.InDelta(t, in.Lat, back.Lat, 1e-9)
}
