package geoid

import (
	"math"
	"os"

	"github.com/mspgeo/geotrans/internal/xerr"
	"github.com/sirupsen/logrus"
)

// egm84.grd and wwgrid.bin carry no header (spec.md §6): fixed 10deg and
// 30' worldwide grids respectively, the former single-precision, the
// latter double-precision on disk.
const (
	egm84TenCols = 37
	egm84TenRows = 19

	egm8430Cols = 721
	egm8430Rows = 361
)

type egm84TenDegreeGrid struct {
	g *grid
}

func loadEGM84TenDegree(path string) (*egm84TenDegreeGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	data, err := readFloat32Grid(f, egm84TenRows, egm84TenCols)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading "+path)
	}

	g := &grid{
		minLon: 0,
		maxLat: math.Pi / 2,
		dLon:   10 * math.Pi / 180,
		dLat:   10 * math.Pi / 180,
		rows:   egm84TenRows,
		cols:   egm84TenCols,
		data:   data,
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": g.rows, "cols": g.cols}).Info("EGM84 10-degree geoid grid loaded")
	return &egm84TenDegreeGrid{g: g}, nil
}

func (e *egm84TenDegreeGrid) heightBilinear(lon, lat float64) float64 {
	return e.g.bilinearInterpolate(wrapLongitude(lon), lat)
}

func (e *egm84TenDegreeGrid) heightNaturalSpline(lon, lat float64) float64 {
	return e.g.naturalSpline(1, wrapLongitude(lon), lat)
}

type egm8430MinGrid struct {
	g *grid
}

func loadEGM8430Min(path string) (*egm8430MinGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	data, err := readFloat64Grid(f, egm8430Rows, egm8430Cols)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading "+path)
	}

	g := &grid{
		minLon: 0,
		maxLat: math.Pi / 2,
		dLon:   0.5 * math.Pi / 180,
		dLat:   0.5 * math.Pi / 180,
		rows:   egm8430Rows,
		cols:   egm8430Cols,
		data:   data,
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": g.rows, "cols": g.cols}).Info("EGM84 30-minute geoid grid loaded")
	return &egm8430MinGrid{g: g}, nil
}

func (e *egm8430MinGrid) height(lon, lat float64) float64 {
	return e.g.bilinearInterpolate(wrapLongitude(lon), lat)
}
