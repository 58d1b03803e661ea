package geoid

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"sync"

	"github.com/mspgeo/geotrans/internal/config"
	"github.com/mspgeo/geotrans/internal/xerr"
	"github.com/sirupsen/logrus"
)

// egm2008HeaderBytes is the fixed 28-byte header (spec.md §6): three
// 32-bit ints (nPad, nOrigRows, nOrigCols) followed by two float64s
// (dLat, dLon degrees).
const egm2008HeaderBytes = 3*4 + 2*8

// bicubicWindow is the spec's default 6x6 interpolation window
// (spec.md §4.7).
const bicubicWindow = 6

// aoiTargetWidthMeters is the spec's "~125 nmi x 125 nmi" AOI window
// target extent.
const aoiTargetWidthMeters = 125 * 1852.0
const meanEarthRadius = 6378137.0

// egm2008Grid is the EGM2008 2.5' worldwide grid. Under the FULL strategy
// the whole padded grid is loaded into data at construction; under AOI,
// only the header is read at construction and a bounded sub-grid around
// the most recent request is cached in aoi, reloaded when a new request
// falls outside it.
type egm2008Grid struct {
	path string

	nPad                 int
	nOrigRows, nOrigCols int
	rows, cols           int // padded dimensions
	dLat, dLon           float64
	baseLat, baseLon     float64 // radians, the padded grid's south edge and west edge

	strategy config.EGM2008Strategy
	full     *grid // populated only under the FULL strategy

	aoiMu                    sync.Mutex
	aoi                      *grid
	aoiStartRow, aoiStartCol int
	aoiRows, aoiCols         int
}

func loadEGM2008(path string, strategy config.EGM2008Strategy) (*egm2008Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	var ints [3]int32
	if err := binary.Read(f, binary.BigEndian, &ints); err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading header of "+path)
	}
	var degrees [2]float64
	if err := binary.Read(f, binary.BigEndian, &degrees); err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading header of "+path)
	}

	nPad := int(ints[0])
	nOrigRows := int(ints[1])
	nOrigCols := int(ints[2])
	dLat := degrees[0] * math.Pi / 180
	dLon := degrees[1] * math.Pi / 180

	e := &egm2008Grid{
		path:      path,
		nPad:      nPad,
		nOrigRows: nOrigRows,
		nOrigCols: nOrigCols,
		rows:      nOrigRows + 2*nPad,
		cols:      nOrigCols + 2*nPad,
		dLat:      dLat,
		dLon:      dLon,
		baseLat:   -math.Pi/2 - float64(nPad)*dLat,
		baseLon:   -math.Pi - float64(nPad)*dLon,
		strategy:  strategy,
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"strategy": strategy,
		"rows":     e.rows,
		"cols":     e.cols,
	}).Info("EGM2008 geoid grid header loaded")

	if strategy == config.EGM2008Full {
		data, err := readFloat32Grid(f, e.rows, e.cols)
		if err != nil {
			return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading full grid body of "+path)
		}
		e.full = &grid{
			minLon: e.baseLon,
			maxLat: e.baseLat + float64(e.rows-1)*e.dLat,
			dLon:   e.dLon,
			dLat:   e.dLat,
			rows:   e.rows,
			cols:   e.cols,
			data:   data,
		}
	}
	return e, nil
}

func (e *egm2008Grid) height(lon, lat float64) (float64, error) {
	lon = wrapSigned(lon)
	if e.strategy == config.EGM2008Full {
		return bicubicSpline(e.full, lon, lat, bicubicWindow), nil
	}
	g, err := e.ensureAOI(lon, lat)
	if err != nil {
		return 0, err
	}
	return bicubicSpline(g, lon, lat, bicubicWindow), nil
}

// aoiColRadius computes the AOI's full width in columns so that its
// east-west extent stays close to aoiTargetWidthMeters regardless of
// latitude, per spec.md §4.7's "nRadius*dLon*cos(phi)" rule: the closer to
// a pole, the more columns are needed to span the same ground distance.
func aoiColRadius(dLon, lat float64) int {
	cosLat := math.Cos(lat)
	if cosLat < 0.05 {
		cosLat = 0.05
	}
	n := int(math.Ceil(aoiTargetWidthMeters / (dLon * meanEarthRadius * cosLat)))
	if n < bicubicWindow {
		n = bicubicWindow
	}
	if n%2 != 0 {
		n++
	}
	return n
}

func aoiRowRadius(dLat float64) int {
	n := int(math.Ceil(aoiTargetWidthMeters / (dLat * meanEarthRadius)))
	if n < bicubicWindow {
		n = bicubicWindow
	}
	if n%2 != 0 {
		n++
	}
	return n
}

// ensureAOI returns a grid covering (lon, lat) with enough padding for a
// bicubicWindow spline, reloading from disk if the cached AOI no longer
// covers the request.
func (e *egm2008Grid) ensureAOI(lon, lat float64) (*grid, error) {
	e.aoiMu.Lock()
	defer e.aoiMu.Unlock()

	fullMaxLat := e.baseLat + float64(e.rows-1)*e.dLat
	offsetCol := (lon - e.baseLon) / e.dLon
	offsetRow := (fullMaxLat - lat) / e.dLat
	col := int(math.Round(offsetCol))
	row := int(math.Round(offsetRow))

	colRadius := aoiColRadius(e.dLon, lat)
	rowRadius := aoiRowRadius(e.dLat)
	half := bicubicWindow / 2

	if e.aoi != nil &&
		col-half >= e.aoiStartCol && col+half-1 <= e.aoiStartCol+e.aoiCols-1 &&
		row-half >= e.aoiStartRow && row+half-1 <= e.aoiStartRow+e.aoiRows-1 {
		return e.aoi, nil
	}

	startRow := row - rowRadius/2
	startCol := col - colRadius/2
	if startRow < 0 {
		startRow = 0
	}
	if startCol < 0 {
		startCol = 0
	}
	if startRow+rowRadius > e.rows {
		startRow = e.rows - rowRadius
	}
	if startCol+colRadius > e.cols {
		startCol = e.cols - colRadius
	}
	if startRow < 0 {
		startRow = 0
	}
	if startCol < 0 {
		startCol = 0
	}
	rows := rowRadius
	cols := colRadius
	if rows > e.rows {
		rows = e.rows
	}
	if cols > e.cols {
		cols = e.cols
	}

	data, err := e.readWindow(startRow, startCol, rows, cols)
	if err != nil {
		return nil, err
	}

	g := &grid{
		minLon: e.baseLon + float64(startCol)*e.dLon,
		maxLat: fullMaxLat - float64(startRow)*e.dLat,
		dLon:   e.dLon,
		dLat:   e.dLat,
		rows:   rows,
		cols:   cols,
		data:   data,
	}
	e.aoi = g
	e.aoiStartRow, e.aoiStartCol = startRow, startCol
	e.aoiRows, e.aoiCols = rows, cols

	logrus.WithFields(logrus.Fields{
		"path":      e.path,
		"startRow":  startRow,
		"startCol":  startCol,
		"rows":      rows,
		"cols":      cols,
	}).Debug("EGM2008 AOI window reloaded")
	return g, nil
}

func (e *egm2008Grid) readWindow(startRow, startCol, rows, cols int) ([]float64, error) {
	f, err := os.Open(e.path)
	if err != nil {
		return nil, xerr.Wrap(xerr.GeoidFileOpenError, err, "opening "+e.path)
	}
	defer f.Close()

	data := make([]float64, rows*cols)
	raw := make([]float32, cols)
	for r := 0; r < rows; r++ {
		offset := int64(egm2008HeaderBytes) + int64(startRow+r)*int64(e.cols)*4 + int64(startCol)*4
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "seeking in "+e.path)
		}
		if err := binary.Read(f, binary.BigEndian, raw); err != nil {
			return nil, xerr.Wrap(xerr.GeoidFileParseError, err, "reading AOI row from "+e.path)
		}
		for c, v := range raw {
			data[r*cols+c] = float64(v)
		}
	}
	return data, nil
}
