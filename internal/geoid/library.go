package geoid

import (
	"path/filepath"
	"sync"

	"github.com/mspgeo/geotrans/internal/config"
)

// Model selects one of the geoid-height interpolators spec.md §4.7
// describes.
type Model int

const (
	EGM96Bilinear Model = iota
	EGM96VariableSpline
	EGM84TenDegreeBilinear
	EGM84TenDegreeSpline
	EGM8430MinBilinear
	EGM2008BicubicSpline
)

// Library is the process-wide geoid-grid table: like the ellipsoid and
// datum libraries, reference-counted and lazily loaded, one grid file per
// model, loaded the first time that model is requested rather than all at
// construction (a caller that never asks for EGM84 30' pays no cost for
// wwgrid.bin).
type Library struct {
	dir string

	mu       sync.Mutex
	refCount int

	egm96    *egm96Grid
	egm84Ten *egm84TenDegreeGrid
	egm8430  *egm8430MinGrid
	egm2008  *egm2008Grid
}

var (
	processMu  sync.Mutex
	processLib *Library
)

// Acquire returns the process-wide geoid Library singleton rooted at dir.
// Each call increments the reference count; pair with Release.
func Acquire(dir string) (*Library, error) {
	processMu.Lock()
	defer processMu.Unlock()

	if processLib == nil {
		processLib = &Library{dir: dir}
	}
	processLib.refCount++
	return processLib, nil
}

// Release decrements the reference count; when it drops to zero the
// singleton is released and the next Acquire starts fresh (so a changed
// $MSPCCS_DATA or $EGM2008_GRID_USAGE takes effect).
func Release(lib *Library) {
	processMu.Lock()
	defer processMu.Unlock()
	if lib == nil || lib != processLib {
		return
	}
	processLib.refCount--
	if processLib.refCount <= 0 {
		processLib = nil
	}
}

func (l *Library) egm96Grid() (*egm96Grid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.egm96 == nil {
		g, err := loadEGM96(filepath.Join(l.dir, "egm96.grd"))
		if err != nil {
			return nil, err
		}
		l.egm96 = g
	}
	return l.egm96, nil
}

func (l *Library) egm84TenGrid() (*egm84TenDegreeGrid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.egm84Ten == nil {
		g, err := loadEGM84TenDegree(filepath.Join(l.dir, "egm84.grd"))
		if err != nil {
			return nil, err
		}
		l.egm84Ten = g
	}
	return l.egm84Ten, nil
}

func (l *Library) egm8430Grid() (*egm8430MinGrid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.egm8430 == nil {
		g, err := loadEGM8430Min(filepath.Join(l.dir, "wwgrid.bin"))
		if err != nil {
			return nil, err
		}
		l.egm8430 = g
	}
	return l.egm8430, nil
}

func (l *Library) egm2008Grid() (*egm2008Grid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.egm2008 == nil {
		g, err := loadEGM2008(filepath.Join(l.dir, "egm2008.grd"), config.EGM2008GridUsage())
		if err != nil {
			return nil, err
		}
		l.egm2008 = g
	}
	return l.egm2008, nil
}

// GeoidHeight returns the geoid separation N (metres, positive up) for
// (lon, lat) in radians, under the given model.
func (l *Library) GeoidHeight(model Model, lon, lat float64) (float64, error) {
	switch model {
	case EGM96Bilinear:
		g, err := l.egm96Grid()
		if err != nil {
			return 0, err
		}
		return g.heightBilinear(lon, lat), nil
	case EGM96VariableSpline:
		g, err := l.egm96Grid()
		if err != nil {
			return 0, err
		}
		return g.heightVariable(lon, lat), nil
	case EGM84TenDegreeBilinear:
		g, err := l.egm84TenGrid()
		if err != nil {
			return 0, err
		}
		return g.heightBilinear(lon, lat), nil
	case EGM84TenDegreeSpline:
		g, err := l.egm84TenGrid()
		if err != nil {
			return 0, err
		}
		return g.heightNaturalSpline(lon, lat), nil
	case EGM8430MinBilinear:
		g, err := l.egm8430Grid()
		if err != nil {
			return 0, err
		}
		return g.height(lon, lat), nil
	case EGM2008BicubicSpline:
		g, err := l.egm2008Grid()
		if err != nil {
			return 0, err
		}
		return g.height(lon, lat)
	default:
		g, err := l.egm96Grid()
		if err != nil {
			return 0, err
		}
		return g.heightBilinear(lon, lat), nil
	}
}

// EllipsoidHeightToGeoidHeight converts an ellipsoid height to an
// orthometric (geoid-referenced) height: orthometric = ellipsoid - N.
func (l *Library) EllipsoidHeightToGeoidHeight(model Model, lon, lat, ellipsoidHeight float64) (float64, error) {
	n, err := l.GeoidHeight(model, lon, lat)
	if err != nil {
		return 0, err
	}
	return ellipsoidHeight - n, nil
}

// GeoidHeightToEllipsoidHeight converts an orthometric height back to an
// ellipsoid height: ellipsoid = orthometric + N.
func (l *Library) GeoidHeightToEllipsoidHeight(model Model, lon, lat, orthometricHeight float64) (float64, error) {
	n, err := l.GeoidHeight(model, lon, lat)
	if err != nil {
		return 0, err
	}
	return orthometricHeight + n, nil
}
