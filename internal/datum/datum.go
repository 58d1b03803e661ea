// Package datum implements the process-wide datum reference table: WGS84
// and WGS72 synthesized at construction, followed by the 7-parameter and
// then 3-parameter entries loaded from disk (§4.2 of the specification
// this module implements).
package datum

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mspgeo/geotrans/internal/xerr"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Type tags which variant of Datum a record is.
type Type int

const (
	WGS84 Type = iota
	WGS72
	ThreeParam
	SevenParam
)

// secondsPerRadian converts arc-seconds to radians: 206264.8062471.
const secondsPerRadian = 206264.8062471

// Datum is a tagged record; fields not applicable to a variant are zero.
type Datum struct {
	Index         int
	Type          Type
	Code          string // <=6 chars
	EllipsoidCode string
	Name          string
	DX, DY, DZ    float64 // metres

	// Validity rectangle, radians.
	WestLon, EastLon, SouthLat, NorthLat float64

	// ThreeParam only; -1 means "unknown".
	SigmaX, SigmaY, SigmaZ float64

	// SevenParam only, radians / dimensionless.
	RX, RY, RZ, Scale float64

	UserDefined bool
}

// Library is the process-wide datum table.
type Library struct {
	mu              sync.RWMutex
	dir             string
	entries         []Datum
	byCode          []int
	sevenParamCount int
	refCount        int
}

var (
	processMu  sync.Mutex
	processLib *Library
)

// Acquire returns the process-wide Library singleton, loading it from dir
// on first use.
func Acquire(dir string) (*Library, error) {
	processMu.Lock()
	defer processMu.Unlock()
	if processLib == nil {
		lib, err := load(dir)
		if err != nil {
			return nil, err
		}
		processLib = lib
	}
	processLib.refCount++
	return processLib, nil
}

// Release decrements the reference count, releasing the singleton at zero.
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

func load(dir string) (*Library, error) {
	lib := &Library{dir: dir}

	lib.entries = append(lib.entries,
		Datum{
			Index: 0, Type: WGS84, Code: "WGE", EllipsoidCode: "WE", Name: "World Geodetic System 1984",
			WestLon: -math.Pi, EastLon: math.Pi, SouthLat: -math.Pi / 2, NorthLat: math.Pi / 2,
		},
		Datum{
			Index: 1, Type: WGS72, Code: "WGC", EllipsoidCode: "WD", Name: "World Geodetic System 1972",
			WestLon: -math.Pi, EastLon: math.Pi, SouthLat: -math.Pi / 2, NorthLat: math.Pi / 2,
		},
	)

	if err := lib.loadSevenParam(filepath.Join(dir, "7_param.dat")); err != nil {
		return nil, err
	}
	if err := lib.loadThreeParam(filepath.Join(dir, "3_param.dat")); err != nil {
		return nil, err
	}
	lib.reindex()

	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"entries": len(lib.entries),
	}).Info("datum library loaded")
	return lib, nil
}

// parseQuotedFields splits a line of the form
// `CODE "Quoted Name" rest...` into the code, the unquoted name, and the
// remaining whitespace-separated fields.
func parseQuotedFields(line string) (code, name string, rest []string, err error) {
	line = strings.TrimSpace(line)
	firstQuote := strings.IndexByte(line, '"')
	if firstQuote < 0 {
		return "", "", nil, fmt.Errorf("missing quoted name: %q", line)
	}
	code = strings.TrimSpace(line[:firstQuote])
	remainder := line[firstQuote+1:]
	secondQuote := strings.IndexByte(remainder, '"')
	if secondQuote < 0 {
		return "", "", nil, fmt.Errorf("unterminated quoted name: %q", line)
	}
	name = remainder[:secondQuote]
	rest = strings.Fields(remainder[secondQuote+1:])
	return code, name, rest, nil
}

func stripUserDefined(code string) (string, bool) {
	if strings.HasPrefix(code, "*") {
		return strings.TrimPrefix(code, "*"), true
	}
	return code, false
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *Library) loadSevenParam(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		code, name, rest, err := parseQuotedFields(line)
		if err != nil {
			return xerr.Wrap(xerr.DatumFileParseError, err, "parsing "+path)
		}
		if len(rest) < 8 {
			return xerr.Wrap(xerr.DatumFileParseError, fmt.Errorf("expected 8 numeric fields, got %d: %q", len(rest), line), "parsing "+path)
		}
		code, userDefined := stripUserDefined(code)
		ellipsoidCode := rest[0]
		nums, err := parseFloats(rest[1:8])
		if err != nil {
			return xerr.Wrap(xerr.DatumFileParseError, err, "parsing "+path)
		}
		d := Datum{
			Index: 2 + l.sevenParamCount, Type: SevenParam, Code: code, EllipsoidCode: ellipsoidCode, Name: name,
			DX: nums[0], DY: nums[1], DZ: nums[2],
			RX: nums[3] / secondsPerRadian, RY: nums[4] / secondsPerRadian, RZ: nums[5] / secondsPerRadian,
			Scale:       nums[6] / 1e6,
			WestLon:     -math.Pi, EastLon: math.Pi, SouthLat: -math.Pi / 2, NorthLat: math.Pi / 2,
			UserDefined: userDefined,
		}
		// Splice so all 7-parameter entries stay contiguous starting at index 2.
		insertAt := 2 + l.sevenParamCount
		l.entries = append(l.entries, Datum{})
		copy(l.entries[insertAt+1:], l.entries[insertAt:])
		l.entries[insertAt] = d
		l.sevenParamCount++
	}
	return scanner.Err()
}

const piOver180 = math.Pi / 180

func (l *Library) loadThreeParam(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		code, name, rest, err := parseQuotedFields(line)
		if err != nil {
			return xerr.Wrap(xerr.DatumFileParseError, err, "parsing "+path)
		}
		if len(rest) < 11 {
			return xerr.Wrap(xerr.DatumFileParseError, fmt.Errorf("expected 11 numeric fields, got %d: %q", len(rest), line), "parsing "+path)
		}
		code, userDefined := stripUserDefined(code)
		ellipsoidCode := rest[0]
		nums, err := parseFloats(rest[1:11])
		if err != nil {
			return xerr.Wrap(xerr.DatumFileParseError, err, "parsing "+path)
		}
		d := Datum{
			Index: len(l.entries), Type: ThreeParam, Code: code, EllipsoidCode: ellipsoidCode, Name: name,
			DX: nums[0], SigmaX: nums[1], DY: nums[2], SigmaY: nums[3], DZ: nums[4], SigmaZ: nums[5],
			SouthLat: nums[6] * piOver180, NorthLat: nums[7] * piOver180,
			WestLon: nums[8] * piOver180, EastLon: nums[9] * piOver180,
			UserDefined: userDefined,
		}
		l.entries = append(l.entries, d)
	}
	return scanner.Err()
}

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (l *Library) reindex() {
	for i := range l.entries {
		l.entries[i].Index = i
	}
	l.byCode = make([]int, len(l.entries))
	for i := range l.entries {
		l.byCode[i] = i
	}
	slices.SortFunc(l.byCode, func(a, b int) bool {
		return normalizeCode(l.entries[a].Code) < normalizeCode(l.entries[b].Code)
	})
}

// Count returns the number of datums in the table.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// IndexOf looks up a datum by code (case-insensitive, whitespace-stripped).
func (l *Library) IndexOf(code string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	target := normalizeCode(code)
	pos, ok := slices.BinarySearchFunc(l.byCode, target, func(idx int, t string) int {
		return strings.Compare(normalizeCode(l.entries[idx].Code), t)
	})
	if !ok {
		return 0, xerr.New(xerr.InvalidDatumCode, "unknown datum code "+code)
	}
	return l.byCode[pos], nil
}

func (l *Library) entry(index int) (Datum, error) {
	if index < 0 || index >= len(l.entries) {
		return Datum{}, xerr.New(xerr.InvalidIndex, "datum index out of range")
	}
	return l.entries[index], nil
}

// Get returns a copy of the datum record at index.
func (l *Library) Get(index int) (Datum, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entry(index)
}

// UsesEllipsoid reports whether any datum entry references the given
// ellipsoid code (used by the ellipsoid library's Remove to enforce
// ellipseInUse).
func (l *Library) UsesEllipsoid(ellipsoidCode string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	norm := normalizeCode(ellipsoidCode)
	for _, d := range l.entries {
		if normalizeCode(d.EllipsoidCode) == norm {
			return true
		}
	}
	return false
}

// ValidDatum tests whether (lon, lat), both radians, fall inside the
// datum's validity rectangle, normalizing the rectangle's longitude
// convention and shifting the query longitude to match per §4.2.
func (l *Library) ValidDatum(index int, lon, lat float64) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, err := l.entry(index)
	if err != nil {
		return false, err
	}

	west, east := d.WestLon, d.EastLon
	queryLon := lon

	switch {
	case (west < 0 || east < 0) && west > east:
		// Rectangle crosses the antimeridian in the [-pi,pi] convention;
		// promote both bounds and the query to [0, 2pi].
		if west < 0 {
			west += 2 * math.Pi
		}
		if east < 0 {
			east += 2 * math.Pi
		}
		if queryLon < 0 {
			queryLon += 2 * math.Pi
		}
	case (west > math.Pi || east > math.Pi) && west > east:
		// Rectangle crosses the prime meridian in the [0,2pi] convention;
		// demote both bounds and the query to [-pi, pi].
		if west > math.Pi {
			west -= 2 * math.Pi
		}
		if east > math.Pi {
			east -= 2 * math.Pi
		}
		if queryLon > math.Pi {
			queryLon -= 2 * math.Pi
		}
	default:
		if west >= 0 && queryLon < 0 {
			queryLon += 2 * math.Pi
		} else if west < 0 && queryLon > math.Pi {
			queryLon -= 2 * math.Pi
		}
	}

	outOfRange := lat < d.SouthLat || lat > d.NorthLat || queryLon < west || queryLon > east
	return !outOfRange, nil
}

// Define7Param inserts a new user-defined 7-parameter datum, keeping all
// 7-parameter entries contiguous starting at index 2, and rewrites
// 7_param.dat.
func (l *Library) Define7Param(code, name, ellipsoidCode string, dx, dy, dz, rx, ry, rz, scale float64) (int, error) {
	if math.Abs(rx*secondsPerRadian) > 60 || math.Abs(ry*secondsPerRadian) > 60 || math.Abs(rz*secondsPerRadian) > 60 {
		return 0, xerr.New(xerr.DatumRotation, "rotation out of range [-60″,+60″]")
	}
	if scale < -1e-3 || scale > 1e-3 {
		return 0, xerr.New(xerr.ScaleFactor, "scale out of range [-1e-3,1e-3]")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	norm := normalizeCode(code)
	for _, d := range l.entries {
		if normalizeCode(d.Code) == norm {
			return 0, xerr.New(xerr.InvalidDatumCode, "datum code already defined: "+code)
		}
	}

	insertAt := 2 + l.sevenParamCount
	d := Datum{
		Index: insertAt, Type: SevenParam, Code: strings.TrimSpace(code), EllipsoidCode: ellipsoidCode, Name: name,
		DX: dx, DY: dy, DZ: dz, RX: rx, RY: ry, RZ: rz, Scale: scale,
		WestLon: -math.Pi, EastLon: math.Pi, SouthLat: -math.Pi / 2, NorthLat: math.Pi / 2,
		UserDefined: true,
	}
	l.entries = append(l.entries, Datum{})
	copy(l.entries[insertAt+1:], l.entries[insertAt:])
	l.entries[insertAt] = d
	l.sevenParamCount++
	l.reindex()
	if err := l.rewriteSevenParam(); err != nil {
		return 0, err
	}
	return d.Index, nil
}

// Define3Param appends a new user-defined 3-parameter datum and rewrites
// 3_param.dat.
func (l *Library) Define3Param(code, name, ellipsoidCode string, dx, sigmaX, dy, sigmaY, dz, sigmaZ float64, southLat, northLat, westLon, eastLon float64) (int, error) {
	for _, s := range []float64{sigmaX, sigmaY, sigmaZ} {
		if s != -1 && s < 0 {
			return 0, xerr.New(xerr.DatumSigma, "sigma must be positive or -1 (unknown)")
		}
	}
	if southLat >= northLat || westLon == eastLon {
		return 0, xerr.New(xerr.DatumDomain, "validity rectangle must be non-empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	norm := normalizeCode(code)
	for _, d := range l.entries {
		if normalizeCode(d.Code) == norm {
			return 0, xerr.New(xerr.InvalidDatumCode, "datum code already defined: "+code)
		}
	}

	d := Datum{
		Index: len(l.entries), Type: ThreeParam, Code: strings.TrimSpace(code), EllipsoidCode: ellipsoidCode, Name: name,
		DX: dx, SigmaX: sigmaX, DY: dy, SigmaY: sigmaY, DZ: dz, SigmaZ: sigmaZ,
		SouthLat: southLat, NorthLat: northLat, WestLon: westLon, EastLon: eastLon,
		UserDefined: true,
	}
	l.entries = append(l.entries, d)
	l.reindex()
	if err := l.rewriteThreeParam(); err != nil {
		return 0, err
	}
	return d.Index, nil
}

// Remove deletes a user-defined datum by code and rewrites the
// corresponding file.
func (l *Library) Remove(code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	norm := normalizeCode(code)
	idx := -1
	for i, d := range l.entries {
		if normalizeCode(d.Code) == norm {
			idx = i
			break
		}
	}
	if idx < 0 {
		return xerr.New(xerr.InvalidDatumCode, "unknown datum code "+code)
	}
	d := l.entries[idx]
	if !d.UserDefined {
		return xerr.New(xerr.NotUserDefined, "datum is not user-defined: "+code)
	}

	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	if d.Type == SevenParam {
		l.sevenParamCount--
	}
	l.reindex()

	if d.Type == SevenParam {
		return l.rewriteSevenParam()
	}
	return l.rewriteThreeParam()
}

func (l *Library) rewriteSevenParam() error {
	path := filepath.Join(l.dir, "7_param.dat")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "rewriting "+path)
	}
	w := bufio.NewWriter(f)
	for _, d := range l.entries {
		if d.Type != SevenParam {
			continue
		}
		code := d.Code
		if d.UserDefined {
			code = "*" + code
		}
		fmt.Fprintf(w, "%s \"%s\" %s %.4f %.4f %.4f %.6f %.6f %.6f %.6f\n",
			code, d.Name, d.EllipsoidCode, d.DX, d.DY, d.DZ,
			d.RX*secondsPerRadian, d.RY*secondsPerRadian, d.RZ*secondsPerRadian, d.Scale*1e6)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return xerr.Wrap(xerr.DatumFileOpenError, err, "flushing "+tmp)
	}
	if err := f.Close(); err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "closing "+tmp)
	}
	return os.Rename(tmp, path)
}

func (l *Library) rewriteThreeParam() error {
	path := filepath.Join(l.dir, "3_param.dat")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "rewriting "+path)
	}
	w := bufio.NewWriter(f)
	for _, d := range l.entries {
		if d.Type != ThreeParam {
			continue
		}
		code := d.Code
		if d.UserDefined {
			code = "*" + code
		}
		fmt.Fprintf(w, "%s \"%s\" %s %.4f %.2f %.4f %.2f %.4f %.2f %.6f %.6f %.6f %.6f\n",
			code, d.Name, d.EllipsoidCode, d.DX, d.SigmaX, d.DY, d.SigmaY, d.DZ, d.SigmaZ,
			d.SouthLat/piOver180, d.NorthLat/piOver180, d.WestLon/piOver180, d.EastLon/piOver180)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return xerr.Wrap(xerr.DatumFileOpenError, err, "flushing "+tmp)
	}
	if err := f.Close(); err != nil {
		return xerr.Wrap(xerr.DatumFileOpenError, err, "closing "+tmp)
	}
	return os.Rename(tmp, path)
}
