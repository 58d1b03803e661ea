// Package ellipsoid implements the process-wide ellipsoid reference table:
// a lazily-loaded, mutex-guarded set of ellipsoid parameter records backed
// by the fixed-width ellips.dat file (§4.1, §6 of the specification).
package ellipsoid

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mspgeo/geotrans/internal/xerr"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Ellipsoid is an immutable reference-ellipsoid record. e2 is derived from
// f at load/define time; b is read from ellips.dat at load and derived from
// a and f at define time. Neither is recomputed per lookup.
type Ellipsoid struct {
	Index       int
	Code        string // 2 characters, case-insensitive
	Name        string
	A           float64 // semi-major axis, metres
	B           float64 // semi-minor axis, metres
	F           float64 // flattening
	ESquared    float64 // first eccentricity squared, 2f - f^2
	UserDefined bool
}

// Library is the process-wide ellipsoid table. The zero value is not
// usable; obtain one with Acquire. A Library is reference-counted the way the
// datum and geoid libraries are: call Release when a ConversionService
// that acquired it is torn down.
type Library struct {
	mu       sync.RWMutex
	path     string
	entries  []Ellipsoid // ordered as loaded/appended; index == slice position
	byCode   []int       // indices into entries, sorted by normalized code
	refCount int
}

var (
	processMu   sync.Mutex
	processLib  *Library
	processRefs int
)

// Acquire returns the process-wide Library singleton, loading it from dir
// on first use. Each call increments the reference count; pair with
// Release.
func Acquire(dir string) (*Library, error) {
	processMu.Lock()
	defer processMu.Unlock()

	if processLib == nil {
		lib, err := load(filepath.Join(dir, "ellips.dat"))
		if err != nil {
			return nil, err
		}
		processLib = lib
	}
	processLib.refCount++
	processRefs++
	return processLib, nil
}

// Release decrements the reference count; when it drops to zero the
// singleton is released and the next Acquire reloads from disk.
func Release(lib *Library) {
	processMu.Lock()
	defer processMu.Unlock()
	if lib == nil || lib != processLib {
		return
	}
	processLib.refCount--
	processRefs--
	if processLib.refCount <= 0 {
		processLib = nil
	}
}

const (
	nameWidth = 30
	codeWidth = 2
)

func load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerr.Wrap(xerr.EllipsoidFileOpenError, err, "opening "+path)
	}
	defer f.Close()

	lib := &Library{path: path}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseLine(line, len(lib.entries))
		if err != nil {
			return nil, xerr.Wrap(xerr.EllipsoidFileParseError, err, "parsing "+path)
		}
		lib.entries = append(lib.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerr.Wrap(xerr.EllipsoidFileParseError, err, "reading "+path)
	}

	lib.reindex()
	logrus.WithFields(logrus.Fields{
		"path":    path,
		"entries": len(lib.entries),
	}).Info("ellipsoid library loaded")
	return lib, nil
}

func parseLine(line string, index int) (Ellipsoid, error) {
	if len(line) < nameWidth+codeWidth {
		return Ellipsoid{}, fmt.Errorf("line too short: %q", line)
	}
	name := strings.TrimSpace(line[:nameWidth])
	code := strings.TrimSpace(line[nameWidth : nameWidth+codeWidth])
	rest := strings.Fields(line[nameWidth+codeWidth:])
	if len(rest) < 3 {
		return Ellipsoid{}, fmt.Errorf("missing a/b/1f fields: %q", line)
	}

	userDefined := false
	if strings.HasPrefix(name, "*") {
		userDefined = true
		name = strings.TrimSpace(strings.TrimPrefix(name, "*"))
	}

	a, err := strconv.ParseFloat(rest[0], 64)
	if err != nil {
		return Ellipsoid{}, fmt.Errorf("semi-major axis: %w", err)
	}
	b, err := strconv.ParseFloat(rest[1], 64)
	if err != nil {
		return Ellipsoid{}, fmt.Errorf("semi-minor axis: %w", err)
	}
	invF, err := strconv.ParseFloat(rest[2], 64)
	if err != nil {
		return Ellipsoid{}, fmt.Errorf("inverse flattening: %w", err)
	}

	f := 0.0
	if invF != 0 {
		f = 1.0 / invF
	}

	return Ellipsoid{
		Index:       index,
		Code:        code,
		Name:        name,
		A:           a,
		B:           b,
		F:           f,
		ESquared:    2*f - f*f,
		UserDefined: userDefined,
	}, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (l *Library) reindex() {
	l.byCode = make([]int, len(l.entries))
	for i := range l.entries {
		l.byCode[i] = i
	}
	slices.SortFunc(l.byCode, func(a, b int) bool {
		return normalizeCode(l.entries[a].Code) < normalizeCode(l.entries[b].Code)
	})
}

// Count returns the number of ellipsoids in the table.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// IndexOf looks up an ellipsoid by code (case-insensitive, whitespace
// stripped).
func (l *Library) IndexOf(code string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	target := normalizeCode(code)
	pos, ok := slices.BinarySearchFunc(l.byCode, target, func(idx int, t string) int {
		return strings.Compare(normalizeCode(l.entries[idx].Code), t)
	})
	if !ok {
		return 0, xerr.New(xerr.InvalidEllipsoidCode, "unknown ellipsoid code "+code)
	}
	return l.byCode[pos], nil
}

func (l *Library) entry(index int) (Ellipsoid, error) {
	if index < 0 || index >= len(l.entries) {
		return Ellipsoid{}, xerr.New(xerr.InvalidIndex, "ellipsoid index out of range")
	}
	return l.entries[index], nil
}

// CodeOf returns the code stored at index.
func (l *Library) CodeOf(index int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, err := l.entry(index)
	return e.Code, err
}

// NameOf returns the name stored at index.
func (l *Library) NameOf(index int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, err := l.entry(index)
	return e.Name, err
}

// Parameters returns (a, f) for the ellipsoid at index.
func (l *Library) Parameters(index int) (a, f float64, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, err := l.entry(index)
	return e.A, e.F, err
}

// EccentricitySquared returns e^2 for the ellipsoid at index.
func (l *Library) EccentricitySquared(index int) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, err := l.entry(index)
	return e.ESquared, err
}

// UserDefinedAt reports whether the ellipsoid at index was user-defined.
func (l *Library) UserDefinedAt(index int) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, err := l.entry(index)
	return e.UserDefined, err
}

// Get returns a copy of the ellipsoid record at index.
func (l *Library) Get(index int) (Ellipsoid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entry(index)
}

// minInvF and maxInvF bound the inverse flattening of any valid ellipsoid,
// per §3's invariant 1/f in [250,350].
const (
	minInvF = 250.0
	maxInvF = 350.0
)

// Define appends a new user-defined ellipsoid and rewrites ellips.dat.
func (l *Library) Define(code, name string, a, f float64) (int, error) {
	if a <= 0 {
		return 0, xerr.New(xerr.SemiMajorAxis, "semi-major axis must be > 0")
	}
	invF := 0.0
	if f != 0 {
		invF = 1.0 / f
	}
	if invF < minInvF || invF > maxInvF {
		return 0, xerr.New(xerr.EllipsoidFlattening, "inverse flattening out of range [250,350]")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	norm := normalizeCode(code)
	for _, e := range l.entries {
		if normalizeCode(e.Code) == norm {
			return 0, xerr.New(xerr.InvalidEllipsoidCode, "ellipsoid code already defined: "+code)
		}
	}

	e := Ellipsoid{
		Index:       len(l.entries),
		Code:        strings.TrimSpace(code),
		Name:        strings.TrimSpace(name),
		A:           a,
		B:           a * (1 - f),
		F:           f,
		ESquared:    2*f - f*f,
		UserDefined: true,
	}
	l.entries = append(l.entries, e)
	l.reindex()
	if err := l.rewrite(); err != nil {
		return 0, err
	}
	return e.Index, nil
}

// Remove deletes a user-defined ellipsoid and rewrites ellips.dat. inUse
// reports whether any datum still references code; if it does, Remove
// fails with ErrEllipseInUse.
func (l *Library) Remove(code string, inUse func(code string) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	norm := normalizeCode(code)
	idx := -1
	for i, e := range l.entries {
		if normalizeCode(e.Code) == norm {
			idx = i
			break
		}
	}
	if idx < 0 {
		return xerr.New(xerr.InvalidEllipsoidCode, "unknown ellipsoid code "+code)
	}
	if !l.entries[idx].UserDefined {
		return xerr.New(xerr.NotUserDefined, "ellipsoid is not user-defined: "+code)
	}
	if inUse != nil && inUse(l.entries[idx].Code) {
		return xerr.New(xerr.EllipseInUse, "ellipsoid in use by a datum: "+code)
	}

	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	for i := range l.entries {
		l.entries[i].Index = i
	}
	l.reindex()
	return l.rewrite()
}

// rewrite serializes the whole table back to ellips.dat. Caller holds the
// write lock.
func (l *Library) rewrite() error {
	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerr.Wrap(xerr.EllipsoidFileOpenError, err, "rewriting "+l.path)
	}
	w := bufio.NewWriter(f)
	for _, e := range l.entries {
		name := e.Name
		if e.UserDefined {
			name = "*" + name
		}
		invF := 0.0
		if e.F != 0 {
			invF = 1.0 / e.F
		}
		fmt.Fprintf(w, "%-30s%-2s%13.3f%13.3f%15.9f\n", name, e.Code, e.A, e.B, invF)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return xerr.Wrap(xerr.EllipsoidFileOpenError, err, "flushing "+tmp)
	}
	if err := f.Close(); err != nil {
		return xerr.Wrap(xerr.EllipsoidFileOpenError, err, "closing "+tmp)
	}
	return os.Rename(tmp, l.path)
}
