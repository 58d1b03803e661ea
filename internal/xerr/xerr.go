// Package xerr defines the tagged error kinds surfaced by every stage of
// the conversion pipeline (§7 of the specification this module implements).
// Failures are plain errors wrapping one of these sentinels, so callers use
// errors.Is rather than string matching.
package xerr

import "github.com/pkg/errors"

// Kind is a sentinel error identifying one of the fixed failure categories
// a conversion stage can raise. Kind values are comparable with errors.Is.
type Kind struct{ s string }

func (k Kind) Error() string { return k.s }

func newKind(s string) Kind { return Kind{s: s} }

var (
	SemiMajorAxis         = newKind("semiMajorAxis")
	EllipsoidFlattening   = newKind("ellipsoidFlattening")
	InvalidEllipsoidCode  = newKind("invalidEllipsoidCode")
	EllipseInUse          = newKind("ellipseInUse")
	NotUserDefined        = newKind("notUserDefined")
	InvalidDatumCode      = newKind("invalidDatumCode")
	InvalidIndex          = newKind("invalidIndex")
	Latitude              = newKind("latitude")
	Longitude             = newKind("longitude")
	DatumDomain           = newKind("datumDomain")
	DatumRotation         = newKind("datumRotation")
	ScaleFactor           = newKind("scaleFactor")
	DatumSigma            = newKind("datumSigma")
	DatumType             = newKind("datumType")
	DatumFileOpenError    = newKind("datumFileOpenError")
	DatumFileParseError   = newKind("datumFileParseError")
	EllipsoidFileOpenError  = newKind("ellipsoidFileOpenError")
	EllipsoidFileParseError = newKind("ellipsoidFileParseError")
	GeoidFileOpenError    = newKind("geoidFileOpenError")
	GeoidFileParseError   = newKind("geoidFileParseError")
	MGRSString            = newKind("mgrsString")
	USNGString            = newKind("usngString")
	Zone                  = newKind("zone")
	ZoneOverride          = newKind("zoneOverride")
	Hemisphere            = newKind("hemisphere")
	Easting               = newKind("easting")
	Northing              = newKind("northing")
	Precision             = newKind("precision")
	Ellipse               = newKind("ellipse")
)

// New builds an error wrapping kind with a message, preserving errors.Is(err, kind).
func New(kind Kind, msg string) error {
	return errors.WithStack(&wrapped{kind: kind, msg: msg})
}

// Wrap builds an error wrapping kind and cause, preserving errors.Is(err, kind).
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return New(kind, msg)
	}
	return &wrapped{kind: kind, msg: msg, cause: cause}
}

type wrapped struct {
	kind  Kind
	msg   string
	cause error
}

func (w *wrapped) Error() string {
	if w.cause != nil {
		return w.msg + ": " + w.cause.Error()
	}
	return w.msg
}

func (w *wrapped) Unwrap() error { return w.cause }

func (w *wrapped) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return w.kind == k
	}
	return false
}
