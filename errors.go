package geotrans

import "github.com/mspgeo/geotrans/internal/xerr"

// Kind tags a failure with one of the error codes from geotrans3.7's
// ErrorMessages table. Callers compare with errors.Is against the
// exported sentinels below rather than parsing message text.
type Kind = xerr.Kind

// Sentinel errors, one per failure kind. Wrap with xerr.New(kind, "context")
// or xerr.Wrap(kind, err, "context") to attach a message while keeping
// errors.Is(err, geotrans.ErrLatitude) working.
const (
	ErrSemiMajorAxis         = xerr.SemiMajorAxis
	ErrEllipsoidFlattening   = xerr.EllipsoidFlattening
	ErrInvalidEllipsoidCode  = xerr.InvalidEllipsoidCode
	ErrEllipseInUse          = xerr.EllipseInUse
	ErrNotUserDefined        = xerr.NotUserDefined
	ErrInvalidDatumCode      = xerr.InvalidDatumCode
	ErrInvalidIndex          = xerr.InvalidIndex
	ErrLatitude              = xerr.Latitude
	ErrLongitude             = xerr.Longitude
	ErrDatumDomain           = xerr.DatumDomain
	ErrDatumRotation         = xerr.DatumRotation
	ErrScaleFactor           = xerr.ScaleFactor
	ErrDatumSigma            = xerr.DatumSigma
	ErrDatumType             = xerr.DatumType
	ErrDatumFileOpenError    = xerr.DatumFileOpenError
	ErrDatumFileParseError   = xerr.DatumFileParseError
	ErrEllipsoidFileOpenErr  = xerr.EllipsoidFileOpenError
	ErrEllipsoidFileParseErr = xerr.EllipsoidFileParseError
	ErrGeoidFileOpenError    = xerr.GeoidFileOpenError
	ErrGeoidFileParseError   = xerr.GeoidFileParseError
	ErrMGRSString            = xerr.MGRSString
	ErrUSNGString            = xerr.USNGString
	ErrZone                  = xerr.Zone
	ErrZoneOverride          = xerr.ZoneOverride
	ErrHemisphere            = xerr.Hemisphere
	ErrEasting               = xerr.Easting
	ErrNorthing              = xerr.Northing
	ErrPrecision             = xerr.Precision
	ErrEllipse               = xerr.Ellipse
)
