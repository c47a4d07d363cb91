package parser

import "fmt"

// Kind classifies a parse failure.
type Kind int

const (
	KindParseFailed Kind = iota + 1
	KindFormatInvalid
	KindDimensionEnvelopeInvalid
	KindCoordinateFormatInvalid
	KindDimensionUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindParseFailed:
		return "ParseFailed"
	case KindFormatInvalid:
		return "FormatInvalid"
	case KindDimensionEnvelopeInvalid:
		return "DimensionEnvelopeInvalid"
	case KindCoordinateFormatInvalid:
		return "CoordinateFormatInvalid"
	case KindDimensionUnrecognized:
		return "DimensionUnrecognized"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Human-readable failure reasons. These double as message catalog keys.
const (
	ReasonNoMatch       = "no key:value pairs found"
	ReasonMissingKeys   = "waypoint is missing parameters"
	ReasonNameEmpty     = "waypoint name is empty"
	ReasonDimension     = "dimension format is incorrect"
	ReasonCoordinates   = "waypoint coordinates must be integers"
	ReasonXaeroFormat   = "xaero share format is incorrect"
	ReasonXaeroEnvelope = `xaero dimension format is incorrect, it must start with "Internal-" and end with "-waypoints"`
)

// ParseError describes why a share string was rejected and how far parsing got.
type ParseError struct {
	Kind      Kind
	Reason    string
	CharsRead int
	Err       error
}

func newParseError(kind Kind, reason string, read int, err error) *ParseError {
	return &ParseError{Kind: kind, Reason: reason, CharsRead: read, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at char %d: %s", e.Kind, e.CharsRead, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
