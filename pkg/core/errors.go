package core

import "errors"

var (
	// ErrDimensionUnrecognized is returned when a dimension token is neither a canonical id nor a known integer id.
	ErrDimensionUnrecognized = errors.New("dimension unrecognized")

	// ErrCoordinateFormatInvalid is returned when a coordinate is not a whole number.
	ErrCoordinateFormatInvalid = errors.New("coordinate format invalid")

	// ErrNameEmpty is returned when a waypoint has no name.
	ErrNameEmpty = errors.New("waypoint name is empty")
)
