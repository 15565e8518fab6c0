package measurement

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrMalformedLandmarkSet = errors.New("malformed landmark set")
	ErrCalibrationFailure   = errors.New("could not establish a reference width for measurement")
	ErrNoFaceDetected       = errors.New("no face detected in the image")
)

// Error carries the failure kind and the offending input. Kind is one of the Err* sentinels
// and is matched by errors.Is.
type Error struct {
	Kind  error
	Field string
	Value float64
	Index int
	Len   int

	// Reason overrides the default description of the failure.
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInvalidParameter:
		return fmt.Sprintf("%s: %s must be positive, got %v", e.Kind, e.Field, e.Value)
	case ErrMalformedLandmarkSet:
		if e.Reason != "" {
			return fmt.Sprintf("%s: %s at index %d: %s", e.Kind, e.Field, e.Index, e.Reason)
		}
		if e.Len == 0 {
			return fmt.Sprintf("%s: empty landmark sequence", e.Kind)
		}
		return fmt.Sprintf("%s: %s index %d out of range for %d landmarks", e.Kind, e.Field, e.Index, e.Len)
	case ErrCalibrationFailure:
		return fmt.Sprintf("%s: reference distance is %v px", e.Kind, e.Value)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}
