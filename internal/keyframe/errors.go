package keyframe

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFound        = errors.New("keyframe not found")
	ErrEmptySequence   = errors.New("sequence has no keyframes")
	ErrShapeMismatch   = errors.New("value shapes do not match")
	ErrIndexOutOfRange = errors.New("keyframe index out of range")
	ErrInvalidTime     = errors.New("invalid time")
)

// CheckTime rejects keyframe times that cannot be ordered.
func CheckTime(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTime, t)
	}
	return nil
}
