package keyframe

import "fmt"

// Interpolator blends two keyframes at eased progress t in [0, 1]. Its result
// is used as-is; the sequence does not check its shape.
type Interpolator interface {
	Interpolate(a, b Keyframe, t float64) (Value, error)
}

// InterpolatorFunc adapts a function to Interpolator.
type InterpolatorFunc func(a, b Keyframe, t float64) (Value, error)

// Interpolate calls f(a, b, t).
func (f InterpolatorFunc) Interpolate(a, b Keyframe, t float64) (Value, error) {
	return f(a, b, t)
}

// Lerp blends a and b linearly, element by element for lists. Both values
// must have the same shape.
func Lerp(a, b Value, t float64) (Value, error) {
	if !a.SameShape(b) {
		return Value{}, fmt.Errorf("%w: %s and %s", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	return lerp(a, b, t), nil
}

func lerp(a, b Value, t float64) Value {
	if a.kind == KindScalar {
		return Scalar(a.scalar + (b.scalar-a.scalar)*t)
	}
	items := make([]Value, len(a.items))
	for i := range a.items {
		items[i] = lerp(a.items[i], b.items[i], t)
	}
	return Value{kind: a.kind, items: items}
}
