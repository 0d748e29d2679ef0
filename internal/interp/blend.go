package interp

import (
	"fmt"

	"github.com/ivlev/timeline/internal/keyframe"
)

// PairwiseInterpolator applies Inner to each pair of items of two nested or
// tuple values, e.g. the points of a path. A nil Inner blends linearly.
type PairwiseInterpolator struct {
	Inner keyframe.Interpolator
}

// Pairwise wraps inner for element-wise use.
func Pairwise(inner keyframe.Interpolator) *PairwiseInterpolator {
	return &PairwiseInterpolator{Inner: inner}
}

// Interpolate implements keyframe.Interpolator.
func (p *PairwiseInterpolator) Interpolate(a, b keyframe.Keyframe, t float64) (keyframe.Value, error) {
	if p.Inner == nil {
		return keyframe.Lerp(a.Value, b.Value, t)
	}
	if a.Value.Kind() != keyframe.KindNested || b.Value.Kind() != keyframe.KindNested {
		return p.Inner.Interpolate(a, b, t)
	}

	ia, ib := a.Value.Items(), b.Value.Items()
	if len(ia) != len(ib) {
		return keyframe.Value{}, fmt.Errorf("%w: %d and %d items", keyframe.ErrShapeMismatch, len(ia), len(ib))
	}
	out := make([]keyframe.Value, len(ia))
	for i := range ia {
		ka := keyframe.Keyframe{Time: a.Time, Value: ia[i], Ease: a.Ease}
		kb := keyframe.Keyframe{Time: b.Time, Value: ib[i], Ease: b.Ease}
		v, err := p.Inner.Interpolate(ka, kb, t)
		if err != nil {
			return keyframe.Value{}, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = v
	}
	return keyframe.List(out), nil
}

// Smooth blends linearly after applying smoothstep to the progress.
func Smooth() keyframe.Interpolator {
	return keyframe.InterpolatorFunc(func(a, b keyframe.Keyframe, t float64) (keyframe.Value, error) {
		return keyframe.Lerp(a.Value, b.Value, t*t*(3-2*t))
	})
}
