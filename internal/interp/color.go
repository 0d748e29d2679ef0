// Package interp provides interpolators for values the default linear blend
// handles poorly or not at all.
package interp

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/timeline/internal/keyframe"
)

// ColorSpace names the space colours are blended in.
type ColorSpace string

const (
	HCL ColorSpace = "hcl"
	Lab ColorSpace = "lab"
	Luv ColorSpace = "luv"
	RGB ColorSpace = "rgb"
)

// ColorInterpolator blends colours given either as [r, g, b] tuples in
// [0, 1] or as "#rrggbb" strings. Results keep the representation of the
// left keyframe.
type ColorInterpolator struct {
	Space ColorSpace
}

// Color returns a colour interpolator for the given space.
func Color(space ColorSpace) *ColorInterpolator {
	return &ColorInterpolator{Space: space}
}

// Interpolate implements keyframe.Interpolator.
func (c *ColorInterpolator) Interpolate(a, b keyframe.Keyframe, t float64) (keyframe.Value, error) {
	ca, hex, err := toColor(a.Value)
	if err != nil {
		return keyframe.Value{}, err
	}
	cb, _, err := toColor(b.Value)
	if err != nil {
		return keyframe.Value{}, err
	}

	var out colorful.Color
	switch c.Space {
	case HCL, "":
		out = ca.BlendHcl(cb, t)
	case Lab:
		out = ca.BlendLab(cb, t)
	case Luv:
		out = ca.BlendLuv(cb, t)
	case RGB:
		out = ca.BlendRgb(cb, t)
	default:
		return keyframe.Value{}, fmt.Errorf("%w: color space %q", ErrUnknownInterpolator, c.Space)
	}
	out = out.Clamped()

	if hex {
		return keyframe.Opaque(out.Hex()), nil
	}
	return keyframe.Tuple(out.R, out.G, out.B), nil
}

func toColor(v keyframe.Value) (colorful.Color, bool, error) {
	if s, ok := v.Raw().(string); ok && v.Kind() == keyframe.KindOpaque {
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, false, fmt.Errorf("%w: %v", keyframe.ErrShapeMismatch, err)
		}
		return c, true, nil
	}
	fs, ok := v.Floats()
	if !ok || len(fs) != 3 {
		return colorful.Color{}, false, fmt.Errorf("%w: colour needs tuple[3] or hex string, got %s", keyframe.ErrShapeMismatch, v.Shape())
	}
	return colorful.Color{R: fs[0], G: fs[1], B: fs[2]}, false, nil
}
