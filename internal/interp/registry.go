package interp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/timeline/internal/keyframe"
)

var ErrUnknownInterpolator = errors.New("unknown interpolator")

// Names lists the interpolators New accepts, besides the "pairwise:" prefix.
var Names = []string{"linear", "smooth", "color-hcl", "color-lab", "color-luv", "color-rgb", "pairwise"}

// New creates an interpolator by name. "" and "linear" return nil, which
// selects the default blend. "pairwise:<name>" applies <name> per item.
func New(name string) (keyframe.Interpolator, error) {
	if inner, ok := strings.CutPrefix(name, "pairwise:"); ok {
		in, err := New(inner)
		if err != nil {
			return nil, err
		}
		return Pairwise(in), nil
	}

	switch name {
	case "linear", "":
		return nil, nil
	case "smooth":
		return Smooth(), nil
	case "pairwise":
		return Pairwise(nil), nil
	case "color-hcl", "color":
		return Color(HCL), nil
	case "color-lab":
		return Color(Lab), nil
	case "color-luv":
		return Color(Luv), nil
	case "color-rgb":
		return Color(RGB), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterpolator, name)
	}
}
