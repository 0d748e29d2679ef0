// Package easing maps curve names to easing functions.
//
// Names follow the "<family><Variant>" form used in timeline files, for
// example "quadIn", "expoOut" or "bounceInOut". The special name "hold" is not
// a curve: a keyframe marked with it keeps its value until the next keyframe.
package easing

import (
	"sort"

	"github.com/fogleman/ease"
)

// Hold marks a step keyframe. Ease treats it as unknown (identity); the
// keyframe sequence checks for it before easing.
const Hold = "hold"

// Linear is the identity curve. An empty name means the same thing.
const Linear = "linear"

// Func is a single easing curve over [0, 1].
type Func func(t float64) float64

var curves = map[string]Func{
	Linear: ease.Linear,

	"quadIn":    ease.InQuad,
	"quadOut":   ease.OutQuad,
	"quadInOut": ease.InOutQuad,

	"cubicIn":    ease.InCubic,
	"cubicOut":   ease.OutCubic,
	"cubicInOut": ease.InOutCubic,

	"quartIn":    ease.InQuart,
	"quartOut":   ease.OutQuart,
	"quartInOut": ease.InOutQuart,

	"quintIn":    ease.InQuint,
	"quintOut":   ease.OutQuint,
	"quintInOut": ease.InOutQuint,

	"sineIn":    ease.InSine,
	"sineOut":   ease.OutSine,
	"sineInOut": ease.InOutSine,

	"expoIn":    ease.InExpo,
	"expoOut":   ease.OutExpo,
	"expoInOut": ease.InOutExpo,

	"circIn":    ease.InCirc,
	"circOut":   ease.OutCirc,
	"circInOut": ease.InOutCirc,

	"backIn":    ease.InBack,
	"backOut":   ease.OutBack,
	"backInOut": ease.InOutBack,

	"bounceIn":    ease.InBounce,
	"bounceOut":   ease.OutBounce,
	"bounceInOut": ease.InOutBounce,

	"elasticIn":    ease.InElastic,
	"elasticOut":   ease.OutElastic,
	"elasticInOut": ease.InOutElastic,
}

// Ease applies the named curve to x. Empty and unknown names return x
// unchanged.
func Ease(x float64, name string) float64 {
	if f, ok := curves[name]; ok {
		return f(x)
	}
	return x
}

// Lookup returns the curve registered under name.
func Lookup(name string) (Func, bool) {
	f, ok := curves[name]
	return f, ok
}

// Known reports whether name is a curve, the hold marker or empty.
func Known(name string) bool {
	if name == "" || name == Hold {
		return true
	}
	_, ok := curves[name]
	return ok
}

// IsHold reports whether name is the step marker.
func IsHold(name string) bool {
	return name == Hold
}

// Names returns all curve names in sorted order, without "hold".
func Names() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
