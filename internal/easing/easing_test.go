package easing

import (
	"math"
	"sort"
	"testing"
)

func TestEaseKnownCurves(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"", 0.3, 0.3},
		{"linear", 0.3, 0.3},
		{"quadIn", 0.5, 0.25},
		{"quadOut", 0.5, 0.75},
		{"cubicIn", 0.5, 0.125},
		{"quartIn", 0.5, 0.0625},
		{"quintIn", 0.5, 0.03125},
		{"quadInOut", 0.5, 0.5},
		{"cubicInOut", 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ease(tt.x, tt.name)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ease(%v, %q) = %v, want %v", tt.x, tt.name, got, tt.want)
			}
		})
	}
}

func TestEaseUnknownIsIdentity(t *testing.T) {
	for _, name := range []string{"nope", Hold, "QuadIn"} {
		if got := Ease(0.42, name); got != 0.42 {
			t.Errorf("Ease(0.42, %q) = %v, want 0.42", name, got)
		}
	}
}

func TestCatalogCoversFamilies(t *testing.T) {
	families := []string{"quad", "cubic", "quart", "quint", "sine", "expo", "circ", "back", "bounce", "elastic"}
	variants := []string{"In", "Out", "InOut"}

	for _, f := range families {
		for _, v := range variants {
			name := f + v
			fn, ok := Lookup(name)
			if !ok {
				t.Errorf("curve %q missing", name)
				continue
			}

			// Expo and elastic only approach their ends asymptotically.
			tolerance := 1e-9
			if f == "elastic" || f == "expo" {
				tolerance = 1e-2
			}
			if got := fn(0); math.Abs(got) > tolerance {
				t.Errorf("%s(0) = %v, want 0", name, got)
			}
			if got := fn(1); math.Abs(got-1) > tolerance {
				t.Errorf("%s(1) = %v, want 1", name, got)
			}
		}
	}
}

func TestKnownAndNames(t *testing.T) {
	if !Known("") || !Known(Hold) || !Known("expoIn") {
		t.Error("expected empty, hold and expoIn to be known")
	}
	if Known("wobble") {
		t.Error("wobble should not be known")
	}
	if !IsHold("hold") || IsHold("linear") {
		t.Error("IsHold mismatch")
	}

	names := Names()
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names not sorted: %v", names)
	}
	for _, n := range names {
		if n == Hold {
			t.Error("Names must not list hold")
		}
	}
	if len(names) != 31 {
		t.Errorf("expected 31 curves, got %d", len(names))
	}
}
