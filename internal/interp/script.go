package interp

import (
	"errors"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/ivlev/timeline/internal/keyframe"
)

// ErrNoResult is returned when a script finishes without setting result.
var ErrNoResult = errors.New("script did not set result")

// ScriptInterpolator runs a tengo script per blend. The script sees the
// values as a and b, eased progress as t, and assigns the blended value to
// result. Numbers arrive as floats and lists as arrays.
type ScriptInterpolator struct {
	compiled *tengo.Compiled
}

// Script compiles src once. Each call runs a clone of the compiled script, so
// the interpolator is safe for concurrent use.
func Script(src string) (*ScriptInterpolator, error) {
	script := tengo.NewScript([]byte(src))
	_ = script.Add("a", 0.0)
	_ = script.Add("b", 0.0)
	_ = script.Add("t", 0.0)
	_ = script.Add("result", nil)

	script.SetImports(stdlib.GetModuleMap("math"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile interpolator script: %w", err)
	}
	return &ScriptInterpolator{compiled: compiled}, nil
}

// Interpolate implements keyframe.Interpolator.
func (s *ScriptInterpolator) Interpolate(a, b keyframe.Keyframe, t float64) (keyframe.Value, error) {
	c := s.compiled.Clone()
	if err := c.Set("a", a.Value.Interface()); err != nil {
		return keyframe.Value{}, err
	}
	if err := c.Set("b", b.Value.Interface()); err != nil {
		return keyframe.Value{}, err
	}
	if err := c.Set("t", t); err != nil {
		return keyframe.Value{}, err
	}
	if err := c.Run(); err != nil {
		return keyframe.Value{}, fmt.Errorf("run interpolator script: %w", err)
	}

	out := c.Get("result").Value()
	if out == nil {
		return keyframe.Value{}, ErrNoResult
	}
	return keyframe.FromAny(out), nil
}
