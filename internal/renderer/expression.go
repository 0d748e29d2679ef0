package renderer

import (
	"fmt"
	"strings"

	"github.com/ivlev/timeline/internal/easing"
	"github.com/ivlev/timeline/internal/keyframe"
)

// DefaultSegments is how many linear pieces approximate one eased span.
const DefaultSegments = 8

// ExprOptions controls expression export.
type ExprOptions struct {
	// Variable is the ffmpeg variable the expression is written in, e.g. "on"
	// for the output frame number or "t" for seconds.
	Variable string
	// FPS converts keyframe times to frames. Zero keeps seconds.
	FPS int
	// Component selects the tuple element for tuple tracks.
	Component int
	// Segments overrides DefaultSegments.
	Segments int
}

// Expression builds a piecewise ffmpeg expression that reproduces a numeric
// track. Linear spans are exact, hold spans are constant and eased spans are
// approximated by linear pieces.
func Expression(seq *keyframe.Sequence, opts ExprOptions) (string, error) {
	frames := seq.Keyframes()
	if len(frames) == 0 {
		return "", keyframe.ErrEmptySequence
	}
	if opts.Variable == "" {
		opts.Variable = "t"
	}
	if opts.Segments <= 0 {
		opts.Segments = DefaultSegments
	}

	scale := 1.0
	if opts.FPS > 0 {
		scale = float64(opts.FPS)
	}

	values := make([]float64, len(frames))
	for i, kf := range frames {
		v, err := component(kf.Value, opts.Component)
		if err != nil {
			return "", fmt.Errorf("keyframe %d: %w", i, err)
		}
		values[i] = v
	}

	if len(frames) == 1 {
		return fmt.Sprintf("%.6f", values[0]), nil
	}

	v := opts.Variable
	var pieces []string
	pieces = append(pieces, fmt.Sprintf("if(lt(%s,%.6f),%.6f", v, frames[0].Time*scale, values[0]))

	for i := 0; i < len(frames)-1; i++ {
		a, b := frames[i], frames[i+1]
		if b.Time == a.Time {
			continue
		}

		switch {
		case easing.IsHold(a.Ease):
			pieces = append(pieces, fmt.Sprintf("if(lt(%s,%.6f),%.6f", v, b.Time*scale, values[i]))
		case a.Ease == "" || a.Ease == easing.Linear:
			pieces = append(pieces, linearPiece(v, a.Time*scale, values[i], b.Time*scale, values[i+1]))
		default:
			// Sample the eased curve and connect the samples linearly.
			prevT, prevV := a.Time, values[i]
			for k := 1; k <= opts.Segments; k++ {
				t := a.Time + (b.Time-a.Time)*float64(k)/float64(opts.Segments)
				val, err := seq.ValueAt(t, nil)
				if err != nil {
					return "", err
				}
				if k == opts.Segments {
					val = b.Value
				}
				nextV, err := component(val, opts.Component)
				if err != nil {
					return "", err
				}
				pieces = append(pieces, linearPiece(v, prevT*scale, prevV, t*scale, nextV))
				prevT, prevV = t, nextV
			}
		}
	}

	expr := strings.Join(pieces, ",")
	expr += fmt.Sprintf(",%.6f", values[len(values)-1])
	expr += strings.Repeat(")", len(pieces))
	return expr, nil
}

func linearPiece(v string, p0, v0, p1, v1 float64) string {
	slope := (v1 - v0) / (p1 - p0)
	return fmt.Sprintf("if(lte(%s,%.6f),%.6f+(%s-%.6f)*%.6f", v, p1, v0, v, p0, slope)
}

func component(v keyframe.Value, i int) (float64, error) {
	if f, ok := v.Float(); ok {
		return f, nil
	}
	fs, ok := v.Floats()
	if !ok {
		return 0, fmt.Errorf("%w: %s is not numeric", keyframe.ErrShapeMismatch, v.Shape())
	}
	if i < 0 || i >= len(fs) {
		return 0, fmt.Errorf("%w: component %d of %s", keyframe.ErrIndexOutOfRange, i, v.Shape())
	}
	return fs[i], nil
}

// ZoomPanFilter assembles a zoompan filter from per-axis expressions.
func ZoomPanFilter(zoom, x, y string, width, height, fps int) string {
	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%d",
		zoom, x, y, width, height, fps)
}
