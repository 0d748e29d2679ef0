package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/timeline/internal/timeline"
)

var ErrNothingToRetime = errors.New("timeline has no time span")

// Span returns the earliest and latest keyframe time over all properties.
func Span(tl *timeline.Timeline) (float64, float64, bool) {
	start, end := math.Inf(1), math.Inf(-1)
	for _, name := range tl.PropertyNames() {
		seq, err := tl.Sequence(name)
		if err != nil {
			continue
		}
		s, e, err := seq.Span()
		if err != nil {
			continue
		}
		start = math.Min(start, s)
		end = math.Max(end, e)
	}
	return start, end, start <= end
}

// Retime returns a copy of tl whose keyframes are shifted to start at zero
// and scaled to fill duration seconds. With fps > 0 times are aligned to
// frame boundaries; keyframes that land on the same frame collapse, the
// later one winning.
func Retime(tl *timeline.Timeline, duration float64, fps int) (*timeline.Timeline, error) {
	start, end, ok := Span(tl)
	if !ok || end == start {
		return nil, ErrNothingToRetime
	}
	if duration <= 0 {
		return nil, fmt.Errorf("retime: duration must be positive, got %v", duration)
	}

	scale := duration / (end - start)
	out, _ := timeline.New(tl.Name(), nil)
	out.Log = tl.Log
	for _, name := range tl.PropertyNames() {
		frames, _ := tl.Keyframes(name)
		for i := range frames {
			t := (frames[i].Time - start) * scale
			if fps > 0 {
				t = math.Round(t*float64(fps)) / float64(fps)
			}
			frames[i].Time = t
		}
		if err := out.AddKeyframes(name, frames); err != nil {
			return nil, fmt.Errorf("retime %q: %w", name, err)
		}
	}
	return out, nil
}
