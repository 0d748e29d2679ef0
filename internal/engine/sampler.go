// Package engine evaluates timeline properties over a grid of sample times.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/timeline"
)

var ErrInvalidGrid = errors.New("invalid sample grid")

// maxGridPoints bounds a single grid so a tiny step cannot exhaust memory.
const maxGridPoints = 1 << 22

// Grid is a closed interval sampled every Step seconds. End is always
// included, even when the interval is not a whole number of steps.
type Grid struct {
	Start float64
	End   float64
	Step  float64
}

// FrameGrid samples [start, end] once per frame.
func FrameGrid(start, end float64, fps int) Grid {
	return Grid{Start: start, End: end, Step: 1 / float64(fps)}
}

// Times returns the sample times in increasing order.
func (g Grid) Times() ([]float64, error) {
	switch {
	case math.IsNaN(g.Start) || math.IsNaN(g.End) || math.IsNaN(g.Step):
		return nil, fmt.Errorf("%w: NaN bound", ErrInvalidGrid)
	case math.IsInf(g.Start, 0) || math.IsInf(g.End, 0) || math.IsInf(g.Step, 0):
		return nil, fmt.Errorf("%w: infinite bound", ErrInvalidGrid)
	case g.Step <= 0:
		return nil, fmt.Errorf("%w: step %v", ErrInvalidGrid, g.Step)
	case g.End < g.Start:
		return nil, fmt.Errorf("%w: end %v before start %v", ErrInvalidGrid, g.End, g.Start)
	}

	count := math.Floor((g.End-g.Start)/g.Step+1e-9) + 1
	if math.IsInf(count, 0) || count > maxGridPoints {
		return nil, fmt.Errorf("%w: %g points", ErrInvalidGrid, count)
	}
	n := int(count)
	times := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		times = append(times, g.Start+float64(i)*g.Step)
	}
	if last := times[len(times)-1]; g.End-last > 1e-9 {
		times = append(times, g.End)
	}
	return times, nil
}

// Point is one evaluated sample.
type Point struct {
	Time  float64        `json:"time"`
	Value keyframe.Value `json:"value"`
}

// Track is a property evaluated over a grid.
type Track struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Stats summarises one Sample call.
type Stats struct {
	Tracks  int
	Points  int
	Elapsed time.Duration
}

// PointsPerSecond reports evaluation throughput.
func (s Stats) PointsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Points) / s.Elapsed.Seconds()
}

// Sampler evaluates properties concurrently, one property per worker.
type Sampler struct {
	Workers int
	Log     logr.Logger

	stats Stats
}

// NewSampler creates a sampler. workers <= 0 uses one worker per CPU.
func NewSampler(workers int) *Sampler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Sampler{Workers: workers, Log: logr.Discard()}
}

// Stats returns the figures of the last completed Sample call.
func (s *Sampler) Stats() Stats { return s.stats }

// Sample evaluates each named property at every grid time. An empty names
// list samples every property. Tracks are returned in names order. The
// timeline must not be modified while Sample runs.
func (s *Sampler) Sample(ctx context.Context, tl *timeline.Timeline, names []string, grid Grid, interp keyframe.Interpolator) ([]Track, error) {
	start := time.Now()

	times, err := grid.Times()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = tl.PropertyNames()
	}
	for _, name := range names {
		if !tl.HasProperty(name) {
			return nil, fmt.Errorf("%w: %q", timeline.ErrPropertyNotFound, name)
		}
	}

	tracks := make([]Track, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))

	for i, name := range names {
		g.Go(func() error {
			points := make([]Point, 0, len(times))
			for _, t := range times {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := tl.Value(name, t, interp)
				if err != nil {
					return fmt.Errorf("property %s at %v: %w", name, t, err)
				}
				points = append(points, Point{Time: t, Value: v})
			}
			tracks[i] = Track{Name: name, Points: points}
			s.Log.V(1).Info("property sampled", "property", name, "points", len(points))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.stats = Stats{Tracks: len(tracks), Points: len(tracks) * len(times), Elapsed: time.Since(start)}
	s.Log.Info("sampling complete", "tracks", s.stats.Tracks, "points", s.stats.Points, "elapsed", s.stats.Elapsed)
	return tracks, nil
}
