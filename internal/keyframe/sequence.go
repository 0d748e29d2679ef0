package keyframe

import (
	"fmt"
	"math"
	"sort"

	"github.com/ivlev/timeline/internal/easing"
)

// Track is the contract of a keyframe sequence as seen by the property store,
// the renderer and the sampling engine. *Sequence is the implementation.
type Track interface {
	Len() int
	Keyframes() []Keyframe
	KeyframeAt(i int) (Keyframe, error)
	Span() (start, end float64, err error)

	Index(t float64) (int, error)
	At(t float64) (Keyframe, error)
	NearestIndex(t float64) (int, error)
	NearestIndexWithin(t, radius float64) (index int, inRange bool, err error)
	Nearest(t float64) (Keyframe, error)
	Next(t float64) (Keyframe, error)
	Previous(t float64) (Keyframe, error)
	Bracket(t float64) (left, right int, factor float64, err error)
	ValueAt(t float64, interp Interpolator) (Value, error)

	Add(kf Keyframe)
	AddAll(frames []Keyframe)
	Replace(i int, kf Keyframe) error
	RemoveRange(start, count int) int
	Sort()
	Clear()
}

var _ Track = (*Sequence)(nil)

// Sequence is an ordered list of keyframes. Every public mutator leaves it
// sorted by time. A Sequence is not safe for concurrent mutation.
type Sequence struct {
	frames []Keyframe
}

// NewSequence copies frames and sorts them by time. Frames with equal times
// keep their relative order.
func NewSequence(frames []Keyframe) *Sequence {
	s := &Sequence{frames: append([]Keyframe(nil), frames...)}
	s.Sort()
	return s
}

// Len returns the number of keyframes.
func (s *Sequence) Len() int { return len(s.frames) }

// Keyframes returns a copy of the keyframes in time order.
func (s *Sequence) Keyframes() []Keyframe {
	return append([]Keyframe(nil), s.frames...)
}

// KeyframeAt returns the keyframe at index i.
func (s *Sequence) KeyframeAt(i int) (Keyframe, error) {
	if i < 0 || i >= len(s.frames) {
		return Keyframe{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.frames))
	}
	return s.frames[i], nil
}

// Span returns the times of the first and last keyframe.
func (s *Sequence) Span() (float64, float64, error) {
	if len(s.frames) == 0 {
		return 0, 0, ErrEmptySequence
	}
	return s.frames[0].Time, s.frames[len(s.frames)-1].Time, nil
}

// Sort restores time order after out-of-band changes. It is stable.
func (s *Sequence) Sort() {
	sort.SliceStable(s.frames, func(i, j int) bool {
		return s.frames[i].Time < s.frames[j].Time
	})
}

// Add inserts kf after any keyframes with the same time. Duplicate times are
// allowed here; replace-or-insert is the property store's job. kf.Time must
// pass CheckTime.
func (s *Sequence) Add(kf Keyframe) {
	i := s.upper(kf.Time)
	s.frames = append(s.frames, Keyframe{})
	copy(s.frames[i+1:], s.frames[i:])
	s.frames[i] = kf
}

// AddAll adds frames in order.
func (s *Sequence) AddAll(frames []Keyframe) {
	for _, kf := range frames {
		s.Add(kf)
	}
}

// Replace overwrites the keyframe at index i. The sequence is re-sorted when
// the new keyframe moves in time.
func (s *Sequence) Replace(i int, kf Keyframe) error {
	if i < 0 || i >= len(s.frames) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.frames))
	}
	if err := CheckTime(kf.Time); err != nil {
		return err
	}
	moved := s.frames[i].Time != kf.Time
	s.frames[i] = kf
	if moved {
		s.Sort()
	}
	return nil
}

// RemoveRange deletes up to count keyframes starting at start and returns how
// many were removed. Ranges running past the end are truncated.
func (s *Sequence) RemoveRange(start, count int) int {
	if start < 0 {
		start = 0
	}
	if count <= 0 || start >= len(s.frames) {
		return 0
	}
	end := start + count
	if end > len(s.frames) || end < start {
		end = len(s.frames)
	}
	s.frames = append(s.frames[:start], s.frames[end:]...)
	return end - start
}

// Clear removes every keyframe.
func (s *Sequence) Clear() {
	s.frames = s.frames[:0]
}

// lower returns the first index whose time is >= t.
func (s *Sequence) lower(t float64) int {
	return sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Time >= t })
}

// upper returns the first index whose time is > t.
func (s *Sequence) upper(t float64) int {
	return sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Time > t })
}

// Index returns the position of the keyframe exactly at t. With duplicate
// times the first one wins.
func (s *Sequence) Index(t float64) (int, error) {
	i := s.lower(t)
	if i < len(s.frames) && s.frames[i].Time == t {
		return i, nil
	}
	return -1, fmt.Errorf("%w: no keyframe at time %v", ErrNotFound, t)
}

// At returns the keyframe exactly at t.
func (s *Sequence) At(t float64) (Keyframe, error) {
	i, err := s.Index(t)
	if err != nil {
		return Keyframe{}, err
	}
	return s.frames[i], nil
}

// NearestIndex returns the index of the keyframe closest to t. Ties go to the
// earlier keyframe; times outside the sequence clamp to its ends.
func (s *Sequence) NearestIndex(t float64) (int, error) {
	n := len(s.frames)
	if n == 0 {
		return -1, ErrEmptySequence
	}
	if math.IsNaN(t) {
		return -1, fmt.Errorf("%w: NaN", ErrInvalidTime)
	}

	i := s.lower(t)
	switch {
	case i == 0:
		return 0, nil
	case i == n:
		return s.first(n - 1), nil
	}

	if t-s.frames[i-1].Time <= s.frames[i].Time-t {
		return s.first(i - 1), nil
	}
	return i, nil
}

// NearestIndexWithin is NearestIndex restricted to keyframes no further than
// radius from t. When none is in range the overall nearest is returned and
// inRange is false.
func (s *Sequence) NearestIndexWithin(t, radius float64) (int, bool, error) {
	i, err := s.NearestIndex(t)
	if err != nil {
		return -1, false, err
	}
	// The nearest keyframe in range, if any, is the overall nearest one.
	return i, math.Abs(s.frames[i].Time-t) <= radius, nil
}

// first walks back over keyframes sharing the time at index i.
func (s *Sequence) first(i int) int {
	for i > 0 && s.frames[i-1].Time == s.frames[i].Time {
		i--
	}
	return i
}

// Nearest returns the keyframe at NearestIndex.
func (s *Sequence) Nearest(t float64) (Keyframe, error) {
	i, err := s.NearestIndex(t)
	if err != nil {
		return Keyframe{}, err
	}
	return s.frames[i], nil
}

// Next returns the first keyframe strictly after t, or the last keyframe when
// there is none.
func (s *Sequence) Next(t float64) (Keyframe, error) {
	n := len(s.frames)
	if n == 0 {
		return Keyframe{}, ErrEmptySequence
	}
	i := s.upper(t)
	if i >= n {
		i = n - 1
	}
	return s.frames[i], nil
}

// Previous returns the last keyframe strictly before t, or the first keyframe
// when there is none.
func (s *Sequence) Previous(t float64) (Keyframe, error) {
	if len(s.frames) == 0 {
		return Keyframe{}, ErrEmptySequence
	}
	i := s.lower(t) - 1
	if i < 0 {
		i = 0
	}
	return s.frames[i], nil
}

// Bracket finds the adjacent keyframes around t and t's normalised position
// between them. Before the first keyframe it returns (0, 0, 0); at or after
// the last it returns (last, last, 0).
func (s *Sequence) Bracket(t float64) (int, int, float64, error) {
	n := len(s.frames)
	if n == 0 {
		return 0, 0, 0, ErrEmptySequence
	}
	if math.IsNaN(t) {
		return 0, 0, 0, fmt.Errorf("%w: NaN", ErrInvalidTime)
	}
	if t < s.frames[0].Time {
		return 0, 0, 0, nil
	}
	if t >= s.frames[n-1].Time {
		return n - 1, n - 1, 0, nil
	}

	// frames[0].Time <= t < frames[n-1].Time, so left < n-1.
	left := s.upper(t) - 1
	right := left + 1
	span := s.frames[right].Time - s.frames[left].Time
	if span == 0 {
		return left, right, 0, nil
	}
	return left, right, (t - s.frames[left].Time) / span, nil
}

// ValueAt computes the value at time t. The left keyframe's ease shapes the
// progress between the bracketing keyframes; interp blends them, or the
// default element-wise linear blend is used when interp is nil.
func (s *Sequence) ValueAt(t float64, interp Interpolator) (Value, error) {
	left, right, factor, err := s.Bracket(t)
	if err != nil {
		return Value{}, err
	}

	a := s.frames[left]
	if left == right {
		return a.Value, nil
	}
	b := s.frames[right]

	p := progress(a.Ease, factor)
	if interp == nil {
		return Lerp(a.Value, b.Value, p)
	}
	return interp.Interpolate(a, b, p)
}

func progress(ease string, t float64) float64 {
	switch {
	case ease == "":
		return t
	case easing.IsHold(ease):
		return 0
	default:
		return easing.Ease(t, ease)
	}
}
