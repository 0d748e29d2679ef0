// Package timeline maps property names to keyframe sequences.
package timeline

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ivlev/timeline/internal/keyframe"
)

var (
	ErrPropertyNotFound  = errors.New("property not found")
	ErrDuplicateProperty = errors.New("property already exists")
)

// Property is a named keyframe sequence.
type Property struct {
	Name      string
	Keyframes []keyframe.Keyframe
}

// Timeline is a named set of properties. It does no locking: callers that
// share a Timeline between goroutines must serialise access to it.
type Timeline struct {
	name  string
	order []string
	props map[string]*keyframe.Sequence

	Log logr.Logger
}

// New creates a timeline from an ordered list of properties. Keyframes need
// not be sorted and are kept as given, duplicate times included.
func New(name string, props []Property) (*Timeline, error) {
	tl := &Timeline{
		name:  name,
		props: make(map[string]*keyframe.Sequence, len(props)),
		Log:   logr.Discard(),
	}
	for _, p := range props {
		if err := tl.AddProperty(p.Name, p.Keyframes); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

// WithLogger sets the logger used for mutation traces.
func (tl *Timeline) WithLogger(log logr.Logger) *Timeline {
	tl.Log = log
	return tl
}

// Name returns the timeline's name.
func (tl *Timeline) Name() string { return tl.name }

// PropertyNames returns property names in insertion order.
func (tl *Timeline) PropertyNames() []string {
	return append([]string(nil), tl.order...)
}

// HasProperty reports whether a property exists.
func (tl *Timeline) HasProperty(name string) bool {
	_, ok := tl.props[name]
	return ok
}

// AddProperty creates a property holding frames in time order. It fails if
// the name is taken or a keyframe time is not finite.
func (tl *Timeline) AddProperty(name string, frames []keyframe.Keyframe) error {
	if tl.HasProperty(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, name)
	}
	for _, kf := range frames {
		if err := keyframe.CheckTime(kf.Time); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	tl.create(name, frames)
	return nil
}

func (tl *Timeline) create(name string, frames []keyframe.Keyframe) *keyframe.Sequence {
	seq := keyframe.NewSequence(frames)
	tl.props[name] = seq
	tl.order = append(tl.order, name)
	tl.Log.V(1).Info("property created", "timeline", tl.name, "property", name, "keyframes", len(frames))
	return seq
}

// RemoveProperty deletes a property and its keyframes.
func (tl *Timeline) RemoveProperty(name string) error {
	if !tl.HasProperty(name) {
		return tl.notFound(name)
	}
	delete(tl.props, name)
	for i, n := range tl.order {
		if n == name {
			tl.order = append(tl.order[:i], tl.order[i+1:]...)
			break
		}
	}
	return nil
}

// Sequence returns the keyframe sequence behind a property.
func (tl *Timeline) Sequence(name string) (*keyframe.Sequence, error) {
	seq, ok := tl.props[name]
	if !ok {
		return nil, tl.notFound(name)
	}
	return seq, nil
}

func (tl *Timeline) notFound(name string) error {
	return fmt.Errorf("%w: %q", ErrPropertyNotFound, name)
}

// AddKeyframe replaces the keyframe at kf.Time or inserts kf. The property is
// created when missing.
func (tl *Timeline) AddKeyframe(name string, kf keyframe.Keyframe) error {
	if err := keyframe.CheckTime(kf.Time); err != nil {
		return err
	}
	seq, ok := tl.props[name]
	if !ok {
		seq = tl.create(name, nil)
	}

	i, err := seq.Index(kf.Time)
	if err != nil {
		seq.Add(kf)
		return nil
	}
	tl.Log.V(1).Info("keyframe replaced", "property", name, "time", kf.Time)
	return seq.Replace(i, kf)
}

// AddKeyframes applies AddKeyframe to each keyframe in order. Nothing is
// added when any time is not finite.
func (tl *Timeline) AddKeyframes(name string, frames []keyframe.Keyframe) error {
	for _, kf := range frames {
		if err := keyframe.CheckTime(kf.Time); err != nil {
			return err
		}
	}
	if len(frames) == 0 && !tl.HasProperty(name) {
		tl.create(name, nil)
		return nil
	}
	for _, kf := range frames {
		if err := tl.AddKeyframe(name, kf); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceKeyframes drops every keyframe of a property and adds frames.
func (tl *Timeline) ReplaceKeyframes(name string, frames []keyframe.Keyframe) error {
	seq, err := tl.Sequence(name)
	if err != nil {
		return err
	}
	for _, kf := range frames {
		if err := keyframe.CheckTime(kf.Time); err != nil {
			return err
		}
	}
	seq.Clear()
	return tl.AddKeyframes(name, frames)
}

// RemoveKeyframes deletes count keyframes starting at index and returns how
// many were removed.
func (tl *Timeline) RemoveKeyframes(name string, index, count int) (int, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return 0, err
	}
	return seq.RemoveRange(index, count), nil
}

// Keyframe returns the keyframe exactly at t.
func (tl *Timeline) Keyframe(name string, t float64) (keyframe.Keyframe, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Keyframe{}, err
	}
	return seq.At(t)
}

// Keyframes returns a copy of a property's keyframes in time order.
func (tl *Timeline) Keyframes(name string) ([]keyframe.Keyframe, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return nil, err
	}
	return seq.Keyframes(), nil
}

// Value computes a property's value at t. A nil interp selects the default
// linear blend.
func (tl *Timeline) Value(name string, t float64, interp keyframe.Interpolator) (keyframe.Value, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Value{}, err
	}
	return seq.ValueAt(t, interp)
}

// Nearest returns the keyframe closest to t.
func (tl *Timeline) Nearest(name string, t float64) (keyframe.Keyframe, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Keyframe{}, err
	}
	return seq.Nearest(t)
}

// NearestIndex returns the index of the keyframe closest to t.
func (tl *Timeline) NearestIndex(name string, t float64) (int, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return -1, err
	}
	return seq.NearestIndex(t)
}

// NearestIndexWithin is NearestIndex plus whether the keyframe lies within
// radius of t.
func (tl *Timeline) NearestIndexWithin(name string, t, radius float64) (int, bool, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return -1, false, err
	}
	return seq.NearestIndexWithin(t, radius)
}

// NearestWithin returns the keyframe closest to t and whether it lies within
// radius of t.
func (tl *Timeline) NearestWithin(name string, t, radius float64) (keyframe.Keyframe, bool, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Keyframe{}, false, err
	}
	i, inRange, err := seq.NearestIndexWithin(t, radius)
	if err != nil {
		return keyframe.Keyframe{}, false, err
	}
	kf, err := seq.KeyframeAt(i)
	return kf, inRange, err
}

// Next returns the first keyframe after t, clamped to the last one.
func (tl *Timeline) Next(name string, t float64) (keyframe.Keyframe, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Keyframe{}, err
	}
	return seq.Next(t)
}

// Previous returns the last keyframe before t, clamped to the first one.
func (tl *Timeline) Previous(name string, t float64) (keyframe.Keyframe, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return keyframe.Keyframe{}, err
	}
	return seq.Previous(t)
}

// Bracket returns the keyframe indices around t and the position between them.
func (tl *Timeline) Bracket(name string, t float64) (int, int, float64, error) {
	seq, err := tl.Sequence(name)
	if err != nil {
		return 0, 0, 0, err
	}
	return seq.Bracket(t)
}
