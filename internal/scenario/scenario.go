// Package scenario reads and writes timelines as JSON or YAML documents.
package scenario

import (
	"errors"
	"fmt"

	"github.com/blang/semver/v4"

	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/timeline"
)

// CurrentVersion is written into every encoded scenario.
const CurrentVersion = "1.0.0"

var (
	ErrLoadFailed         = errors.New("load failed")
	ErrUnsupportedVersion = errors.New("unsupported scenario version")

	supported = semver.MustParseRange(">=1.0.0 <2.0.0")
)

// Scenario is the document form of a timeline.
type Scenario struct {
	Version    string     `json:"version" yaml:"version"`
	Name       string     `json:"name" yaml:"name"`
	Properties []Property `json:"properties" yaml:"properties"`
}

// Property is a named list of keyframes.
type Property struct {
	Name      string              `json:"name" yaml:"name"`
	Keyframes []keyframe.Keyframe `json:"keyframes" yaml:"keyframes"`
}

// FromTimeline captures the current state of tl.
func FromTimeline(tl *timeline.Timeline) *Scenario {
	s := &Scenario{Version: CurrentVersion, Name: tl.Name()}
	for _, name := range tl.PropertyNames() {
		frames, _ := tl.Keyframes(name)
		s.Properties = append(s.Properties, Property{Name: name, Keyframes: frames})
	}
	return s
}

// Timeline builds a timeline from the document.
func (s *Scenario) Timeline() (*timeline.Timeline, error) {
	if err := s.CheckVersion(); err != nil {
		return nil, err
	}
	props := make([]timeline.Property, len(s.Properties))
	for i, p := range s.Properties {
		props[i] = timeline.Property{Name: p.Name, Keyframes: p.Keyframes}
	}
	return timeline.New(s.Name, props)
}

// CheckVersion accepts documents of format major version 1. An empty
// version is read as 1.0.0.
func (s *Scenario) CheckVersion() error {
	if s.Version == "" {
		return nil
	}
	v, err := semver.ParseTolerant(s.Version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, s.Version, err)
	}
	if !supported(v) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}
	return nil
}
