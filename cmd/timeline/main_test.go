package main

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/scenario"
	"github.com/ivlev/timeline/internal/timeline"
)

func writeScenario(t *testing.T, dir string) string {
	t.Helper()
	tl, err := timeline.New("cli", []timeline.Property{
		{Name: "zoom", Keyframes: []keyframe.Keyframe{
			{Time: 1, Value: keyframe.Scalar(1)},
			{Time: 3, Value: keyframe.Scalar(2)},
		}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	path := filepath.Join(dir, "cli.yaml")
	if err := scenario.WriteScenario(scenario.FromTimeline(tl), path); err != nil {
		t.Fatalf("WriteScenario failed: %v", err)
	}
	return path
}

func TestGridDefaultsToSpan(t *testing.T) {
	path := writeScenario(t, t.TempDir())
	e := &env{cfg: config.Default()}
	e.cfg.FPS = 10
	tl, err := loadTimeline(path, e)
	if err != nil {
		t.Fatalf("loadTimeline failed: %v", err)
	}

	tests := []struct {
		name      string
		args      []string
		wantStart float64
		wantEnd   float64
		wantStep  float64
	}{
		{"defaults", nil, 1, 3, 0.1},
		{"explicit", []string{"-start", "0", "-end", "5", "-step", "0.5"}, 0, 5, 0.5},
		{"start only", []string{"-start", "2"}, 2, 3, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			start, end, step := gridFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			g, err := e.grid(fs, tl, *start, *end, *step)
			if err != nil {
				t.Fatalf("grid failed: %v", err)
			}
			if g.Start != tt.wantStart || g.End != tt.wantEnd || g.Step != tt.wantStep {
				t.Errorf("Expected %v..%v step %v, got %+v", tt.wantStart, tt.wantEnd, tt.wantStep, g)
			}
		})
	}
}

func TestConvertWritesJSON(t *testing.T) {
	dir := t.TempDir()
	in := writeScenario(t, dir)
	out := filepath.Join(dir, "cli.json")

	e := &env{name: "convert"}
	if err := runConvert(e, []string{"-input", in, "-out", out}); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	s, err := scenario.ReadScenario(out)
	if err != nil {
		t.Fatalf("ReadScenario failed: %v", err)
	}
	if s.Name != "cli" || len(s.Properties) != 1 || len(s.Properties[0].Keyframes) != 2 {
		t.Errorf("Unexpected scenario: %+v", s)
	}
}

func TestSplitNames(t *testing.T) {
	if names := splitNames(""); names != nil {
		t.Errorf("Expected nil, got %v", names)
	}
	if names := splitNames("zoom,x,y"); len(names) != 3 || names[2] != "y" {
		t.Errorf("Expected [zoom x y], got %v", names)
	}
}
