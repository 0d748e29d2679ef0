package scenario

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/timeline"
)

func sampleTimeline(t *testing.T) *timeline.Timeline {
	t.Helper()
	tl, err := timeline.New("intro", []timeline.Property{
		{Name: "opacity", Keyframes: []keyframe.Keyframe{
			{Time: 0, Value: keyframe.Scalar(0), Ease: "quadOut"},
			{Time: 1.5, Value: keyframe.Scalar(1), Ease: "hold"},
			{Time: 4, Value: keyframe.Scalar(0.25)},
		}},
		{Name: "position", Keyframes: []keyframe.Keyframe{
			{Time: -1, Value: keyframe.Tuple(0, 0), Extra: map[string]any{"label": "start"}},
			{Time: 2, Value: keyframe.Tuple(300, 150), Ease: "cubicInOut"},
			{Time: 3, Value: keyframe.Tuple(320, 100)},
		}},
		{Name: "outline", Keyframes: []keyframe.Keyframe{
			{Time: 0, Value: keyframe.List([]keyframe.Value{keyframe.Tuple(0, 0), keyframe.Tuple(10, 0)})},
			{Time: 1, Value: keyframe.List([]keyframe.Value{keyframe.Tuple(0, 5), keyframe.Tuple(10, 5)})},
		}},
	})
	if err != nil {
		t.Fatalf("timeline.New failed: %v", err)
	}
	return tl
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(format.String(), func(t *testing.T) {
			orig := sampleTimeline(t)

			var buf bytes.Buffer
			if err := Encode(&buf, FromTimeline(orig), format); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			t.Logf("Encoded:\n%s", buf.String())

			s, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			back, err := s.Timeline()
			if err != nil {
				t.Fatalf("Timeline failed: %v", err)
			}

			if back.Name() != "intro" {
				t.Errorf("Expected name intro, got %s", back.Name())
			}
			want := orig.PropertyNames()
			got := back.PropertyNames()
			if strings.Join(want, ",") != strings.Join(got, ",") {
				t.Fatalf("Expected properties %v, got %v", want, got)
			}

			for _, name := range want {
				frames, _ := orig.Keyframes(name)
				times := []float64{-2, 10}
				for i, kf := range frames {
					times = append(times, kf.Time)
					if i+1 < len(frames) {
						times = append(times, (kf.Time+frames[i+1].Time)/2)
					}
				}
				for _, at := range times {
					a, errA := orig.Value(name, at, nil)
					b, errB := back.Value(name, at, nil)
					if errA != nil || errB != nil {
						t.Fatalf("%s at %v: errors %v / %v", name, at, errA, errB)
					}
					if !a.Equal(b) {
						t.Errorf("%s at %v: expected %v, got %v", name, at, a, b)
					}
				}
			}

			start, err := back.Keyframe("position", -1)
			if err != nil {
				t.Fatalf("Keyframe failed: %v", err)
			}
			if start.Extra["label"] != "start" {
				t.Errorf("Extra field lost: %v", start.Extra)
			}
		})
	}
}

func TestDecodeVersion(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"current", `{"version":"1.0.0","name":"a","properties":[]}`, false},
		{"tolerant", `{"version":"1.2","name":"a","properties":[]}`, false},
		{"missing", `{"name":"a","properties":[]}`, false},
		{"too new", `{"version":"2.0.0","name":"a","properties":[]}`, true},
		{"garbage", `{"version":"banana","name":"a","properties":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), FormatJSON)
			if tt.wantErr {
				if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, ErrUnsupportedVersion) {
					t.Errorf("Expected load failure for unsupported version, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader("properties: [oops"), FormatYAML)
	if !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed, got %v", err)
	}
}

func TestDecodeDuplicateProperty(t *testing.T) {
	doc := "name: dup\nproperties:\n  - name: x\n    keyframes: []\n  - name: x\n    keyframes: []\n"
	s, err := Decode(strings.NewReader(doc), FormatYAML)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, err := s.Timeline(); !errors.Is(err, timeline.ErrDuplicateProperty) {
		t.Errorf("Expected ErrDuplicateProperty, got %v", err)
	}
}

func TestScenarioWriteRead(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"intro.yaml", "intro.json"} {
		path := filepath.Join(dir, name)
		if err := WriteScenario(FromTimeline(sampleTimeline(t)), path); err != nil {
			t.Fatalf("WriteScenario failed: %v", err)
		}
		s, err := ReadScenario(path)
		if err != nil {
			t.Fatalf("ReadScenario failed: %v", err)
		}
		if s.Version != CurrentVersion {
			t.Errorf("Version mismatch: expected %s, got %s", CurrentVersion, s.Version)
		}
		if len(s.Properties) != 3 {
			t.Errorf("Property count mismatch: expected 3, got %d", len(s.Properties))
		}
	}

	if _, err := ReadScenario(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Expected ErrLoadFailed for missing file, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
		"a":      FormatYAML,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("%s: expected %v, got %v", path, want, got)
		}
	}
}

func TestGenerateScenarioPath(t *testing.T) {
	path := GenerateScenarioPath("input/timelines", FormatJSON)
	if !strings.HasPrefix(path, filepath.Join("input", "timelines", "timeline_")) {
		t.Errorf("Unexpected path: %s", path)
	}
	if filepath.Ext(path) != ".json" {
		t.Errorf("Expected .json extension: %s", path)
	}
}

func TestFindLatestScenario(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "timeline_a.yaml"),
		filepath.Join(dir, "timeline_b.json"),
		filepath.Join(dir, "timeline_c.yml"),
	}
	base := time.Now().Add(-time.Hour)
	for i, f := range files {
		if err := os.WriteFile(f, []byte("name: test\n"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(f, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}
	// Newer, but not a scenario
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	latest, err := FindLatestScenario(dir)
	if err != nil {
		t.Fatalf("FindLatestScenario failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}

	if _, err := FindLatestScenario(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}

func TestRoundTripKeepsDuplicateTimes(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(format.String(), func(t *testing.T) {
			orig, err := timeline.New("dups", []timeline.Property{
				{Name: "x", Keyframes: []keyframe.Keyframe{
					{Time: 0, Value: keyframe.Scalar(0)},
					{Time: 2, Value: keyframe.Scalar(10)},
				}},
			})
			if err != nil {
				t.Fatalf("timeline.New failed: %v", err)
			}
			seq, _ := orig.Sequence("x")
			seq.Add(keyframe.Keyframe{Time: 1, Value: keyframe.Scalar(4)})
			seq.Add(keyframe.Keyframe{Time: 1, Value: keyframe.Scalar(6)})

			var buf bytes.Buffer
			if err := Encode(&buf, FromTimeline(orig), format); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			s, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			back, err := s.Timeline()
			if err != nil {
				t.Fatalf("Timeline failed: %v", err)
			}

			frames, _ := back.Keyframes("x")
			if len(frames) != 4 {
				t.Fatalf("Expected 4 keyframes, got %d: %v", len(frames), frames)
			}
			for _, at := range []float64{0.5, 1, 1.5} {
				a, _ := orig.Value("x", at, nil)
				b, _ := back.Value("x", at, nil)
				if !a.Equal(b) {
					t.Errorf("At %v: expected %v, got %v", at, a, b)
				}
			}
		})
	}
}

func TestDecodeRejectsNonFiniteTime(t *testing.T) {
	for _, bad := range []string{".nan", ".inf", "-.inf"} {
		t.Run(bad, func(t *testing.T) {
			doc := "name: bad\nproperties:\n  - name: x\n    keyframes:\n" +
				"      - {time: 2, value: 20}\n" +
				"      - {time: " + bad + ", value: 5}\n" +
				"      - {time: 1, value: 10}\n"
			_, err := Decode(strings.NewReader(doc), FormatYAML)
			if !errors.Is(err, ErrLoadFailed) || !errors.Is(err, keyframe.ErrInvalidTime) {
				t.Errorf("Expected ErrLoadFailed and ErrInvalidTime, got %v", err)
			}
		})
	}
}

func TestIsScenarioFile(t *testing.T) {
	tests := map[string]bool{
		"intro.yaml":     true,
		"intro.YML":      true,
		"dir/intro.json": true,
		"ease.tengo":     false,
		"notes.txt":      false,
		"yaml":           false,
	}
	for name, want := range tests {
		if got := IsScenarioFile(name); got != want {
			t.Errorf("IsScenarioFile(%q) = %v, want %v", name, got, want)
		}
	}
}
