package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "yaml"
}

// FormatFromPath picks the format from a file extension. Anything other than
// .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Encode writes s to w.
func Encode(w io.Writer, s *Scenario, f Format) error {
	if f == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a scenario from r and checks its version. Every failure wraps
// ErrLoadFailed.
func Decode(r io.Reader, f Format) (*Scenario, error) {
	var s Scenario
	var err error
	if f == FormatJSON {
		err = json.NewDecoder(r).Decode(&s)
	} else {
		err = yaml.NewDecoder(r).Decode(&s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, f, err)
	}
	if err := s.CheckVersion(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return &s, nil
}

// WriteScenario writes a scenario to path in the format its extension names.
func WriteScenario(s *Scenario, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s, FormatFromPath(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadScenario reads a scenario file.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return Decode(bytes.NewReader(data), FormatFromPath(path))
}
