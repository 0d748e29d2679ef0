// Package keyframe holds time-ordered keyframe sequences and computes
// interpolated values between them.
package keyframe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Keyframe is a single time-stamped sample.
type Keyframe struct {
	Time  float64
	Value Value
	// Ease names the curve used when this keyframe is the left end of a span.
	// Empty means linear, "hold" means step.
	Ease string
	// Extra carries caller fields that are preserved on round-trip.
	Extra map[string]any
}

var reservedFields = map[string]bool{"time": true, "value": true, "ease": true}

func (k Keyframe) extraKeys() []string {
	keys := make([]string, 0, len(k.Extra))
	for key := range k.Extra {
		if reservedFields[key] {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes time, value and ease first, then extra fields by name.
func (k Keyframe) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"time":`)
	t, err := json.Marshal(k.Time)
	if err != nil {
		return nil, err
	}
	buf.Write(t)

	buf.WriteString(`,"value":`)
	v, err := json.Marshal(k.Value)
	if err != nil {
		return nil, err
	}
	buf.Write(v)

	if k.Ease != "" {
		e, _ := json.Marshal(k.Ease)
		buf.WriteString(`,"ease":`)
		buf.Write(e)
	}

	for _, key := range k.extraKeys() {
		name, _ := json.Marshal(key)
		val, err := json.Marshal(k.Extra[key])
		if err != nil {
			return nil, fmt.Errorf("extra field %q: %w", key, err)
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Keyframe) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	rawTime, ok := fields["time"]
	if !ok {
		return errors.New("keyframe has no time")
	}

	var out Keyframe
	if err := json.Unmarshal(rawTime, &out.Time); err != nil {
		return fmt.Errorf("keyframe time: %w", err)
	}
	if err := CheckTime(out.Time); err != nil {
		return fmt.Errorf("keyframe time: %w", err)
	}
	if raw, ok := fields["value"]; ok {
		if err := json.Unmarshal(raw, &out.Value); err != nil {
			return fmt.Errorf("keyframe value: %w", err)
		}
	}
	if raw, ok := fields["ease"]; ok {
		if err := json.Unmarshal(raw, &out.Ease); err != nil {
			return fmt.Errorf("keyframe ease: %w", err)
		}
	}

	for key, raw := range fields {
		if reservedFields[key] {
			continue
		}
		var x any
		if err := json.Unmarshal(raw, &x); err != nil {
			return fmt.Errorf("extra field %q: %w", key, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key] = x
	}

	*k = out
	return nil
}

// MarshalYAML emits an ordered mapping with the same layout as MarshalJSON.
func (k Keyframe) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, val any) error {
		var vn yaml.Node
		if err := vn.Encode(val); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &vn)
		return nil
	}

	if err := add("time", k.Time); err != nil {
		return nil, err
	}
	if err := add("value", k.Value.Interface()); err != nil {
		return nil, err
	}
	if k.Ease != "" {
		if err := add("ease", k.Ease); err != nil {
			return nil, err
		}
	}
	for _, key := range k.extraKeys() {
		if err := add(key, k.Extra[key]); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Keyframe) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: keyframe must be a mapping", node.Line)
	}

	var out Keyframe
	hasTime := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		var err error
		switch key {
		case "time":
			hasTime = true
			err = val.Decode(&out.Time)
		case "value":
			err = val.Decode(&out.Value)
		case "ease":
			err = val.Decode(&out.Ease)
		default:
			var x any
			if err = val.Decode(&x); err == nil {
				if out.Extra == nil {
					out.Extra = make(map[string]any)
				}
				out.Extra[key] = x
			}
		}
		if err != nil {
			return fmt.Errorf("keyframe %s: %w", key, err)
		}
	}
	if !hasTime {
		return fmt.Errorf("line %d: keyframe has no time", node.Line)
	}
	if err := CheckTime(out.Time); err != nil {
		return fmt.Errorf("line %d: keyframe time: %w", node.Line, err)
	}

	*k = out
	return nil
}
