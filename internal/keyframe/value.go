package keyframe

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the shape class of a Value.
type Kind int

const (
	// KindScalar is a single number.
	KindScalar Kind = iota
	// KindTuple is a flat, fixed-length list of numbers (point, RGB, ...).
	KindTuple
	// KindNested is a list holding at least one non-number, e.g. a polygon.
	KindNested
	// KindOpaque is anything else. It is carried verbatim and can only be
	// blended by a custom interpolator.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTuple:
		return "tuple"
	case KindNested:
		return "nested"
	default:
		return "opaque"
	}
}

// Value is the payload of a keyframe. The zero Value is the scalar 0.
// Values are immutable; accessors return copies.
type Value struct {
	kind   Kind
	scalar float64
	items  []Value
	opaque any
}

// Scalar returns a single-number value.
func Scalar(f float64) Value {
	return Value{kind: KindScalar, scalar: f}
}

// Tuple returns a flat numeric list.
func Tuple(fs ...float64) Value {
	items := make([]Value, len(fs))
	for i, f := range fs {
		items[i] = Scalar(f)
	}
	return Value{kind: KindTuple, items: items}
}

// List builds a list value from items. A list made only of scalars is a
// tuple, anything else is nested.
func List(items []Value) Value {
	kind := KindTuple
	for _, it := range items {
		if it.kind != KindScalar {
			kind = KindNested
			break
		}
	}
	return Value{kind: kind, items: append([]Value(nil), items...)}
}

// Opaque wraps an arbitrary value.
func Opaque(v any) Value {
	return Value{kind: KindOpaque, opaque: v}
}

// FromAny converts decoded JSON/YAML data (numbers, lists, anything else)
// into a Value.
func FromAny(v any) Value {
	if f, ok := toFloat(v); ok {
		return Scalar(f)
	}
	switch x := v.(type) {
	case Value:
		return x
	case []float64:
		return Tuple(x...)
	case []any:
		items := make([]Value, len(x))
		for i, it := range x {
			items[i] = FromAny(it)
		}
		return List(items)
	}
	return Opaque(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Kind returns the shape class.
func (v Value) Kind() Kind { return v.kind }

// Float returns the number held by a scalar value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	return v.scalar, true
}

// Floats returns the numbers held by a tuple value.
func (v Value) Floats() ([]float64, bool) {
	if v.kind != KindTuple {
		return nil, false
	}
	out := make([]float64, len(v.items))
	for i, it := range v.items {
		out[i] = it.scalar
	}
	return out, true
}

// Items returns the elements of a tuple or nested value.
func (v Value) Items() []Value {
	return append([]Value(nil), v.items...)
}

// Len is the element count of a list value and 0 otherwise.
func (v Value) Len() int { return len(v.items) }

// Raw returns the opaque payload.
func (v Value) Raw() any { return v.opaque }

// Interface converts the value back to plain Go data: float64, []any or the
// opaque payload.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindTuple, KindNested:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	default:
		return v.opaque
	}
}

// Shape describes the value's structure, e.g. "scalar", "tuple[3]" or
// "nested[2][tuple[2]]".
func (v Value) Shape() string {
	switch v.kind {
	case KindScalar:
		return "scalar"
	case KindTuple:
		return fmt.Sprintf("tuple[%d]", len(v.items))
	case KindNested:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.Shape()
		}
		return fmt.Sprintf("nested[%d][%s]", len(v.items), strings.Join(parts, ","))
	default:
		return "opaque"
	}
}

// SameShape reports whether v and o can be blended element-wise. Opaque
// values never match.
func (v Value) SameShape(o Value) bool {
	if v.kind != o.kind || v.kind == KindOpaque {
		return false
	}
	if len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].SameShape(o.items[i]) {
			return false
		}
	}
	return true
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	return reflect.DeepEqual(v.Interface(), o.Interface())
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return fmt.Sprintf("%g", v.scalar)
	case KindTuple, KindNested:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v.opaque)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
