package keyframe

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		kind  Kind
		shape string
	}{
		{"float", 1.5, KindScalar, "scalar"},
		{"int", 3, KindScalar, "scalar"},
		{"point", []any{1.0, 2.0}, KindTuple, "tuple[2]"},
		{"polygon", []any{[]any{0.0, 0.0}, []any{1.0, 1.0}}, KindNested, "nested[2][tuple[2],tuple[2]]"},
		{"object", map[string]any{"x": 1.0}, KindOpaque, "opaque"},
		{"string", "#ff0000", KindOpaque, "opaque"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromAny(tt.in)
			if v.Kind() != tt.kind {
				t.Errorf("Expected kind %v, got %v", tt.kind, v.Kind())
			}
			if v.Shape() != tt.shape {
				t.Errorf("Expected shape %s, got %s", tt.shape, v.Shape())
			}
		})
	}
}

func TestSameShape(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"scalars", Scalar(1), Scalar(2), true},
		{"tuples", Tuple(1, 2), Tuple(3, 4), true},
		{"tuple lengths", Tuple(1, 2), Tuple(1, 2, 3), false},
		{"scalar vs tuple", Scalar(1), Tuple(1), false},
		{"nested", List([]Value{Tuple(1, 2)}), List([]Value{Tuple(3, 4)}), true},
		{"nested inner length", List([]Value{Tuple(1, 2)}), List([]Value{Tuple(3)}), false},
		{"opaque", Opaque("a"), Opaque("a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.SameShape(tt.b); got != tt.want {
				t.Errorf("SameShape = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLerpNested(t *testing.T) {
	a := List([]Value{Tuple(0, 0), Tuple(10, 10)})
	b := List([]Value{Tuple(10, 0), Tuple(20, 30)})

	got, err := Lerp(a, b, 0.5)
	if err != nil {
		t.Fatalf("Lerp failed: %v", err)
	}
	want := List([]Value{Tuple(5, 0), Tuple(15, 20)})
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got.Kind() != KindNested {
		t.Errorf("Expected nested result, got %v", got.Kind())
	}
}

func TestLerpOpaqueNeedsInterpolator(t *testing.T) {
	if _, err := Lerp(Opaque("a"), Opaque("b"), 0.5); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestValueJSON(t *testing.T) {
	for _, src := range []string{`5`, `[1,2,3]`, `[[0,0],[1,2]]`, `{"x":1,"y":2}`} {
		var v Value
		if err := json.Unmarshal([]byte(src), &v); err != nil {
			t.Fatalf("Unmarshal %s failed: %v", src, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if string(out) != src {
			t.Errorf("Expected %s, got %s", src, out)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if _, ok := Tuple(1).Float(); ok {
		t.Error("Tuple must not report a scalar")
	}
	fs, ok := Tuple(1, 2).Floats()
	if !ok || len(fs) != 2 || fs[1] != 2 {
		t.Errorf("Floats = %v, %v", fs, ok)
	}
	if _, ok := List([]Value{Tuple(1)}).Floats(); ok {
		t.Error("Nested must not report floats")
	}
	if s := Tuple(1, 2.5).String(); s != "[1, 2.5]" {
		t.Errorf("String = %q", s)
	}
}
