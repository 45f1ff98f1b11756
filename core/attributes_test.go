package core

import (
	"reflect"
	"testing"
)

func TestAttributeDefault(t *testing.T) {
	req, _ := New(Options{})

	if got := req.Attribute("missing", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %v", got)
	}
	if got := req.Attribute("missing"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := req.WithAttribute("k", 1).Attribute("k", "fallback"); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}

	// a stored nil is still a stored value
	if got := req.WithAttribute("k", nil).Attribute("k", "fallback"); got != nil {
		t.Errorf("expected stored nil, got %v", got)
	}
}

func TestWithAttributeShortCircuit(t *testing.T) {
	base, _ := New(Options{})
	shared := map[string]any{"id": 1}
	list := []string{"a", "b"}
	ptr := &struct{ n int }{1}

	tests := []struct {
		name  string
		value any
		again any
	}{
		{"int", 1, 1},
		{"string", "admin", "admin"},
		{"bool", true, true},
		{"nil", nil, nil},
		{"same map", shared, shared},
		{"same slice", list, list},
		{"same pointer", ptr, ptr},
		{"comparable struct", struct{ A, B int }{1, 2}, struct{ A, B int }{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base.WithAttribute("k", tt.value)
			if got := req.WithAttribute("k", tt.again); got != req {
				t.Error("expected the same instance")
			}
		})
	}
}

func TestWithAttributeNewInstance(t *testing.T) {
	base, _ := New(Options{})
	list := []string{"a", "b"}
	fn := func() {}

	tests := []struct {
		name  string
		value any
		next  any
	}{
		{"different int", 1, 2},
		{"different type", 1, int64(1)},
		{"nil to value", nil, 0},
		{"equal but distinct maps", map[string]int{"a": 1}, map[string]int{"a": 1}},
		{"shorter view of slice", list, list[:1]},
		{"func", fn, fn},
		{"non-comparable struct", struct{ S []int }{nil}, struct{ S []int }{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base.WithAttribute("k", tt.value)
			next := req.WithAttribute("k", tt.next)
			if next == req {
				t.Fatal("expected a new instance")
			}
			if !reflect.DeepEqual(req.Attribute("k"), tt.value) && tt.name != "func" {
				t.Errorf("receiver changed: %v", req.Attribute("k"))
			}
		})
	}
}

func TestWithAttributeAbsentKey(t *testing.T) {
	base, _ := New(Options{})

	next := base.WithAttribute("k", nil)
	if next == base {
		t.Error("expected a new instance for an absent key")
	}
	if _, ok := base.Attributes()["k"]; ok {
		t.Error("receiver gained an attribute")
	}
}

func TestWithoutAttribute(t *testing.T) {
	base, _ := New(Options{})
	req := base.WithAttribute("a", 1).WithAttribute("b", 2)

	if got := req.WithoutAttribute("missing"); got != req {
		t.Error("expected the same instance for an absent key")
	}

	next := req.WithoutAttribute("a")
	if next == req {
		t.Fatal("expected a new instance")
	}
	if !reflect.DeepEqual(next.Attributes(), map[string]any{"b": 2}) {
		t.Errorf("expected only b, got %v", next.Attributes())
	}
	if !reflect.DeepEqual(req.Attributes(), map[string]any{"a": 1, "b": 2}) {
		t.Errorf("receiver changed: %v", req.Attributes())
	}
}

func TestAttributesCopy(t *testing.T) {
	base, _ := New(Options{})
	req := base.WithAttribute("a", 1)

	attrs := req.Attributes()
	attrs["a"] = 2
	attrs["b"] = 3

	if req.Attribute("a") != 1 {
		t.Errorf("expected 1, got %v", req.Attribute("a"))
	}
	if names := req.AttributeNames(); !reflect.DeepEqual(names, []string{"a"}) {
		t.Errorf("expected [a], got %v", names)
	}
}

func TestSiblingsDoNotShareAttributes(t *testing.T) {
	base, _ := New(Options{})
	left := base.WithAttribute("side", "left")
	right := base.WithAttribute("side", "right")

	if left.Attribute("side") != "left" || right.Attribute("side") != "right" {
		t.Errorf("siblings interfered: %v / %v", left.Attribute("side"), right.Attribute("side"))
	}
	if len(base.Attributes()) != 0 {
		t.Errorf("base changed: %v", base.Attributes())
	}
}
