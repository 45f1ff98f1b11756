package core

import (
	"reflect"
	"sort"
)

// Attributes returns a copy of the attribute map. Values are shared.
func (r *ServerRequest) Attributes() map[string]any {
	out := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}
	return out
}

// AttributeNames returns the attribute names in sorted order.
func (r *ServerRequest) AttributeNames() []string {
	names := make([]string, 0, len(r.attributes))
	for k := range r.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Attribute returns the value stored under name. When name is absent it
// returns def[0], or nil when no default is given.
//
// Example:
//
//	id := req.Attribute("id", "anonymous").(string)
func (r *ServerRequest) Attribute(name string, def ...any) any {
	if v, ok := r.attributes[name]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// WithAttribute returns a copy with name set to value.
//
// When name already holds a value identical to value the receiver itself
// is returned. See sameValue for what identical means.
func (r *ServerRequest) WithAttribute(name string, value any) *ServerRequest {
	if old, ok := r.attributes[name]; ok && sameValue(old, value) {
		return r
	}

	attrs := make(map[string]any, len(r.attributes)+1)
	for k, v := range r.attributes {
		attrs[k] = v
	}
	attrs[name] = value

	c := r.clone()
	c.attributes = attrs
	return c
}

// WithoutAttribute returns a copy without name, or the receiver itself
// when name is absent.
func (r *ServerRequest) WithoutAttribute(name string) *ServerRequest {
	if _, ok := r.attributes[name]; !ok {
		return r
	}

	attrs := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		if k != name {
			attrs[k] = v
		}
	}

	c := r.clone()
	c.attributes = attrs
	return c
}

// sameValue reports whether a and b are identical attribute values:
//   - nil is identical to nil only
//   - values of different dynamic types never are
//   - maps are identical when they are the same map
//   - slices when they share backing array and length
//   - funcs never are
//   - anything else comparable compares with ==
//
// Non-comparable values (e.g. structs holding slices) are never identical.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}

	if va.Comparable() {
		return va.Equal(vb)
	}
	return false
}
