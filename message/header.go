package message

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header is an ordered, case-insensitive header collection.
//
// Names keep the case they were first given in; lookup ignores case.
// A Header is never modified once built: every change returns a new one.
type Header struct {
	// Original-case names in insertion order
	names []string

	// Values keyed by lower-case name
	values map[string][]string
}

// NewHeader validates and copies h. Names differing only in case are merged.
// Names are inserted in sorted order so the result does not depend on map
// iteration order.
func NewHeader(h map[string][]string) (Header, error) {
	out := Header{values: make(map[string][]string, len(h))}
	for _, name := range slices.Sorted(maps.Keys(h)) {
		vals, err := normalize(name, h[name])
		if err != nil {
			return Header{}, err
		}
		key := strings.ToLower(name)
		if _, ok := out.values[key]; !ok {
			out.names = append(out.names, name)
		}
		out.values[key] = append(out.values[key], vals...)
	}
	return out, nil
}

// normalize validates one header and returns its trimmed values.
//
// RFC 7230 §3.2: field values MUST NOT contain CR or LF. Rejecting them
// prevents header injection when the header is written back out.
func normalize(name string, values []string) ([]string, error) {
	if !httpguts.ValidHeaderFieldName(name) {
		return nil, fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	out := make([]string, len(values))
	for i, v := range values {
		v = strings.Trim(v, " \t")
		if !httpguts.ValidHeaderFieldValue(v) {
			return nil, fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
		}
		out[i] = v
	}
	return out, nil
}

// Len returns the number of distinct header names.
func (h Header) Len() int { return len(h.names) }

// Has reports whether name is present (case-insensitive).
func (h Header) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Values returns a copy of the values for name, or nil.
func (h Header) Values(name string) []string {
	return slices.Clone(h.values[strings.ToLower(name)])
}

// Line returns the values for name joined with ", ".
func (h Header) Line(name string) string {
	return strings.Join(h.values[strings.ToLower(name)], ", ")
}

// Names returns the header names in insertion order.
func (h Header) Names() []string {
	return slices.Clone(h.names)
}

// All returns a copy keyed by original-case names.
func (h Header) All() map[string][]string {
	out := make(map[string][]string, len(h.names))
	for _, name := range h.names {
		out[name] = slices.Clone(h.values[strings.ToLower(name)])
	}
	return out
}

// With returns a copy where name holds exactly values.
// An existing header keeps its position but takes the new name's case.
func (h Header) With(name string, values ...string) (Header, error) {
	vals, err := normalize(name, values)
	if err != nil {
		return h, err
	}
	key := strings.ToLower(name)
	out := h.clone()
	if idx := out.index(key); idx >= 0 {
		out.names[idx] = name
	} else {
		out.names = append(out.names, name)
	}
	out.values[key] = vals
	return out, nil
}

// WithAdded returns a copy with values appended to name.
func (h Header) WithAdded(name string, values ...string) (Header, error) {
	vals, err := normalize(name, values)
	if err != nil {
		return h, err
	}
	key := strings.ToLower(name)
	out := h.clone()
	if out.index(key) < 0 {
		out.names = append(out.names, name)
	}
	out.values[key] = append(slices.Clone(out.values[key]), vals...)
	return out, nil
}

// Without returns a copy without name. h itself is returned when name is absent.
func (h Header) Without(name string) Header {
	key := strings.ToLower(name)
	idx := h.index(key)
	if idx < 0 {
		return h
	}
	out := h.clone()
	out.names = slices.Delete(out.names, idx, idx+1)
	delete(out.values, key)
	return out
}

// withFirst returns a copy where name holds value and is moved to the front.
// Used for Host, which RFC 7230 §5.4 wants first.
func (h Header) withFirst(name, value string) (Header, error) {
	out, err := h.Without(name).With(name, value)
	if err != nil {
		return h, err
	}
	last := len(out.names) - 1
	out.names = append([]string{out.names[last]}, out.names[:last]...)
	return out, nil
}

func (h Header) index(key string) int {
	for i, n := range h.names {
		if strings.ToLower(n) == key {
			return i
		}
	}
	return -1
}

func (h Header) clone() Header {
	out := Header{
		names:  slices.Clone(h.names),
		values: maps.Clone(h.values),
	}
	if out.values == nil {
		out.values = make(map[string][]string, 1)
	}
	return out
}
