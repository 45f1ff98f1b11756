// Package message implements the generic HTTP message shared by requests:
// headers, body stream and protocol version, plus the request line.
//
// Message and Request are values. Their With* methods work on a copy of the
// receiver and never change it, so a value can be handed to other
// goroutines freely.
package message

import (
	"fmt"

	"github.com/yourusername/serverrequest/stream"
)

// DefaultProtocolVersion is used when no version is given.
const DefaultProtocolVersion = "1.1"

var validProtocols = map[string]bool{
	"1.0": true,
	"1.1": true,
	"2":   true,
	"2.0": true,
	"3":   true,
}

// Message holds the parts shared by every HTTP message.
type Message struct {
	header   Header
	body     stream.Stream
	protocol string
}

// NewMessage validates and builds a Message.
// body accepts anything stream.New accepts.
func NewMessage(body any, headers map[string][]string, protocol string) (Message, error) {
	h, err := NewHeader(headers)
	if err != nil {
		return Message{}, err
	}
	m := Message{header: h}

	if m.body, err = stream.New(body); err != nil {
		return Message{}, err
	}

	if protocol == "" {
		protocol = DefaultProtocolVersion
	}
	if !validProtocols[protocol] {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
	}
	m.protocol = protocol
	return m, nil
}

// ProtocolVersion returns the version number only, e.g. "1.1".
func (m Message) ProtocolVersion() string {
	if m.protocol == "" {
		return DefaultProtocolVersion
	}
	return m.protocol
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (m Message) WithProtocolVersion(version string) (Message, error) {
	if !validProtocols[version] {
		return m, fmt.Errorf("%w: %q", ErrInvalidProtocol, version)
	}
	m.protocol = version
	return m, nil
}

// Headers returns a copy of all headers keyed by original-case name.
func (m Message) Headers() map[string][]string { return m.header.All() }

// HasHeader reports whether a header exists (case-insensitive).
func (m Message) HasHeader(name string) bool { return m.header.Has(name) }

// Header returns a copy of the values for name.
func (m Message) Header(name string) []string { return m.header.Values(name) }

// HeaderLine returns the values for name joined by ", ".
func (m Message) HeaderLine(name string) string { return m.header.Line(name) }

// WithHeader returns a copy where name holds exactly values.
func (m Message) WithHeader(name string, values ...string) (Message, error) {
	h, err := m.header.With(name, values...)
	if err != nil {
		return m, err
	}
	m.header = h
	return m, nil
}

// WithAddedHeader returns a copy with values appended to name.
func (m Message) WithAddedHeader(name string, values ...string) (Message, error) {
	h, err := m.header.WithAdded(name, values...)
	if err != nil {
		return m, err
	}
	m.header = h
	return m, nil
}

// WithoutHeader returns a copy without name.
func (m Message) WithoutHeader(name string) Message {
	m.header = m.header.Without(name)
	return m
}

// Body returns the body stream. It is never nil.
func (m Message) Body() stream.Stream {
	if m.body == nil {
		return stream.FromBytes(nil)
	}
	return m.body
}

// WithBody returns a copy with the body replaced.
// body accepts anything stream.New accepts.
func (m Message) WithBody(body any) (Message, error) {
	s, err := stream.New(body)
	if err != nil {
		return m, err
	}
	m.body = s
	return m, nil
}
