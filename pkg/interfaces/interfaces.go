// Package interfaces defines the descriptor contract between protocol
// code generation and the dispatch engine.
//
// A descriptor describes one protocol interface: its name, the highest
// version the server understands, and one Message entry per request and
// event opcode. Descriptors are plain data, typically emitted by a scanner
// from a protocol XML file; the engine only ever reads them.
//
// The package also carries the three descriptors the engine itself speaks:
// the display object every connection starts with, the registry used for
// global discovery, and the one-shot callback used by sync.
package interfaces

import (
	"errors"
	"fmt"
)

// Message describes one opcode of an interface: one request (client to
// server) or one event (server to client).
type Message struct {
	// Name is the protocol-level message name.
	Name string

	// Signature drives argument (de)coding; see package wire for the
	// per-character meaning.
	Signature string

	// Types holds, for each `o` or `n` argument, the interface of the
	// referenced object. A nil entry means the interface is carried
	// inline (the registry bind request does this).
	Types []*Interface

	// Since is the lowest interface version providing this message.
	Since int32

	// Destructor marks the request that destroys the receiving object.
	Destructor bool
}

// Interface is the descriptor for one protocol interface.
type Interface struct {
	// Name is the protocol-level interface name, e.g. "wl_seat".
	Name string

	// Version is the highest version the server implementation supports.
	Version int32

	// Requests are the client-to-server opcodes, in opcode order.
	Requests []Message

	// Events are the server-to-client opcodes, in opcode order.
	Events []Message
}

// Descriptor validation errors.
var (
	ErrNoName     = errors.New("interfaces: descriptor has no name")
	ErrBadVersion = errors.New("interfaces: descriptor version must be positive")
	ErrBadSince   = errors.New("interfaces: message since exceeds interface version")
)

// Validate checks the structural invariants of a descriptor. Generated
// descriptors are trusted; hand-written ones should be validated once at
// startup.
func (i *Interface) Validate() error {
	if i.Name == "" {
		return ErrNoName
	}
	if i.Version < 1 {
		return fmt.Errorf("%w: %s", ErrBadVersion, i.Name)
	}
	for _, set := range [2][]Message{i.Requests, i.Events} {
		for _, m := range set {
			if m.Since > i.Version {
				return fmt.Errorf("%w: %s.%s", ErrBadSince, i.Name, m.Name)
			}
		}
	}
	return nil
}

// Request returns the request descriptor for opcode, or nil when the
// opcode is out of range.
func (i *Interface) Request(opcode uint16) *Message {
	if int(opcode) >= len(i.Requests) {
		return nil
	}
	return &i.Requests[opcode]
}

// Event returns the event descriptor for opcode, or nil when the opcode
// is out of range.
func (i *Interface) Event(opcode uint16) *Message {
	if int(opcode) >= len(i.Events) {
		return nil
	}
	return &i.Events[opcode]
}

// EventOpcode resolves an event name to its opcode. It is O(n) and meant
// for tests and tooling, not the dispatch path.
func (i *Interface) EventOpcode(name string) (uint16, bool) {
	for op, m := range i.Events {
		if m.Name == name {
			return uint16(op), true
		}
	}
	return 0, false
}
