package server

import (
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// Handler processes one request opcode on a registered resource. It runs
// on the loop's dispatch goroutine, never concurrently with any other
// callback. data is the Implementation's Data value; args match the
// opcode's signature in the interface descriptor.
type Handler func(h *LoopHandle, data any, client *Client, res *Handle, args []wire.Arg)

// Implementation is an opcode-indexed callback table plus one opaque data
// value, installed on a resource via Register. A table must cover every
// request opcode of the resource's interface; registration checks this
// against the descriptor. Tables are treated as immutable once installed:
// re-registering replaces the whole table atomically with respect to
// dispatch, so no message ever sees a half-updated one.
type Implementation struct {
	// Handlers has one entry per request opcode, in opcode order.
	// A nil entry is rejected at registration.
	Handlers []Handler

	// Data is passed to every handler invocation. A typical use is to
	// carry state tokens for the loop's state store.
	Data any
}

// covers reports whether the table is exhaustive for iface.
func (im *Implementation) covers(n int) bool {
	if im == nil || len(im.Handlers) != n {
		return false
	}
	for _, fn := range im.Handlers {
		if fn == nil {
			return false
		}
	}
	return true
}

// RegisterStatus is the outcome of installing an implementation table.
type RegisterStatus uint8

const (
	// RegisterOK: the table was installed on a previously bare resource.
	RegisterOK RegisterStatus = iota

	// RegisterReplaced: the table was installed, overwriting a prior one.
	RegisterReplaced

	// RegisterDead: the resource is dead; nothing was installed.
	RegisterDead

	// RegisterInvalid: the table does not cover the interface's opcodes.
	RegisterInvalid
)

// Registered reports whether the status means the table is now installed.
func (s RegisterStatus) Registered() bool {
	return s == RegisterOK || s == RegisterReplaced
}

// String returns the status name for logs.
func (s RegisterStatus) String() string {
	switch s {
	case RegisterOK:
		return "registered"
	case RegisterReplaced:
		return "replaced"
	case RegisterDead:
		return "dead"
	case RegisterInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
