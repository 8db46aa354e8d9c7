package server

import (
	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/state"
)

// LoopHandle is the registration and dispatch capability handed to every
// callback. It is only meant to be used for the dynamic extent of one
// callback invocation, or from the loop's owner outside dispatch; it must
// not escape to other goroutines.
type LoopHandle struct {
	loop *EventLoop
}

// Register installs an implementation table for the resource's underlying
// object. The table must cover every request opcode of the resource's
// interface. Registering over an existing table replaces it wholesale:
// dispatch after Register never invokes a handler from the old table.
// A dead resource rejects registration.
func (h *LoopHandle) Register(res Resource, impl *Implementation) RegisterStatus {
	obj := res.Handle().obj
	if obj.liveness() == Dead {
		return RegisterDead
	}
	if !impl.covers(len(obj.iface.Requests)) {
		return RegisterInvalid
	}
	status := RegisterOK
	if obj.impl != nil {
		status = RegisterReplaced
	}
	obj.impl = impl
	return status
}

// IsRegistered reports whether exactly this implementation table is the
// one installed on the resource. Tables compare by identity.
func (h *LoopHandle) IsRegistered(res Resource, impl *Implementation) bool {
	obj := res.Handle().obj
	return obj.liveness() != Dead && obj.impl == impl
}

// Implementation returns the table currently installed on the resource,
// or nil for a bare or dead resource.
func (h *LoopHandle) Implementation(res Resource) *Implementation {
	obj := res.Handle().obj
	if obj.liveness() == Dead {
		return nil
	}
	return obj.impl
}

// RegisterGlobal advertises a bindable global; see EventLoop.RegisterGlobal.
func (h *LoopHandle) RegisterGlobal(iface *interfaces.Interface, version int32, bind GlobalBindFunc, data any) (*Global, error) {
	return h.loop.RegisterGlobal(iface, version, bind, data)
}

// State returns the owning loop's state store, for dereferencing tokens
// created on it.
func (h *LoopHandle) State() *state.Store {
	return h.loop.store
}

// NextSerial forwards to the owning loop's serial counter.
func (h *LoopHandle) NextSerial() uint32 {
	return h.loop.NextSerial()
}

// EventLoop returns the loop behind this handle, for Stop and metric
// snapshots from inside callbacks.
func (h *LoopHandle) EventLoop() *EventLoop {
	return h.loop
}

// Register is the top-level form of LoopHandle.Register, for setup code
// running outside any dispatch cycle.
func (l *EventLoop) Register(res Resource, impl *Implementation) RegisterStatus {
	return l.handle.Register(res, impl)
}
