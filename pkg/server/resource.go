package server

import (
	"fmt"
	"sync/atomic"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// Liveness is the validity state of a protocol object.
type Liveness uint8

const (
	// Alive objects accept events and participate in dispatch.
	Alive Liveness = iota

	// Dead objects have been destroyed; event sends become no-ops.
	// The transition to Dead is one-way.
	Dead

	// Unmanaged objects were attached from outside the engine. Events
	// may be sent, but the engine cannot observe their destruction, so
	// misuse is the caller's risk.
	Unmanaged
)

// String returns the liveness name for logs.
func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	case Unmanaged:
		return "unmanaged"
	default:
		return "invalid"
	}
}

// EventResult is the outcome of posting an event to a resource.
type EventResult uint8

const (
	// Sent: the event was buffered and will reach the client on flush.
	Sent EventResult = iota

	// Destroyed: the resource is dead; the event was silently dropped.
	// This is normal control flow, not an error.
	Destroyed
)

// Expect panics with msg if the result is Destroyed. For call sites that
// have ordered themselves against destruction and consider a dead target
// a bug.
func (r EventResult) Expect(msg string) {
	if r == Destroyed {
		panic(msg)
	}
}

// object is the underlying protocol object. All handles cloned from one
// resource share the same object, hence the same liveness and user data.
type object struct {
	id      uint32
	iface   *interfaces.Interface
	version int32
	client  *Client

	// status is mutated only on the dispatch goroutine, but read
	// concurrently by telemetry, hence atomic.
	status atomic.Uint32

	// userData is get/set-atomic and shared across all handles.
	// Any further synchronization is the caller's business.
	userData atomic.Pointer[any]

	// impl is the installed implementation table. Replaced wholesale on
	// re-registration, never mutated in place.
	impl *Implementation
}

func (o *object) liveness() Liveness {
	return Liveness(o.status.Load())
}

// die flips the object to Dead. Idempotent; never resurrects.
func (o *object) die() {
	o.status.Store(uint32(Dead))
}

// Handle is a reference to one protocol object owned by a client. It
// implements the full resource capability set: liveness queries, user
// data, event posting, error posting and cloning. Handles are cheap;
// clones of the same object compare equal while it lives.
type Handle struct {
	obj *object
}

// Resource is anything carrying a protocol object handle. Generated
// object types satisfy it by embedding *Handle.
type Resource interface {
	Handle() *Handle
}

// Handle returns the handle itself, making *Handle a Resource.
func (h *Handle) Handle() *Handle { return h }

// ID returns the object id within the owning client's namespace.
func (h *Handle) ID() uint32 { return h.obj.id }

// Interface returns the interface descriptor of the object.
func (h *Handle) Interface() *interfaces.Interface { return h.obj.iface }

// Version returns the version the object was bound or created with.
// Always at most Interface().Version.
func (h *Handle) Version() int32 { return h.obj.version }

// Status returns the current liveness of the underlying object.
func (h *Handle) Status() Liveness { return h.obj.liveness() }

// Client returns the client owning the object.
func (h *Handle) Client() *Client { return h.obj.client }

// Equals reports whether both handles reference the same live object.
// A dead object has no meaningful identity, so any comparison involving
// one is false.
func (h *Handle) Equals(other *Handle) bool {
	if other == nil || h.obj.liveness() == Dead || other.obj.liveness() == Dead {
		return false
	}
	return h.obj == other.obj
}

// SetUserData stores the shared user-data slot of the underlying object.
// Visible through every handle to the same object.
func (h *Handle) SetUserData(v any) {
	h.obj.userData.Store(&v)
}

// UserData returns the shared user-data slot, or nil if never set.
func (h *Handle) UserData() any {
	p := h.obj.userData.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Clone returns a second handle to the same object. It succeeds only for
// Alive objects; the clone shares liveness and user data.
func (h *Handle) Clone() (*Handle, bool) {
	if h.obj.liveness() != Alive {
		return nil, false
	}
	return &Handle{obj: h.obj}, true
}

// CloneUnchecked clones the handle regardless of liveness. For Unmanaged
// objects the engine cannot bound the clone's validity; the caller
// accepts that risk explicitly by choosing this over Clone.
func (h *Handle) CloneUnchecked() *Handle {
	return &Handle{obj: h.obj}
}

// SameClientAs reports whether both resources are alive and owned by the
// same client. Identity of dead or unmanaged objects is unknowable, so
// the answer is false unless both sides are Alive.
func (h *Handle) SameClientAs(other Resource) bool {
	if other == nil {
		return false
	}
	o := other.Handle()
	if h.obj.liveness() != Alive || o.obj.liveness() != Alive {
		return false
	}
	return h.obj.client == o.obj.client
}

// PostEvent buffers an event for the client owning this object. The
// opcode indexes the interface's event table and args must match its
// signature. Posting to a Dead object returns Destroyed without error;
// a bad opcode or argument list is a caller bug and returns one.
func (h *Handle) PostEvent(opcode uint16, args ...wire.Arg) (EventResult, error) {
	obj := h.obj
	if obj.liveness() == Dead {
		return Destroyed, nil
	}
	desc := obj.iface.Event(opcode)
	if desc == nil {
		return Destroyed, fmt.Errorf("server: event opcode %d out of range for %s",
			opcode, obj.iface.Name)
	}
	if err := obj.client.bufferEvent(obj.id, opcode, desc.Signature, args); err != nil {
		return Destroyed, err
	}
	obj.client.loop.counters.eventsPosted.Add(1)
	return Sent, nil
}

// PostError posts a protocol error naming this object and marks the
// owning client for disconnection. It works regardless of this object's
// liveness and does not change it; the client is finished either way.
func (h *Handle) PostError(code uint32, msg string) {
	h.obj.client.PostError(h.obj.id, code, msg)
}
