package server

import (
	"errors"
	"fmt"
)

// Protocol error codes carried by the display error event. The engine
// raises the first two itself; applications may post any code meaningful
// for the offending object's interface.
const (
	// CodeInvalidObject: the message targeted an id with no object.
	CodeInvalidObject uint32 = 0

	// CodeInvalidMethod: unknown opcode, opcode newer than the bound
	// version, malformed arguments, or no implementation registered.
	CodeInvalidMethod uint32 = 1

	// CodeNoMemory: the server could not allocate for the request.
	CodeNoMemory uint32 = 2

	// CodeImplementation: generic server-side implementation error.
	CodeImplementation uint32 = 3
)

// Sentinel errors for loop, display and registration failures.
var (
	// ErrLoopClosed is returned when dispatching on a closed event loop.
	ErrLoopClosed = errors.New("server: event loop closed")

	// ErrClientClosed is returned when an operation targets a client
	// that has already been torn down.
	ErrClientClosed = errors.New("server: client closed")

	// ErrIDInUse is returned when creating an object whose id already
	// exists in the client's namespace.
	ErrIDInUse = errors.New("server: object id already in use")

	// ErrVersionTooHigh is returned when a global or resource is created
	// with a version above what its interface descriptor supports.
	ErrVersionTooHigh = errors.New("server: requested version exceeds interface version")

	// ErrBadImplementation is returned when an implementation table does
	// not cover every request opcode of the target interface.
	ErrBadImplementation = errors.New("server: implementation does not cover all opcodes")

	// ErrGlobalDestroyed is returned when operating on a withdrawn global.
	ErrGlobalDestroyed = errors.New("server: global already destroyed")

	// ErrSourceRemoved is returned when operating on an event source that
	// was already removed from its loop.
	ErrSourceRemoved = errors.New("server: event source removed")

	// ErrNoRuntimeDir is returned when no socket directory can be
	// determined from the environment.
	ErrNoRuntimeDir = errors.New("server: XDG_RUNTIME_DIR not set")

	// ErrNoFreeSocket is returned when every default socket name is taken.
	ErrNoFreeSocket = errors.New("server: no free display socket name")

	// ErrDeadResource is returned when an operation requires a live
	// resource, e.g. posting an event by name on a dead handle.
	ErrDeadResource = errors.New("server: resource is dead")
)

// ProtocolError describes one fatal client protocol violation. It is
// surfaced through hooks and logs; the offending client is always torn
// down, the loop itself keeps running.
type ProtocolError struct {
	Object  uint32 // id the client addressed
	Code    uint32 // display error code
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server: protocol error on object %d (code %d): %s", e.Object, e.Code, e.Message)
}

// ClientError wraps an I/O error with client context for debugging.
type ClientError struct {
	TraceID string
	Op      string // operation that failed
	Err     error  // underlying error
}

// Error returns the error message with client context.
func (e *ClientError) Error() string {
	if e.TraceID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: client %s: %s: %v", e.TraceID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ClientError) Unwrap() error {
	return e.Err
}
