package server

import (
	"fmt"
	"io"
	"time"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// handleReadable is the reactor callback for a ready client connection:
// pull bytes off the socket, then dispatch every complete buffered
// message in arrival order. A trailing partial message stays buffered
// until more bytes arrive on a later cycle.
//
// An orderly hangup can trail complete messages received in the same
// read, so EOF tears the client down only after the buffer is drained.
func (c *Client) handleReadable(h *LoopHandle) {
	err := c.fill()
	if err != nil && err != io.EOF {
		c.teardown(err)
		return
	}
	c.dispatchBuffered(h)
	// A pending protocol error owns the teardown via the flush path.
	if err == io.EOF && !c.closed && !c.errPending {
		c.teardown(io.EOF)
	}
}

func (c *Client) dispatchBuffered(h *LoopHandle) {
	for !c.closed && !c.errPending {
		size, err := wire.Complete(c.in)
		if err == wire.ErrShortMessage {
			return
		}
		if err != nil {
			// Framing is broken; no later message boundary can be
			// trusted either.
			c.protocolError(0, CodeInvalidMethod, "malformed message header")
			return
		}
		msg := c.in[:size]
		c.in = c.in[size:]
		c.dispatchOne(h, msg)
	}
}

// dispatchOne runs one decoded message through the dispatch algorithm:
// resolve the object, resolve the opcode against its implementation
// table, decode arguments, create any typed new-id objects, invoke the
// handler, and honor destructor opcodes afterwards.
func (c *Client) dispatchOne(h *LoopHandle, msg []byte) {
	hdr, err := wire.DecodeHeader(msg)
	if err != nil {
		c.protocolError(0, CodeInvalidMethod, "malformed message header")
		return
	}

	obj, ok := c.objects[hdr.Object]
	if !ok {
		c.protocolError(hdr.Object, CodeInvalidObject,
			fmt.Sprintf("unknown object %d", hdr.Object))
		return
	}

	desc := obj.iface.Request(hdr.Opcode)
	if desc == nil {
		c.protocolError(hdr.Object, CodeInvalidMethod,
			fmt.Sprintf("invalid opcode %d on %s", hdr.Opcode, obj.iface.Name))
		return
	}
	if desc.Since > obj.version {
		c.protocolError(hdr.Object, CodeInvalidMethod,
			fmt.Sprintf("%s.%s requires version %d, object is %d",
				obj.iface.Name, desc.Name, desc.Since, obj.version))
		return
	}

	impl := obj.impl
	if !impl.covers(len(obj.iface.Requests)) {
		c.protocolError(hdr.Object, CodeInvalidMethod,
			fmt.Sprintf("no implementation for %s", obj.iface.Name))
		return
	}

	args, err := wire.DecodeArgs(msg[wire.HeaderSize:], desc.Signature, (*fdQueue)(c))
	if err != nil {
		c.protocolError(hdr.Object, CodeInvalidMethod,
			fmt.Sprintf("malformed arguments for %s.%s: %v", obj.iface.Name, desc.Name, err))
		return
	}

	if !c.createNewIDs(obj, desc, args) {
		return
	}

	start := time.Now()
	impl.Handlers[hdr.Opcode](h, impl.Data, c, &Handle{obj: obj}, args)
	c.loop.counters.messagesDispatched.Add(1)
	c.loop.fireMessage(c, obj.iface.Name, desc.Name, hdr.Opcode, time.Since(start))

	if desc.Destructor {
		c.destroyObject(obj)
	}
}

// createNewIDs instantiates an Alive object for every typed new-id
// argument of the message, inheriting the parent's version capped at the
// new interface's maximum. Untyped new ids (interface negotiated inline,
// as in registry binds) are left for the handler. Reports false after
// raising a protocol error.
func (c *Client) createNewIDs(parent *object, desc *interfaces.Message, args []wire.Arg) bool {
	ref := 0
	for _, a := range args {
		if a.Kind != wire.KindObject && a.Kind != wire.KindNewID {
			continue
		}
		idx := ref
		ref++
		if a.Kind != wire.KindNewID || a.Null {
			continue
		}
		if idx >= len(desc.Types) || desc.Types[idx] == nil {
			continue
		}
		iface := desc.Types[idx]
		version := parent.version
		if version > iface.Version {
			version = iface.Version
		}
		if _, err := c.newObject(a.U, iface, version); err != nil {
			c.protocolError(a.U, CodeInvalidObject,
				fmt.Sprintf("cannot create %s id %d: %v", iface.Name, a.U, err))
			return false
		}
	}
	return true
}
