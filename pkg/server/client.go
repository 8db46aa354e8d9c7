package server

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// serverIDBase is the first object id in the server-allocated range.
// Client-allocated ids live below it.
const serverIDBase uint32 = 0xff000000

// readChunk is the per-recvmsg read size; oobSpace bounds ancillary data.
const (
	readChunk = 4096
	oobSpace  = 256
)

// Client is one accepted connection. It owns the namespace of protocol
// objects created on it, the buffered byte stream in both directions and
// the queue of file descriptors received out-of-band.
//
// All methods must be called from the loop's dispatch goroutine (callbacks
// run there already); Client is not a thread-safe type.
type Client struct {
	// TraceID correlates this connection across logs, metrics and the
	// inspect surface. It has no protocol meaning.
	TraceID string

	fd      int
	loop    *EventLoop
	display *Display

	objects      map[uint32]*object
	registries   map[uint32]*object
	nextServerID uint32

	in    []byte
	inFds []int
	enc   *wire.Encoder

	closed     bool
	errPending bool

	logger      *slog.Logger
	connectedAt time.Time
}

func newClient(d *Display, fd int) (*Client, error) {
	c := &Client{
		TraceID:      uuid.NewString(),
		fd:           fd,
		loop:         d.loop,
		display:      d,
		objects:      make(map[uint32]*object),
		registries:   make(map[uint32]*object),
		nextServerID: serverIDBase,
		enc:          wire.NewEncoder(),
		connectedAt:  time.Now(),
	}
	c.logger = d.logger.With("client", c.TraceID)

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, &ClientError{TraceID: c.TraceID, Op: "set nonblock", Err: err}
	}

	// Every connection starts with the display object at id 1.
	obj, err := c.newObject(1, interfaces.Display, 1)
	if err != nil {
		return nil, err
	}
	obj.impl = displayImpl

	if err := c.loop.addSource(fd, unix.EPOLLIN, (*clientSource)(c)); err != nil {
		return nil, &ClientError{TraceID: c.TraceID, Op: "register with reactor", Err: err}
	}
	return c, nil
}

// Closed reports whether the connection has been torn down.
func (c *Client) Closed() bool { return c.closed }

// ConnectedAt returns when the connection was accepted.
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Objects returns the number of live objects in the client's namespace.
func (c *Client) Objects() int { return len(c.objects) }

// Object resolves an id in this client's namespace.
func (c *Client) Object(id uint32) (*Handle, bool) {
	obj, ok := c.objects[id]
	if !ok {
		return nil, false
	}
	return &Handle{obj: obj}, true
}

// CreateResource creates a fresh server-allocated object of the given
// interface and version, Alive and without an implementation. The caller
// typically registers an implementation and announces the object to the
// client through an event on some other resource.
func (c *Client) CreateResource(iface *interfaces.Interface, version int32) (*Handle, error) {
	if c.closed {
		return nil, ErrClientClosed
	}
	id := c.nextServerID
	c.nextServerID++
	obj, err := c.newObject(id, iface, version)
	if err != nil {
		return nil, err
	}
	return &Handle{obj: obj}, nil
}

// AdoptObject takes engine ownership of an id the engine has never seen,
// e.g. one negotiated by a foreign protocol layer. The object becomes a
// fully managed, Alive resource.
func (c *Client) AdoptObject(id uint32, iface *interfaces.Interface, version int32) (*Handle, error) {
	if c.closed {
		return nil, ErrClientClosed
	}
	obj, err := c.newObject(id, iface, version)
	if err != nil {
		return nil, err
	}
	return &Handle{obj: obj}, nil
}

// ObserveObject returns a handle for an id that may or may not be managed
// by the engine. A known id yields its managed handle; an unknown one
// yields an Unmanaged handle outside the namespace, which the engine
// cannot vouch for.
func (c *Client) ObserveObject(id uint32, iface *interfaces.Interface, version int32) *Handle {
	if obj, ok := c.objects[id]; ok {
		return &Handle{obj: obj}
	}
	obj := &object{id: id, iface: iface, version: version, client: c}
	obj.status.Store(uint32(Unmanaged))
	return &Handle{obj: obj}
}

// newObject creates and registers a managed object in the namespace.
func (c *Client) newObject(id uint32, iface *interfaces.Interface, version int32) (*object, error) {
	if version < 1 || version > iface.Version {
		return nil, ErrVersionTooHigh
	}
	if _, exists := c.objects[id]; exists {
		return nil, ErrIDInUse
	}
	obj := &object{id: id, iface: iface, version: version, client: c}
	c.objects[id] = obj
	return obj, nil
}

// destroyObject kills a managed object, frees its id for reuse and lets
// the client know through a delete_id event on the display.
func (c *Client) destroyObject(obj *object) {
	if obj.liveness() == Dead {
		return
	}
	obj.die()
	delete(c.objects, obj.id)
	delete(c.registries, obj.id)
	// Engine-internal event; failure here means the client is already
	// gone and teardown will settle it.
	_ = c.bufferEvent(1, displayEventDeleteID, "u", []wire.Arg{wire.Uint(obj.id)})
}

// PostError buffers a protocol error event naming the given object and
// marks the client for disconnection on the next flush. It never fails
// and never alters the named object's liveness: after a protocol error no
// further traffic with this client is meaningful anyway.
func (c *Client) PostError(object uint32, code uint32, msg string) {
	if c.closed {
		return
	}
	_ = c.bufferEvent(1, displayEventError, "ous", []wire.Arg{
		wire.Object(object), wire.Uint(code), wire.Str(msg),
	})
	c.errPending = true
	c.loop.counters.protocolErrors.Add(1)
	c.logger.Warn("protocol error posted",
		"object", object, "code", code, "message", msg)
	c.loop.fireProtocolError(c, object, code, msg)
}

// protocolError is the engine-fatal path: post the error, push it out
// best-effort, and tear the client down immediately.
func (c *Client) protocolError(object uint32, code uint32, msg string) {
	c.PostError(object, code, msg)
	_ = c.Flush()
	c.teardown(&ProtocolError{Object: object, Code: code, Message: msg})
}

// bufferEvent appends one encoded event to the outgoing buffer.
func (c *Client) bufferEvent(object uint32, opcode uint16, sig string, args []wire.Arg) error {
	if c.closed {
		return ErrClientClosed
	}
	return c.enc.PutMessage(object, opcode, sig, args)
}

// fill drains the socket into the incoming buffer, splitting received
// control messages into the fd queue. Returns io.EOF on orderly hangup.
func (c *Client) fill() error {
	buf := make([]byte, readChunk)
	oob := make([]byte, oobSpace)
	for {
		n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC)
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil
		default:
			return &ClientError{TraceID: c.TraceID, Op: "recvmsg", Err: err}
		}
		if oobn > 0 {
			c.queueRights(oob[:oobn])
		}
		if n == 0 {
			return io.EOF
		}
		c.in = append(c.in, buf[:n]...)
		c.loop.counters.bytesRead.Add(uint64(n))
		if n < len(buf) {
			return nil
		}
	}
}

// queueRights appends any SCM_RIGHTS descriptors found in oob data.
func (c *Client) queueRights(oob []byte) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		c.logger.Warn("bad control message", "error", err)
		return
	}
	for _, m := range msgs {
		fds, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		c.inFds = append(c.inFds, fds...)
	}
}

// fdQueue adapts the client's received-descriptor queue to wire.FdQueue.
type fdQueue Client

func (q *fdQueue) Pop() (int, error) {
	if len(q.inFds) == 0 {
		return -1, wire.ErrNoFd
	}
	fd := q.inFds[0]
	q.inFds = q.inFds[1:]
	return fd, nil
}

// Flush writes as much of the outgoing buffer as the socket accepts,
// sending queued descriptors as ancillary data. A full socket leaves the
// remainder buffered for the next flush. After a posted protocol error
// the client is torn down once its buffer has drained.
func (c *Client) Flush() error {
	if c.closed {
		return ErrClientClosed
	}
	for c.enc.Len() > 0 {
		var oob []byte
		nfds := len(c.enc.Fds())
		if nfds > 0 {
			oob = unix.UnixRights(c.enc.Fds()...)
		}
		n, err := unix.SendmsgN(c.fd, c.enc.Bytes(), oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil
		default:
			werr := &ClientError{TraceID: c.TraceID, Op: "sendmsg", Err: err}
			c.teardown(werr)
			return werr
		}
		c.loop.counters.bytesWritten.Add(uint64(n))
		c.enc.Drain(n, nfds)
	}
	if c.errPending {
		c.teardown(nil)
	}
	return nil
}

// teardown closes the connection and kills every object in the namespace,
// flipping all outstanding handles to Dead at once.
func (c *Client) teardown(reason error) {
	if c.closed {
		return
	}
	c.closed = true

	c.loop.removeSource(c.fd)
	for _, obj := range c.objects {
		obj.die()
	}
	c.objects = nil
	c.registries = nil
	for _, fd := range c.inFds {
		unix.Close(fd)
	}
	c.inFds = nil
	unix.Close(c.fd)

	if c.display != nil {
		delete(c.display.clients, c.fd)
	}
	c.loop.counters.clientsClosed.Add(1)

	if reason != nil && reason != io.EOF {
		c.logger.Info("client torn down", "reason", reason)
	} else {
		c.logger.Debug("client disconnected")
	}
	c.loop.fireClientClosed(c, reason)
}

// Kill disconnects the client without a protocol error, e.g. from an
// administrative surface. Safe to call on an already closed client.
func (c *Client) Kill() {
	if !c.closed {
		c.teardown(nil)
	}
}
