package server

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// Test protocol: a small gadget interface exercised by the dispatch and
// registry tests.
var (
	gadgetChild = &interfaces.Interface{
		Name:    "test_child",
		Version: 1,
		Requests: []interfaces.Message{
			{Name: "destroy", Signature: "", Destructor: true, Since: 1},
		},
	}

	gadget = &interfaces.Interface{
		Name:    "test_gadget",
		Version: 3,
		Requests: []interfaces.Message{
			{Name: "ping", Signature: "u", Since: 1},
			{Name: "destroy", Signature: "", Destructor: true, Since: 1},
			{Name: "make_child", Signature: "n", Since: 2},
		},
		Events: []interfaces.Message{
			{Name: "pong", Signature: "u", Since: 1},
		},
	}
)

func init() {
	gadget.Requests[2].Types = []*interfaces.Interface{gadgetChild}
}

const gadgetEventPong uint16 = 0

// newTestDisplay stands up a display on a private runtime dir.
func newTestDisplay(t *testing.T) (*Display, *EventLoop, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	d, loop, name, err := CreateDisplay()
	if err != nil {
		t.Fatalf("CreateDisplay: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		loop.Close()
	})
	return d, loop, filepath.Join(dir, name)
}

// testConn is a raw protocol client for driving the server from tests.
type testConn struct {
	t    *testing.T
	conn net.Conn
}

func dialDisplay(t *testing.T, path string) *testConn {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn}
}

// request writes one encoded request to the socket.
func (tc *testConn) request(object uint32, opcode uint16, sig string, args ...wire.Arg) {
	tc.t.Helper()
	e := wire.NewEncoder()
	if err := e.PutMessage(object, opcode, sig, args); err != nil {
		tc.t.Fatalf("encode request: %v", err)
	}
	if _, err := tc.conn.Write(e.Bytes()); err != nil {
		tc.t.Fatalf("write request: %v", err)
	}
}

// writeRaw writes arbitrary bytes, for malformed-input tests.
func (tc *testConn) writeRaw(b []byte) {
	tc.t.Helper()
	if _, err := tc.conn.Write(b); err != nil {
		tc.t.Fatalf("write raw: %v", err)
	}
}

// readMessage reads one complete event off the socket.
func (tc *testConn) readMessage() (wire.Header, []byte) {
	tc.t.Helper()
	tc.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hdrBuf [wire.HeaderSize]byte
	if _, err := io.ReadFull(tc.conn, hdrBuf[:]); err != nil {
		tc.t.Fatalf("read header: %v", err)
	}
	hdr, err := wire.DecodeHeader(hdrBuf[:])
	if err != nil {
		tc.t.Fatalf("decode header: %v", err)
	}
	body := make([]byte, int(hdr.Size)-wire.HeaderSize)
	if _, err := io.ReadFull(tc.conn, body); err != nil {
		tc.t.Fatalf("read body: %v", err)
	}
	return hdr, body
}

// readEvent reads one event addressed to object and decodes it with sig.
func (tc *testConn) readEvent(object uint32, opcode uint16, sig string) []wire.Arg {
	tc.t.Helper()
	hdr, body := tc.readMessage()
	if hdr.Object != object || hdr.Opcode != opcode {
		tc.t.Fatalf("got event %d.%d, want %d.%d", hdr.Object, hdr.Opcode, object, opcode)
	}
	args, err := wire.DecodeArgs(body, sig, nil)
	if err != nil {
		tc.t.Fatalf("decode event args: %v", err)
	}
	return args
}

// expectClosed asserts the server hangs up on us.
func (tc *testConn) expectClosed() {
	tc.t.Helper()
	tc.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	for {
		if _, err := tc.conn.Read(buf); err != nil {
			if err == io.EOF {
				return
			}
			tc.t.Fatalf("expected EOF, got %v", err)
		}
	}
}

// settle runs dispatch until the loop has seen the pending client bytes
// and flushed replies. One cycle with a generous timeout is normally
// enough; a second covers accepting the connection first.
func settle(t *testing.T, d *Display, loop *EventLoop) int {
	t.Helper()
	total := 0
	for i := 0; i < 10; i++ {
		n, err := loop.Dispatch(50)
		if err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
		total += n
		d.FlushClients()
		if n == 0 && i > 0 {
			break
		}
	}
	return total
}

// bindGadget connects, discovers the gadget global through the registry
// and binds it as the given id and version. The caller's global must
// already be registered.
func bindGadget(t *testing.T, d *Display, loop *EventLoop, path string, id uint32, version uint32) *testConn {
	t.Helper()
	tc := dialDisplay(t, path)

	const registryID = 2
	tc.request(1, 1, "n", wire.NewID(registryID)) // get_registry
	settle(t, d, loop)

	args := tc.readEvent(registryID, registryEventGlobal, "usu")
	if args[1].S != gadget.Name {
		t.Fatalf("advertised global = %q, want %q", args[1].S, gadget.Name)
	}
	tc.request(registryID, 0, "usun",
		wire.Uint(args[0].U), wire.Str(gadget.Name), wire.Uint(version), wire.NewID(id))
	settle(t, d, loop)
	return tc
}

// oneClient returns the single connected client, failing if there is not
// exactly one.
func oneClient(t *testing.T, d *Display) *Client {
	t.Helper()
	clients := d.Clients()
	if len(clients) != 1 {
		t.Fatalf("connected clients = %d, want 1", len(clients))
	}
	return clients[0]
}
