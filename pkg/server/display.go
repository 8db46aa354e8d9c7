package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// maxSocketIndex bounds the display names AddSocketAuto probes.
const maxSocketIndex = 32

// Display owns the listening sockets, accepts clients and flushes their
// outgoing buffers. It composes an EventLoop: accepted connections are
// registered on the loop's poll set and serviced by Dispatch.
type Display struct {
	loop      *EventLoop
	clients   map[int]*Client
	listeners []*listener
	logger    *slog.Logger
}

type listener struct {
	display *Display
	fd      int
	path    string
}

// CreateDisplay creates an event loop, a display on top of it, and a
// listening socket under the runtime directory using the first free
// default name. It returns the display, its loop and the socket name
// clients should be pointed at.
func CreateDisplay() (*Display, *EventLoop, string, error) {
	loop, err := NewEventLoop()
	if err != nil {
		return nil, nil, "", err
	}
	d := NewDisplay(loop)
	name, err := d.AddSocketAuto()
	if err != nil {
		loop.Close()
		return nil, nil, "", err
	}
	return d, loop, name, nil
}

// NewDisplay attaches a display with no sockets to an existing loop.
// Useful when socket naming is the caller's business.
func NewDisplay(loop *EventLoop) *Display {
	d := &Display{
		loop:    loop,
		clients: make(map[int]*Client),
		logger:  loop.logger.With("component", "display"),
	}
	loop.display = d
	return d
}

// Loop returns the event loop the display is attached to.
func (d *Display) Loop() *EventLoop { return d.loop }

// Clients returns a snapshot of the currently connected clients.
func (d *Display) Clients() []*Client {
	out := make([]*Client, 0, len(d.clients))
	for _, c := range d.clients {
		out = append(out, c)
	}
	return out
}

// AddSocket listens on an explicitly named socket in the runtime
// directory (or an absolute path, taken as-is). A stale socket file from
// a previous run is replaced.
func (d *Display) AddSocket(name string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		dir := os.Getenv("XDG_RUNTIME_DIR")
		if dir == "" {
			return "", ErrNoRuntimeDir
		}
		path = filepath.Join(dir, name)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return "", err
	}
	_ = os.Remove(path)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return "", fmt.Errorf("server: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		_ = os.Remove(path)
		return "", fmt.Errorf("server: listen %s: %w", path, err)
	}

	ln := &listener{display: d, fd: fd, path: path}
	if err := d.loop.addSource(fd, unix.EPOLLIN, ln); err != nil {
		unix.Close(fd)
		_ = os.Remove(path)
		return "", err
	}
	d.listeners = append(d.listeners, ln)
	d.logger.Info("listening", "socket", path)
	return path, nil
}

// AddSocketAuto listens on the first free default socket name
// (wayland-0 through wayland-32) in the runtime directory and returns
// the chosen name.
func (d *Display) AddSocketAuto() (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", ErrNoRuntimeDir
	}
	for i := 0; i <= maxSocketIndex; i++ {
		name := fmt.Sprintf("wayland-%d", i)
		// Skip names that look owned by a live server.
		if socketActive(filepath.Join(dir, name)) {
			continue
		}
		if _, err := d.AddSocket(name); err != nil {
			continue
		}
		return name, nil
	}
	return "", ErrNoFreeSocket
}

// socketActive reports whether something accepts connections at path.
func socketActive(path string) bool {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer unix.Close(fd)
	return unix.Connect(fd, &unix.SockaddrUnix{Name: path}) == nil
}

// FlushClients pushes every client's buffered events to its socket. The
// engine never flushes on its own; the embedding application calls this
// on a cadence of its choosing, typically once per main-loop iteration.
// Clients marked by a protocol error are disconnected once drained.
func (d *Display) FlushClients() {
	for _, c := range d.Clients() {
		// Flush tears down broken clients itself; nothing to do here.
		_ = c.Flush()
	}
}

// Close tears down every client and listening socket. The loop stays
// usable for secondary sources until closed by its owner.
func (d *Display) Close() {
	for _, c := range d.Clients() {
		c.teardown(nil)
	}
	for _, ln := range d.listeners {
		d.loop.removeSource(ln.fd)
		unix.Close(ln.fd)
		_ = os.Remove(ln.path)
	}
	d.listeners = nil
	if d.loop.display == d {
		d.loop.display = nil
	}
}

// onReady accepts every pending connection on the listening socket.
func (ln *listener) onReady(_ *LoopHandle, _ uint32) {
	d := ln.display
	for {
		nfd, _, err := unix.Accept4(ln.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			return
		}
		if err != nil {
			d.logger.Error("accept failed", "error", err)
			return
		}
		c, err := newClient(d, nfd)
		if err != nil {
			d.logger.Error("client setup failed", "error", err)
			unix.Close(nfd)
			continue
		}
		d.clients[nfd] = c
		d.loop.counters.clientsConnected.Add(1)
		c.logger.Debug("client connected")
		d.loop.fireClientConnected(c)
	}
}
