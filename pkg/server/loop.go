package server

import (
	"log/slog"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/fnr1r/wayland-go/pkg/state"
)

// source is anything multiplexed on the loop's poll set: client
// connections, listening sockets, secondary event sources and the
// internal wakeup descriptor.
type source interface {
	onReady(h *LoopHandle, events uint32)
}

// EventLoop is the single-threaded reactor at the heart of the engine.
// It owns the poll set, the state store and the dispatch cycle. Exactly
// one callback runs at a time; the only blocking point is the wait inside
// Dispatch.
//
// An EventLoop is created through CreateDisplay for a full server, or
// NewEventLoop for loops that only carry secondary event sources.
type EventLoop struct {
	epfd   int
	wakeFd int

	sources map[int]source
	// retired collects fds removed during the current dispatch batch,
	// so a stale readiness event cannot hit a new source that reused
	// the number within the same cycle.
	retired map[int]struct{}
	store   *state.Store
	handle  LoopHandle

	events []unix.EpollEvent
	serial uint32

	display    *Display
	globals    []*Global
	globalName uint32

	stopped atomic.Bool
	closed  bool

	logger   *slog.Logger
	hooks    []Hooks
	counters loopCounters
}

// NewEventLoop creates a reactor with no display attached. Client
// connections come with a Display; timers, fd and signal sources work on
// a bare loop.
func NewEventLoop() (*EventLoop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}

	l := &EventLoop{
		epfd:    epfd,
		wakeFd:  wakeFd,
		sources: make(map[int]source),
		retired: make(map[int]struct{}),
		store:   state.NewStore(),
		events:  make([]unix.EpollEvent, 32),
		logger:  slog.Default().With("component", "event-loop"),
	}
	l.handle = LoopHandle{loop: l}

	if err := l.addSource(wakeFd, unix.EPOLLIN, wakeSource{fd: wakeFd}); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// Handle returns the registration/dispatch capability of this loop.
// Callbacks receive the same handle; using it outside the loop's
// goroutine voids the single-threaded guarantees.
func (l *EventLoop) Handle() *LoopHandle {
	return &l.handle
}

// State returns the loop's state store.
func (l *EventLoop) State() *state.Store {
	return l.store
}

// SetLogger replaces the loop's logger. Call before Run.
func (l *EventLoop) SetLogger(logger *slog.Logger) {
	l.logger = logger
}

// Logger returns the loop's logger.
func (l *EventLoop) Logger() *slog.Logger {
	return l.logger
}

// NextSerial returns a fresh serial number for events that carry one.
func (l *EventLoop) NextSerial() uint32 {
	l.serial++
	return l.serial
}

// Dispatch waits until at least one source is ready or timeoutMs elapses,
// then services every ready source and returns how many were serviced.
// A negative timeout blocks indefinitely; zero polls without blocking.
//
// Servicing a client connection drains all complete buffered messages in
// arrival order; servicing a secondary source invokes its callback once
// per readiness. All callback invocations complete before Dispatch
// returns. Relative order between distinct ready sources follows the
// poll set and is not part of the contract.
func (l *EventLoop) Dispatch(timeoutMs int) (int, error) {
	if l.closed {
		return 0, ErrLoopClosed
	}

	n, err := unix.EpollWait(l.epfd, l.events, timeoutMs)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	serviced := 0
	clear(l.retired)
	for i := 0; i < n; i++ {
		ev := l.events[i]
		fd := int(ev.Fd)
		if _, gone := l.retired[fd]; gone {
			// The source this readiness belonged to was removed
			// earlier in the batch; a new source on the same fd gets
			// fresh events next cycle.
			continue
		}
		src, ok := l.sources[fd]
		if !ok {
			// Removed by an earlier callback in this same cycle.
			continue
		}
		if _, internal := src.(wakeSource); internal {
			src.onReady(&l.handle, ev.Events)
			continue
		}
		src.onReady(&l.handle, ev.Events)
		serviced++
	}
	l.counters.dispatchCycles.Add(1)
	return serviced, nil
}

// Run dispatches until Stop is called or a fatal reactor error occurs.
// Per-client protocol errors never abort Run; they cost the offending
// client its connection and nothing else.
//
// Run consumes exactly one Stop: a Stop issued before Run starts makes
// it return immediately, and a later Run dispatches again.
func (l *EventLoop) Run() error {
	for !l.stopped.CompareAndSwap(true, false) {
		if _, err := l.Dispatch(-1); err != nil {
			return err
		}
	}
	return nil
}

// Stop makes Run return after the current dispatch cycle. Safe to call
// from any goroutine, including from inside a callback.
func (l *EventLoop) Stop() {
	if l.stopped.Swap(true) {
		return
	}
	var one = [8]byte{7: 1}
	if _, err := unix.Write(l.wakeFd, one[:]); err != nil && err != unix.EAGAIN {
		l.logger.Error("wakeup write failed", "error", err)
	}
}

// Close releases the reactor descriptors. The loop must not be dispatched
// afterwards; state tokens against its store fail loudly from then on.
func (l *EventLoop) Close() {
	if l.closed {
		return
	}
	l.closed = true
	unix.Close(l.wakeFd)
	unix.Close(l.epfd)
}

// AddHooks attaches an observer set. Not synchronized; attach during
// setup, before Run.
func (l *EventLoop) AddHooks(h Hooks) {
	l.hooks = append(l.hooks, h)
}

// addSource registers fd with the poll set.
func (l *EventLoop) addSource(fd int, events uint32, s source) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	l.sources[fd] = s
	return nil
}

// modSource updates the interest mask of a registered fd.
func (l *EventLoop) modSource(fd int, events uint32) error {
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// removeSource drops fd from the poll set. Harmless if already gone.
func (l *EventLoop) removeSource(fd int) {
	if _, ok := l.sources[fd]; !ok {
		return
	}
	delete(l.sources, fd)
	l.retired[fd] = struct{}{}
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wakeSource drains the eventfd poked by Stop.
type wakeSource struct {
	fd int
}

func (w wakeSource) onReady(_ *LoopHandle, _ uint32) {
	var buf [8]byte
	_, _ = unix.Read(w.fd, buf[:])
}

// clientSource adapts a Client to the reactor.
type clientSource Client

func (s *clientSource) onReady(h *LoopHandle, events uint32) {
	c := (*Client)(s)
	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 && events&unix.EPOLLIN == 0 {
		c.teardown(nil)
		return
	}
	c.handleReadable(h)
}
