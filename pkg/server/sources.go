package server

import (
	"encoding/binary"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"
)

// FdInterest selects which readiness conditions an FdSource reports.
type FdInterest uint32

const (
	// Readable: the descriptor has data to read.
	Readable FdInterest = 1 << iota
	// Writable: the descriptor accepts writes.
	Writable
)

// Has reports whether the interest contains the given bits.
func (i FdInterest) Has(bits FdInterest) bool { return i&bits != 0 }

func (i FdInterest) epollMask() uint32 {
	var m uint32
	if i.Has(Readable) {
		m |= unix.EPOLLIN
	}
	if i.Has(Writable) {
		m |= unix.EPOLLOUT
	}
	return m
}

// FdCallback receives readiness for a watched descriptor. It runs on the
// dispatch goroutine under the loop's single-threaded guarantee, exactly
// like protocol message handlers.
type FdCallback func(h *LoopHandle, fd int, ready FdInterest)

// FdErrorCallback receives hangup/error conditions on the descriptor.
type FdErrorCallback func(h *LoopHandle, fd int, err error)

// FdSource watches an arbitrary file descriptor on the loop.
type FdSource struct {
	loop    *EventLoop
	fd      int
	cb      FdCallback
	errCb   FdErrorCallback
	removed bool
}

// AddFdSource registers fd with the given interest. The descriptor stays
// owned by the caller; removing the source does not close it.
func (l *EventLoop) AddFdSource(fd int, interest FdInterest, cb FdCallback, errCb FdErrorCallback) (*FdSource, error) {
	s := &FdSource{loop: l, fd: fd, cb: cb, errCb: errCb}
	if err := l.addSource(fd, interest.epollMask(), s); err != nil {
		return nil, err
	}
	return s, nil
}

// Update changes the interest mask.
func (s *FdSource) Update(interest FdInterest) error {
	if s.removed {
		return ErrSourceRemoved
	}
	return s.loop.modSource(s.fd, interest.epollMask())
}

// Remove unregisters the source from the loop.
func (s *FdSource) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.loop.removeSource(s.fd)
}

func (s *FdSource) onReady(h *LoopHandle, events uint32) {
	if events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		if s.errCb != nil {
			s.errCb(h, s.fd, unix.EPIPE)
		}
		return
	}
	var ready FdInterest
	if events&unix.EPOLLIN != 0 {
		ready |= Readable
	}
	if events&unix.EPOLLOUT != 0 {
		ready |= Writable
	}
	if ready != 0 && s.cb != nil {
		s.cb(h, s.fd, ready)
	}
}

// SignalCallback receives one delivered signal.
type SignalCallback func(h *LoopHandle, sig unix.Signal)

// SignalSource delivers process signals through the loop. The runtime
// installs its own handlers and consumes process-directed signals on
// whatever thread they land, so a raw signalfd never sees them; instead
// the source subscribes through os/signal and a forwarder goroutine
// turns each notification into a byte on a pipe watched by the poll set.
// The callback still runs on the dispatch goroutine under the loop's
// single-threaded guarantee.
type SignalSource struct {
	loop    *EventLoop
	readFd  int
	writeFd int
	sig     unix.Signal
	cb      SignalCallback
	ch      chan os.Signal
	done    chan struct{}
	removed bool
}

// AddSignalSource routes sig into the loop.
func (l *EventLoop) AddSignalSource(sig unix.Signal, cb SignalCallback) (*SignalSource, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	s := &SignalSource{
		loop:    l,
		readFd:  p[0],
		writeFd: p[1],
		sig:     sig,
		cb:      cb,
		ch:      make(chan os.Signal, 8),
		done:    make(chan struct{}),
	}
	if err := l.addSource(p[0], unix.EPOLLIN, s); err != nil {
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, err
	}
	signal.Notify(s.ch, sig)
	go s.forward()
	return s, nil
}

// forward runs off-loop: one pipe byte per notified signal. The write
// end belongs to this goroutine and is closed when it exits.
func (s *SignalSource) forward() {
	defer unix.Close(s.writeFd)
	for {
		select {
		case <-s.done:
			return
		case <-s.ch:
			var b [1]byte
			// A full pipe just coalesces deliveries, like the kernel
			// does for pending signals.
			_, _ = unix.Write(s.writeFd, b[:])
		}
	}
}

// Remove unsubscribes from the signal, stops the forwarder and closes
// the pipe. The process-wide disposition reverts to the default runtime
// behavior.
func (s *SignalSource) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	signal.Stop(s.ch)
	close(s.done)
	s.loop.removeSource(s.readFd)
	unix.Close(s.readFd)
}

func (s *SignalSource) onReady(h *LoopHandle, _ uint32) {
	var buf [64]byte
	for {
		n, err := unix.Read(s.readFd, buf[:])
		if err != nil || n == 0 {
			return
		}
		for i := 0; i < n && s.cb != nil; i++ {
			s.cb(h, s.sig)
		}
	}
}

// TimerCallback receives the number of expirations since the last
// invocation (greater than one when the loop lagged a periodic timer).
type TimerCallback func(h *LoopHandle, expirations uint64)

// TimerSource is a one-shot or periodic timer multiplexed on the loop.
// It is created disarmed; arm it with SetDelay or SetInterval.
type TimerSource struct {
	loop    *EventLoop
	fd      int
	cb      TimerCallback
	removed bool
}

// AddTimerSource creates a disarmed monotonic timer on the loop.
func (l *EventLoop) AddTimerSource(cb TimerCallback) (*TimerSource, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	s := &TimerSource{loop: l, fd: fd, cb: cb}
	if err := l.addSource(fd, unix.EPOLLIN, s); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// SetDelay arms the timer to fire once after d. A zero duration disarms.
func (s *TimerSource) SetDelay(d time.Duration) error {
	return s.arm(d, 0)
}

// SetInterval arms the timer to fire every d, first after d.
func (s *TimerSource) SetInterval(d time.Duration) error {
	return s.arm(d, d)
}

func (s *TimerSource) arm(initial, interval time.Duration) error {
	if s.removed {
		return ErrSourceRemoved
	}
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(initial.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	return unix.TimerfdSettime(s.fd, 0, &spec, nil)
}

// Remove unregisters the source and closes the timer descriptor.
func (s *TimerSource) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.loop.removeSource(s.fd)
	unix.Close(s.fd)
}

func (s *TimerSource) onReady(h *LoopHandle, _ uint32) {
	var buf [8]byte
	n, err := unix.Read(s.fd, buf[:])
	if err != nil || n != 8 {
		return
	}
	if s.cb != nil {
		s.cb(h, binary.NativeEndian.Uint64(buf[:]))
	}
}
