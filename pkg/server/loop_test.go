package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fnr1r/wayland-go/pkg/state"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

func TestRunStopsOnStop(t *testing.T) {
	loop := newTestLoop(t)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	// Give Run a moment to park in epoll, then wake it.
	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestStopFromHandler(t *testing.T) {
	d, loop, path := newTestDisplay(t)

	registerGadgetGlobal(t, loop, gadgetImpl(func(h *LoopHandle, _ any, _ *Client, _ *Handle, _ []wire.Arg) {
		h.loop.Stop()
	}))

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	// Run never flushes, so drive the bind blind: the only global holds
	// numeric name 1. get_registry, bind, then the ping that stops Run.
	tc := dialDisplay(t, path)
	const registryID = 2
	tc.request(1, 1, "n", wire.NewID(registryID))
	tc.request(registryID, 0, "usun",
		wire.Uint(1), wire.Str(gadget.Name), wire.Uint(1), wire.NewID(3))
	tc.request(3, 0, "u", wire.Uint(1))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop from handler")
	}
	_ = d
}

func TestNextSerialIncrements(t *testing.T) {
	loop := newTestLoop(t)
	a := loop.NextSerial()
	b := loop.NextSerial()
	if b != a+1 {
		t.Fatalf("serials %d, %d; want consecutive", a, b)
	}
}

func TestStateStoreReachableFromHandler(t *testing.T) {
	d, loop, path := newTestDisplay(t)

	type counters struct{ pings int }
	tok := state.Insert(loop.State(), counters{})

	registerGadgetGlobal(t, loop, gadgetImpl(func(h *LoopHandle, _ any, _ *Client, _ *Handle, _ []wire.Arg) {
		state.With(h.State(), tok, func(c counters) counters {
			c.pings++
			return c
		})
	}))

	tc := bindGadget(t, d, loop, path, 3, 1)
	tc.request(3, 0, "u", wire.Uint(0))
	tc.request(3, 0, "u", wire.Uint(0))
	settle(t, d, loop)

	if got := state.Get(loop.State(), tok); got.pings != 2 {
		t.Fatalf("pings = %d, want 2", got.pings)
	}
}

func TestHooksObserveLifecycle(t *testing.T) {
	d, loop, path := newTestDisplay(t)
	registerGadgetGlobal(t, loop, gadgetImpl(nil))

	var connected, closed, messages, protoErrs atomic.Int64
	loop.AddHooks(Hooks{
		ClientConnected: func(*Client) { connected.Add(1) },
		ClientClosed:    func(*Client, error) { closed.Add(1) },
		MessageDispatched: func(_ *Client, iface, message string, _ uint16, _ time.Duration) {
			messages.Add(1)
		},
		ProtocolError: func(*Client, uint32, uint32, string) { protoErrs.Add(1) },
	})

	tc := bindGadget(t, d, loop, path, 3, 1)
	tc.request(3, 0, "u", wire.Uint(0))
	settle(t, d, loop)

	if connected.Load() != 1 {
		t.Fatalf("connected = %d, want 1", connected.Load())
	}
	// get_registry, bind, ping all dispatched.
	if messages.Load() < 3 {
		t.Fatalf("messages = %d, want >= 3", messages.Load())
	}

	// Force a fatal error and verify the close/error hooks.
	tc.request(99, 0, "")
	settle(t, d, loop)
	if protoErrs.Load() != 1 {
		t.Fatalf("protocol errors = %d, want 1", protoErrs.Load())
	}
	if closed.Load() != 1 {
		t.Fatalf("closed = %d, want 1", closed.Load())
	}
}

func TestMetricsSnapshot(t *testing.T) {
	d, loop, path := newTestDisplay(t)
	registerGadgetGlobal(t, loop, gadgetImpl(nil))

	tc := bindGadget(t, d, loop, path, 3, 1)
	tc.request(3, 0, "u", wire.Uint(0))
	settle(t, d, loop)

	m := loop.Metrics()
	if m.ClientsConnected != 1 {
		t.Fatalf("ClientsConnected = %d, want 1", m.ClientsConnected)
	}
	if m.MessagesDispatched < 3 {
		t.Fatalf("MessagesDispatched = %d, want >= 3", m.MessagesDispatched)
	}
	if m.BytesRead == 0 {
		t.Fatal("BytesRead = 0 after dispatching requests")
	}
	if m.DispatchCycles == 0 {
		t.Fatal("DispatchCycles = 0 after settle")
	}
}

func TestCloseReleasesLoop(t *testing.T) {
	loop := newTestLoop(t)
	loop.Close()
	loop.Close() // idempotent

	if _, err := loop.Dispatch(0); err != ErrLoopClosed {
		t.Fatalf("Dispatch after Close = %v, want ErrLoopClosed", err)
	}
}

func TestStopBeforeRunIsNotLost(t *testing.T) {
	loop := newTestLoop(t)

	loop.Stop()
	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept dispatching past a Stop issued before it started")
	}

	// That Stop is consumed: the next Run dispatches until stopped again.
	go func() { done <- loop.Run() }()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Run did not stop")
	}
}
