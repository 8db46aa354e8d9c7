package server

import (
	"sync/atomic"
	"time"
)

// loopCounters are the loop's internal atomic counters. They are written
// from the dispatch goroutine and read from anywhere via Metrics.
type loopCounters struct {
	clientsConnected   atomic.Uint64
	clientsClosed      atomic.Uint64
	messagesDispatched atomic.Uint64
	eventsPosted       atomic.Uint64
	protocolErrors     atomic.Uint64
	bytesRead          atomic.Uint64
	bytesWritten       atomic.Uint64
	dispatchCycles     atomic.Uint64
}

// LoopMetrics is a point-in-time snapshot of the loop's counters.
type LoopMetrics struct {
	// Clients
	ClientsConnected uint64
	ClientsClosed    uint64
	ActiveClients    uint64

	// Traffic
	MessagesDispatched uint64
	EventsPosted       uint64
	ProtocolErrors     uint64
	BytesRead          uint64
	BytesWritten       uint64

	// Reactor
	DispatchCycles uint64

	// Timestamp
	CollectedAt time.Time
}

// Metrics collects and returns the loop's counters.
func (l *EventLoop) Metrics() LoopMetrics {
	connected := l.counters.clientsConnected.Load()
	closed := l.counters.clientsClosed.Load()
	return LoopMetrics{
		ClientsConnected:   connected,
		ClientsClosed:      closed,
		ActiveClients:      connected - closed,
		MessagesDispatched: l.counters.messagesDispatched.Load(),
		EventsPosted:       l.counters.eventsPosted.Load(),
		ProtocolErrors:     l.counters.protocolErrors.Load(),
		BytesRead:          l.counters.bytesRead.Load(),
		BytesWritten:       l.counters.bytesWritten.Load(),
		DispatchCycles:     l.counters.dispatchCycles.Load(),
		CollectedAt:        time.Now(),
	}
}
