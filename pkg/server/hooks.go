package server

import "time"

// Hooks are optional observer callbacks fired by the engine. They run on
// the dispatch goroutine, so they must return quickly and must not call
// back into dispatch. Nil fields are skipped. Telemetry and the inspect
// surface are the intended consumers.
type Hooks struct {
	// ClientConnected fires after a connection is accepted and its
	// display object exists.
	ClientConnected func(c *Client)

	// ClientClosed fires after teardown. reason is nil for an orderly
	// disconnect.
	ClientClosed func(c *Client, reason error)

	// MessageDispatched fires after a request handler returned.
	MessageDispatched func(c *Client, iface, message string, opcode uint16, took time.Duration)

	// ProtocolError fires when a protocol error is posted, whether by
	// the engine or by the application.
	ProtocolError func(c *Client, object uint32, code uint32, msg string)
}

func (l *EventLoop) fireClientConnected(c *Client) {
	for _, h := range l.hooks {
		if h.ClientConnected != nil {
			h.ClientConnected(c)
		}
	}
}

func (l *EventLoop) fireClientClosed(c *Client, reason error) {
	for _, h := range l.hooks {
		if h.ClientClosed != nil {
			h.ClientClosed(c, reason)
		}
	}
}

func (l *EventLoop) fireMessage(c *Client, iface, message string, opcode uint16, took time.Duration) {
	for _, h := range l.hooks {
		if h.MessageDispatched != nil {
			h.MessageDispatched(c, iface, message, opcode, took)
		}
	}
}

func (l *EventLoop) fireProtocolError(c *Client, object uint32, code uint32, msg string) {
	for _, h := range l.hooks {
		if h.ProtocolError != nil {
			h.ProtocolError(c, object, code, msg)
		}
	}
}
