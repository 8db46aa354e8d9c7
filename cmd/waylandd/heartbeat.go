package main

import (
	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/server"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// heartbeatInterface is the daemon's built-in liveness global. Clients
// bind it and ping with an arbitrary cookie; the server echoes the
// cookie back together with a loop serial. It doubles as a smoke test
// for the full request/event round trip.
var heartbeatInterface = &interfaces.Interface{
	Name:    "wd_heartbeat",
	Version: 1,
	Requests: []interfaces.Message{
		{Name: "ping", Signature: "u"},
		{Name: "destroy", Signature: "", Destructor: true},
	},
	Events: []interfaces.Message{
		{Name: "pong", Signature: "uu"},
	},
}

const heartbeatEventPong = 0

var heartbeatImpl = &server.Implementation{
	Handlers: []server.Handler{
		heartbeatPing,
		func(*server.LoopHandle, any, *server.Client, *server.Handle, []wire.Arg) {
			// destroy: the destructor flag does the work.
		},
	},
}

func heartbeatPing(h *server.LoopHandle, _ any, _ *server.Client, res *server.Handle, args []wire.Arg) {
	if _, err := res.PostEvent(heartbeatEventPong,
		wire.Uint(args[0].U), wire.Uint(h.NextSerial())); err != nil {
		h.EventLoop().Logger().Error("heartbeat pong failed", "error", err)
	}
}

// registerHeartbeat advertises the liveness global.
func registerHeartbeat(loop *server.EventLoop) error {
	_, err := loop.RegisterGlobal(heartbeatInterface, 1,
		func(h *server.LoopHandle, _ any, _ *server.Client, res *server.Handle) {
			h.Register(res, heartbeatImpl)
		}, nil)
	return err
}
