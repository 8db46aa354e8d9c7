// Package inspect exposes a read-only HTTP surface for a running
// engine: connected clients, advertised globals, loop counters and a
// live WebSocket tap of dispatched messages.
//
// The surface is driven entirely by hooks and by the loop's atomic
// counter snapshots, so its handlers never touch engine state from
// outside the dispatch goroutine. Attach it like any other observer:
//
//	ins := inspect.New(loop)
//	loop.AddHooks(ins.Hooks())
//	go http.ListenAndServe("localhost:9222", ins.Router())
//
// Everything here is diagnostic. Bind it to localhost.
package inspect
