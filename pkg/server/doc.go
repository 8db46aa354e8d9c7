// Package server is the server-side runtime for the display protocol:
// it accepts client connections, demultiplexes their request streams,
// dispatches each request to an application-supplied implementation
// table, tracks the lifetime of every protocol object, and advertises
// bindable globals.
//
// # Event loop
//
// Everything happens on one EventLoop. Dispatch polls the registered
// sources (client sockets, listening sockets, fd/signal/timer sources),
// services every ready one, and returns. Callbacks always run on the
// dispatching goroutine, one at a time; the engine never creates
// goroutines of its own, so applications need no locking around state
// reached only from callbacks.
//
//	display, loop, socket, err := server.CreateDisplay()
//	...
//	for {
//	    display.FlushClients()
//	    if _, err := loop.Dispatch(10); err != nil {
//	        return err
//	    }
//	}
//
// # Resources and implementations
//
// Every protocol object a client creates is represented by a Handle.
// Registering an Implementation binds a callback per request opcode plus
// one opaque data value:
//
//	loop.Register(res, &server.Implementation{
//	    Handlers: []server.Handler{onGetSurface, onDestroy},
//	    Data:     myToken,
//	})
//
// Handles share liveness and user data with every clone referring to the
// same object. Once the object is destroyed (destructor request, client
// disconnect), all its handles report Dead and event posts become
// harmless no-ops returning Destroyed.
//
// # Globals
//
// RegisterGlobal advertises an interface that clients discover through
// the registry and bind into fresh resources:
//
//	loop.RegisterGlobal(myproto.Seat, 3, onBindSeat, nil)
//
// The engine validates bind versions against the advertisement and hands
// the bind callback an Alive resource to register an implementation on.
//
// # Errors
//
// Malformed or out-of-contract client traffic is fatal to that client
// only: the engine posts a display error, flushes it, and tears the
// connection down; Dispatch keeps running. I/O failures of the reactor
// itself surface as errors from Dispatch/Run.
package server
