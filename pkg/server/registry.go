package server

import (
	"fmt"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/wire"
)

// GlobalBindFunc runs when a client binds a global: res is the freshly
// created, Alive resource for the new object, with the client-requested
// version. The callback is expected to Register an implementation on it.
type GlobalBindFunc func(h *LoopHandle, data any, client *Client, res *Handle)

// Global is one advertised bindable singleton interface. It lives until
// Destroy withdraws it and may be bound any number of times; enforcing
// once-per-client semantics, if wanted, is the bind callback's job.
type Global struct {
	loop    *EventLoop
	name    uint32
	iface   *interfaces.Interface
	version int32
	bind    GlobalBindFunc
	data    any

	destroyed bool
}

// Interface returns the advertised interface descriptor.
func (g *Global) Interface() *interfaces.Interface { return g.iface }

// Version returns the advertised version.
func (g *Global) Version() int32 { return g.version }

// Name returns the numeric name clients use to address the global.
func (g *Global) Name() uint32 { return g.name }

// Destroy withdraws the advertisement. Connected clients are notified;
// objects already bound from this global are unaffected.
func (g *Global) Destroy() {
	if g.destroyed {
		return
	}
	g.destroyed = true
	l := g.loop
	for i, other := range l.globals {
		if other == g {
			l.globals = append(l.globals[:i], l.globals[i+1:]...)
			break
		}
	}
	l.eachRegistry(func(reg *object) {
		_ = reg.client.bufferEvent(reg.id, registryEventGlobalRemove, "u",
			[]wire.Arg{wire.Uint(g.name)})
	})
}

// RegisterGlobal advertises iface at the given version to every current
// and future client. version must be within the descriptor's supported
// range; violating that is a construction failure, not a panic.
func (l *EventLoop) RegisterGlobal(iface *interfaces.Interface, version int32, bind GlobalBindFunc, data any) (*Global, error) {
	if version < 1 || version > iface.Version {
		return nil, fmt.Errorf("%w: %s version %d (max %d)",
			ErrVersionTooHigh, iface.Name, version, iface.Version)
	}
	l.globalName++
	g := &Global{
		loop:    l,
		name:    l.globalName,
		iface:   iface,
		version: version,
		bind:    bind,
		data:    data,
	}
	l.globals = append(l.globals, g)

	// Late registration still reaches clients that already hold a
	// registry.
	l.eachRegistry(func(reg *object) {
		announceGlobal(reg, g)
	})
	l.logger.Debug("global registered", "interface", iface.Name, "version", version, "name", g.name)
	return g, nil
}

// Globals returns a snapshot of the currently advertised globals.
func (l *EventLoop) Globals() []*Global {
	out := make([]*Global, len(l.globals))
	copy(out, l.globals)
	return out
}

// globalByName resolves a client-supplied numeric name.
func (l *EventLoop) globalByName(name uint32) *Global {
	for _, g := range l.globals {
		if g.name == name {
			return g
		}
	}
	return nil
}

// eachRegistry visits every live registry object across all clients.
func (l *EventLoop) eachRegistry(fn func(reg *object)) {
	if l.display == nil {
		return
	}
	for _, c := range l.display.clients {
		for _, reg := range c.registries {
			fn(reg)
		}
	}
}

// announceGlobal sends one registry global event.
func announceGlobal(reg *object, g *Global) {
	_ = reg.client.bufferEvent(reg.id, registryEventGlobal, "usu", []wire.Arg{
		wire.Uint(g.name), wire.Str(g.iface.Name), wire.Uint(uint32(g.version)),
	})
}
