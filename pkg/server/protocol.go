package server

import (
	"fmt"

	"github.com/fnr1r/wayland-go/pkg/wire"
)

// Event opcodes of the engine-spoken core interfaces. They mirror the
// descriptor tables in pkg/interfaces and are fixed by the protocol.
const (
	displayEventError    uint16 = 0
	displayEventDeleteID uint16 = 1

	registryEventGlobal       uint16 = 0
	registryEventGlobalRemove uint16 = 1

	callbackEventDone uint16 = 0
)

// displayImpl handles the two requests every connection's implicit
// display object accepts. It goes through the same dispatch machinery as
// application tables.
var displayImpl = &Implementation{
	Handlers: []Handler{
		displaySync,        // opcode 0
		displayGetRegistry, // opcode 1
	},
}

// registryImpl handles binds on registry objects.
var registryImpl = &Implementation{
	Handlers: []Handler{
		registryBind, // opcode 0
	},
}

// displaySync: the new callback object was created by the generic typed
// new-id path. Emit done with a fresh serial, then destroy it so the
// client can recycle the id.
func displaySync(h *LoopHandle, _ any, c *Client, _ *Handle, args []wire.Arg) {
	cb, ok := c.Object(args[0].U)
	if !ok {
		return
	}
	if _, err := cb.PostEvent(callbackEventDone, wire.Uint(h.NextSerial())); err != nil {
		c.logger.Error("sync callback failed", "error", err)
	}
	c.destroyObject(cb.obj)
}

// displayGetRegistry installs the registry implementation on the new
// object and announces every currently advertised global.
func displayGetRegistry(h *LoopHandle, _ any, c *Client, _ *Handle, args []wire.Arg) {
	reg, ok := c.Object(args[0].U)
	if !ok {
		return
	}
	reg.obj.impl = registryImpl
	c.registries[reg.ID()] = reg.obj

	for _, g := range h.loop.globals {
		announceGlobal(reg.obj, g)
	}
}

// registryBind validates a bind request and hands the new resource to the
// global's callback. The interface travels inline (name, version, id), so
// the object is created here rather than by the typed new-id path.
func registryBind(h *LoopHandle, _ any, c *Client, reg *Handle, args []wire.Arg) {
	name := args[0].U
	ifaceName := args[1].S
	version := int32(args[2].U)
	id := args[3].U

	g := h.loop.globalByName(name)
	if g == nil {
		c.protocolError(reg.ID(), CodeInvalidObject,
			fmt.Sprintf("invalid global %d", name))
		return
	}
	if ifaceName != g.iface.Name {
		c.protocolError(reg.ID(), CodeInvalidObject,
			fmt.Sprintf("global %d is %s, not %s", name, g.iface.Name, ifaceName))
		return
	}
	if version < 1 || version > g.version {
		c.protocolError(reg.ID(), CodeInvalidObject,
			fmt.Sprintf("invalid version %d for global %s (advertised %d)",
				version, g.iface.Name, g.version))
		return
	}

	obj, err := c.newObject(id, g.iface, version)
	if err != nil {
		c.protocolError(id, CodeInvalidObject,
			fmt.Sprintf("cannot bind %s as id %d: %v", g.iface.Name, id, err))
		return
	}
	g.bind(h, g.data, c, &Handle{obj: obj})
}
