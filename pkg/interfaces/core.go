package interfaces

// Core descriptors the engine itself dispatches. Everything else comes
// from generated protocol tables supplied by the embedding application.
var (
	// Display is the implicit first object of every connection (id 1).
	Display = &Interface{
		Name:    "wl_display",
		Version: 1,
		Requests: []Message{
			{Name: "sync", Signature: "n", Since: 1},
			{Name: "get_registry", Signature: "n", Since: 1},
		},
		Events: []Message{
			{Name: "error", Signature: "ous", Since: 1},
			{Name: "delete_id", Signature: "u", Since: 1},
		},
	}

	// Registry is the global-discovery object bound via get_registry.
	Registry = &Interface{
		Name:    "wl_registry",
		Version: 1,
		Requests: []Message{
			// interface name and version travel inline, so Types
			// carries no entry for the new id.
			{Name: "bind", Signature: "usun", Since: 1},
		},
		Events: []Message{
			{Name: "global", Signature: "usu", Since: 1},
			{Name: "global_remove", Signature: "u", Since: 1},
		},
	}

	// Callback is the one-shot object created by sync. done is terminal:
	// the server destroys the object immediately after emitting it.
	Callback = &Interface{
		Name:    "wl_callback",
		Version: 1,
		Events: []Message{
			{Name: "done", Signature: "u", Since: 1},
		},
	}
)

func init() {
	// Set here rather than in the literals to avoid an initialization
	// cycle between Display, Registry and Callback.
	Display.Requests[0].Types = []*Interface{Callback}
	Display.Requests[1].Types = []*Interface{Registry}
}
