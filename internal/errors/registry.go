package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E101": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create waylandd.json next to the binary, or pass --config with an explicit path",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "Configuration file is not valid JSON",
		Suggestion: "Check waylandd.json for syntax errors",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Configuration value out of range",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Invalid duration in configuration",
		Suggestion: "Durations use Go syntax, e.g. \"8ms\" or \"1s\"",
	},

	// ============================================
	// Socket Errors (E200-E299)
	// ============================================

	"E201": {
		Category:   CategorySocket,
		Message:    "XDG_RUNTIME_DIR is not set",
		Detail:     "The listening socket lives in the user runtime directory, which the environment does not name.",
		Suggestion: "Run under a session manager, or export XDG_RUNTIME_DIR yourself",
	},
	"E202": {
		Category:   CategorySocket,
		Message:    "Socket name already in use",
		Detail:     "Another server is already serving the requested socket name.",
		Suggestion: "Stop the other server or pick a different --socket name",
	},
	"E203": {
		Category: CategorySocket,
		Message:  "No free socket name",
		Detail:   "All wayland-0 through wayland-32 names are taken by live servers.",
	},
	"E204": {
		Category: CategorySocket,
		Message:  "Cannot create listening socket",
	},

	// ============================================
	// Runtime Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryRuntime,
		Message:  "Event loop initialization failed",
	},
	"E302": {
		Category: CategoryRuntime,
		Message:  "Event loop terminated with an error",
	},
	"E303": {
		Category: CategoryRuntime,
		Message:  "Inspect listener failed",
		Detail:   "The diagnostic HTTP listener could not be started or crashed.",
	},

	// ============================================
	// CLI Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryCLI,
		Message:  "Invalid command line flag",
	},
}

// Register adds a template at runtime. Embedders extending the daemon
// can claim codes E900 and up.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
