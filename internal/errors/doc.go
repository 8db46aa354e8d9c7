// Package errors provides the daemon's coded CLI errors.
//
// Every user-facing failure carries a stable code (for example E201),
// a category, and optionally a detail paragraph and a fix suggestion.
// Codes are looked up in a registry so the message wording lives in one
// place and the call sites stay short:
//
//	return errors.New("E201").
//		WithDetail("XDG_RUNTIME_DIR is not set").
//		WithSuggestion("Run under a session manager, or set XDG_RUNTIME_DIR")
//
// Format renders the error for terminals; FormatCompact is the single
// line form for logs.
package errors
