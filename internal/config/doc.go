// Package config loads and validates the daemon's waylandd.json.
//
// All fields are optional; zero values fall back to defaults via
// applyDefaults, so a missing file and an empty object behave the
// same. Durations are JSON strings in Go syntax ("8ms", "1s").
package config
