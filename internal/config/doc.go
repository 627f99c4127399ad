// Package config defines the settings of a packaging run and provides
// helpers to load, default and save them in YAML format.
//
// Settings are resolved in order: YAML file (optional), process environment
// (GOOSE_* variables, with a best-effort .env load), built-in defaults.
package config
