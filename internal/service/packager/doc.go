// Package packager wires the packaging pipeline end to end: target
// resolution, toolchain environment, primary and auxiliary builds, the
// optional external fetch, and archive assembly with its manifest.
//
// Run is the single entry point consumed by the CLI.
package packager
