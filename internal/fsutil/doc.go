// Package fsutil holds the small filesystem helpers shared by the build,
// verification and packaging steps.
package fsutil
