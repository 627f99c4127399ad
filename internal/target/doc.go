// Package target resolves a user-supplied architecture token into the
// concrete build triple and platform identifiers used by every later step,
// and centralizes canonical artifact path resolution per target.
package target
