// Package manifest writes the package manifest placed next to the release
// archive: the archive's entry list with per-file checksums.
package manifest
