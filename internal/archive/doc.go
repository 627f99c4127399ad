// Package archive creates the final release tarball and unpacks downloaded
// release archives in the common compression formats (gzip, bzip2, xz, zstd, zip).
package archive
