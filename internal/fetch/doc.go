// Package fetch downloads the optional third-party executable from its
// release host, keyed by version and architecture. Every failure in here is
// absorbed by the pipeline as a warning: third-party infrastructure must
// never crash a packaging run.
package fetch
