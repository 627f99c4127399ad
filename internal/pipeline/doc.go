// Package pipeline provides the linear step driver of the packaging run.
//
// Each step returns a typed Result (ok, recovered, skipped or fatal) and the
// driver decides continuation from the result class alone: fatal aborts the
// run, recovered failures are collected on a separate warning channel so a
// degraded run still succeeds. The StagingSet accumulates artifacts destined
// for the final archive.
package pipeline
