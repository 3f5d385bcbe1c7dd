// Package process enumerates the native modules loaded in a target process.
//
// The Enumerator interface is the seam consumed by module discovery; the
// library ships a procfs-backed implementation for Linux targets and a
// Static list for tests and embedders with their own instrumentation
// channel (Windows toolhelp snapshots, injected agents, ...).
//
//	mods, err := process.Self().Modules()
//
// Enumeration is pure polling with no side effects on the target process.
package process
