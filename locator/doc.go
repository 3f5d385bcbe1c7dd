// Package locator discovers the Mono runtime's native module inside a
// target process.
//
// Runtimes ship under several module names depending on version and build
// (legacy mono.dll, MonoBleedingEdge mono-2.0-bdwgc.dll, and their ELF
// counterparts), so WaitForModule accepts an ordered candidate list and the
// first candidate with a loaded match wins.
//
// Discovery is a fixed-interval poll over a process.Enumerator with two
// thresholds: a non-fatal warning when the search is slow, and a hard
// timeout that fails with a module_not_found error naming every candidate
// searched.
package locator
