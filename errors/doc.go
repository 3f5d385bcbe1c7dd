// Package errors provides structured error types for the mono-bridge library.
//
// Errors are categorized by Phase (where in the attachment lifecycle the
// error occurred) and Kind (error category). The Error type carries the
// module name, the OS thread id and the cause chain where relevant.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAttach, errors.KindAttachment).
//		Thread(tid).
//		Detail("attach returned nil thread").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ModuleNotFound(candidates, timeout)
//	err := errors.AttachFailed(tid, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching with errors.Is compares Phase and Kind, so sentinel values built
// from those two fields select whole error categories.
package errors
