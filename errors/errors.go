package errors

import (
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in the attachment lifecycle the error occurred
type Phase string

const (
	PhaseDiscover   Phase = "discover"   // module discovery
	PhaseInitialize Phase = "initialize" // runtime handle construction
	PhaseAttach     Phase = "attach"     // thread attachment
	PhaseDetach     Phase = "detach"     // thread detachment
	PhasePerform    Phase = "perform"    // callback execution
	PhaseDispose    Phase = "dispose"    // bridge teardown
	PhaseConfig     Phase = "config"     // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindModuleNotFound Kind = "module_not_found"
	KindNotReady       Kind = "not_ready"
	KindInitialization Kind = "initialization"
	KindAttachment     Kind = "attachment"
	KindDetachment     Kind = "detachment"
	KindSymbolMissing  Kind = "symbol_missing"
	KindCallback       Kind = "callback"
	KindDisposed       Kind = "disposed"
	KindInvalidInput   Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Thread int
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" module ")
		b.WriteString(e.Module)
	}
	if e.Thread != 0 {
		fmt.Fprintf(&b, " thread %d", e.Thread)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two bridge errors match when
// their phase and kind agree, so sentinel values like
// &Error{Phase: PhaseDiscover, Kind: KindModuleNotFound} work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the module name involved
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Thread sets the OS thread id involved
func (b *Builder) Thread(tid int) *Builder {
	b.err.Thread = tid
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ModuleNotFound reports that discovery timed out without locating any of
// the candidate module names.
func ModuleNotFound(candidates []string, timeout time.Duration) *Error {
	return &Error{
		Phase:  PhaseDiscover,
		Kind:   KindModuleNotFound,
		Detail: fmt.Sprintf("no module matching %s found within %s", strings.Join(candidates, ", "), timeout),
	}
}

// NotReady reports a synchronous access before the runtime reached readiness.
// The caller should go through Perform or Initialize instead.
func NotReady(what string) *Error {
	return &Error{
		Phase:  PhaseInitialize,
		Kind:   KindNotReady,
		Detail: fmt.Sprintf("%s is not available before initialization; use Perform or Initialize", what),
	}
}

// Initialization wraps any failure during discovery or readiness polling.
func Initialization(cause error) *Error {
	return &Error{
		Phase: PhaseInitialize,
		Kind:  KindInitialization,
		Cause: cause,
	}
}

// AttachFailed reports a failed native attach call for a thread.
func AttachFailed(tid int, cause error) *Error {
	return &Error{
		Phase:  PhaseAttach,
		Kind:   KindAttachment,
		Thread: tid,
		Detail: "native thread attach failed",
		Cause:  cause,
	}
}

// DetachFailed reports a failed native detach call. These are always
// recovered locally: cleanup logs them and never surfaces them to callers.
func DetachFailed(tid int, cause error) *Error {
	return &Error{
		Phase:  PhaseDetach,
		Kind:   KindDetachment,
		Thread: tid,
		Detail: "native thread detach failed",
		Cause:  cause,
	}
}

// SymbolMissing reports a required runtime export that could not be resolved.
func SymbolMissing(module, symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseInitialize,
		Kind:   KindSymbolMissing,
		Module: module,
		Detail: fmt.Sprintf("required export %q not resolved", symbol),
		Cause:  cause,
	}
}

// Disposed reports use of a bridge after Dispose.
func Disposed() *Error {
	return &Error{
		Phase:  PhaseDispose,
		Kind:   KindDisposed,
		Detail: "bridge has been disposed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
