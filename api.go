package monobridge

// RuntimeAPI is the minimal native surface of the hosted runtime consumed by
// the bridge: the readiness probe plus thread attach/detach calls. The
// native package binds it over the real Mono C exports; tests substitute
// fakes with call counters.
//
// All handles are opaque native pointers. Implementations must be safe for
// concurrent use; the bridge may probe readiness and attach distinct OS
// threads at the same time.
type RuntimeAPI interface {
	// RootDomain returns the runtime's root application domain, or 0 while
	// the runtime has not finished constructing it. It is the readiness
	// probe polled during initialization.
	RootDomain() (uintptr, error)

	// AttachThread binds the calling OS thread to the runtime and returns
	// the native thread handle.
	AttachThread(domain uintptr) (uintptr, error)

	// DetachThread releases a thread handle previously returned by
	// AttachThread.
	DetachThread(thread uintptr) error

	// CurrentThread returns the native thread handle of the calling OS
	// thread, or 0 if the thread is not attached. Used to recognize threads
	// attached by someone other than the bridge.
	CurrentThread() (uintptr, error)

	// DetachIfExiting detaches the calling thread only if the runtime
	// reports it is terminating. Returns true when a detach happened. On
	// runtimes without this capability it must return (false, nil).
	DetachIfExiting() (bool, error)

	// ShuttingDown reports whether the runtime has begun tearing down.
	// Runtimes without the probe report false.
	ShuttingDown() bool
}
