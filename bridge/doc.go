// Package bridge provides the high-level API for attaching to a hosted
// Mono runtime: the Bridge context, the Perform entry point and the thread
// attachment registry.
//
// # Quick Start
//
//	cfg := bridge.DefaultConfig()
//	cfg.Connect = native.NewConnector(openLib, invoker).Connect
//
//	b, err := bridge.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Dispose()
//
//	err = b.Perform(ctx, func(ctx context.Context) error {
//	    // attached to the runtime here
//	    return nil
//	})
//
// # Initialization
//
// The first caller drives discovery: the runtime module is located in the
// target process, the native API is bound, and the root domain is polled
// until the runtime is safe to call into. Concurrent first callers share
// that single attempt and all observe its one outcome. A failed attempt
// resets the state so a later call can retry; nothing is poisoned.
//
// # Cleanup Modes
//
// Perform applies one of three cleanup modes after the callback settles:
//
//	ModeBind   keep the attachment; detach when the unload hook runs (default)
//	ModeFree   detach now, but only if this invocation attached the thread
//	ModeLeak   never detach; the caller owns the thread's lifetime
//
// Threads attached by someone else before the bridge ever ran are
// recognized and never detached by mode cleanup. Nested Perform calls on
// one OS thread share the outer attachment through a call-depth counter, so
// no frame's exit can double-detach.
package bridge
