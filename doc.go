// Package monobridge attaches Go code to a Mono runtime hosted inside a
// process, so that callers can safely invoke managed code from native
// threads.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	mono-bridge/
//	├── bridge/          High-level API: Bridge context, Perform, thread attachment
//	├── locator/         Module discovery polling with timeout and slow warnings
//	├── native/          Mono C export binding over caller-supplied primitives
//	├── process/         Loaded-module enumeration for a target process
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Construct a Bridge and run managed-code callbacks through Perform:
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
//	    // The calling OS thread is attached to the runtime here.
//	    return nil
//	})
//
// Perform lazily discovers the Mono module, waits for the root domain to be
// constructed, attaches the calling OS thread, and applies mode-selectable
// cleanup once the callback settles. Concurrent first callers share a single
// initialization attempt; nested Perform calls on one thread reuse the
// existing attachment.
//
// # Thread Attachment
//
// Every OS thread that enters the runtime must be attached first. Perform
// handles this transparently and tracks which attachments it owns, so that
// cleanup never detaches a thread attached by someone else. The escape
// hatches EnsureThreadAttached, DetachIfExiting and DetachAllThreads are
// exposed for embedders with unusual threading models; prefer Perform.
package monobridge
