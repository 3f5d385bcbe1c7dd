package bridge

import (
	"context"
	"runtime"

	"github.com/hexforge/mono-bridge/errors"
)

// Callback runs with the calling OS thread attached to the runtime. The
// attachment remains valid across anything the callback does on that
// thread, including nested Perform calls.
type Callback func(ctx context.Context) error

// Perform runs fn attached to the runtime using the configured default
// mode. It is the sole recommended entry point: it initializes the bridge
// if needed, pins the goroutine to its OS thread, attaches the thread,
// runs fn, and applies mode cleanup once fn settles.
func (b *Bridge) Perform(ctx context.Context, fn Callback) error {
	return b.PerformWithMode(ctx, b.cfg.DefaultMode, fn)
}

// PerformWithMode is Perform with an explicit cleanup mode for this
// invocation.
//
// Ordering is strict on every path: initialization completes before
// attachment, attachment before fn, and cleanup after fn settles, whether
// it returned, failed or panicked.
//
// A callback error is delivered twice on purpose: it rejects this call's
// result and is independently handed to the configured AsyncErrors sink on
// another goroutine, so the failure is never lost when the caller discards
// the return value.
func (b *Bridge) PerformWithMode(ctx context.Context, mode Mode, fn Callback) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhasePerform, "nil callback")
	}
	if !mode.valid() {
		return errors.InvalidInput(errors.PhasePerform, "perform mode out of range")
	}
	if b.disposed.Load() {
		return errors.Disposed()
	}

	// The attachment is per OS thread; keep the goroutine on it for the
	// whole invocation, nested frames included.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if _, err := b.gate.initialize(ctx); err != nil {
		return err
	}
	st := b.gate.state()
	if st == nil {
		// Disposal raced this call; treat it like any other post-dispose use.
		return errors.Disposed()
	}

	tid := b.cfg.ThreadID()
	_, attachedNow, err := b.threads.ensureAttached(st.api, st.domain, tid)
	if err != nil {
		return err
	}
	if attachedNow {
		b.threads.markBridgeOwned(tid)
	}

	if mode == ModeBind {
		b.installUnloadHook()
	}

	defer func() {
		// Mode cleanup, after fn settled. Only the invocation that
		// performed the attach may free it; detach failures are swallowed
		// inside the registry.
		if mode == ModeFree && attachedNow {
			b.threads.detachBridgeOwned(tid)
		}
	}()

	if err := b.threads.run(tid, func() error { return fn(ctx) }); err != nil {
		b.reportAsync(err)
		return err
	}
	return nil
}

// reportAsync fires the error at the AsyncErrors sink, decoupled from the
// Perform call that produced it.
func (b *Bridge) reportAsync(err error) {
	b.asyncWG.Add(1)
	go func() {
		defer b.asyncWG.Done()
		b.cfg.AsyncErrors(err)
	}()
}

// PerformValue is Perform for callbacks that produce a value.
func PerformValue[T any](ctx context.Context, b *Bridge, fn func(ctx context.Context) (T, error)) (T, error) {
	return PerformValueWithMode(ctx, b, b.cfg.DefaultMode, fn)
}

// PerformValueWithMode is PerformValue with an explicit cleanup mode.
func PerformValueWithMode[T any](ctx context.Context, b *Bridge, mode Mode, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.PerformWithMode(ctx, mode, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
