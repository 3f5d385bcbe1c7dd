package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/process"
)

// Bridge is the explicitly constructed runtime context: the initialization
// gate, the thread registry and the unload hooks behind one object. Create
// one per target runtime and inject it wherever managed calls are made;
// there is no package-level mutable state.
type Bridge struct {
	cfg     Config
	logger  *zap.Logger
	gate    *gate
	threads *threadRegistry

	hooks           hookRegistry
	unloadInstalled atomic.Bool
	teardownOnce    sync.Once

	disposed    atomic.Bool
	disposeOnce sync.Once
	asyncWG     sync.WaitGroup
}

// New validates cfg, fills defaults and constructs a Bridge. Nothing is
// discovered yet; initialization is lazy and driven by Initialize or the
// first Perform.
func New(cfg Config) (*Bridge, error) {
	if cfg.Connect == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "Config.Connect is required")
	}
	if !cfg.DefaultMode.valid() {
		return nil, errors.InvalidInput(errors.PhaseConfig, "Config.DefaultMode out of range")
	}
	if len(cfg.ModuleNames) == 0 {
		cfg.ModuleNames = append([]string(nil), DefaultModuleNames...)
	}
	if cfg.InitializeTimeout <= 0 {
		cfg.InitializeTimeout = DefaultInitializeTimeout
	}
	if cfg.WarnAfter <= 0 {
		cfg.WarnAfter = DefaultWarnAfter
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Processes == nil {
		cfg.Processes = process.Self()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ThreadID == nil {
		if !threadIDSupported {
			return nil, errors.InvalidInput(errors.PhaseConfig, "no OS thread id source on this platform; set Config.ThreadID")
		}
		cfg.ThreadID = currentThreadID
	}

	b := &Bridge{
		cfg:     cfg,
		logger:  cfg.Logger,
		gate:    newGate(cfg),
		threads: newThreadRegistry(cfg.Logger),
	}
	if cfg.AsyncErrors == nil {
		b.cfg.AsyncErrors = func(err error) {
			b.logger.Error("unhandled callback error",
				zap.Error(errors.Wrap(errors.PhasePerform, errors.KindCallback, err, "callback failed")))
		}
	}
	return b, nil
}

// Initialize drives the bridge to readiness: module discovery, native API
// binding and the root-domain poll. It reports whether this call performed
// the initialization. Concurrent callers share a single attempt and observe
// its one outcome; after a failure the state is reset and a later call
// retries from scratch. No thread is attached.
func (b *Bridge) Initialize(ctx context.Context) (bool, error) {
	if b.disposed.Load() {
		return false, errors.Disposed()
	}
	return b.gate.initialize(ctx)
}

// Handle returns the runtime handle synchronously. Before readiness it
// fails with a not_ready error directing the caller to Perform or
// Initialize.
func (b *Bridge) Handle() (Handle, error) {
	if b.disposed.Load() {
		return Handle{}, errors.Disposed()
	}
	st := b.gate.state()
	if st == nil {
		return Handle{}, errors.NotReady("runtime handle")
	}
	return st.handle(), nil
}

// IsAttached reports whether the calling OS thread holds a live attachment.
func (b *Bridge) IsAttached() bool {
	return b.threads.isAttached(b.cfg.ThreadID())
}

// EnsureThreadAttached attaches the calling OS thread and returns its
// native thread handle. Escape hatch for embedders with unusual threading
// models; prefer Perform, which also pins the goroutine to its OS thread
// and applies cleanup. Requires the bridge to be initialized.
func (b *Bridge) EnsureThreadAttached() (uintptr, error) {
	if b.disposed.Load() {
		return 0, errors.Disposed()
	}
	st := b.gate.state()
	if st == nil {
		return 0, errors.NotReady("thread attachment")
	}

	tid := b.cfg.ThreadID()
	handle, attachedNow, err := b.threads.ensureAttached(st.api, st.domain, tid)
	if err != nil {
		return 0, err
	}
	if attachedNow {
		b.threads.markBridgeOwned(tid)
	}
	return handle, nil
}

// DetachIfExiting opportunistically detaches the calling thread when the
// runtime reports it is terminating. Safe no-op otherwise: it returns false
// without side effects for unattached threads and for threads still inside
// a Perform frame.
func (b *Bridge) DetachIfExiting() bool {
	if b.disposed.Load() {
		return false
	}
	return b.threads.detachIfExiting(b.cfg.ThreadID())
}

// DetachAllThreads force-detaches every tracked thread. Disposal-only:
// unsafe while any Perform is mid-execution, so quiesce all callers first.
func (b *Bridge) DetachAllThreads() {
	b.threads.detachAll()
}

// OnUnload registers fn to run during Dispose, after all bridge-owned
// threads are detached. Hooks run at most once; errors and panics inside
// them are swallowed because they execute during uncontrolled teardown.
func (b *Bridge) OnUnload(fn func()) {
	b.hooks.register(fn)
}

// installUnloadHook registers the bridge's own teardown exactly once across
// the process lifetime of this Bridge. Only the first bind-mode Perform
// ever does the registration.
func (b *Bridge) installUnloadHook() {
	if b.unloadInstalled.CompareAndSwap(false, true) {
		b.hooks.register(b.teardown)
		b.logger.Debug("unload hook installed")
	}
}

// teardown detaches everything and releases the runtime handle. Idempotent;
// shared by the unload hook and Dispose.
func (b *Bridge) teardown() {
	b.teardownOnce.Do(func() {
		b.threads.detachAll()
		b.gate.reset()
		b.logger.Debug("bridge torn down")
	})
}

// Dispose tears the bridge down: unload hooks run at most once, every
// tracked thread is detached, the runtime handle is released and all
// asynchronous error deliveries are drained. Subsequent calls are no-ops;
// subsequent use of the bridge fails with a disposed error.
func (b *Bridge) Dispose() {
	b.disposeOnce.Do(func() {
		b.disposed.Store(true)
		b.hooks.runOnce(b.logger)
		b.teardown()
	})
	b.asyncWG.Wait()
}

// hookRegistry holds teardown callbacks, invoked at most once.
type hookRegistry struct {
	mu    sync.Mutex
	hooks []func()
	ran   bool
}

func (r *hookRegistry) register(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ran {
		return
	}
	r.hooks = append(r.hooks, fn)
}

// runOnce invokes every hook, swallowing panics; it executes during
// uncontrolled teardown and must not itself fail.
func (r *hookRegistry) runOnce(logger *zap.Logger) {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return
	}
	r.ran = true
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	for _, fn := range hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Warn("swallowing unload hook panic", zap.Any("panic", rec))
				}
			}()
			fn()
		}()
	}
}
