package bridge

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	monobridge "github.com/hexforge/mono-bridge"
	"github.com/hexforge/mono-bridge/errors"
)

// threadRecord tracks one OS thread's attachment. At most one record exists
// per thread id. bridgeOwned is set only by the call that actually performed
// the native attach; call depth counts reentrant Perform frames so only the
// outermost frame's exit can trigger a real detach.
type threadRecord struct {
	api         monobridge.RuntimeAPI
	tid         int
	handle      uintptr
	bridgeOwned bool
	depth       int
}

// threadRegistry is the per-OS-thread attachment registry. All mutation
// happens under its mutex; no other component writes thread records.
type threadRegistry struct {
	mu      sync.Mutex
	records map[int]*threadRecord
	logger  *zap.Logger
}

func newThreadRegistry(logger *zap.Logger) *threadRegistry {
	return &threadRegistry{
		records: make(map[int]*threadRecord),
		logger:  logger,
	}
}

// isAttached reports whether tid has a live record.
func (r *threadRegistry) isAttached(tid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[tid]
	return ok
}

// ensureAttached returns tid's attachment handle, attaching the thread if
// needed. attachedNow reports whether this call performed the native
// attach; threads found pre-attached by someone else are recorded but never
// attached again, and stay foreign-owned. New records default to
// bridgeOwned=false; the caller that saw attachedNow=true marks ownership
// explicitly.
func (r *threadRegistry) ensureAttached(api monobridge.RuntimeAPI, domain uintptr, tid int) (handle uintptr, attachedNow bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[tid]; ok {
		return rec.handle, false, nil
	}

	// The thread may be attached already by the host application or an
	// earlier non-bridge embedder.
	current, err := api.CurrentThread()
	if err != nil {
		return 0, false, errors.AttachFailed(tid, err)
	}
	if current != 0 {
		r.records[tid] = &threadRecord{api: api, tid: tid, handle: current}
		r.logger.Debug("thread pre-attached externally", zap.Int("tid", tid))
		return current, false, nil
	}

	attached, err := api.AttachThread(domain)
	if err != nil {
		return 0, false, errors.AttachFailed(tid, err)
	}
	r.records[tid] = &threadRecord{api: api, tid: tid, handle: attached}
	r.logger.Debug("thread attached", zap.Int("tid", tid))
	return attached, true, nil
}

// markBridgeOwned flags tid's attachment as owned by the bridge. Called
// only immediately after an ensureAttached that reported attachedNow.
func (r *threadRegistry) markBridgeOwned(tid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[tid]; ok {
		rec.bridgeOwned = true
	}
}

// detachBridgeOwned detaches tid only when the bridge owns the attachment
// and no Perform frame is still running on it; otherwise it is a no-op.
// Detach failures are logged and swallowed so a best-effort cleanup never
// masks the callback's own outcome.
func (r *threadRegistry) detachBridgeOwned(tid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[tid]
	if !ok || !rec.bridgeOwned || rec.depth > 0 {
		return
	}
	if err := rec.api.DetachThread(rec.handle); err != nil {
		r.logger.Warn("swallowing detach failure", zap.Error(errors.DetachFailed(tid, err)))
		return
	}
	delete(r.records, tid)
	r.logger.Debug("thread detached", zap.Int("tid", tid))
}

// detachIfExiting opportunistically detaches tid when the runtime reports
// the thread is terminating. It returns false without any native call when
// the thread is not attached or still has Perform frames running.
func (r *threadRegistry) detachIfExiting(tid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[tid]
	if !ok || rec.depth > 0 {
		return false
	}
	detached, err := rec.api.DetachIfExiting()
	if err != nil {
		r.logger.Warn("swallowing detach failure", zap.Error(errors.DetachFailed(tid, err)))
		return false
	}
	if detached {
		delete(r.records, tid)
	}
	return detached
}

// detachAll force-detaches every tracked thread, ignoring call depth and
// ownership. Disposal only: callers must have quiesced all Perform
// activity first.
func (r *threadRegistry) detachAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	for tid, rec := range r.records {
		if err := rec.api.DetachThread(rec.handle); err != nil {
			errs = multierr.Append(errs, errors.DetachFailed(tid, err))
		}
		delete(r.records, tid)
	}
	if errs != nil {
		r.logger.Warn("swallowing detach failures during disposal", zap.Error(errs))
	}
}

// run executes fn with tid's call depth held. Reentrant frames on the same
// thread nest by incrementing the counter; the attachment stays valid for
// the whole stack and only the 1→0 transition can make a later detach real.
func (r *threadRegistry) run(tid int, fn func() error) error {
	r.mu.Lock()
	rec, ok := r.records[tid]
	if !ok {
		r.mu.Unlock()
		return errors.New(errors.PhasePerform, errors.KindAttachment).
			Thread(tid).
			Detail("thread has no attachment record").
			Build()
	}
	rec.depth++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		rec.depth--
		r.mu.Unlock()
	}()
	return fn()
}

// size reports the number of tracked threads.
func (r *threadRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
