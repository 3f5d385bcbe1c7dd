package locator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/process"
)

// Options controls discovery pacing. Zero values select the defaults.
type Options struct {
	// Timeout bounds the whole search; expiry yields KindModuleNotFound.
	Timeout time.Duration
	// WarnAfter emits one non-fatal diagnostic if the module has not been
	// found yet. The search continues.
	WarnAfter time.Duration
	// Interval is the fixed polling interval.
	Interval time.Duration
	Logger   *zap.Logger
}

const (
	DefaultTimeout   = 10 * time.Second
	DefaultWarnAfter = 2 * time.Second
	DefaultInterval  = 25 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.WarnAfter <= 0 {
		o.WarnAfter = DefaultWarnAfter
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Find performs a single enumeration pass. Candidate order wins: the first
// name with any loaded match is returned, regardless of module table order.
func Find(src process.Enumerator, names []string) (process.Module, bool, error) {
	mods, err := src.Modules()
	if err != nil {
		return process.Module{}, false, err
	}
	for _, name := range names {
		for _, m := range mods {
			if equalModuleName(m.Name, name) {
				return m, true, nil
			}
		}
	}
	return process.Module{}, false, nil
}

// WaitForModule polls src until one of the candidate names is loaded in the
// target process. It is pure polling with no side effects and is safe to
// call concurrently, though initialization serializes it behind the gate in
// practice.
func WaitForModule(ctx context.Context, src process.Enumerator, names []string, opts Options) (process.Module, error) {
	if len(names) == 0 {
		return process.Module{}, errors.InvalidInput(errors.PhaseDiscover, "no module name candidates")
	}
	opts = opts.withDefaults()

	start := time.Now()
	warned := false

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	for {
		m, found, err := Find(src, names)
		if err != nil {
			return process.Module{}, errors.Wrap(errors.PhaseDiscover, errors.KindInitialization, err, "enumerate modules")
		}
		if found {
			opts.Logger.Debug("runtime module located",
				zap.String("module", m.Name),
				zap.Uintptr("base", m.Base),
				zap.Uint64("size", m.Size),
				zap.Duration("elapsed", time.Since(start)))
			return m, nil
		}

		if !warned && time.Since(start) >= opts.WarnAfter {
			warned = true
			opts.Logger.Warn("runtime module not found yet, still searching",
				zap.Strings("candidates", names),
				zap.Duration("elapsed", time.Since(start)))
		}

		select {
		case <-ctx.Done():
			return process.Module{}, ctx.Err()
		case <-deadline.C:
			return process.Module{}, errors.ModuleNotFound(names, opts.Timeout)
		case <-ticker.C:
		}
	}
}

// equalModuleName compares module names case-insensitively without
// allocating; PE module tables report names in inconsistent case.
func equalModuleName(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
