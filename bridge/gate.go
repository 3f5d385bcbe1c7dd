package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	monobridge "github.com/hexforge/mono-bridge"
	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/locator"
	"github.com/hexforge/mono-bridge/process"
)

// Handle is the published result of a successful initialization: the
// discovered runtime module and its root application domain. Read-only once
// published.
type Handle struct {
	Module process.Module
	Domain uintptr
}

// runtimeState is the gate's terminal Ready state.
type runtimeState struct {
	module process.Module
	api    monobridge.RuntimeAPI
	domain uintptr
}

func (s *runtimeState) handle() Handle {
	return Handle{Module: s.module, Domain: s.domain}
}

// gate is the process-wide, exactly-once initialization state machine.
// Concurrent first callers share one discovery sequence through a
// singleflight flight; the Ready state is a single-assignment atomic
// pointer. A failed flight publishes nothing, so a later call retries from
// scratch. The gate never attaches threads; that is the thread registry's
// job.
type gate struct {
	names   []string
	src     process.Enumerator
	connect ConnectFunc
	opts    locator.Options
	logger  *zap.Logger

	flight singleflight.Group
	ready  atomic.Pointer[runtimeState]
}

func newGate(cfg Config) *gate {
	return &gate{
		names:   cfg.ModuleNames,
		src:     cfg.Processes,
		connect: cfg.Connect,
		opts: locator.Options{
			Timeout:   cfg.InitializeTimeout,
			WarnAfter: cfg.WarnAfter,
			Interval:  cfg.PollInterval,
			Logger:    cfg.Logger,
		},
		logger: cfg.Logger,
	}
}

// initialize drives the gate to Ready. It reports whether this call
// performed the initialization; callers that join an in-flight attempt or
// find the gate already Ready report false. Every waiter of a failed
// attempt receives the identical error.
func (g *gate) initialize(ctx context.Context) (bool, error) {
	if g.ready.Load() != nil {
		return false, nil
	}

	performed := false
	_, err, _ := g.flight.Do("initialize", func() (any, error) {
		// A previous flight may have completed between the fast path and
		// joining this one.
		if st := g.ready.Load(); st != nil {
			return st, nil
		}
		performed = true

		st, err := g.discover(ctx)
		if err != nil {
			return nil, errors.Initialization(err)
		}
		g.ready.Store(st)
		return st, nil
	})
	if err != nil {
		return false, err
	}
	return performed, nil
}

// discover runs the full sequence: locate the module, bind the native API,
// poll root-domain readiness.
func (g *gate) discover(ctx context.Context) (*runtimeState, error) {
	mod, err := locator.WaitForModule(ctx, g.src, g.names, g.opts)
	if err != nil {
		return nil, err
	}

	api, err := g.connect(ctx, mod)
	if err != nil {
		return nil, err
	}

	domain, err := g.awaitRootDomain(ctx, api, mod)
	if err != nil {
		return nil, err
	}

	g.logger.Info("runtime ready",
		zap.String("module", mod.Name),
		zap.Uintptr("domain", domain))
	return &runtimeState{module: mod, api: api, domain: domain}, nil
}

// awaitRootDomain polls until the runtime has constructed its root domain,
// under the same timeout and warn thresholds as module discovery.
func (g *gate) awaitRootDomain(ctx context.Context, api monobridge.RuntimeAPI, mod process.Module) (uintptr, error) {
	start := time.Now()
	warned := false

	ticker := time.NewTicker(g.opts.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(g.opts.Timeout)
	defer deadline.Stop()

	for {
		domain, err := api.RootDomain()
		if err != nil {
			return 0, errors.Wrap(errors.PhaseInitialize, errors.KindInitialization, err, "poll root domain")
		}
		if domain != 0 {
			return domain, nil
		}

		if !warned && time.Since(start) >= g.opts.WarnAfter {
			warned = true
			g.opts.Logger.Warn("runtime module located but root domain not constructed yet",
				zap.String("module", mod.Name),
				zap.Duration("elapsed", time.Since(start)))
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			return 0, errors.New(errors.PhaseInitialize, errors.KindInitialization).
				Module(mod.Name).
				Detail("root domain not constructed within %s", g.opts.Timeout).
				Build()
		case <-ticker.C:
		}
	}
}

// state returns the Ready state, or nil before readiness.
func (g *gate) state() *runtimeState {
	return g.ready.Load()
}

// reset clears the Ready state during disposal.
func (g *gate) reset() {
	g.ready.Store(nil)
}
