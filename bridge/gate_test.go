package bridge

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	monobridge "github.com/hexforge/mono-bridge"
	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/process"
)

func TestInitialize_ConcurrentCallersShareOneAttempt(t *testing.T) {
	env := newTestEnv(t, fixedTid(1), func(cfg *Config) {
		// Module loads 50ms after the callers start racing.
		cfg.Processes = newAppearAfter(50*time.Millisecond, testModule)
	})
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	performed := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			performed[i], errs[i] = env.bridge.Initialize(ctx)
		}(i)
	}
	wg.Wait()

	performers := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if performed[i] {
			performers++
		}
	}
	if performers != 1 {
		t.Errorf("performers = %d, want exactly one", performers)
	}
	if got := env.connects.Load(); got != 1 {
		t.Errorf("discovery ran %d times, want 1", got)
	}
}

func TestInitialize_SecondCallIsNoop(t *testing.T) {
	env := newTestEnv(t, fixedTid(1))
	ctx := context.Background()

	performed, err := env.bridge.Initialize(ctx)
	if err != nil || !performed {
		t.Fatalf("first Initialize = (%v, %v), want (true, nil)", performed, err)
	}

	performed, err = env.bridge.Initialize(ctx)
	if err != nil || performed {
		t.Fatalf("second Initialize = (%v, %v), want (false, nil)", performed, err)
	}
	if got := env.connects.Load(); got != 1 {
		t.Errorf("discovery ran %d times, want 1", got)
	}
}

func TestInitialize_RetryAfterFailure(t *testing.T) {
	boom := stderrors.New("connector refused")
	failing := true
	var mu sync.Mutex

	env := newTestEnv(t, fixedTid(1))
	inner := env.bridge.cfg.Connect
	env.bridge.gate.connect = func(ctx context.Context, mod process.Module) (monobridge.RuntimeAPI, error) {
		mu.Lock()
		fail := failing
		mu.Unlock()
		if fail {
			return nil, boom
		}
		return inner(ctx, mod)
	}
	ctx := context.Background()

	// Every concurrent waiter of the failing attempt sees the identical error.
	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bridge.Initialize(ctx)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if !stderrors.Is(err, boom) {
			t.Fatalf("caller %d: got %v, want the connector error", i, err)
		}
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseInitialize, Kind: errors.KindInitialization}) {
			t.Fatalf("caller %d: error not wrapped as initialization failure: %v", i, err)
		}
	}

	// State is not poisoned: a later call retries from scratch and succeeds.
	mu.Lock()
	failing = false
	mu.Unlock()
	performed, err := env.bridge.Initialize(ctx)
	if err != nil || !performed {
		t.Fatalf("retry = (%v, %v), want (true, nil)", performed, err)
	}
}

func TestInitialize_ModuleNotFound(t *testing.T) {
	env := newTestEnv(t, fixedTid(1), func(cfg *Config) {
		cfg.Processes = process.Static{}
		cfg.InitializeTimeout = 20 * time.Millisecond
	})

	_, err := env.bridge.Initialize(context.Background())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDiscover, Kind: errors.KindModuleNotFound}) {
		t.Fatalf("expected module_not_found in the chain, got %v", err)
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseInitialize, Kind: errors.KindInitialization}) {
		t.Fatalf("expected initialization wrapper, got %v", err)
	}
}

func TestInitialize_WaitsForRootDomain(t *testing.T) {
	env := newTestEnv(t, fixedTid(1))
	env.fake.setReady(false)

	done := make(chan error, 1)
	go func() {
		_, err := env.bridge.Initialize(context.Background())
		done <- err
	}()

	// Hold readiness back long enough to prove initialization is gated on it.
	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Initialize returned %v before root domain was ready", err)
	default:
	}

	env.fake.setReady(true)
	if err := <-done; err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	h, err := env.bridge.Handle()
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if h.Domain != 0xD0 || h.Module.Name != testModule.Name {
		t.Errorf("handle = %+v", h)
	}
}

func TestInitialize_RootDomainTimeout(t *testing.T) {
	env := newTestEnv(t, fixedTid(1), func(cfg *Config) {
		cfg.InitializeTimeout = 20 * time.Millisecond
	})
	env.fake.setReady(false)

	_, err := env.bridge.Initialize(context.Background())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseInitialize, Kind: errors.KindInitialization}) {
		t.Fatalf("expected initialization failure, got %v", err)
	}

	// Retryable after the runtime comes up.
	env.fake.setReady(true)
	if _, err := env.bridge.Initialize(context.Background()); err != nil {
		t.Fatalf("retry after readiness: %v", err)
	}
}

func TestHandle_BeforeReady(t *testing.T) {
	env := newTestEnv(t, fixedTid(1))

	_, err := env.bridge.Handle()
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseInitialize, Kind: errors.KindNotReady}) {
		t.Fatalf("expected not_ready, got %v", err)
	}
}

func TestInitialize_ContextCancelled(t *testing.T) {
	env := newTestEnv(t, fixedTid(1), func(cfg *Config) {
		cfg.Processes = newAppearAfter(time.Hour)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := env.bridge.Initialize(ctx)
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
