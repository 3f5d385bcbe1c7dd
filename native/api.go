package native

import (
	"context"
	"fmt"

	monobridge "github.com/hexforge/mono-bridge"
	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/process"
)

// Mono embedding exports bound by the API. The required set exists in every
// runtime variant; the optional ones are missing from legacy mono.dll.
const (
	symGetRootDomain     = "mono_get_root_domain"
	symThreadAttach      = "mono_thread_attach"
	symThreadDetach      = "mono_thread_detach"
	symThreadCurrent     = "mono_thread_current"
	symDetachIfExiting   = "mono_thread_detach_if_exiting"
	symDomainGet         = "mono_domain_get"
	symRuntimeIsShutdown = "mono_runtime_is_shutting_down"
)

// API implements monobridge.RuntimeAPI over a resolved Mono module.
type API struct {
	module process.Module
	inv    Invoker

	getRootDomain uintptr
	threadAttach  uintptr
	threadDetach  uintptr
	threadCurrent uintptr

	// optional, 0 when the runtime build lacks the export
	detachIfExiting uintptr
	domainGet       uintptr
	isShuttingDown  uintptr
}

var _ monobridge.RuntimeAPI = (*API)(nil)

// NewAPI resolves the Mono embedding exports from lib. Missing required
// exports fail with a symbol_missing error naming the export; optional ones
// degrade to conservative fallbacks.
func NewAPI(mod process.Module, lib Library, inv Invoker) (*API, error) {
	a := &API{module: mod, inv: inv}

	required := []struct {
		name string
		dst  *uintptr
	}{
		{symGetRootDomain, &a.getRootDomain},
		{symThreadAttach, &a.threadAttach},
		{symThreadDetach, &a.threadDetach},
		{symThreadCurrent, &a.threadCurrent},
	}
	for _, sym := range required {
		addr, err := lib.Symbol(sym.name)
		if err != nil {
			return nil, errors.SymbolMissing(mod.Name, sym.name, err)
		}
		*sym.dst = addr
	}

	optional := []struct {
		name string
		dst  *uintptr
	}{
		{symDetachIfExiting, &a.detachIfExiting},
		{symDomainGet, &a.domainGet},
		{symRuntimeIsShutdown, &a.isShuttingDown},
	}
	for _, sym := range optional {
		if addr, err := lib.Symbol(sym.name); err == nil {
			*sym.dst = addr
		}
	}

	return a, nil
}

// Module returns the module the API was resolved from.
func (a *API) Module() process.Module {
	return a.module
}

func (a *API) RootDomain() (uintptr, error) {
	return a.inv.Call(a.getRootDomain)
}

func (a *API) AttachThread(domain uintptr) (uintptr, error) {
	thread, err := a.inv.Call(a.threadAttach, domain)
	if err != nil {
		return 0, err
	}
	if thread == 0 {
		return 0, fmt.Errorf("%s returned nil thread", symThreadAttach)
	}
	return thread, nil
}

func (a *API) DetachThread(thread uintptr) error {
	_, err := a.inv.Call(a.threadDetach, thread)
	return err
}

func (a *API) CurrentThread() (uintptr, error) {
	return a.inv.Call(a.threadCurrent)
}

// DetachIfExiting defers to mono_thread_detach_if_exiting where the runtime
// exports it. Legacy runtimes do not, and without the export there is no way
// to tell whether the thread is terminating, so the call degrades to a
// conservative no-op.
func (a *API) DetachIfExiting() (bool, error) {
	if a.detachIfExiting == 0 {
		return false, nil
	}
	ret, err := a.inv.Call(a.detachIfExiting)
	if err != nil {
		return false, err
	}
	return ret != 0, nil
}

func (a *API) ShuttingDown() bool {
	if a.isShuttingDown == 0 {
		return false
	}
	ret, err := a.inv.Call(a.isShuttingDown)
	return err == nil && ret != 0
}

// CurrentDomain returns the domain of the calling thread when the runtime
// exports mono_domain_get, falling back to the root domain.
func (a *API) CurrentDomain() (uintptr, error) {
	if a.domainGet != 0 {
		if domain, err := a.inv.Call(a.domainGet); err == nil && domain != 0 {
			return domain, nil
		}
	}
	return a.inv.Call(a.getRootDomain)
}

// Connector adapts the Library/Invoker primitives into the bridge's Connect
// seam.
type Connector struct {
	open Opener
	inv  Invoker
}

func NewConnector(open Opener, inv Invoker) *Connector {
	return &Connector{open: open, inv: inv}
}

// Connect opens the discovered module and binds the embedding API.
func (c *Connector) Connect(ctx context.Context, mod process.Module) (monobridge.RuntimeAPI, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lib, err := c.open(mod)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInitialize, errors.KindInitialization, err, "open runtime module")
	}
	return NewAPI(mod, lib, c.inv)
}
