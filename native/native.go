package native

import (
	"github.com/hexforge/mono-bridge/process"
)

// Library resolves exported symbols of one loaded native module. Supplied
// by the embedder: a cgo dlsym wrapper, a PE export walker, an injected
// agent channel, whatever fits the instrumentation setup.
type Library interface {
	Symbol(name string) (uintptr, error)
}

// Invoker calls an exported native function by resolved address. Arguments
// and the result travel as pointer-width words; the Mono embedding surface
// used here needs nothing wider.
type Invoker interface {
	Call(fn uintptr, args ...uintptr) (uintptr, error)
}

// Opener obtains a Library for a discovered module.
type Opener func(mod process.Module) (Library, error)

// SymbolMap is an in-memory Library, used in tests and by embedders that
// pre-resolve exports out of band.
type SymbolMap map[string]uintptr

func (s SymbolMap) Symbol(name string) (uintptr, error) {
	addr, ok := s[name]
	if !ok {
		return 0, &UnresolvedSymbolError{Name: name}
	}
	return addr, nil
}

// UnresolvedSymbolError reports a symbol absent from a Library.
type UnresolvedSymbolError struct {
	Name string
}

func (e *UnresolvedSymbolError) Error() string {
	return "symbol " + e.Name + " not found"
}
