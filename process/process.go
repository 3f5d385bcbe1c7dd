package process

// Module describes one native module loaded in the target process.
// Base and Size cover the full mapped extent of the backing file.
type Module struct {
	Name string
	Path string
	Base uintptr
	Size uint64
}

// Enumerator lists the modules currently loaded in a target process.
// Implementations must be safe for concurrent use; discovery polls them
// repeatedly.
type Enumerator interface {
	Modules() ([]Module, error)
}

// Static is a fixed module list, mainly useful for tests and for embedders
// that obtain the module table through their own instrumentation channel.
type Static []Module

func (s Static) Modules() ([]Module, error) {
	out := make([]Module, len(s))
	copy(out, s)
	return out, nil
}
