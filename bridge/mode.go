package bridge

import (
	"fmt"

	"github.com/hexforge/mono-bridge/errors"
)

// Mode selects the cleanup applied after a Perform callback settles.
type Mode uint8

const (
	// ModeBind keeps the thread attached; teardown is deferred to the
	// unload hook installed on the first bind-mode Perform. The default.
	ModeBind Mode = iota
	// ModeFree detaches the thread immediately, but only when that Perform
	// invocation performed the attach itself.
	ModeFree
	// ModeLeak never detaches; the caller owns the thread's lifetime.
	ModeLeak
)

func (m Mode) String() string {
	switch m {
	case ModeBind:
		return "bind"
	case ModeFree:
		return "free"
	case ModeLeak:
		return "leak"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) valid() bool {
	return m <= ModeLeak
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "bind":
		return ModeBind, nil
	case "free":
		return ModeFree, nil
	case "leak":
		return ModeLeak, nil
	default:
		return ModeBind, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown perform mode %q (want bind, free or leak)", s))
	}
}
