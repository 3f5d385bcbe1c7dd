package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	monobridge "github.com/hexforge/mono-bridge"
	"github.com/hexforge/mono-bridge/errors"
	"github.com/hexforge/mono-bridge/process"
)

// ConnectFunc binds the runtime's native API once its module has been
// discovered. native.Connector provides the standard implementation.
type ConnectFunc func(ctx context.Context, mod process.Module) (monobridge.RuntimeAPI, error)

// DefaultModuleNames are the candidate runtime module names searched in
// order: the MonoBleedingEdge runtime first, then the legacy one, each with
// its ELF counterparts.
var DefaultModuleNames = []string{
	"mono-2.0-bdwgc.dll",
	"mono.dll",
	"libmonobdwgc-2.0.so",
	"libmonosgen-2.0.so",
	"libmono-2.0.so",
	"libmono.so",
}

// Config configures a Bridge. The zero value is not usable; start from
// DefaultConfig or LoadConfig and set Connect.
type Config struct {
	// ModuleNames are the candidate runtime module names, first match wins.
	ModuleNames []string
	// InitializeTimeout bounds module discovery and the root-domain
	// readiness poll, each.
	InitializeTimeout time.Duration
	// WarnAfter emits one non-fatal slow-search diagnostic per phase.
	WarnAfter time.Duration
	// PollInterval is the fixed polling interval for discovery and
	// readiness.
	PollInterval time.Duration
	// DefaultMode is the process-wide Perform cleanup mode.
	DefaultMode Mode

	// Connect binds the native API to the discovered module. Required.
	Connect ConnectFunc
	// Processes enumerates the target's loaded modules. Defaults to the
	// current process via procfs.
	Processes process.Enumerator
	// ThreadID returns the calling OS thread's id. Defaults to the
	// platform syscall; required on platforms without one.
	ThreadID func() int
	// AsyncErrors receives every callback error a second time, decoupled
	// from the Perform call, so failures are never silently lost when the
	// caller discards the result. Defaults to logging through Logger.
	AsyncErrors func(error)
	Logger      *zap.Logger
}

const (
	DefaultInitializeTimeout = 10 * time.Second
	DefaultWarnAfter         = 2 * time.Second
	DefaultPollInterval      = 25 * time.Millisecond
)

// DefaultConfig returns the standard configuration. Connect must still be
// set by the caller.
func DefaultConfig() Config {
	return Config{
		ModuleNames:       append([]string(nil), DefaultModuleNames...),
		InitializeTimeout: DefaultInitializeTimeout,
		WarnAfter:         DefaultWarnAfter,
		PollInterval:      DefaultPollInterval,
		DefaultMode:       ModeBind,
	}
}

// fileConfig is the TOML key mapping for LoadConfig.
type fileConfig struct {
	ModuleNames         []string `toml:"module_names"`
	InitializeTimeoutMs int64    `toml:"initialize_timeout_ms"`
	WarnAfterMs         int64    `toml:"warn_after_ms"`
	PollIntervalMs      int64    `toml:"poll_interval_ms"`
	PerformMode         string   `toml:"perform_mode"`
}

// LoadConfig reads a TOML file and overlays the recognized keys over
// DefaultConfig. Keys absent from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, fmt.Sprintf("load bridge config %s", path))
	}

	if meta.IsDefined("module_names") {
		if len(raw.ModuleNames) == 0 {
			return Config{}, errors.InvalidInput(errors.PhaseConfig, "module_names must not be empty")
		}
		cfg.ModuleNames = raw.ModuleNames
	}
	if meta.IsDefined("initialize_timeout_ms") {
		cfg.InitializeTimeout = time.Duration(raw.InitializeTimeoutMs) * time.Millisecond
	}
	if meta.IsDefined("warn_after_ms") {
		cfg.WarnAfter = time.Duration(raw.WarnAfterMs) * time.Millisecond
	}
	if meta.IsDefined("poll_interval_ms") {
		cfg.PollInterval = time.Duration(raw.PollIntervalMs) * time.Millisecond
	}
	if meta.IsDefined("perform_mode") {
		mode, err := ParseMode(raw.PerformMode)
		if err != nil {
			return Config{}, err
		}
		cfg.DefaultMode = mode
	}

	return cfg, nil
}
