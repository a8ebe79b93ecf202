// Package config provides configuration parsing for the agentarena evaluator.
// It defines the standard environment variables used by the CLI and the
// evaluator façade.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names recognized by Configuration.FromEnv.
const (
	EnvVerbose          = "EVAL_VERBOSE"
	EnvLogDir           = "EVAL_LOG_DIR"
	EnvAllowUncontained = "EVAL_ALLOW_UNCONTAINED"
	EnvCompileAgents    = "EVAL_COMPILE_AGENTS"
	EnvSelfTest         = "EVAL_SELF_TEST"
	EnvTestAllConfigs   = "EVAL_TEST_ALL_CONFIGS"
	EnvDebugAgentStderr = "EVAL_DEBUG_AGENT_STDERR"
	EnvSpectatorAddr    = "EVAL_SPECTATOR_ADDR"
)

// Configuration holds evaluator-wide options that are not resource limits
// (those live in internal/constraints). Defaults match the documented
// external interface: verbose logging and agent compilation on by default,
// everything else off.
type Configuration struct {
	// Verbose enables the human-facing progress line rendering in the
	// evaluator façade.
	Verbose bool

	// LogDir is read from EVAL_LOG_DIR and carried here. The evaluator does
	// not create or clean this directory, and match runs write no log files
	// into it: agent stdout is discarded and stderr is either discarded or
	// inherited (DebugAgentStderr).
	LogDir string

	// AllowUncontained permits the process supervisor to launch agents
	// without a resource container when cgroup v2 is unavailable (or not
	// on Linux). Without this flag, missing containment is a hard error.
	AllowUncontained bool

	// CompileAgents is recognized for interface compatibility (compilation
	// itself is an external collaborator, out of scope for this module).
	// Nothing reads it: the collector only ever accepts pre-built
	// executables, whatever its value.
	CompileAgents bool

	// SelfTest is set by the self-test command while it runs its smoke
	// scenarios. The evaluator does not read it.
	SelfTest bool

	// TestAllConfigs is parsed from EVAL_TEST_ALL_CONFIGS and carried here;
	// neither the evaluator nor the self-test command reads it.
	TestAllConfigs bool

	// DebugAgentStderr inherits (rather than discards) agent stderr,
	// useful when diagnosing a misbehaving agent locally.
	DebugAgentStderr bool

	// SpectatorAddr, when non-empty, is the listen address (host:port) for
	// a read-only spectator feed: a "/ws" endpoint streaming JSON match
	// start/finish/final-score events to any connected dashboard. Empty
	// disables the feed entirely.
	SpectatorAddr string
}

// New returns the documented defaults.
func New() *Configuration {
	return &Configuration{
		Verbose:       true,
		CompileAgents: true,
	}
}

// FromEnv parses configuration from environment variables, falling back to
// New's defaults for anything unset. With no recognized variable set, it is
// equal to New().
func FromEnv() (*Configuration, error) {
	cfg := New()

	if v, ok := os.LookupEnv(EnvVerbose); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvVerbose, v, err)
		}
		cfg.Verbose = b
	}

	cfg.LogDir = os.Getenv(EnvLogDir)

	if v, ok := os.LookupEnv(EnvAllowUncontained); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvAllowUncontained, v, err)
		}
		cfg.AllowUncontained = b
	}

	if v, ok := os.LookupEnv(EnvCompileAgents); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvCompileAgents, v, err)
		}
		cfg.CompileAgents = b
	}

	if v, ok := os.LookupEnv(EnvSelfTest); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvSelfTest, v, err)
		}
		cfg.SelfTest = b
	}

	if v, ok := os.LookupEnv(EnvTestAllConfigs); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvTestAllConfigs, v, err)
		}
		cfg.TestAllConfigs = b
	}

	if v, ok := os.LookupEnv(EnvDebugAgentStderr); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvDebugAgentStderr, v, err)
		}
		cfg.DebugAgentStderr = b
	}

	cfg.SpectatorAddr = os.Getenv(EnvSpectatorAddr)

	return cfg, nil
}
