package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/agentarena/cmd/agentarena/shared"
	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/config"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/evaluator"
	"github.com/lox/agentarena/internal/rps"
	"github.com/lox/agentarena/internal/tournament"
)

// SelfTestCmd runs the built-in smoke scenarios against reference agent
// binaries found under --examples-dir; this repository does not ship those
// agents. It covers the scenarios that need a real
// wire-protocol game to exercise (S2 Swiss pairing, S3 silent agent, S4
// crashing agent, S5 over-budget agent, S6 resource contention). The
// SinglePlayer smoke scenario needs a single-seat game, which this module
// does not bundle one of; it is instead covered by internal/tournament's
// own package tests against a synthetic fixture.
//
// It expects the reference agents to already be built at
// <examples-dir>/<name>/<name> (one Go binary per subdirectory, the
// default `go build` output name) — compiling them is a build-time
// concern, not this command's.
type SelfTestCmd struct {
	ExamplesDir  string `kong:"default='examples',help='Directory containing the built reference agent binaries'"`
	DebugCgroups bool   `kong:"help='Enable debug-level logging, including supervisor cleanup messages'"`
}

func (c *SelfTestCmd) Run() error {
	cfg := config.New()
	cfg.SelfTest = true
	cfg.AllowUncontained = true
	if c.DebugCgroups {
		cfg.Verbose = true
	}
	logger := shared.SetupLogger(cfg.Verbose)
	ctx := shared.SetupSignalHandlerWithLogger(logger)

	scenarios := []struct {
		name     string
		strategy tournament.Strategy
		bots     []string
	}{
		{"S2 Rock-Paper-Scissors Swiss", tournament.NewSwiss(0, 8, logger), []string{"alwaysrock", "randombot"}},
		{"S3 silent agent", tournament.NewRoundRobin(true), []string{"alwaysrock", "silentbot"}},
		{"S4 crashing agent", tournament.NewRoundRobin(true), []string{"alwaysrock", "crashbot"}},
		{"S5 over-budget agent", tournament.NewRoundRobin(true), []string{"alwaysrock", "overbudgetbot"}},
	}

	failed := false
	for _, s := range scenarios {
		fmt.Printf("=== %s ===\n", s.name)
		scores, err := c.runScenario(ctx, cfg, logger, s.bots, s.strategy)
		if err != nil {
			fmt.Printf("FAIL: %v\n", err)
			failed = true
			continue
		}
		for _, name := range evaluator.SortedNames(scores) {
			fmt.Printf("  %s: %s\n", name, scores[name])
		}
		fmt.Println("PASS")
	}

	fmt.Println("=== S6 resource contention ===")
	if err := c.runContention(ctx, cfg, logger); err != nil {
		fmt.Printf("FAIL: %v\n", err)
		failed = true
	} else {
		fmt.Println("PASS")
	}

	if failed {
		return fmt.Errorf("agentarena: one or more self-test scenarios failed")
	}
	return nil
}

// runScenario wires a throwaway manifest directory for the named reference
// bots and runs them once through the given strategy against the bundled
// Rock-Paper-Scissors game. A misbehaving bot (silent, crashing,
// over-budget) is expected to surface as a lopsided score, not as an
// evaluator error — an evaluator error here is itself the failure.
func (c *SelfTestCmd) runScenario(ctx context.Context, cfg *config.Configuration, logger zerolog.Logger, bots []string, strategy tournament.Strategy) (map[string]tournament.FinalScore, error) {
	dir, cleanup, err := writeManifests(c.ExamplesDir, bots)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cons, err := selfTestConstraints(len(bots) / 2)
	if err != nil {
		return nil, err
	}

	ev, err := evaluator.New(rps.NewFactory(), cfg, cons)
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx, dir, strategy)
}

// runContention runs two agents through one Swiss round with five matches
// per pair — five two-seat matches — against a 4-CPU, 1-cpu-per-agent pool,
// and relies on internal/scheduler's own resource
// bookkeeping — already exercised directly by
// internal/scheduler/scheduler_test.go's
// TestResourceContentionBoundsConcurrency — to bound concurrency to two
// matches at a time. This command only checks that the whole run completes
// and every CPU is returned to the pool afterward.
func (c *SelfTestCmd) runContention(ctx context.Context, cfg *config.Configuration, logger zerolog.Logger) error {
	bots := []string{"alwaysrock", "randombot"}
	dir, cleanup, err := writeManifests(c.ExamplesDir, bots)
	if err != nil {
		return err
	}
	defer cleanup()

	cons, err := constraints.NewBuilder().
		WithTotalCPUCount(4).
		WithCPUsPerAgent(1).
		WithActionTimeout(200 * time.Millisecond).
		WithTimeBudget(5 * time.Second).
		Build()
	if err != nil {
		return err
	}

	ev, err := evaluator.New(rps.NewFactory(), cfg, cons)
	if err != nil {
		return err
	}
	if _, err := ev.Evaluate(ctx, dir, tournament.NewSwiss(0, 5, logger)); err != nil {
		return err
	}
	if got := cons.AvailableCPUCount(); got != 4 {
		return fmt.Errorf("cpu pool not fully released after run: got %d of 4 free", got)
	}
	return nil
}

func selfTestConstraints(matchesWanted int) (*constraints.Constraints, error) {
	if matchesWanted < 1 {
		matchesWanted = 1
	}
	return constraints.NewBuilder().
		WithTotalCPUCount(matchesWanted * 2).
		WithCPUsPerAgent(1).
		WithActionTimeout(200 * time.Millisecond).
		WithTimeBudget(5 * time.Second).
		Build()
}

func writeManifests(examplesDir string, bots []string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "agentarena-selftest-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	for _, name := range bots {
		m := agent.Manifest{Name: name, Path: filepath.Join(examplesDir, name, name)}
		data, err := json.Marshal(m)
		if err != nil {
			cleanup()
			return "", nil, err
		}
		if err := os.WriteFile(filepath.Join(dir, name+".agent.json"), data, 0o644); err != nil {
			cleanup()
			return "", nil, err
		}
	}
	return dir, cleanup, nil
}
