package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/agentarena/cmd/agentarena/shared"
	"github.com/lox/agentarena/internal/config"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/evaluator"
	"github.com/lox/agentarena/internal/rps"
	"github.com/lox/agentarena/internal/tournament"
)

// EvaluateCmd is the façade operation of spec.md §4.6: collect agents from
// a directory of manifests, run them through one of the tournament
// strategies, and print final scores. The bundled Rock-Paper-Scissors game
// (internal/rps) is the only gameapi.Game this binary links against — a
// real deployment would link its own game package in alongside this one.
type EvaluateCmd struct {
	AgentsDir      string `kong:"required,help='Directory of *.agent.json manifests'"`
	Strategy       string `kong:"default='roundrobin',enum='roundrobin,roundrobin-asymmetric,swiss,singleplayer',help='Tournament strategy'"`
	MaxRounds      int    `kong:"help='Swiss: max rounds (0 = auto, ceil(log2(n)))'"`
	MatchesPerPair int    `kong:"default='1',help='Swiss: games played per pairing before it is scored'"`
	GamesPerAgent  int    `kong:"default='1',help='SinglePlayer: games played per agent'"`
	Verbose        bool   `kong:"help='Enable verbose progress output'"`
	SpectatorAddr  string `kong:"help='Serve a read-only /ws spectator feed on this address (e.g. :9191)'"`
}

func (c *EvaluateCmd) Run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("agentarena: parsing config: %w", err)
	}
	if c.Verbose {
		cfg.Verbose = true
	}
	if c.SpectatorAddr != "" {
		cfg.SpectatorAddr = c.SpectatorAddr
	}
	logger := shared.SetupLogger(cfg.Verbose)

	builder, err := constraints.FromEnv()
	if err != nil {
		return fmt.Errorf("agentarena: parsing resource constraints: %w", err)
	}
	cons, err := builder.Build()
	if err != nil {
		return fmt.Errorf("agentarena: building resource constraints: %w", err)
	}

	strategy, err := c.buildStrategy(logger)
	if err != nil {
		return err
	}

	ev, err := evaluator.New(rps.NewFactory(), cfg, cons)
	if err != nil {
		return fmt.Errorf("agentarena: %w", err)
	}

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	scores, err := ev.Evaluate(ctx, c.AgentsDir, strategy)
	if err != nil {
		return fmt.Errorf("agentarena: %w", err)
	}

	for _, name := range evaluator.SortedNames(scores) {
		fmt.Printf("%s: %s\n", name, scores[name])
	}
	return nil
}

func (c *EvaluateCmd) buildStrategy(logger zerolog.Logger) (tournament.Strategy, error) {
	switch c.Strategy {
	case "roundrobin":
		return tournament.NewRoundRobin(true), nil
	case "roundrobin-asymmetric":
		return tournament.NewRoundRobin(false), nil
	case "swiss":
		return tournament.NewSwiss(c.MaxRounds, c.MatchesPerPair, logger), nil
	case "singleplayer":
		return tournament.NewSinglePlayer(c.GamesPerAgent, logger), nil
	default:
		return nil, fmt.Errorf("agentarena: unknown strategy %q", c.Strategy)
	}
}
