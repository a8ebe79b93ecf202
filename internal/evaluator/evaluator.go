// Package evaluator is the top-level façade: point it at a directory of
// agent manifests and a tournament.Strategy, and it drives the whole run —
// collecting agents, feeding the scheduler, running matches concurrently,
// and returning final scores keyed by agent name.
package evaluator

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/config"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/match"
	"github.com/lox/agentarena/internal/scheduler"
	"github.com/lox/agentarena/internal/supervisor"
	"github.com/lox/agentarena/internal/tournament"
	"github.com/lox/agentarena/pkg/gameapi"
)

// Evaluator owns everything a run needs that outlives any single match: the
// game factory, the process supervisor, and the sized match.Runner.
type Evaluator struct {
	factory     gameapi.GameFactory
	cfg         *config.Configuration
	constraints *constraints.Constraints
	logger      zerolog.Logger
	supervisor  *supervisor.Supervisor
	runner      *match.Runner
	progress    *progress
	spectators  *spectatorFeed
}

// New validates constraints and, when cfg.Verbose, installs the panic hook
// that restores terminal state before chaining to the default panic
// behavior. cons is not copied; the returned Evaluator is its sole owner
// for the run.
func New(factory gameapi.GameFactory, cfg *config.Configuration, cons *constraints.Constraints) (*Evaluator, error) {
	if factory == nil {
		return nil, fmt.Errorf("evaluator: nil game factory")
	}
	if cons == nil {
		return nil, fmt.Errorf("evaluator: nil constraints")
	}
	if cfg == nil {
		cfg = config.New()
	}

	logLevel := zerolog.InfoLevel
	if cfg.Verbose {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(logLevel).
		With().Timestamp().Str("component", "evaluator").Logger()

	e := &Evaluator{
		factory:     factory,
		cfg:         cfg,
		constraints: cons,
		logger:      logger,
		supervisor:  supervisor.New(logger, "agentarena"),
		runner: match.NewRunner(
			cons.CPUsPerAgent(), cons.AgentRAMBytes(),
			cons.TimeBudget(), cons.ActionTimeout(),
			cfg, nil, logger,
		),
		progress: newProgress(),
	}

	if cfg.Verbose {
		installPanicHook(e.progress)
	}

	if cfg.SpectatorAddr != "" {
		feed, err := newSpectatorFeed(cfg.SpectatorAddr, logger)
		if err != nil {
			return nil, fmt.Errorf("evaluator: starting spectator feed: %w", err)
		}
		e.spectators = feed
	}

	return e, nil
}

// Evaluate collects agents from agentDir, hands them to strategy, and runs
// the tournament to completion: collect agents, stopping early on a bad
// directory; strategy.AddAgents plus a scheduler; seed workers with
// scheduler.Advance; each worker goroutine reports its own result straight
// to the scheduler via OnResult and immediately launches whatever that
// unblocks, recursing until the strategy stops producing rounds; once every
// worker has returned, collect and return FinalScores keyed by agent name.
// Cancelling ctx stops new matches from being launched — in-flight matches
// still run to completion and free their resources normally — so the
// caller's signal handler can abort cleanly rather than leaving orphaned
// child processes or a half-returned resource pool.
func (e *Evaluator) Evaluate(ctx context.Context, agentDir string, strategy tournament.Strategy) (map[string]tournament.FinalScore, error) {
	defer e.progress.close()
	if e.spectators != nil {
		defer e.spectators.close()
	}

	agents, err := agent.NewCollector(e.logger).Collect(agentDir)
	if err != nil {
		return nil, fmt.Errorf("evaluator: collecting agents from %s: %w", agentDir, err)
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("evaluator: no agents found in %s", agentDir)
	}

	byID := make(map[agent.ID]*agent.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
		e.logger.Debug().Str("agent", a.Name).Bool("eligible", a.Eligible()).Msg("collected agent")
	}

	strategy.AddAgents(agents)
	sched := scheduler.New(strategy, e.constraints)

	var wg sync.WaitGroup
	var launch func(settings []match.Settings)
	launch = func(settings []match.Settings) {
		for _, s := range settings {
			wg.Add(1)
			go func(s match.Settings) {
				defer wg.Done()
				next := e.runOne(sched, s)
				if ctx.Err() == nil {
					launch(next)
				}
			}(s)
		}
	}
	if ctx.Err() == nil {
		launch(sched.Advance())
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !sched.IsFinished() {
		return nil, fmt.Errorf("evaluator: all matches completed but the strategy has not finished")
	}

	final := namedFinalScores(strategy.FinalScores(), byID)
	if e.spectators != nil {
		e.spectators.broadcast(spectatorEvent{Kind: "tournament_finish", Scores: scoresToStrings(final)})
	}
	return final, nil
}

// runOne runs a single scheduled match to completion, reports it to the
// scheduler, and returns whatever new work that unblocks. A factory error
// is a programming error outside any one match's control (malformed game
// setup, not an agent failure), so it propagates as a panic per the
// documented "fails loudly outside a match" behavior rather than being
// folded into the match's own Result.Errors.
func (e *Evaluator) runOne(sched *scheduler.Scheduler, settings match.Settings) []match.Settings {
	defer recoverAndRestore()
	label := matchLabel(settings)
	if e.cfg.Verbose {
		e.progress.start(label)
	}
	if e.spectators != nil {
		e.spectators.broadcast(spectatorEvent{Kind: "match_start", Match: label})
	}

	result, err := e.runner.Run(e.supervisor, settings, e.factory)
	if err != nil {
		panic(fmt.Sprintf("evaluator: match %s: %v", label, err))
	}

	if e.cfg.Verbose {
		e.progress.finish(label)
	}
	if e.spectators != nil {
		e.spectators.broadcast(spectatorEvent{Kind: "match_finish", Match: label})
	}
	return sched.OnResult(result)
}

func matchLabel(settings match.Settings) string {
	names := make([]string, len(settings.Players))
	for i, a := range settings.Players {
		names[i] = a.Name
	}
	return fmt.Sprintf("%v", names)
}

func namedFinalScores(byAgentID map[agent.ID]tournament.FinalScore, byID map[agent.ID]*agent.Agent) map[string]tournament.FinalScore {
	out := make(map[string]tournament.FinalScore, len(byAgentID))
	for id, score := range byAgentID {
		if a, ok := byID[id]; ok {
			out[a.Name] = score
		}
	}
	return out
}

// SortedNames returns scores' keys in a stable print order, for callers
// (cmd/agentarena) that want deterministic output without re-deriving it.
func SortedNames(scores map[string]tournament.FinalScore) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
