// Package scheduler bridges a tournament.Strategy with the shared
// constraints.Constraints pool: it turns strategy output into launchable
// match.Settings as resources allow, and folds completed match.Results back
// into the strategy's next round. It never runs a match itself — that is
// the evaluator's job, one goroutine per emitted match.Settings.
package scheduler

import (
	"sync"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/match"
	"github.com/lox/agentarena/internal/tournament"
)

// Scheduler owns the pending-pairing queue, the in-flight count, and the
// shared resource pool for one tournament run. All methods are safe for
// concurrent use: workers call OnResult from their own goroutines while the
// evaluator's main loop may call Advance.
type Scheduler struct {
	mu sync.Mutex

	strategy     tournament.Strategy
	resources    *constraints.Constraints
	cpusPerAgent int
	ramPerAgent  int64

	pending      [][]*agent.Agent
	roundResults []match.Result
	inFlight     int
	finished     bool
}

// New builds a Scheduler. resources is not copied; the Scheduler is its
// sole owner for the lifetime of the run (spec.md's "Constraints pool is
// owned by the scheduler on the main thread; workers never touch it").
func New(strategy tournament.Strategy, resources *constraints.Constraints) *Scheduler {
	return &Scheduler{
		strategy:     strategy,
		resources:    resources,
		cpusPerAgent: resources.CPUsPerAgent(),
		ramPerAgent:  resources.AgentRAMBytes(),
	}
}

// IsFinished reports whether the strategy has produced an empty round.
func (s *Scheduler) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Advance asks the strategy for the next round when nothing is pending or
// in flight, then emits as many pending pairings as current free resources
// allow. Pairings that don't fit stay queued for a later call.
func (s *Scheduler) Advance() []match.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

// OnResult buffers a completed match's result for the strategy, returns its
// resource slice to the pool, decrements the in-flight count, and attempts
// to advance immediately so freed resources are put back to work without
// waiting for a separate caller-driven poll.
func (s *Scheduler) OnResult(result match.Result) []match.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundResults = append(s.roundResults, result)
	s.resources.Add(result.Freed)
	s.inFlight--
	return s.advanceLocked()
}

func (s *Scheduler) advanceLocked() []match.Settings {
	if len(s.pending) == 0 && s.inFlight == 0 && !s.finished {
		next := s.strategy.AdvanceRound(s.roundResults)
		s.roundResults = nil
		if len(next) == 0 {
			s.finished = true
		} else {
			s.pending = next
		}
	}

	var emitted []match.Settings
	remaining := s.pending[:0]
	for _, pairing := range s.pending {
		cpuCount := s.cpusPerAgent * len(pairing)
		ramBytes := s.ramPerAgent * int64(len(pairing))
		slice, ok := s.resources.TryTake(cpuCount, ramBytes)
		if !ok {
			remaining = append(remaining, pairing)
			continue
		}
		emitted = append(emitted, match.Settings{Players: pairing, Slice: slice})
		s.inFlight++
	}
	s.pending = remaining
	return emitted
}
