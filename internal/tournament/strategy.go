// Package tournament implements the pluggable pairing/scoring strategies
// that decide, round by round, which agents play which matches and how
// their results turn into a final ranking. The match runner is agnostic to
// all of this; a Strategy only ever sees agents and match.Result batches.
package tournament

import (
	"fmt"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/match"
)

// FinalScore is the totally-ordered result type a Strategy produces per
// agent once the tournament is finished.
type FinalScore interface {
	fmt.Stringer
	Less(other FinalScore) bool
}

// Strategy is the polymorphic tournament-format interface: RoundRobin,
// Swiss, and SinglePlayer below, plus any user-supplied variant.
type Strategy interface {
	// AddAgents is the one-shot initialization call after construction.
	AddAgents(agents []*agent.Agent)

	// AdvanceRound consumes the batch of results accumulated since the
	// previous call (empty on the very first call) and returns the
	// pairings to run next. An empty return means the tournament is
	// finished.
	AdvanceRound(results []match.Result) [][]*agent.Agent

	// PlayersPerMatch is the invariant length of every pairing this
	// strategy returns from AdvanceRound.
	PlayersPerMatch() int

	// FinalScores returns the ranking once the tournament has finished.
	// Strategies do not enforce the "only call once finished" rule
	// themselves; callers should wait for an empty AdvanceRound first.
	FinalScores() map[agent.ID]FinalScore
}

// classifyResult reports, for each seat in res.Scores, whether it was a
// draw across all seats (every score tied for best) and, when not a draw,
// which seats hold the best score (the winners; all others lost).
func classifyResult(res match.Result) (isDraw bool, isWinner []bool) {
	isWinner = make([]bool, len(res.Scores))
	if len(res.Scores) == 0 {
		return false, isWinner
	}
	best := res.Scores[0].Score
	for _, s := range res.Scores[1:] {
		if best.Less(s.Score) {
			best = s.Score
		}
	}
	winners := 0
	for i, s := range res.Scores {
		if !s.Score.Less(best) {
			isWinner[i] = true
			winners++
		}
	}
	return winners == len(res.Scores), isWinner
}
