package tournament

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/match"
	"github.com/lox/agentarena/pkg/gameapi"
)

type swissCard struct {
	score  TwoPlayerScore
	played map[agent.ID]struct{}
}

// SwissTournament pairs agents by running score each round, avoiding
// rematches greedily, and issues a tracked bye to whoever cannot be paired.
type SwissTournament struct {
	agents         []*agent.Agent
	round          int
	maxRounds      int
	matchesPerPair int

	cards      map[agent.ID]*swissCard
	byeHistory map[agent.ID]struct{}
	logger     zerolog.Logger
}

// NewSwiss constructs a SwissTournament. maxRounds=0 auto-derives
// ceil(log2(n)) once AddAgents is called. matchesPerPair below 1 is
// clamped to 1 (every pair must play at least one game).
func NewSwiss(maxRounds, matchesPerPair int, logger zerolog.Logger) *SwissTournament {
	if matchesPerPair < 1 {
		matchesPerPair = 1
	}
	return &SwissTournament{
		maxRounds:      maxRounds,
		matchesPerPair: matchesPerPair,
		cards:          map[agent.ID]*swissCard{},
		byeHistory:     map[agent.ID]struct{}{},
		logger:         logger.With().Str("component", "swiss_tournament").Logger(),
	}
}

func (t *SwissTournament) AddAgents(agents []*agent.Agent) {
	t.agents = agents
	if t.maxRounds == 0 && len(agents) > 0 {
		t.maxRounds = int(math.Ceil(math.Log2(float64(len(agents)))))
		t.logger.Info().Int("max_rounds", t.maxRounds).Msg("auto-derived swiss round count")
	}
	for _, a := range agents {
		t.cards[a.ID] = &swissCard{played: map[agent.ID]struct{}{}}
	}
}

func (t *SwissTournament) PlayersPerMatch() int { return 2 }

func (t *SwissTournament) AdvanceRound(results []match.Result) [][]*agent.Agent {
	t.updateScores(results)
	t.updateTieBreakers()

	if t.round >= t.maxRounds {
		return nil
	}
	pairs := t.pairNextRound()
	t.round++

	// Each pair plays matchesPerPair games, alternating which agent takes
	// seat 0; updateScores folds them back into one outcome per pair.
	var pending [][]*agent.Agent
	for _, p := range pairs {
		for i := 0; i < t.matchesPerPair; i++ {
			if i%2 == 0 {
				pending = append(pending, []*agent.Agent{p[0], p[1]})
			} else {
				pending = append(pending, []*agent.Agent{p[1], p[0]})
			}
		}
	}
	return pending
}

type pairKey struct{ lo, hi agent.ID }

func newPairKey(a, b agent.ID) pairKey {
	if a < b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// updateScores aggregates the matchesPerPair games belonging to each pair
// (sides alternate across games, per AdvanceRound's documented contract) and
// credits exactly one win/draw/loss to each of the pair's Swiss cards: the
// pair's winner is whichever agent won a strict majority of the individual
// games (a tie in game-win counts is a draw). Per-game score values are not
// assumed to be summable (gameapi.Score only orders), so the aggregate is
// over game outcomes, not over raw scores.
func (t *SwissTournament) updateScores(results []match.Result) {
	type pairAgg struct {
		a, b         *agent.Agent
		aWins, bWins int
	}
	aggs := make(map[pairKey]*pairAgg)

	for _, res := range results {
		if len(res.Scores) != 2 {
			continue
		}
		sa, sb := res.Scores[0], res.Scores[1]
		key := newPairKey(sa.Agent.ID, sb.Agent.ID)
		agg, ok := aggs[key]
		if !ok {
			a, b := sa.Agent, sb.Agent
			if b.ID < a.ID {
				a, b = b, a
			}
			agg = &pairAgg{a: a, b: b}
			aggs[key] = agg
		}

		var scoreOfA, scoreOfB gameapi.Score
		if sa.Agent.ID == agg.a.ID {
			scoreOfA, scoreOfB = sa.Score, sb.Score
		} else {
			scoreOfA, scoreOfB = sb.Score, sa.Score
		}
		switch {
		case scoreOfA.Less(scoreOfB):
			agg.bWins++
		case scoreOfB.Less(scoreOfA):
			agg.aWins++
		}
	}

	for _, agg := range aggs {
		cardA, cardB := t.cards[agg.a.ID], t.cards[agg.b.ID]
		switch {
		case agg.aWins > agg.bWins:
			cardA.score.Wins++
			cardB.score.Losses++
		case agg.bWins > agg.aWins:
			cardB.score.Wins++
			cardA.score.Losses++
		default:
			cardA.score.Draws++
			cardB.score.Draws++
		}
		cardA.played[agg.b.ID] = struct{}{}
		cardB.played[agg.a.ID] = struct{}{}
	}
}

// updateTieBreakers recomputes the Median/Buchholz/Solkoff value: sum of
// each opponent's Swiss points, minus the min and max among them (0 if at
// most one opponent has been played).
func (t *SwissTournament) updateTieBreakers() {
	for _, a := range t.agents {
		card := t.cards[a.ID]
		var advPoints []uint32
		for oppID := range card.played {
			advPoints = append(advPoints, t.cards[oppID].score.Points())
		}
		if len(advPoints) <= 1 {
			card.score.TieBreaker = 0
			continue
		}
		min, max, sum := advPoints[0], advPoints[0], uint32(0)
		for _, p := range advPoints {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
			sum += p
		}
		card.score.TieBreaker = sum - min - max
	}
}

func (t *SwissTournament) hasPlayed(a, b *agent.Agent) bool {
	_, ok := t.cards[a.ID].played[b.ID]
	return ok
}

// pairNextRound groups agents by current Swiss points (descending), greedily
// pairs within each group against opponents not yet met, floats unpairable
// agents down into the next group, and finally issues a bye to whoever is
// still unpaired once every group has been tried.
func (t *SwissTournament) pairNextRound() [][]*agent.Agent {
	groups := map[uint32][]*agent.Agent{}
	seen := map[uint32]bool{}
	var points []uint32
	for _, a := range t.agents {
		p := t.cards[a.ID].score.Points()
		if !seen[p] {
			seen[p] = true
			points = append(points, p)
		}
		groups[p] = append(groups[p], a)
	}
	sort.Slice(points, func(i, j int) bool { return points[i] > points[j] })

	var pairings [][]*agent.Agent
	var leftover []*agent.Agent
	for _, p := range points {
		group := append(leftover, groups[p]...)
		leftover = nil

		i := 0
		for i+1 < len(group) {
			a := group[i]
			paired := false
			for j := i + 1; j < len(group); j++ {
				b := group[j]
				if !t.hasPlayed(a, b) {
					pairings = append(pairings, []*agent.Agent{a, b})
					group = removePair(group, i, j)
					paired = true
					break
				}
			}
			if !paired {
				i++
			}
		}
		leftover = append(leftover, group...)
	}

	// More than one agent can land in leftover when a score group's odd
	// residue also can't avoid a rematch. Rather than handing every one of
	// them a free bye, pair off as many as possible against each other
	// (rematches, since the group-local pairing pass already failed to
	// avoid those) — and order the pairing so agents who already received
	// a bye are paired away first, leaving a never-byed agent as the one
	// left over to receive the actual bye whenever the choice exists.
	sort.SliceStable(leftover, func(i, j int) bool {
		_, iBye := t.byeHistory[leftover[i].ID]
		_, jBye := t.byeHistory[leftover[j].ID]
		return iBye && !jBye
	})
	for len(leftover) >= 2 {
		pairings = append(pairings, []*agent.Agent{leftover[0], leftover[1]})
		leftover = leftover[2:]
	}

	for _, a := range leftover {
		if _, already := t.byeHistory[a.ID]; already {
			t.logger.Warn().Str("agent", a.Name).Msg("agent already received a bye; assigning a second bye, no valid opponent remained")
		}
		t.byeHistory[a.ID] = struct{}{}
		t.cards[a.ID].score.Wins++
	}
	return pairings
}

// removePair removes indices i and j (i < j) from s, returning the
// remaining elements in their original order. The backing array of s is
// reused.
func removePair(s []*agent.Agent, i, j int) []*agent.Agent {
	s = append(s[:j], s[j+1:]...)
	s = append(s[:i], s[i+1:]...)
	return s
}

func (t *SwissTournament) FinalScores() map[agent.ID]FinalScore {
	out := make(map[agent.ID]FinalScore, len(t.cards))
	for id, card := range t.cards {
		out[id] = card.score
	}
	return out
}
