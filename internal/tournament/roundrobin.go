package tournament

import (
	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/match"
)

// RoundRobinTournament emits every pairing up front, then on the next call
// folds in their results and finishes. symmetric=true treats A-vs-B as
// equivalent to B-vs-A and emits each unordered pair once; false emits both
// orderings, so side asymmetry in the game is also exercised.
type RoundRobinTournament struct {
	symmetric bool
	agents    []*agent.Agent
	scores    map[agent.ID]*TwoPlayerScore
	started   bool
}

// NewRoundRobin constructs a RoundRobinTournament.
func NewRoundRobin(symmetric bool) *RoundRobinTournament {
	return &RoundRobinTournament{symmetric: symmetric, scores: map[agent.ID]*TwoPlayerScore{}}
}

func (t *RoundRobinTournament) AddAgents(agents []*agent.Agent) {
	t.agents = agents
}

func (t *RoundRobinTournament) PlayersPerMatch() int { return 2 }

func (t *RoundRobinTournament) AdvanceRound(results []match.Result) [][]*agent.Agent {
	t.ingest(results)

	if t.started {
		return nil
	}
	t.started = true

	n := len(t.agents)
	var pending [][]*agent.Agent
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pending = append(pending, []*agent.Agent{t.agents[i], t.agents[j]})
			if !t.symmetric {
				pending = append(pending, []*agent.Agent{t.agents[j], t.agents[i]})
			}
		}
	}
	return pending
}

func (t *RoundRobinTournament) ingest(results []match.Result) {
	for _, res := range results {
		isDraw, isWinner := classifyResult(res)
		for i, seat := range res.Scores {
			card := t.scoreFor(seat.Agent.ID)
			switch {
			case isDraw:
				card.Draws++
			case isWinner[i]:
				card.Wins++
			default:
				card.Losses++
			}
		}
	}
}

func (t *RoundRobinTournament) scoreFor(id agent.ID) *TwoPlayerScore {
	s, ok := t.scores[id]
	if !ok {
		s = &TwoPlayerScore{}
		t.scores[id] = s
	}
	return s
}

func (t *RoundRobinTournament) FinalScores() map[agent.ID]FinalScore {
	out := make(map[agent.ID]FinalScore, len(t.scores))
	for id, s := range t.scores {
		out[id] = *s
	}
	return out
}
