package tournament

import (
	"github.com/rs/zerolog"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/match"
)

// SinglePlayerTournament runs every agent through gamesPerAgent solo games
// in a single round, draining the roster so a second call yields nothing.
type SinglePlayerTournament struct {
	gamesPerAgent int
	agents        []*agent.Agent
	scores        map[agent.ID]SinglePlayerScore
	drained       bool
	logger        zerolog.Logger
}

// NewSinglePlayer constructs a SinglePlayerTournament.
func NewSinglePlayer(gamesPerAgent int, logger zerolog.Logger) *SinglePlayerTournament {
	return &SinglePlayerTournament{
		gamesPerAgent: gamesPerAgent,
		scores:        map[agent.ID]SinglePlayerScore{},
		logger:        logger.With().Str("component", "singleplayer_tournament").Logger(),
	}
}

func (t *SinglePlayerTournament) AddAgents(agents []*agent.Agent) {
	t.agents = agents
}

func (t *SinglePlayerTournament) PlayersPerMatch() int { return 1 }

func (t *SinglePlayerTournament) AdvanceRound(results []match.Result) [][]*agent.Agent {
	for _, res := range results {
		if len(res.Scores) != 1 {
			continue
		}
		seat := res.Scores[0]
		t.scores[seat.Agent.ID] = append(t.scores[seat.Agent.ID], seat.Score)
		t.logger.Debug().
			Str("agent", seat.Agent.Name).
			Int("game", len(t.scores[seat.Agent.ID])).
			Str("score", seat.Score.String()).
			Msg("solo game completed")
	}

	if t.drained {
		return nil
	}
	t.drained = true

	var pending [][]*agent.Agent
	for _, a := range t.agents {
		for i := 0; i < t.gamesPerAgent; i++ {
			pending = append(pending, []*agent.Agent{a})
		}
	}
	return pending
}

func (t *SinglePlayerTournament) FinalScores() map[agent.ID]FinalScore {
	out := make(map[agent.ID]FinalScore, len(t.scores))
	for id, s := range t.scores {
		out[id] = s
	}
	return out
}
