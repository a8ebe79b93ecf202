package tournament

import (
	"fmt"
	"strings"

	"github.com/lox/agentarena/pkg/gameapi"
)

// TwoPlayerScore is the final-score shape for RoundRobinTournament and
// SwissTournament: win/draw/loss counts plus a tie-breaker, ordered by
// Swiss points (2*wins+draws) first and tie-breaker second.
type TwoPlayerScore struct {
	Wins, Draws, Losses uint32
	TieBreaker          uint32
}

// Points is the Swiss "game points" value: 2 per win, 1 per draw.
func (s TwoPlayerScore) Points() uint32 { return s.Wins*2 + s.Draws }

func (s TwoPlayerScore) String() string {
	return fmt.Sprintf("win: %d, draw: %d, loss: %d, tie-breaker: %d", s.Wins, s.Draws, s.Losses, s.TieBreaker)
}

func (s TwoPlayerScore) Less(other FinalScore) bool {
	o, ok := other.(TwoPlayerScore)
	if !ok {
		return false
	}
	if s.Points() != o.Points() {
		return s.Points() < o.Points()
	}
	return s.TieBreaker < o.TieBreaker
}

// SinglePlayerScore is the final-score shape for SinglePlayerTournament: the
// ordered list of per-game scores, compared lexicographically (as the
// original Vec<f32> ordering did).
type SinglePlayerScore []gameapi.Score

func (s SinglePlayerScore) String() string {
	parts := make([]string, len(s))
	for i, sc := range s {
		parts[i] = sc.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s SinglePlayerScore) Less(other FinalScore) bool {
	o, ok := other.(SinglePlayerScore)
	if !ok {
		return false
	}
	n := len(s)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if s[i].Less(o[i]) {
			return true
		}
		if o[i].Less(s[i]) {
			return false
		}
	}
	return len(s) < len(o)
}
