package match

import (
	"fmt"

	"github.com/lox/agentarena/pkg/gameapi"
)

// turnGame is a minimal fixture game: every seat gets exactly one turn, in
// seat order, then the game ends. A seat's score is 1 if it produced a
// non-nil action on its turn, 0 otherwise (absent, dropped, or eliminated).
type turnGame struct {
	seats     int
	turn      int
	responded []bool
}

func (g *turnGame) ApplyAction(seat int, action gameapi.Action) error {
	if action != nil {
		g.responded[seat] = true
	}
	g.turn++
	return nil
}

func (g *turnGame) GetState() gameapi.State { return fixtureState(fmt.Sprintf("turn:%d", g.turn)) }

func (g *turnGame) GetCurrentPlayerNumber() int { return g.turn % g.seats }

func (g *turnGame) IsFinished() bool { return g.turn >= g.seats }

func (g *turnGame) GetPlayerScore(seat int) gameapi.Score {
	if g.responded[seat] {
		return fixtureScore(1)
	}
	return fixtureScore(0)
}

func (g *turnGame) ParseAction(text string) (gameapi.Action, error) {
	if text == "" {
		return nil, fmt.Errorf("empty action")
	}
	return text, nil
}

type turnGameFactory struct{}

func (turnGameFactory) NewGame(seats int) (gameapi.Game, error) {
	return &turnGame{seats: seats, responded: make([]bool, seats)}, nil
}

type fixtureState string

func (s fixtureState) String() string { return string(s) }

type fixtureScore int

func (s fixtureScore) String() string { return fmt.Sprintf("%d", int(s)) }
func (s fixtureScore) Less(other gameapi.Score) bool {
	o, ok := other.(fixtureScore)
	return ok && s < o
}
