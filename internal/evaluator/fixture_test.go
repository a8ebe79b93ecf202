package evaluator

import (
	"fmt"

	"github.com/lox/agentarena/pkg/gameapi"
)

// turnGame mirrors internal/match's own test fixture: every seat gets one
// turn in order, scoring 1 for a non-nil action and 0 otherwise.
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
