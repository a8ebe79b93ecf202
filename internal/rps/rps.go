// Package rps is a bundled two-player Rock-Paper-Scissors implementation of
// pkg/gameapi.Game, the game that cmd/agentarena's evaluate and self-test
// commands run their agents against.
package rps

import (
	"fmt"
	"strings"

	"github.com/lox/agentarena/pkg/gameapi"
)

// Move is one of the three throws. The zero value is Rock, so a dropped
// seat's nil action never panics a type assertion — it simply never
// reaches Move at all; see Game.ApplyAction.
type Move int

const (
	Rock Move = iota
	Paper
	Scissors
)

func (m Move) String() string {
	switch m {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	default:
		return "invalid"
	}
}

// beats reports whether m defeats other under standard rules: each move
// beats exactly the move one step behind it in Rock < Paper < Scissors
// cyclic order.
func (m Move) beats(other Move) bool {
	return (m-other+3)%3 == 1
}

func parseMove(text string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "rock":
		return Rock, nil
	case "paper":
		return Paper, nil
	case "scissors":
		return Scissors, nil
	default:
		return 0, fmt.Errorf("rps: %q is not rock, paper, or scissors", text)
	}
}

// Outcome is a single match's result for one seat: a win, draw, or loss,
// ordered Loss < Draw < Win.
type Outcome int

const (
	Loss Outcome = iota
	Draw
	Win
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "loss"
	}
}

func (o Outcome) Less(other gameapi.Score) bool {
	oo, ok := other.(Outcome)
	return ok && o < oo
}

// Game is one Rock-Paper-Scissors match between exactly two seats. Each
// seat gets one turn, in order; moves are hidden from the opponent until
// both have been submitted (GetState never reveals a move already made).
type Game struct {
	moves [2]*Move
	turn  int
}

// NewFactory returns a gameapi.GameFactory for 2-seat RPS matches.
func NewFactory() gameapi.GameFactory { return factory{} }

type factory struct{}

func (factory) NewGame(seats int) (gameapi.Game, error) {
	if seats != 2 {
		return nil, fmt.Errorf("rps: requires exactly 2 seats, got %d", seats)
	}
	return &Game{}, nil
}

func (g *Game) ApplyAction(seat int, action gameapi.Action) error {
	if action == nil {
		g.turn++
		return nil
	}
	mv, ok := action.(Move)
	if !ok {
		return fmt.Errorf("rps: seat %d submitted a non-Move action", seat)
	}
	g.moves[seat] = &mv
	g.turn++
	return nil
}

func (g *Game) GetState() gameapi.State { return state("choose your move") }

func (g *Game) GetCurrentPlayerNumber() int { return g.turn }

func (g *Game) IsFinished() bool { return g.turn >= 2 }

func (g *Game) GetPlayerScore(seat int) gameapi.Score {
	other := 1 - seat
	mine, theirs := g.moves[seat], g.moves[other]
	switch {
	case mine == nil && theirs == nil:
		return Draw
	case mine == nil:
		return Loss
	case theirs == nil:
		return Win
	case mine.beats(*theirs):
		return Win
	case theirs.beats(*mine):
		return Loss
	default:
		return Draw
	}
}

func (g *Game) ParseAction(text string) (gameapi.Action, error) {
	mv, err := parseMove(text)
	if err != nil {
		return nil, err
	}
	return mv, nil
}

type state string

func (s state) String() string { return string(s) }
