package match

import (
	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/pkg/gameapi"
)

// Settings is one scheduled pairing: an ordered seat list plus the resource
// slice consumed for the whole match.
type Settings struct {
	Players []*agent.Agent
	Slice   constraints.Slice
}

// SeatScore is one seat's final score.
type SeatScore struct {
	Agent *agent.Agent
	Score gameapi.Score
}

// Result is what a completed (or abandoned, once every seat is eliminated)
// match reports back to the scheduler.
type Result struct {
	Scores []SeatScore
	Freed  constraints.Slice
	Errors []Failure
}
