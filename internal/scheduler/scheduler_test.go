package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/agentarena/internal/agent"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/match"
	"github.com/lox/agentarena/internal/tournament"
)

// fixedStrategy emits pairings exactly once, then nothing; it takes no
// action on results, which is all the scheduler-level tests need.
type fixedStrategy struct {
	pairings [][]*agent.Agent
	emitted  bool
	ppm      int
}

func (s *fixedStrategy) AddAgents([]*agent.Agent) {}
func (s *fixedStrategy) PlayersPerMatch() int      { return s.ppm }
func (s *fixedStrategy) AdvanceRound([]match.Result) [][]*agent.Agent {
	if s.emitted {
		return nil
	}
	s.emitted = true
	return s.pairings
}
func (s *fixedStrategy) FinalScores() map[agent.ID]tournament.FinalScore { return nil }

func buildConstraints(t *testing.T, cpus int) *constraints.Constraints {
	t.Helper()
	cpuSet := map[int]struct{}{}
	for i := 0; i < cpus; i++ {
		cpuSet[i] = struct{}{}
	}
	c, err := constraints.NewBuilder().
		WithCPUList(cpuSet).
		WithCPUsPerAgent(1).
		WithMaxTotalRAMBytes(int64(cpus) * 100).
		WithRAMPerAgentBytes(100).
		Build()
	require.NoError(t, err)
	return c
}

func makeAgents(n int) []*agent.Agent {
	out := make([]*agent.Agent, n)
	for i := range out {
		out[i] = agent.New(agent.ID(i+1), "a", "/bin/true", nil, "")
	}
	return out
}

func TestAdvanceIsIdempotentWithoutNewResults(t *testing.T) {
	agents := makeAgents(2)
	strat := &fixedStrategy{pairings: [][]*agent.Agent{agents}, ppm: 2}
	res := buildConstraints(t, 2)
	s := New(strat, res)

	first := s.Advance()
	require.Len(t, first, 1, "the only pairing fits and should be emitted")

	second := s.Advance()
	assert.Empty(t, second, "re-invoking advance with no new result and nothing freed must return nothing")
}

func TestResourceContentionBoundsConcurrency(t *testing.T) {
	agents := makeAgents(10)
	var pairings [][]*agent.Agent
	for i := 0; i < 5; i++ {
		pairings = append(pairings, []*agent.Agent{agents[2*i], agents[2*i+1]})
	}
	strat := &fixedStrategy{pairings: pairings, ppm: 2}
	res := buildConstraints(t, 4) // cpus_per_agent=1, 2 players/match => 2 concurrent matches max
	s := New(strat, res)

	var inFlight []match.Settings
	completed := 0
	maxConcurrent := 0

	inFlight = append(inFlight, s.Advance()...)
	assert.Len(t, inFlight, 2, "only 2 of 5 two-player matches fit in 4 CPUs at cpus_per_agent=1")

	more := s.Advance()
	assert.Empty(t, more, "no more matches should start until resources are freed")

	for len(inFlight) > 0 {
		if len(inFlight) > maxConcurrent {
			maxConcurrent = len(inFlight)
		}
		done := inFlight[0]
		inFlight = inFlight[1:]
		completed++
		inFlight = append(inFlight, s.OnResult(match.Result{Freed: done.Slice})...)
	}

	assert.LessOrEqual(t, maxConcurrent, 2, "never more than 2 concurrent matches with 4 CPUs at cpus_per_agent=1")
	assert.Equal(t, 5, completed, "all 5 scheduled matches must eventually run")
	assert.True(t, s.IsFinished(), "strategy has no more pairings once every match has reported in")
	assert.Equal(t, 4, res.AvailableCPUCount(), "every taken CPU must be returned")
}
