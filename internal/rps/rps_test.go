package rps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(t *testing.T, a, b string) (gScore0, gScore1 interface{}) {
	t.Helper()
	f := NewFactory()
	g, err := f.NewGame(2)
	require.NoError(t, err)

	for seat, text := range []string{a, b} {
		action, err := g.ParseAction(text)
		require.NoError(t, err)
		require.NoError(t, g.ApplyAction(seat, action))
	}
	require.True(t, g.IsFinished())
	return g.GetPlayerScore(0), g.GetPlayerScore(1)
}

func TestRockBeatsScissors(t *testing.T) {
	s0, s1 := play(t, "rock", "scissors")
	assert.Equal(t, Win, s0)
	assert.Equal(t, Loss, s1)
}

func TestPaperBeatsRock(t *testing.T) {
	s0, s1 := play(t, "paper", "rock")
	assert.Equal(t, Win, s0)
	assert.Equal(t, Loss, s1)
}

func TestScissorsBeatsPaper(t *testing.T) {
	s0, s1 := play(t, "scissors", "paper")
	assert.Equal(t, Win, s0)
	assert.Equal(t, Loss, s1)
}

func TestSameMoveIsADraw(t *testing.T) {
	s0, s1 := play(t, "rock", "rock")
	assert.Equal(t, Draw, s0)
	assert.Equal(t, Draw, s1)
}

func TestAbsentMoveLosesToAnyMove(t *testing.T) {
	f := NewFactory()
	g, err := f.NewGame(2)
	require.NoError(t, err)

	require.NoError(t, g.ApplyAction(0, nil))
	action, err := g.ParseAction("paper")
	require.NoError(t, err)
	require.NoError(t, g.ApplyAction(1, action))

	assert.Equal(t, Loss, g.GetPlayerScore(0))
	assert.Equal(t, Win, g.GetPlayerScore(1))
}

func TestInvalidMoveRejected(t *testing.T) {
	f := NewFactory()
	g, err := f.NewGame(2)
	require.NoError(t, err)
	_, err = g.ParseAction("lizard")
	assert.Error(t, err)
}

func TestFactoryRejectsWrongSeatCount(t *testing.T) {
	f := NewFactory()
	_, err := f.NewGame(3)
	assert.Error(t, err)
}

func TestOutcomeOrdering(t *testing.T) {
	assert.True(t, Loss.Less(Draw))
	assert.True(t, Draw.Less(Win))
	assert.False(t, Win.Less(Draw))
}
