package supervisor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchUncontainedRunsAndCleansUp(t *testing.T) {
	s := New(zerolog.Nop(), "agentarena-test")
	h, err := s.Launch(LaunchSpec{
		Command:          "sh",
		Args:             []string{"-c", "sleep 0.2"},
		AllowUncontained: true,
	})
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.IsAlive())
	require.NoError(t, h.Wait())
	assert.False(t, h.IsAlive())
}

func TestTryKillTerminatesLongRunningChild(t *testing.T) {
	s := New(zerolog.Nop(), "agentarena-test")
	h, err := s.Launch(LaunchSpec{
		Command:          "sh",
		Args:             []string{"-c", "sleep 30"},
		AllowUncontained: true,
	})
	require.NoError(t, err)

	require.True(t, h.IsAlive())
	require.NoError(t, h.TryKill(2*time.Second))
	assert.False(t, h.IsAlive())
}

func TestLaunchWithoutUncontainedFallsBackOrFails(t *testing.T) {
	s := New(zerolog.Nop(), "agentarena-test")
	h, err := s.Launch(LaunchSpec{
		Command:          "true",
		AllowUncontained: false,
	})
	if err != nil {
		assert.ErrorIs(t, err, ErrUncontainedNotAllowed)
		return
	}
	// A container could be built in this environment (e.g. a delegated
	// cgroup v2 slice); either way the handle must behave normally.
	defer h.Close()
	require.NoError(t, h.Wait())
}

func TestCloseIsIdempotentAfterWait(t *testing.T) {
	s := New(zerolog.Nop(), "agentarena-test")
	h, err := s.Launch(LaunchSpec{
		Command:          "true",
		AllowUncontained: true,
	})
	require.NoError(t, err)
	require.NoError(t, h.Wait())
	h.Close()
	h.Close()
}
