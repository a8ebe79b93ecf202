package constraints

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCPUList(t *testing.T) {
	cases := map[string][]int{
		"0-3,6":  {0, 1, 2, 3, 6},
		"5":      {5},
		"3-1":    {1, 2, 3},
		"0,2,4":  {0, 2, 4},
	}
	for in, want := range cases {
		got, err := ParseCPUList(in)
		require.NoError(t, err, in)
		for _, cpu := range want {
			assert.Contains(t, got, cpu, in)
		}
		assert.Len(t, got, len(want), in)
	}
}

func TestParseCPUListRejectsGarbage(t *testing.T) {
	_, err := ParseCPUList("a-b")
	assert.Error(t, err)
	_, err = ParseCPUList("")
	assert.Error(t, err)
}

func TestBuildRejectsAgentRAMExceedingTotal(t *testing.T) {
	_, err := NewBuilder().
		WithMaxTotalRAMBytes(100).
		WithRAMPerAgentBytes(200).
		WithCPUList(map[int]struct{}{0: {}}).
		WithCPUsPerAgent(1).
		Build()
	assert.Error(t, err)
}

func TestBuildRejectsTooFewCPUs(t *testing.T) {
	_, err := NewBuilder().
		WithCPUList(map[int]struct{}{0: {}}).
		WithCPUsPerAgent(2).
		Build()
	assert.Error(t, err)
}

func TestTryTakeAndAddConserveResources(t *testing.T) {
	c, err := NewBuilder().
		WithMaxTotalRAMBytes(1000).
		WithRAMPerAgentBytes(500).
		WithCPUList(map[int]struct{}{0: {}, 1: {}, 2: {}, 3: {}}).
		WithCPUsPerAgent(2).
		Build()
	require.NoError(t, err)

	before := c.AvailableRAMBytes()
	beforeCPUs := c.AvailableCPUCount()

	slice, ok := c.TryTake(2, 500)
	require.True(t, ok)
	assert.Len(t, slice.CPUs, 2)
	assert.Equal(t, int64(500), slice.RAMBytes)
	assert.Equal(t, beforeCPUs-2, c.AvailableCPUCount())

	_, ok = c.TryTake(4, 1)
	assert.False(t, ok, "insufficient CPUs must fail without mutating the pool")
	assert.Equal(t, beforeCPUs-2, c.AvailableCPUCount())

	c.Add(slice)
	assert.Equal(t, before, c.AvailableRAMBytes())
	assert.Equal(t, beforeCPUs, c.AvailableCPUCount())
}

func TestFromEnvOverridesTimeBudget(t *testing.T) {
	os.Setenv(EnvTimeBudgetSecs, "5")
	os.Setenv(EnvActionTimeoutMS, "250")
	defer os.Unsetenv(EnvTimeBudgetSecs)
	defer os.Unsetenv(EnvActionTimeoutMS)

	b, err := FromEnv()
	require.NoError(t, err)
	c, err := b.WithCPUList(map[int]struct{}{0: {}}).WithMaxTotalRAMBytes(1 << 20).Build()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, c.TimeBudget())
	assert.Equal(t, 250*time.Millisecond, c.ActionTimeout())
}

func TestBuildDefaultsActionTimeoutZeroMeansEliminateImmediately(t *testing.T) {
	c, err := NewBuilder().
		WithCPUList(map[int]struct{}{0: {}}).
		WithMaxTotalRAMBytes(1 << 20).
		WithActionTimeout(0).
		WithTimeBudget(0).
		Build()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), c.ActionTimeout())
	assert.Equal(t, time.Duration(0), c.TimeBudget())
}
