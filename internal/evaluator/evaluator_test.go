package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/agentarena/internal/config"
	"github.com/lox/agentarena/internal/constraints"
	"github.com/lox/agentarena/internal/tournament"
)

const replyScript = `PORT="$1"
exec 3<>/dev/tcp/127.0.0.1/$PORT
dd bs=4096 count=1 <&3 2>/dev/null 1>/dev/null
printf 'rock' >&3`

func writeScriptAgent(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/bash\n"+script+"\n"), 0o755))
	return path
}

func writeManifest(t *testing.T, dir, manifestName, agentName, path string) {
	t.Helper()
	body := `{"name":"` + agentName + `","path":"` + path + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte(body), 0o644))
}

func buildTestConstraints(t *testing.T, cpus int) *constraints.Constraints {
	t.Helper()
	cpuSet := map[int]struct{}{}
	for i := 0; i < cpus; i++ {
		cpuSet[i] = struct{}{}
	}
	c, err := constraints.NewBuilder().
		WithCPUList(cpuSet).
		WithCPUsPerAgent(1).
		WithMaxTotalRAMBytes(int64(cpus) * (128 << 20)).
		WithRAMPerAgentBytes(128 << 20).
		Build()
	require.NoError(t, err)
	return c
}

func TestEvaluateRunsRoundRobinToCompletion(t *testing.T) {
	agentDir := t.TempDir()
	a := writeScriptAgent(t, agentDir, "a.sh", replyScript)
	b := writeScriptAgent(t, agentDir, "b.sh", replyScript)
	writeManifest(t, agentDir, "alpha.agent.json", "alpha", a)
	writeManifest(t, agentDir, "beta.agent.json", "beta", b)

	cfg := config.New()
	cfg.Verbose = false
	cfg.AllowUncontained = true

	cons := buildTestConstraints(t, 4)
	ev, err := New(turnGameFactory{}, cfg, cons)
	require.NoError(t, err)

	scores, err := ev.Evaluate(context.Background(), agentDir, tournament.NewRoundRobin(true))
	require.NoError(t, err)

	require.Len(t, scores, 2)
	alpha := scores["alpha"].(tournament.TwoPlayerScore)
	beta := scores["beta"].(tournament.TwoPlayerScore)
	assert.Equal(t, uint32(1), alpha.Draws, "both agents respond every turn, so their one match is a draw")
	assert.Equal(t, uint32(1), beta.Draws)

	assert.Equal(t, 4, cons.AvailableCPUCount(), "every CPU taken for the match must be returned")
}

func TestEvaluateRejectsEmptyAgentDirectory(t *testing.T) {
	cfg := config.New()
	cfg.AllowUncontained = true
	cons := buildTestConstraints(t, 2)
	ev, err := New(turnGameFactory{}, cfg, cons)
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), t.TempDir(), tournament.NewRoundRobin(true))
	assert.Error(t, err)
}

func TestEvaluateRejectsInvalidAgentDirectory(t *testing.T) {
	cfg := config.New()
	cfg.AllowUncontained = true
	cons := buildTestConstraints(t, 2)
	ev, err := New(turnGameFactory{}, cfg, cons)
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), tournament.NewRoundRobin(true))
	assert.Error(t, err)
}

func TestEvaluateStopsOnCancelledContext(t *testing.T) {
	agentDir := t.TempDir()
	a := writeScriptAgent(t, agentDir, "a.sh", replyScript)
	b := writeScriptAgent(t, agentDir, "b.sh", replyScript)
	writeManifest(t, agentDir, "alpha.agent.json", "alpha", a)
	writeManifest(t, agentDir, "beta.agent.json", "beta", b)

	cfg := config.New()
	cfg.Verbose = false
	cfg.AllowUncontained = true

	cons := buildTestConstraints(t, 4)
	ev, err := New(turnGameFactory{}, cfg, cons)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ev.Evaluate(ctx, agentDir, tournament.NewRoundRobin(true))
	assert.ErrorIs(t, err, context.Canceled, "an already-cancelled context must stop the run before it starts launching matches")
}

func TestNewRejectsNilConstraints(t *testing.T) {
	_, err := New(turnGameFactory{}, config.New(), nil)
	assert.Error(t, err)
}

func TestNewRejectsNilFactory(t *testing.T) {
	_, err := New(nil, config.New(), buildTestConstraints(t, 1))
	assert.Error(t, err)
}
