package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestCollectAssignsStableUniqueIDsSortedByName(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "bot")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	writeManifest(t, dir, "zeta.agent.json", `{"name":"zeta","path":"`+exe+`"}`)
	writeManifest(t, dir, "alpha.agent.json", `{"name":"alpha","path":"`+exe+`","args":["--seed","1"]}`)

	c := NewCollector(zerolog.Nop())
	agents, err := c.Collect(dir)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "alpha", agents[0].Name)
	assert.Equal(t, "zeta", agents[1].Name)
	assert.NotEqual(t, agents[0].ID, agents[1].ID)
	assert.True(t, agents[0].Eligible())
}

func TestCollectMarksMissingExecutableIneligibleWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "ghost.agent.json", `{"name":"ghost","path":"/no/such/binary"}`)

	c := NewCollector(zerolog.Nop())
	agents, err := c.Collect(dir)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.False(t, agents[0].Eligible())
}

func TestCollectRejectsInvalidDirectory(t *testing.T) {
	c := NewCollector(zerolog.Nop())
	_, err := c.Collect(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
