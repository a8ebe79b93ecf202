package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvMatchesNewWithNoVarsSet(t *testing.T) {
	for _, name := range []string{
		EnvVerbose, EnvLogDir, EnvAllowUncontained, EnvCompileAgents,
		EnvSelfTest, EnvTestAllConfigs, EnvDebugAgentStderr, EnvSpectatorAddr,
	} {
		require.NoError(t, os.Unsetenv(name))
	}

	got, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, New(), got)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvVerbose, "false")
	t.Setenv(EnvLogDir, "/tmp/logs")
	t.Setenv(EnvAllowUncontained, "true")
	t.Setenv(EnvSelfTest, "1")
	t.Setenv(EnvSpectatorAddr, "127.0.0.1:9191")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "/tmp/logs", cfg.LogDir)
	assert.True(t, cfg.AllowUncontained)
	assert.True(t, cfg.SelfTest)
	assert.True(t, cfg.CompileAgents, "unset fields keep the default")
	assert.Equal(t, "127.0.0.1:9191", cfg.SpectatorAddr)
}

func TestFromEnvRejectsInvalidBool(t *testing.T) {
	t.Setenv(EnvVerbose, "not-a-bool")
	_, err := FromEnv()
	assert.Error(t, err)
}
