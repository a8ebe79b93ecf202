package clienthandler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/agentarena/internal/supervisor"
)

// writeEchoAgent writes a small bash script speaking the raw wire protocol:
// it connects back to the port given as its first argument, reads up to one
// frame, and replies with a fixed action string. Used as a minimal
// real-process stand-in for an agent binary.
func writeEchoAgent(t *testing.T, reply string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "echo-agent.sh")
	script := "#!/bin/bash\n" +
		"PORT=\"$1\"\n" +
		"exec 3<>/dev/tcp/127.0.0.1/$PORT\n" +
		"dd bs=4096 count=1 <&3 2>/dev/null 1>/dev/null\n" +
		"printf '%s' \"" + reply + "\" >&3\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStartAndSendAndRecvRoundTrip(t *testing.T) {
	agentPath := writeEchoAgent(t, "rock")
	sup := supervisor.New(zerolog.Nop(), "agentarena-ch-test")

	h, err := Start(sup, Spec{
		Seat:                0,
		AgentPath:            agentPath,
		TimeBudgetMicros:     int64(5 * time.Second / time.Microsecond),
		ActionTimeoutMicros:  int64(2 * time.Second / time.Microsecond),
		AllowUncontained:     true,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Close()

	buf := make([]byte, 4096)
	n, err := h.SendAndRecv([]byte("state:1"), buf, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, "rock", string(buf[:n]))
}

func TestStartFailsWhenNoAgentConnects(t *testing.T) {
	sup := supervisor.New(zerolog.Nop(), "agentarena-ch-test")
	_, err := Start(sup, Spec{
		Seat:             0,
		AgentPath:        "sh",
		AgentArgs:        []string{}, // plain `sh <port> <tb> <at>` never dials back
		AllowUncontained: true,
	}, zerolog.Nop())
	require.Error(t, err)
}
