// Package clienthandler establishes the per-seat TCP channel between the
// match runner and one spawned agent process, and exposes the bounded
// send/recv primitive the runner drives each turn.
package clienthandler

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/agentarena/internal/supervisor"
)

// acceptPollInterval and acceptCeiling implement the documented "bounded
// polling interval (~100ms granularity, 1s ceiling)" for the inbound
// connection wait.
const (
	acceptPollInterval = 100 * time.Millisecond
	acceptCeiling      = 1 * time.Second
)

// Spec describes one seat's launch parameters.
type Spec struct {
	Seat int

	AgentPath string
	AgentArgs []string // appended after the wire-protocol argv

	CPUs     []int
	RAMBytes int64

	TimeBudgetMicros    int64
	ActionTimeoutMicros int64

	LogSink          io.Writer
	InheritStderr    bool
	AllowUncontained bool
}

// Handler owns one seat's listener, supervised child, and (once
// established) TCP connection. Close kills the supervised process; there is
// no graceful shutdown.
type Handler struct {
	Seat int

	listener *net.TCPListener
	conn     net.Conn
	handle   *supervisor.Handle
	logger   zerolog.Logger
}

// Start binds an ephemeral loopback listener, launches the agent with the
// listener's port as its first argument, and waits for the inbound
// connection within the bounded ceiling. On any failure the partially
// started child (if any) is killed and an error is returned; the seat is
// then considered unreachable for the whole match.
func Start(sup *supervisor.Supervisor, spec Spec, logger zerolog.Logger) (*Handler, error) {
	logger = logger.With().Str("component", "client_handler").Int("seat", spec.Seat).Logger()

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		return nil, fmt.Errorf("clienthandler: bind loopback listener: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	argv := append([]string{
		strconv.Itoa(port),
		strconv.FormatInt(spec.TimeBudgetMicros, 10),
		strconv.FormatInt(spec.ActionTimeoutMicros, 10),
	}, spec.AgentArgs...)

	handle, err := sup.Launch(supervisor.LaunchSpec{
		Command:          spec.AgentPath,
		Args:             argv,
		MaxMemoryBytes:   spec.RAMBytes,
		CPUs:             spec.CPUs,
		LogSink:          spec.LogSink,
		InheritStderr:    spec.InheritStderr,
		AllowUncontained: spec.AllowUncontained,
	})
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("clienthandler: launch agent: %w", err)
	}

	h := &Handler{Seat: spec.Seat, listener: listener, handle: handle, logger: logger}

	conn, err := h.acceptWithTimeout()
	if err != nil {
		handle.Close()
		listener.Close()
		return nil, fmt.Errorf("clienthandler: %w", err)
	}
	h.conn = conn
	return h, nil
}

func (h *Handler) acceptWithTimeout() (net.Conn, error) {
	deadline := time.Now().Add(acceptCeiling)
	for {
		wait := acceptPollInterval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			return nil, fmt.Errorf("no connection accepted within %s", acceptCeiling)
		}
		h.listener.SetDeadline(time.Now().Add(wait))
		conn, err := h.listener.Accept()
		if err == nil {
			return conn, nil
		}
		if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
			return nil, fmt.Errorf("accept: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no connection accepted within %s", acceptCeiling)
		}
	}
}

// SendAndRecv writes msg in full (failing on a zero-byte or partial write),
// then reads once into buf with a read deadline of `deadline`, returning
// the number of bytes read.
func (h *Handler) SendAndRecv(msg []byte, buf []byte, deadline time.Duration) (int, error) {
	h.conn.SetWriteDeadline(time.Now().Add(1 * time.Second))
	n, err := h.conn.Write(msg)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	if n != len(msg) {
		return 0, fmt.Errorf("write: partial write (%d of %d bytes)", n, len(msg))
	}

	h.conn.SetReadDeadline(time.Now().Add(deadline))
	n, err = h.conn.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("read: %w", err)
	}
	return n, nil
}

// Close kills the supervised process and releases the listener. There is no
// graceful shutdown: cancellation of a client always means kill.
func (h *Handler) Close() {
	if h.conn != nil {
		h.conn.Close()
	}
	h.handle.Close()
	h.listener.Close()
}
