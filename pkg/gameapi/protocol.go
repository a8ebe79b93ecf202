package gameapi

import (
	"fmt"
	"net"
	"strconv"
)

// MaxPayloadBytes is the hard cap on a single state-or-action exchange over
// the wire. A state serialization that does not fit is a server-side bug:
// the match runner sends only the first MaxPayloadBytes bytes of it and then
// fails the seat with a not_an_action error whatever the reply. An agent
// response longer than this is simply never fully read.
const MaxPayloadBytes = 4096

// ChildArgs is the parsed form of the argv contract every agent binary
// receives: `<binary> <port> <time_budget_us> <action_timeout_us>
// [config_args...]`.
type ChildArgs struct {
	Port               int
	TimeBudgetMicros   int64
	ActionTimeoutMicros int64
	ConfigArgs         []string
}

// ParseChildArgs parses os.Args[1:] (or an equivalent slice) according to
// the documented child argv contract.
func ParseChildArgs(args []string) (ChildArgs, error) {
	if len(args) < 3 {
		return ChildArgs{}, fmt.Errorf("gameapi: expected at least 3 args (port, time_budget_us, action_timeout_us), got %d", len(args))
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return ChildArgs{}, fmt.Errorf("gameapi: invalid port %q: %w", args[0], err)
	}
	timeBudget, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return ChildArgs{}, fmt.Errorf("gameapi: invalid time_budget_us %q: %w", args[1], err)
	}
	actionTimeout, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return ChildArgs{}, fmt.Errorf("gameapi: invalid action_timeout_us %q: %w", args[2], err)
	}
	return ChildArgs{
		Port:                port,
		TimeBudgetMicros:    timeBudget,
		ActionTimeoutMicros: actionTimeout,
		ConfigArgs:          append([]string(nil), args[3:]...),
	}, nil
}

// Client is the agent-binary side of the wire protocol: dial the port the
// evaluator handed us, then alternate ReadState/WriteAction for as long as
// the connection stays open. It is a convenience for agents written in Go;
// agent authors may also speak the protocol directly.
type Client struct {
	conn net.Conn
}

// Dial connects to the evaluator's loopback listener for this match.
func Dial(port int) (*Client, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("gameapi: dial 127.0.0.1:%d: %w", port, err)
	}
	return &Client{conn: conn}, nil
}

// ReadState blocks for the next state serialization. Returns io.EOF (via
// net.Conn's normal read semantics) when the evaluator closes the
// connection because the match has ended.
func (c *Client) ReadState() (string, error) {
	buf := make([]byte, MaxPayloadBytes)
	n, err := c.conn.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// WriteAction writes the agent's response for the current turn.
func (c *Client) WriteAction(text string) error {
	_, err := c.conn.Write([]byte(text))
	return err
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
