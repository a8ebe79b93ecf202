// Package gameapi is the public boundary third-party game authors program
// against. It defines the Game/GameFactory capability the match runner
// drives generically, and the serialization contracts (State/Action/Score)
// that cross the wire to and from a spawned agent process. Concrete games
// and agent binaries are external collaborators; this package only fixes
// the interface they must satisfy.
package gameapi

import "fmt"

// State is whatever a Game reports as the current position; it crosses the
// wire via String(), so String() must fully determine what an agent needs
// to choose an Action.
type State interface {
	fmt.Stringer
}

// Action is whatever an agent replies with. ParseAction is the only
// deserialization path the match runner uses; a game's action type need not
// implement anything beyond what its ParseAction closure requires.
type Action interface{}

// ActionParser parses the trimmed, UTF-8-validated bytes an agent wrote
// into a concrete Action, or reports that the response was not a valid
// action. This mirrors Action::from_str from the design: the core never
// inspects the bytes itself beyond UTF-8 validation and trimming.
type ActionParser func(text string) (Action, error)

// Score is a per-seat result. It must be totally ordered (so tournament
// strategies can rank agents) and printable (for human-readable reporting).
type Score interface {
	fmt.Stringer
	// Less reports whether this score ranks strictly below other. Scores
	// that are neither Less nor other.Less are considered equal (a draw).
	Less(other Score) bool
}

// Game is one running instance of a user-supplied game. The match runner
// holds it by exclusive ownership for the duration of one match; no method
// is safe to call concurrently.
type Game interface {
	// ApplyAction advances the game by one turn. action is nil when the
	// current seat's client could not produce one (absent by design — the
	// game is responsible for eliminating that player deterministically,
	// e.g. by forfeiting or folding them every subsequent turn). A non-nil
	// action that the game rejects as illegal is reported back as an
	// error; the match runner treats that as a protocol violation.
	ApplyAction(seat int, action Action) error

	// GetState returns the current position, to be serialized and sent to
	// the seat about to act. Must not mutate the game.
	GetState() State

	// GetCurrentPlayerNumber returns the seat whose turn it is.
	GetCurrentPlayerNumber() int

	// IsFinished reports whether the game has reached a terminal state.
	IsFinished() bool

	// GetPlayerScore returns seat's final (or current, mid-game) score.
	GetPlayerScore(seat int) Score

	// ParseAction is the game's ActionParser, exposed so the match runner
	// does not need a second generic parameter.
	ParseAction(text string) (Action, error)
}

// GameFactory constructs a fresh Game instance per match. Implementations
// are typically stateless; NewGame is called once per scheduled pairing.
type GameFactory interface {
	NewGame(seats int) (Game, error)
}
