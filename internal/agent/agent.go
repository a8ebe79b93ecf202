// Package agent defines the shared, reference-counted Agent record and a
// minimal collector that turns a directory of manifests into a roster.
// Compilation of agent source and rich discovery are out of scope (external
// collaborators per the system's documented boundary); the collector here
// only ever resolves manifests to already-built executables.
package agent

import (
	"sync/atomic"
)

// ID is a stable, unique, positive integer identifying one agent for the
// lifetime of an evaluation run.
type ID int64

// Agent is an immutable record (save for the match counter) shared by
// pointer across the scheduler, every tournament strategy, and every
// in-flight match. Equality is by ID; Key folds in Name and Args so maps
// keyed by the full identity (as opposed to just ID) can still distinguish
// otherwise-identical records during construction.
type Agent struct {
	ID     ID
	Name   string
	Path   string   // empty => ineligible to be scheduled
	Args   []string // argv tail appended after the wire-protocol arguments
	LogDir string   // optional per-agent log directory

	matchCount atomic.Int64
}

// New constructs an Agent with the given identity. Path may be empty to
// represent an agent discovered but not resolvable to an executable
// (ineligible: the collector still returns it so the caller can report why
// a named agent did not run).
func New(id ID, name, path string, args []string, logDir string) *Agent {
	return &Agent{ID: id, Name: name, Path: path, Args: args, LogDir: logDir}
}

// Eligible reports whether this agent has a resolvable executable.
func (a *Agent) Eligible() bool { return a.Path != "" }

// MatchCount returns how many matches this agent has played so far in the
// current evaluation.
func (a *Agent) MatchCount() int64 { return a.matchCount.Load() }

// RecordMatch increments the monotonic match counter. Called once per seat
// by the match runner when a match has finished.
func (a *Agent) RecordMatch() { a.matchCount.Add(1) }

// Key returns a composite identity used only for de-duplication during
// collection, where two manifests might coincidentally share a name but
// never a path+args combination.
func (a *Agent) Key() string {
	key := a.Name + "\x00" + a.Path
	for _, arg := range a.Args {
		key += "\x00" + arg
	}
	return key
}
