// Package match drives one game to completion against its seats' spawned
// agent processes: per-turn and cumulative time budgets, failure
// classification, and final per-seat scoring.
package match

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/agentarena/internal/clienthandler"
	"github.com/lox/agentarena/internal/config"
	"github.com/lox/agentarena/internal/supervisor"
	"github.com/lox/agentarena/pkg/gameapi"
)

// Runner owns the per-match sizing (how many CPUs and how much RAM each
// seat gets, the two time budgets) that is constant across every match in
// an evaluation; Run is called once per scheduled pairing.
type Runner struct {
	cpusPerAgent  int
	agentRAM      int64
	timeBudget    time.Duration
	actionTimeout time.Duration

	cfg    *config.Configuration
	clock  quartz.Clock
	logger zerolog.Logger
}

// NewRunner builds a Runner. clock measures each turn's elapsed time and
// defaults to the wall clock when nil; this package's tests pass nil. The
// per-turn read deadline itself always runs on real time.
func NewRunner(cpusPerAgent int, agentRAMBytes int64, timeBudget, actionTimeout time.Duration, cfg *config.Configuration, clock quartz.Clock, logger zerolog.Logger) *Runner {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Runner{
		cpusPerAgent:  cpusPerAgent,
		agentRAM:      agentRAMBytes,
		timeBudget:    timeBudget,
		actionTimeout: actionTimeout,
		cfg:           cfg,
		clock:         clock,
		logger:        logger.With().Str("component", "match_runner").Logger(),
	}
}

// Run carves settings.Slice into per-seat sub-slices, starts one client
// handler per seat, then drives factory's new game to completion or to the
// point where every seat is eliminated.
func (r *Runner) Run(sup *supervisor.Supervisor, settings Settings, factory gameapi.GameFactory) (Result, error) {
	n := len(settings.Players)
	game, err := factory.NewGame(n)
	if err != nil {
		return Result{}, fmt.Errorf("match: new game: %w", err)
	}

	handlers := make([]*clienthandler.Handler, n)
	failures := make([]Failure, 0, n)

	cpuChunks := chunkCPUs(settings.Slice.CPUs, r.cpusPerAgent)

	var mu sync.Mutex
	g := new(errgroup.Group)
	for seat := 0; seat < n; seat++ {
		seat := seat
		agt := settings.Players[seat]
		g.Go(func() error {
			if !agt.Eligible() {
				mu.Lock()
				failures = append(failures, Failure{Kind: FailureStartup, Seat: seat})
				mu.Unlock()
				return nil
			}
			h, err := clienthandler.Start(sup, clienthandler.Spec{
				Seat:                 seat,
				AgentPath:            agt.Path,
				AgentArgs:            agt.Args,
				CPUs:                 cpuChunks[seat],
				RAMBytes:             r.agentRAM,
				TimeBudgetMicros:     r.timeBudget.Microseconds(),
				ActionTimeoutMicros:  r.actionTimeout.Microseconds(),
				AllowUncontained:     r.cfg.AllowUncontained,
				InheritStderr:        r.cfg.DebugAgentStderr,
			}, r.logger)
			if err != nil {
				mu.Lock()
				failures = append(failures, Failure{Kind: FailureStartup, Seat: seat, Detail: err.Error()})
				mu.Unlock()
				r.logger.Debug().Err(err).Int("seat", seat).Msg("seat startup failed; seat marked unreachable")
				return nil
			}
			mu.Lock()
			handlers[seat] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	remaining := make([]time.Duration, n)
	for i := range remaining {
		remaining[i] = r.timeBudget
	}
	turn := make([]int, n)

	buf := make([]byte, gameapi.MaxPayloadBytes)

	for !game.IsFinished() && anyAlive(handlers) {
		seat := game.GetCurrentPlayerNumber()
		if seat < 0 || seat >= n || handlers[seat] == nil {
			if err := game.ApplyAction(seat, nil); err != nil {
				r.logger.Warn().Err(err).Int("seat", seat).Msg("game rejected a nil action for an absent seat")
			}
			continue
		}

		turn[seat]++
		maxDuration := minDuration(r.actionTimeout, remaining[seat])

		state := game.GetState().String()
		oversizedState := len(state) > gameapi.MaxPayloadBytes
		if oversizedState {
			// Hard cap per exchange: truncate rather than refuse to send,
			// but a state this large is a server-side bug, so the seat is
			// still failed and eliminated rather than left to guess at a
			// truncated, likely-unparsable state.
			state = state[:gameapi.MaxPayloadBytes]
		}

		start := r.clock.Now()
		n2, sendErr := handlers[seat].SendAndRecv([]byte(state), buf, maxDuration)
		elapsed := r.clock.Since(start)
		remaining[seat] = saturatingSub(remaining[seat], elapsed)

		if oversizedState {
			failures = append(failures, Failure{Kind: FailureNotAnAction, Seat: seat, Turn: turn[seat], Detail: "server state exceeded max payload size"})
			r.dropSeat(handlers, seat)
			_ = game.ApplyAction(seat, nil)
			continue
		}

		if sendErr != nil {
			r.recordTransportFailure(&failures, seat, turn[seat], maxDuration, sendErr)
			r.dropSeat(handlers, seat)
			_ = game.ApplyAction(seat, nil)
			continue
		}

		if n2 == 0 {
			failures = append(failures, Failure{Kind: FailureEmptyResponse, Seat: seat, Turn: turn[seat]})
			r.dropSeat(handlers, seat)
			_ = game.ApplyAction(seat, nil)
			continue
		}

		raw := buf[:n2]
		if !utf8.Valid(raw) {
			failures = append(failures, Failure{Kind: FailureNonUTF8, Seat: seat, Turn: turn[seat]})
			r.dropSeat(handlers, seat)
			_ = game.ApplyAction(seat, nil)
			continue
		}

		text := strings.TrimSpace(string(raw))
		action, err := game.ParseAction(text)
		if err != nil {
			failures = append(failures, Failure{Kind: FailureNotAnAction, Seat: seat, Turn: turn[seat], Detail: text})
			r.dropSeat(handlers, seat)
			_ = game.ApplyAction(seat, nil)
			continue
		}

		if err := game.ApplyAction(seat, action); err != nil {
			failures = append(failures, Failure{Kind: FailureActionRejected, Seat: seat, Turn: turn[seat], Detail: text})
			r.dropSeat(handlers, seat)
			continue
		}
	}

	for _, h := range handlers {
		if h != nil {
			h.Close()
		}
	}

	scores := make([]SeatScore, n)
	for seat := 0; seat < n; seat++ {
		scores[seat] = SeatScore{Agent: settings.Players[seat], Score: game.GetPlayerScore(seat)}
		settings.Players[seat].RecordMatch()
	}

	return Result{Scores: scores, Freed: settings.Slice, Errors: failures}, nil
}

// recordTransportFailure classifies a SendAndRecv error, applying the
// turn-budget suppression rule: a timeout is only reported when
// maxDuration (the tighter of action_timeout and the seat's remaining
// cumulative budget) is not itself the product of an already-exhausted
// budget.
func (r *Runner) recordTransportFailure(failures *[]Failure, seat, turn int, maxDuration time.Duration, err error) {
	if !isTimeout(err) {
		*failures = append(*failures, Failure{Kind: FailureEmptyResponse, Seat: seat, Turn: turn, Detail: err.Error()})
		return
	}
	threshold := r.actionTimeout
	if budgetTenth := r.timeBudget / 10; budgetTenth > threshold {
		threshold = budgetTenth
	}
	if maxDuration < threshold {
		// Legitimate cumulative-budget exhaustion: silent elimination.
		return
	}
	*failures = append(*failures, Failure{
		Kind: FailureResponseTimeout,
		Seat: seat,
		Turn: turn,
		Detail: fmt.Sprintf("%d", maxDuration.Milliseconds()),
	})
}

func (r *Runner) dropSeat(handlers []*clienthandler.Handler, seat int) {
	if handlers[seat] == nil {
		return
	}
	handlers[seat].Close()
	handlers[seat] = nil
}

func anyAlive(handlers []*clienthandler.Handler) bool {
	for _, h := range handlers {
		if h != nil {
			return true
		}
	}
	return false
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func saturatingSub(d, elapsed time.Duration) time.Duration {
	if elapsed >= d {
		return 0
	}
	return d - elapsed
}

// chunkCPUs splits cpus into contiguous groups of perAgent, one per seat.
// A short final remainder (fewer than perAgent CPUs left) is dropped: the
// scheduler only ever hands the runner a slice sized exactly
// cpusPerAgent*len(players), so this only matters for malformed input.
func chunkCPUs(cpus []int, perAgent int) [][]int {
	if perAgent <= 0 {
		perAgent = 1
	}
	var chunks [][]int
	for i := 0; i+perAgent <= len(cpus); i += perAgent {
		chunks = append(chunks, cpus[i:i+perAgent])
	}
	return chunks
}

// isTimeout reports whether err originates from a read/write deadline
// expiring, as opposed to a hard I/O failure (closed connection, reset).
func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
