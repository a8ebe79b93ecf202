// Package supervisor launches agent child processes inside an (optional)
// resource container — cgroup v2 memory/pid/cpuset limits plus CPU affinity
// on Linux — and guarantees teardown. It is the leaf of the engine: the
// client handler and match runner never talk to exec.Cmd or cgroups
// directly, only to the Handle this package returns.
package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LaunchSpec describes the command to run and the resource container to run
// it under.
type LaunchSpec struct {
	Command string
	Args    []string
	Env     []string // additional KEY=VALUE entries, appended to the inherited environment

	MaxMemoryBytes int64
	CPUs           []int // CPU indices this child is confined to

	// LogSink, when non-nil, receives every line of the child's stdout
	// and stderr, prefixed by stream name. When nil, stdout is discarded
	// and stderr's disposition is controlled by InheritStderr.
	LogSink io.Writer

	// InheritStderr connects the child's stderr to this process's, for
	// local debugging of a misbehaving agent (Configuration.DebugAgentStderr).
	// Ignored when LogSink is set.
	InheritStderr bool

	// AllowUncontained permits falling back to an uncontained launch when
	// no resource container can be created (non-Linux, or cgroup v2
	// unavailable). When false, Launch fails instead of degrading.
	AllowUncontained bool
}

// Supervisor mints Handles. One Supervisor is shared by every Client
// Handler in a process; its only mutable state is the atomic counter that
// keeps concurrently-created cgroup names collision-free.
type Supervisor struct {
	logger  zerolog.Logger
	prefix  string
	counter atomic.Int64
}

// New builds a Supervisor. prefix names the cgroup namespace segment (e.g.
// "agentarena"); it should be stable across a run and short.
func New(logger zerolog.Logger, prefix string) *Supervisor {
	return &Supervisor{
		logger: logger.With().Str("component", "supervisor").Logger(),
		prefix: prefix,
	}
}

// ErrUncontainedNotAllowed is returned by Launch when no resource container
// could be created and spec.AllowUncontained is false.
var ErrUncontainedNotAllowed = errors.New("supervisor: resource container unavailable and uncontained launch not permitted")

// Launch starts spec.Command under a resource container when one can be
// built, or without one when AllowUncontained is set. Placement of the
// freshly spawned child into the container is fail-closed: if it cannot be
// added, the child is killed immediately and Launch returns an error.
func (s *Supervisor) Launch(spec LaunchSpec) (*Handle, error) {
	name := fmt.Sprintf("%s_%d_%s", s.prefix, s.counter.Add(1), uuid.NewString()[:8])

	var container containerHandle
	var containerErr error
	if runtime.GOOS == "linux" {
		container, containerErr = newCgroupContainer(name, spec.MaxMemoryBytes, spec.CPUs)
	} else {
		containerErr = errUnsupportedPlatform
	}

	if containerErr != nil {
		if !spec.AllowUncontained {
			return nil, fmt.Errorf("%w: %v", ErrUncontainedNotAllowed, containerErr)
		}
		s.logger.Warn().Err(containerErr).Str("handle", name).Msg("launching without a resource container")
		container = nil
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdin = nil

	var stdout, stderr io.ReadCloser
	var err error
	stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	if spec.LogSink != nil {
		stderr, err = cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("supervisor: stderr pipe: %w", err)
		}
	} else if spec.InheritStderr {
		cmd.Stderr = os.Stderr
	}
	// else: stderr discarded (cmd.Stderr left nil)

	h := &Handle{
		ID:      name,
		cmd:     cmd,
		cgroup:  container,
		logger:  s.logger.With().Str("handle", name).Logger(),
		done:    make(chan struct{}),
		cpus:    append([]int(nil), spec.CPUs...),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: start %s: %w", spec.Command, err)
	}
	h.startTime = time.Now()

	if container != nil {
		if err := container.AddProcess(cmd.Process.Pid); err != nil {
			_ = cmd.Process.Kill()
			_ = container.Delete()
			return nil, fmt.Errorf("supervisor: add process to container (fail-closed, child killed): %w", err)
		}
	}
	// Best-effort affinity pinning: authoritative containment comes from
	// cpuset.cpus above when present; this pins the already-running child
	// as well, and is the only confinement available when uncontained.
	if len(spec.CPUs) > 0 {
		if err := setAffinity(cmd.Process.Pid, spec.CPUs); err != nil {
			h.logger.Debug().Err(err).Msg("cpu affinity pinning failed (non-fatal)")
		}
	}

	if stdout != nil {
		go h.readOutput("stdout", stdout, spec.LogSink)
	}
	if stderr != nil {
		go h.readOutput("stderr", stderr, spec.LogSink)
	}
	go h.monitor()

	runtime.SetFinalizer(h, func(leaked *Handle) {
		if !leaked.isCleanedUp() {
			leaked.logger.Error().Msg("supervisor handle garbage collected without Close: resource leak")
		}
	})

	return h, nil
}

var errUnsupportedPlatform = errors.New("cgroup v2 containment unavailable on this platform")

// containerHandle abstracts the resource container so Launch doesn't need
// Linux-specific types; the !linux build provides no constructor for it
// (newCgroupContainer always errors there), forcing the uncontained path.
type containerHandle interface {
	AddProcess(pid int) error
	Kill() error
	// Empty reports whether the container currently holds no processes.
	Empty() (bool, error)
	Delete() error
}

// Handle is a running, resource-contained (or explicitly uncontained) child
// process. The zero value is not usable; obtain one from Supervisor.Launch.
//
// Callers MUST `defer h.Close()`. Close is this package's Drop-equivalent:
// Go has no synchronous destructors, so the contract from the original
// design ("on cleanup failure, panic — a leaking cgroup degrades the host")
// is enforced on the explicit Close call instead of an implicit one. A
// finalizer is still registered as a best-effort backstop for handles that
// are dropped on the floor; it only logs, because a finalizer runs on an
// unrelated goroutine and panicking there would not be attributable to the
// leaking caller and could crash unrelated work.
type Handle struct {
	ID string

	cmd     *exec.Cmd
	cgroup  containerHandle
	logger  zerolog.Logger
	cpus    []int

	startTime time.Time
	endTime   time.Time

	mu        sync.Mutex
	done      chan struct{}
	exitErr   error
	cleanedUp bool
}

// IsAlive reports whether the child has not yet exited.
func (h *Handle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the child has exited and returns its exit error, if
// any.
func (h *Handle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

func (h *Handle) isCleanedUp() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cleanedUp
}

// TryKill signals the container (or the bare process) to terminate, then
// polls until empty or maxWait elapses. Cgroup removal failure is a warning,
// never an error: the match already completed correctly from the caller's
// perspective.
func (h *Handle) TryKill(maxWait time.Duration) error {
	h.mu.Lock()
	if h.cleanedUp {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	deadline := time.Now().Add(maxWait)

	if h.cgroup != nil {
		if err := h.cgroup.Kill(); err != nil {
			h.logger.Debug().Err(err).Msg("cgroup kill failed (process may have already exited)")
		}
		for time.Now().Before(deadline) {
			empty, err := h.cgroup.Empty()
			if err == nil && empty {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		if err := h.cgroup.Delete(); err != nil {
			h.logger.Warn().Err(err).Msg("cgroup cleanup failed; leaking cgroup on host")
		}
	} else {
		h.killUncontained(deadline)
	}

	select {
	case <-h.done:
	case <-time.After(time.Until(deadline)):
		h.mu.Lock()
		h.cleanedUp = true
		h.mu.Unlock()
		return fmt.Errorf("supervisor: %s did not exit within %s", h.ID, maxWait)
	}

	h.mu.Lock()
	h.cleanedUp = true
	h.mu.Unlock()
	return nil
}

func (h *Handle) killUncontained(deadline time.Time) {
	if h.cmd.Process == nil {
		return
	}
	if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
		if strings.Contains(err.Error(), "process already finished") {
			return
		}
	}
	select {
	case <-h.done:
		return
	case <-time.After(time.Until(deadline) / 2):
	}
	if err := h.cmd.Process.Kill(); err != nil && !strings.Contains(err.Error(), "process already finished") {
		h.logger.Debug().Err(err).Msg("kill failed")
	}
}

// Close performs TryKill with a short deadline and panics if cleanup did
// not complete: a leaking container degrades the host, and that is the
// single correctness signal loud enough to surface reliably.
func (h *Handle) Close() {
	if err := h.TryKill(2 * time.Second); err != nil {
		panic(fmt.Sprintf("supervisor: cleanup failed for %s: %v", h.ID, err))
	}
}

func (h *Handle) monitor() {
	defer close(h.done)
	err := h.cmd.Wait()

	h.mu.Lock()
	h.endTime = time.Now()
	h.exitErr = err
	h.mu.Unlock()

	if err == nil {
		h.logger.Debug().Dur("duration", time.Since(h.startTime)).Msg("agent process exited")
		return
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		s := exitErr.String()
		if s == "signal: killed" || s == "signal: terminated" || s == "signal: interrupt" {
			h.logger.Debug().Dur("duration", time.Since(h.startTime)).Msg("agent process terminated by signal")
			return
		}
	}
	h.logger.Debug().Err(err).Dur("duration", time.Since(h.startTime)).Msg("agent process exited with error")
}

func (h *Handle) readOutput(stream string, pipe io.Reader, sink io.Writer) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		if sink != nil {
			fmt.Fprintf(sink, "[%s:%s] %s\n", h.ID, stream, line)
		}
	}
}
