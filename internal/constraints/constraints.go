// Package constraints models the resource pool an evaluation run is allowed
// to spend: total and per-agent RAM, the set of CPU indices available, and
// the two time budgets (per-turn and cumulative per-match). It is built once
// per evaluation, then conserved: per-match slices are carved off with
// TryTake and returned with Add, and the total never drifts.
package constraints

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Environment variable names recognized by FromEnv.
const (
	EnvMaxTotalRAM    = "MAX_TOTAL_RAM_MB"
	EnvRAMPerAgent    = "RAM_PER_AGENT_MB"
	EnvCPUList        = "CPU_LIST"
	EnvTotalCPUCount  = "TOTAL_CPU_COUNT"
	EnvCPUsPerAgent   = "CPUS_PER_AGENT"
	EnvTimeBudgetSecs = "TIME_BUDGET_SECS"
	EnvActionTimeoutMS = "ACTION_TIMEOUT_MS"
)

// Constraints is the global resource pool. The zero value is not usable;
// construct with Builder.Build.
type Constraints struct {
	totalRAM     int64 // bytes, remaining
	agentRAM     int64 // bytes, per agent
	cpus         map[int]struct{}
	cpusPerAgent int
	timeBudget   time.Duration
	actionTime   time.Duration
}

// Slice is a carved-off portion of the pool, consumed by exactly one match
// and returned verbatim (same CPU set, same byte count) at match end.
type Slice struct {
	CPUs    []int
	RAMBytes int64
}

// AgentRAMBytes, CPUsPerAgent, TimeBudget, and ActionTimeout expose the immutable per-agent sizing the rest of the system needs when
// carving per-seat sub-slices out of a Slice (see internal/match).
func (c *Constraints) AgentRAMBytes() int64        { return c.agentRAM }
func (c *Constraints) CPUsPerAgent() int            { return c.cpusPerAgent }
func (c *Constraints) TimeBudget() time.Duration    { return c.timeBudget }
func (c *Constraints) ActionTimeout() time.Duration { return c.actionTime }

// TryTake attempts to carve `cpuCount` CPUs and `ramBytes` bytes off the
// pool. Returns ok=false (pool left untouched) if either resource is
// unavailable.
func (c *Constraints) TryTake(cpuCount int, ramBytes int64) (Slice, bool) {
	if int64(ramBytes) > c.totalRAM || len(c.cpus) < cpuCount {
		return Slice{}, false
	}
	taken := make([]int, 0, cpuCount)
	for cpu := range c.cpus {
		if len(taken) == cpuCount {
			break
		}
		taken = append(taken, cpu)
	}
	for _, cpu := range taken {
		delete(c.cpus, cpu)
	}
	c.totalRAM -= ramBytes
	return Slice{CPUs: taken, RAMBytes: ramBytes}, true
}

// Add returns a previously taken slice to the pool (resource conservation:
// every TryTake is eventually matched by exactly one Add of the same
// shape).
func (c *Constraints) Add(s Slice) {
	for _, cpu := range s.CPUs {
		c.cpus[cpu] = struct{}{}
	}
	c.totalRAM += s.RAMBytes
}

// AvailableCPUCount and AvailableRAMBytes report the pool's current free
// capacity, used by tests and by the self-test command to check that every
// resource was returned to the pool. The scheduler sizes per-match slices
// from CPUsPerAgent and AgentRAMBytes instead.
func (c *Constraints) AvailableCPUCount() int   { return len(c.cpus) }
func (c *Constraints) AvailableRAMBytes() int64 { return c.totalRAM }

// Builder assembles a Constraints with defaults applied lazily in Build,
// mirroring the original Rust ConstraintsBuilder's with_* chain.
type Builder struct {
	maxTotalRAMBytes int64
	ramPerAgentBytes int64
	cpuList          map[int]struct{}
	totalCPUCount    int
	cpusPerAgent     int
	timeBudget       time.Duration
	actionTimeout    time.Duration

	haveRAM, haveAgentRAM, haveCPUList, haveCPUCount bool
	haveCPUsPerAgent, haveTimeBudget, haveActionTimeout bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithMaxTotalRAMBytes(n int64) *Builder {
	b.maxTotalRAMBytes, b.haveRAM = n, true
	return b
}

func (b *Builder) WithRAMPerAgentBytes(n int64) *Builder {
	b.ramPerAgentBytes, b.haveAgentRAM = n, true
	return b
}

func (b *Builder) WithCPUList(cpus map[int]struct{}) *Builder {
	b.cpuList, b.haveCPUList = cpus, true
	return b
}

func (b *Builder) WithTotalCPUCount(n int) *Builder {
	b.totalCPUCount, b.haveCPUCount = n, true
	return b
}

func (b *Builder) WithCPUsPerAgent(n int) *Builder {
	b.cpusPerAgent, b.haveCPUsPerAgent = n, true
	return b
}

func (b *Builder) WithTimeBudget(d time.Duration) *Builder {
	b.timeBudget, b.haveTimeBudget = d, true
	return b
}

func (b *Builder) WithActionTimeout(d time.Duration) *Builder {
	b.actionTimeout, b.haveActionTimeout = d, true
	return b
}

// FromEnv layers environment overrides on top of a fresh Builder. Unset
// variables leave the corresponding field for Build's defaulting.
func FromEnv() (*Builder, error) {
	b := NewBuilder()

	if v := os.Getenv(EnvMaxTotalRAM); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxTotalRAM, err)
		}
		b.WithMaxTotalRAMBytes(mb * 1024 * 1024)
	}
	if v := os.Getenv(EnvRAMPerAgent); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvRAMPerAgent, err)
		}
		b.WithRAMPerAgentBytes(mb * 1024 * 1024)
	}
	if v := os.Getenv(EnvCPUList); v != "" {
		cpus, err := ParseCPUList(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCPUList, err)
		}
		b.WithCPUList(cpus)
	}
	if v := os.Getenv(EnvTotalCPUCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTotalCPUCount, err)
		}
		b.WithTotalCPUCount(n)
	}
	if v := os.Getenv(EnvCPUsPerAgent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCPUsPerAgent, err)
		}
		b.WithCPUsPerAgent(n)
	}
	if v := os.Getenv(EnvTimeBudgetSecs); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeBudgetSecs, err)
		}
		b.WithTimeBudget(time.Duration(secs * float64(time.Second)))
	}
	if v := os.Getenv(EnvActionTimeoutMS); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvActionTimeoutMS, err)
		}
		b.WithActionTimeout(time.Duration(ms) * time.Millisecond)
	}

	return b, nil
}

// Build applies defaults for anything not explicitly set and validates the
// invariants: total_ram >= agent_ram, |cpus| >= cpus_per_agent.
func (b *Builder) Build() (*Constraints, error) {
	cpusPerAgent := b.cpusPerAgent
	if !b.haveCPUsPerAgent || cpusPerAgent <= 0 {
		cpusPerAgent = 1
	}

	cpus := b.cpuList
	if !b.haveCPUList || len(cpus) == 0 {
		n := b.totalCPUCount
		if !b.haveCPUCount || n <= 0 {
			n = runtime.NumCPU()
		}
		cpus = make(map[int]struct{}, n)
		for i := 0; i < n; i++ {
			cpus[i] = struct{}{}
		}
	}

	totalRAM := b.maxTotalRAMBytes
	if !b.haveRAM || totalRAM <= 0 {
		totalRAM = availableMemoryBytes()
	}

	agentRAM := b.ramPerAgentBytes
	if !b.haveAgentRAM || agentRAM <= 0 {
		groups := len(cpus) / cpusPerAgent
		if groups <= 0 {
			groups = 1
		}
		agentRAM = totalRAM / int64(groups)
	}

	if agentRAM > totalRAM {
		return nil, fmt.Errorf("constraints: agent_ram (%d bytes) exceeds total_ram (%d bytes)", agentRAM, totalRAM)
	}
	if len(cpus) < cpusPerAgent {
		return nil, fmt.Errorf("constraints: only %d CPUs available, need at least %d per agent", len(cpus), cpusPerAgent)
	}

	timeBudget := b.timeBudget
	if !b.haveTimeBudget {
		timeBudget = time.Duration(1<<63 - 1)
	}
	actionTimeout := b.actionTimeout
	if !b.haveActionTimeout {
		actionTimeout = time.Duration(1<<63 - 1)
	}

	cpuSet := make(map[int]struct{}, len(cpus))
	for cpu := range cpus {
		cpuSet[cpu] = struct{}{}
	}

	return &Constraints{
		totalRAM:     totalRAM,
		agentRAM:     agentRAM,
		cpus:         cpuSet,
		cpusPerAgent: cpusPerAgent,
		timeBudget:   timeBudget,
		actionTime:   actionTimeout,
	}, nil
}

// ParseCPUList parses the "0-3,6" syntax: comma-separated entries, each
// either a bare index or an inclusive range (high-low order accepted).
func ParseCPUList(s string) (map[int]struct{}, error) {
	out := make(map[int]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", part, err)
			}
			hiN, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", part, err)
			}
			if loN > hiN {
				loN, hiN = hiN, loN
			}
			for i := loN; i <= hiN; i++ {
				out[i] = struct{}{}
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad cpu index %q: %w", part, err)
		}
		out[n] = struct{}{}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty cpu list")
	}
	return out, nil
}

// availableMemoryBytes reads /proc/meminfo's MemAvailable on Linux. There is
// no system-memory-query library anywhere in the retrieved example pack
// (sysinfo-equivalents are absent from every go.mod seen), so this one field
// is read directly rather than importing an ungrounded dependency; see
// DESIGN.md. On non-Linux or read failure it falls back to a conservative
// 1 GiB so Build never fails solely because this probe is unavailable.
func availableMemoryBytes() int64 {
	const fallback = int64(1) << 30
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return fallback
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fallback
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fallback
		}
		return kb * 1024
	}
	return fallback
}
