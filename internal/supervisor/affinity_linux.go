//go:build linux

package supervisor

import "golang.org/x/sys/unix"

// setAffinity pins pid to the given CPU indices. Best-effort: cpuset.cpus on
// the container (when present) is the authoritative confinement; Launch
// calls this after the child has started and been placed in its container,
// and it is the only confinement available in uncontained mode.
func setAffinity(pid int, cpus []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(pid, &set)
}
