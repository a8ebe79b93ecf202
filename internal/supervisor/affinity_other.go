//go:build !linux

package supervisor

// setAffinity is a no-op off Linux; there is no portable affinity API and
// the uncontained fallback enforces only timeouts, per the documented
// platform strategy.
func setAffinity(pid int, cpus []int) error {
	return nil
}
