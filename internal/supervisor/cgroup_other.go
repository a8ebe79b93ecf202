//go:build !linux

package supervisor

// newCgroupContainer never succeeds off Linux; Launch falls back to the
// uncontained path when AllowUncontained permits it.
func newCgroupContainer(name string, maxMemoryBytes int64, cpus []int) (containerHandle, error) {
	return nil, errUnsupportedPlatform
}
