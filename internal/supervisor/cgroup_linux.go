//go:build linux

package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	cgroup2 "github.com/containerd/cgroups/v3/cgroup2"
)

// pidsMax is the fixed ceiling on the number of tasks a single agent's
// cgroup may hold, matching the documented "fixed ceiling (e.g. 100)".
const pidsMax = 100

type cgroupContainer struct {
	mgr *cgroup2.Manager
}

// newCgroupContainer creates a uniquely-named cgroup under the current
// user's slice and applies memory.max, pids.max, and cpuset.cpus. Grounded
// on the original cgroup-manager crate's create_cgroup/LimitedProcess path:
// user.slice/user-<uid>.slice/user@<uid>.service/<name>.
func newCgroupContainer(name string, maxMemoryBytes int64, cpus []int) (containerHandle, error) {
	uid := os.Getuid()
	group := fmt.Sprintf("/user.slice/user-%d.slice/user@%d.service/%s", uid, uid, name)

	resources := &cgroup2.Resources{
		Pids: &cgroup2.Pids{Max: pidsMax},
	}
	if maxMemoryBytes > 0 {
		resources.Memory = &cgroup2.Memory{Max: &maxMemoryBytes}
	}
	if len(cpus) > 0 {
		resources.CPU = &cgroup2.CPU{Cpus: cpuListString(cpus)}
	}

	mgr, err := cgroup2.NewManager("/sys/fs/cgroup", group, resources)
	if err != nil {
		return nil, fmt.Errorf("cgroup2: create %s: %w", group, err)
	}
	return &cgroupContainer{mgr: mgr}, nil
}

func (c *cgroupContainer) AddProcess(pid int) error {
	return c.mgr.AddProc(uint64(pid))
}

func (c *cgroupContainer) Kill() error {
	return c.mgr.Kill()
}

func (c *cgroupContainer) Empty() (bool, error) {
	procs, err := c.mgr.Procs(true)
	if err != nil {
		return false, err
	}
	return len(procs) == 0, nil
}

func (c *cgroupContainer) Delete() error {
	return c.mgr.Delete()
}

func cpuListString(cpus []int) string {
	parts := make([]string, len(cpus))
	for i, c := range cpus {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
