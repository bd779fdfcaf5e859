//go:build !linux

package isolation

import "fmt"

// CGroup is unsupported outside linux.
type CGroup struct {
	MemDir, CPUDir string
}

func CreateCGroup(containerID string, memLimitBytes uint64, cpuLimit float64) (*CGroup, error) {
	return nil, fmt.Errorf("cgroup isolation only supported on linux")
}

func (c *CGroup) JoinSelf() error { return nil }
func (c *CGroup) Teardown()       {}
