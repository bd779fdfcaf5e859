//go:build linux

package isolation

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CGroup is a pair of live memory+cpu cgroup directories for one request.
type CGroup struct {
	MemDir string
	CPUDir string
}

// CreateCGroup creates memory and cpu cgroups under /sys/fs/cgroup, bounding
// memory.limit_in_bytes and cpu.cfs_quota_us over a 100ms period.
func CreateCGroup(containerID string, memLimitBytes uint64, cpuLimit float64) (*CGroup, error) {
	memDir := filepath.Join("/sys/fs/cgroup/memory/sandboxd", containerID)
	if err := writeSettings(memDir,
		[]string{"memory.limit_in_bytes", strconv.FormatUint(memLimitBytes, 10)},
	); err != nil {
		return nil, err
	}
	const period = 100000
	quota := uint64(float64(period) * cpuLimit)
	cpuDir := filepath.Join("/sys/fs/cgroup/cpu/sandboxd", containerID)
	if err := writeSettings(cpuDir,
		[]string{"cpu.cfs_period_us", strconv.FormatUint(period, 10)},
		[]string{"cpu.cfs_quota_us", strconv.FormatUint(quota, 10)},
	); err != nil {
		os.RemoveAll(memDir)
		return nil, err
	}
	return &CGroup{MemDir: memDir, CPUDir: cpuDir}, nil
}

func writeSettings(dir string, settings ...[]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cgroup dir %v: %w", dir, err)
	}
	for _, s := range settings {
		if err := os.WriteFile(filepath.Join(dir, s[0]), []byte(s[1]), 0644); err != nil {
			return fmt.Errorf("writing %v: %w", filepath.Join(dir, s[0]), err)
		}
	}
	return nil
}

// JoinSelf writes the calling process's own pid into both cgroups' task
// lists. Called from inside the re-exec'd child before it execs the
// workload, so no external cgexec binary is needed.
func (c *CGroup) JoinSelf() error {
	for _, dir := range []string{c.MemDir, c.CPUDir} {
		if err := os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte("0"), 0644); err != nil {
			return fmt.Errorf("joining cgroup %v: %w", dir, err)
		}
	}
	return nil
}

// Teardown kills every PID still listed in the cgroups' task files, then
// removes the directories. Run asynchronously by the caller so it never
// blocks the request's return.
func (c *CGroup) Teardown() {
	for _, dir := range []string{c.MemDir, c.CPUDir} {
		killCGroupTasks(dir)
		_ = os.RemoveAll(dir)
	}
}

func killCGroupTasks(dir string) {
	data, err := os.ReadFile(filepath.Join(dir, "cgroup.procs"))
	if err != nil {
		return
	}
	pids := parsePIDList(data)
	for _, pid := range pids {
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		for i := 0; i < 50 && pidAlive(pid); i++ {
			_ = proc.Kill()
			time.Sleep(2 * time.Millisecond)
		}
	}
}

func pidAlive(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	return err == nil
}

func parsePIDList(data []byte) []int {
	var pids []int
	cur := 0
	has := false
	for _, b := range data {
		if b >= '0' && b <= '9' {
			cur = cur*10 + int(b-'0')
			has = true
			continue
		}
		if has {
			pids = append(pids, cur)
		}
		cur, has = 0, false
	}
	if has {
		pids = append(pids, cur)
	}
	return pids
}
