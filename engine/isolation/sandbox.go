package isolation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Limits describes the per-request resource and namespace configuration
// applied in "lite" isolation mode.
type Limits struct {
	MemoryLimitBytes uint64
	CPULimit         float64 // fraction of one core, e.g. 1.0
	// DisablePIDIsolation skips the pid namespace. The Lean runner needs
	// to see host PID 1.
	DisablePIDIsolation bool
	// NoNetBridge skips veth/bridge wiring (Jupyter's netns_no_bridge mode)
	// while still isolating the network namespace.
	NoNetBridge bool
}

// Sandbox is a live "lite" isolation environment for one request: an
// overlay rootfs, a pair of cgroups, and a network namespace leased from a
// pool. ContainerID identifies the cgroup directories for the re-exec'd
// child to self-join.
type Sandbox struct {
	ContainerID string
	Overlay     *Overlay
	CGroup      *CGroup
	NetNS       *NetNS
	limits      Limits
}

// Prepare builds a full Sandbox: overlay, cgroups, and a netns leased from
// pool. On any failure, everything already built is torn down.
func Prepare(ctx context.Context, scratchBase string, pool *SubnetPool, limits Limits) (*Sandbox, error) {
	subnet, ok := pool.Acquire()
	if !ok {
		return nil, fmt.Errorf("subnet pool exhausted")
	}
	containerID := uuid.NewString()
	s := &Sandbox{ContainerID: containerID, limits: limits}

	overlay, err := BuildOverlay(scratchBase)
	if err != nil {
		pool.Release(subnet)
		return nil, fmt.Errorf("building overlay: %w", err)
	}
	s.Overlay = overlay

	cg, err := CreateCGroup(containerID, limits.MemoryLimitBytes, limits.CPULimit)
	if err != nil {
		overlay.Teardown()
		pool.Release(subnet)
		return nil, fmt.Errorf("creating cgroup: %w", err)
	}
	s.CGroup = cg

	ns, err := CreateNetNS(ctx, subnet, limits.NoNetBridge)
	if err != nil {
		cg.Teardown()
		overlay.Teardown()
		pool.Release(subnet)
		return nil, fmt.Errorf("creating netns: %w", err)
	}
	s.NetNS = ns
	return s, nil
}

// Teardown releases every resource the Sandbox holds. Cgroup teardown (task
// kill + rmdir) is scheduled on its own goroutine so it never blocks the
// caller's return; the subnet is always returned to pool regardless of
// netns deletion errors.
func (s *Sandbox) Teardown(ctx context.Context, pool *SubnetPool) {
	if s.NetNS != nil {
		_ = s.NetNS.Delete(ctx)
		pool.Release(s.NetNS.Subnet)
	}
	if s.Overlay != nil {
		s.Overlay.Teardown()
	}
	if s.CGroup != nil {
		go s.CGroup.Teardown()
	}
}
