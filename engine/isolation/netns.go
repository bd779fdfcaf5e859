package isolation

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// NetNS is a live network namespace leased from a subnet.
type NetNS struct {
	Name   string
	Subnet string
	bridge bool
}

// CreateNetNS creates a network namespace and, unless noBridge is set, wires
// a veth pair into it: the host end gets the subnet's .1 gateway address,
// the namespace end gets .2 with a default route via the gateway. No bridge
// device and no NAT rules are set up here. noBridge is used for the Jupyter
// runner so the kernel cannot reach host loopback. The namespace is wired
// with direct `ip` invocations rather than a helper script.
func CreateNetNS(ctx context.Context, subnet string, noBridge bool) (*NetNS, error) {
	name := "sbx-" + uuid.NewString()[:12]
	if err := run(ctx, "ip", "netns", "add", name); err != nil {
		return nil, fmt.Errorf("creating netns: %w", err)
	}
	ns := &NetNS{Name: name, Subnet: subnet, bridge: !noBridge}
	if err := run(ctx, "ip", "netns", "exec", name, "ip", "link", "set", "lo", "up"); err != nil {
		_ = ns.Delete(ctx)
		return nil, fmt.Errorf("bringing up loopback: %w", err)
	}
	if noBridge {
		return ns, nil
	}
	veth, peer := "v"+name[:8]+"a", "v"+name[:8]+"b"
	gateway, host := splitSubnet(subnet)
	steps := [][]string{
		{"ip", "link", "add", veth, "type", "veth", "peer", "name", peer},
		{"ip", "link", "set", peer, "netns", name},
		{"ip", "addr", "add", gateway + "/24", "dev", veth},
		{"ip", "link", "set", veth, "up"},
		{"ip", "netns", "exec", name, "ip", "addr", "add", host + "/24", "dev", peer},
		{"ip", "netns", "exec", name, "ip", "link", "set", peer, "up"},
		{"ip", "netns", "exec", name, "ip", "route", "add", "default", "via", gateway},
	}
	for _, args := range steps {
		if err := run(ctx, args[0], args[1:]...); err != nil {
			_ = ns.Delete(ctx)
			return nil, fmt.Errorf("wiring veth for %v: %w", name, err)
		}
	}
	return ns, nil
}

// Delete tears down the namespace. Errors are returned but the caller must
// still return the subnet to the pool regardless.
func (n *NetNS) Delete(ctx context.Context) error {
	return run(ctx, "ip", "netns", "delete", n.Name)
}

func splitSubnet(cidr string) (gateway, host string) {
	base := strings.TrimSuffix(cidr, "/24")
	parts := strings.Split(base, ".")
	if len(parts) != 4 {
		return "172.31.0.1", "172.31.0.2"
	}
	gateway = fmt.Sprintf("%s.%s.%s.1", parts[0], parts[1], parts[2])
	host = fmt.Sprintf("%s.%s.%s.2", parts[0], parts[1], parts[2])
	return
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, out)
	}
	return nil
}
