//go:build linux

package isolation

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Overlay is an ephemeral overlayfs rootfs: a tmpfs carries upper/work, the
// host root is the lowerdir, and Root is the merged mountpoint.
type Overlay struct {
	Scratch string // tmpfs mountpoint holding upper/work
	Root    string // merged overlay mountpoint
}

// BuildOverlay mounts a fresh overlay rooted at the host filesystem and
// populates the bind mounts/copies a workload needs (/proc, /sys, /dev,
// /etc/hosts, /etc/resolv.conf).
func BuildOverlay(scratchBase string) (*Overlay, error) {
	scratch, err := os.MkdirTemp(scratchBase, "sandboxd-overlay-")
	if err != nil {
		return nil, fmt.Errorf("creating overlay scratch dir: %w", err)
	}
	if err := unix.Mount("tmpfs", scratch, "tmpfs", 0, "size=512m"); err != nil {
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("mounting tmpfs: %w", err)
	}
	upper := filepath.Join(scratch, "upper")
	work := filepath.Join(scratch, "work")
	root := filepath.Join(scratch, "merged")
	for _, d := range []string{upper, work, root} {
		if err := os.MkdirAll(d, 0755); err != nil {
			unix.Unmount(scratch, 0)
			os.RemoveAll(scratch)
			return nil, fmt.Errorf("creating overlay subdir %v: %w", d, err)
		}
	}
	opts := fmt.Sprintf("lowerdir=/,upperdir=%s,workdir=%s", upper, work)
	if err := unix.Mount("overlay", root, "overlay", 0, opts); err != nil {
		unix.Unmount(scratch, 0)
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("mounting overlay: %w", err)
	}
	o := &Overlay{Scratch: scratch, Root: root}
	if err := o.populate(); err != nil {
		o.Teardown()
		return nil, err
	}
	return o, nil
}

func (o *Overlay) populate() error {
	procDir := filepath.Join(o.Root, "proc")
	sysDir := filepath.Join(o.Root, "sys")
	devDir := filepath.Join(o.Root, "dev")
	for _, d := range []string{procDir, sysDir, devDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating %v: %w", d, err)
		}
	}
	if err := unix.Mount("proc", procDir, "proc", 0, ""); err != nil {
		return fmt.Errorf("mounting proc: %w", err)
	}
	if err := unix.Mount("sysfs", sysDir, "sysfs", 0, ""); err != nil {
		return fmt.Errorf("mounting sysfs: %w", err)
	}
	if err := unix.Mount("/dev", devDir, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind-mounting dev: %w", err)
	}
	for _, f := range []string{"/etc/hosts", "/etc/resolv.conf"} {
		if err := copyInto(f, filepath.Join(o.Root, f)); err != nil {
			return fmt.Errorf("copying %v: %w", f, err)
		}
	}
	return nil
}

func copyInto(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		// Host may not have resolv.conf/hosts in minimal environments; not
		// fatal to the sandbox contract.
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// Teardown unmounts everything in reverse order. Each unmount is attempted
// independently so one failure never skips the rest.
func (o *Overlay) Teardown() {
	for _, d := range []string{
		filepath.Join(o.Root, "dev"),
		filepath.Join(o.Root, "sys"),
		filepath.Join(o.Root, "proc"),
		o.Root,
		o.Scratch,
	} {
		_ = unix.Unmount(d, unix.MNT_DETACH)
	}
	_ = os.RemoveAll(o.Scratch)
}
