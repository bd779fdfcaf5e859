//go:build linux

package isolation

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// childArgs is the payload passed to the re-exec'd child-exec entrypoint.
type childArgs struct {
	ContainerID string `json:"container_id"`
}

// BuildCommand composes the "lite" command prefix: join the leased netns,
// then re-exec self into new uts/ipc/user/mount (and, unless disabled, pid)
// namespaces, self-join the cgroups, pivot_root into the overlay, and
// finally run "bash -c '<cd cwd && cmd>'".
func (s *Sandbox) BuildCommand(cwd, shellCmd string) (name string, args []string, attr *syscall.SysProcAttr) {
	payload, _ := json.Marshal(childArgs{ContainerID: s.ContainerID})
	innerArgs := []string{
		"child-exec", string(payload), s.Overlay.Root,
		"bash", "-c", fmt.Sprintf("cd %s && %s", cwd, shellCmd),
	}
	args = append([]string{"netns", "exec", s.NetNS.Name, "/proc/self/exe"}, innerArgs...)

	attr = &syscall.SysProcAttr{
		Cloneflags:  syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC | syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS,
		UidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getuid(), Size: 1}},
		GidMappings: []syscall.SysProcIDMap{{ContainerID: 0, HostID: os.Getgid(), Size: 1}},
	}
	if !s.limits.DisablePIDIsolation {
		attr.Cloneflags |= syscall.CLONE_NEWPID
	}
	return "ip", args, attr
}

// ExecChild is the entrypoint for the "child-exec" CLI command: join the
// cgroups named by args[0]'s JSON payload, pivot_root into args[1], then
// exec args[2:]. Only returns a nil error on a zero exit code; otherwise the
// error may be *exec.ExitError for a completed-but-nonzero child.
func ExecChild(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("invalid child-exec arg count")
	}
	var ca childArgs
	if err := json.Unmarshal([]byte(args[0]), &ca); err != nil {
		return fmt.Errorf("invalid child-exec payload: %w", err)
	}
	if ca.ContainerID != "" {
		cg := &CGroup{
			MemDir: filepath.Join("/sys/fs/cgroup/memory/sandboxd", ca.ContainerID),
			CPUDir: filepath.Join("/sys/fs/cgroup/cpu/sandboxd", ca.ContainerID),
		}
		if err := cg.JoinSelf(); err != nil {
			return err
		}
	}
	if root := args[1]; root != "" {
		if err := pivotRoot(root); err != nil {
			return err
		}
	}
	cmd := exec.Command(args[2], args[3:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// pivotRoot swaps the process root to target and detaches the old root.
func pivotRoot(target string) error {
	pivotOld := filepath.Join(target, ".pivot_old")
	if err := os.MkdirAll(pivotOld, 0755); err != nil {
		return fmt.Errorf("creating pivot old dir: %w", err)
	}
	if err := syscall.Mount(target, target, "", syscall.MS_BIND|syscall.MS_REC, ""); err != nil {
		return fmt.Errorf("bind-mounting root: %w", err)
	}
	if err := syscall.PivotRoot(target, pivotOld); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("chdir to new root: %w", err)
	}
	if err := syscall.Unmount("/.pivot_old", syscall.MNT_DETACH); err != nil {
		return fmt.Errorf("unmounting old root: %w", err)
	}
	return os.RemoveAll("/.pivot_old")
}
