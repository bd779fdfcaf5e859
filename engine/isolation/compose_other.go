//go:build !linux

package isolation

import (
	"fmt"
	"syscall"
)

func (s *Sandbox) BuildCommand(cwd, shellCmd string) (name string, args []string, attr *syscall.SysProcAttr) {
	return "", nil, nil
}

func ExecChild(args []string) error {
	return fmt.Errorf("child-exec only supported on linux")
}
