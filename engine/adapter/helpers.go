package adapter

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

func readDirSafe(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

var (
	pythonEnvOnce sync.Once
	pythonEnvPath string
)

// pythonRuntimeEnv prepends the sandbox-runtime conda environment's bin
// directory to PATH, discovered once at process startup. Any other sandbox
// env already on PATH is filtered so the right interpreter always wins.
func pythonRuntimeEnv(depsRoot string) []string {
	pythonEnvOnce.Do(func() {
		envDir := filepath.Join(depsRoot, "conda", "envs", "sandbox-runtime", "bin")
		if _, err := os.Stat(envDir); err == nil {
			pythonEnvPath = envDir
		}
	})
	if pythonEnvPath == "" {
		return nil
	}
	var filtered []string
	for _, p := range strings.Split(os.Getenv("PATH"), ":") {
		if !strings.Contains(p, "/envs/sandbox/") {
			filtered = append(filtered, p)
		}
	}
	return []string{"PATH=" + pythonEnvPath + ":" + strings.Join(filtered, ":")}
}

var (
	cxxFlagsOnce   sync.Once
	cxxFlagsResult []string
)

// probeCXXFlags intersects the optional flag set {-lcrypto,-lssl,-lpthread}
// with whatever the installed g++ actually links, probed once at process
// startup against a trivial program.
func probeCXXFlags() []string {
	cxxFlagsOnce.Do(func() {
		candidates := []string{"-lcrypto", "-lssl", "-lpthread"}
		dir, err := os.MkdirTemp("", "cxxprobe-")
		if err != nil {
			return
		}
		defer os.RemoveAll(dir)
		src := filepath.Join(dir, "probe.cpp")
		if err := os.WriteFile(src, []byte("int main() {return 0;}"), 0644); err != nil {
			return
		}
		for _, flag := range candidates {
			cmd := exec.Command("g++", src, "-o", filepath.Join(dir, "probe"), flag)
			if err := cmd.Run(); err == nil {
				cxxFlagsResult = append(cxxFlagsResult, flag)
			}
		}
	})
	return cxxFlagsResult
}

// ErrScalaObjectNameMissing rejects a Scala submission with no
// discoverable `object X` name.
var ErrScalaObjectNameMissing = fmt.Errorf("scala object name not found")
