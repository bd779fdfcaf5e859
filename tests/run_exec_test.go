//go:build linux
// +build linux

package tests

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sandboxd/engine"
)

// TestRunExec builds the real binary and drives the run subcommand end to
// end, the way an operator would from a shell.
func TestRunExec(t *testing.T) {
	exe := buildBinary(t)

	// Simple bash echo round trip
	res := execRun(t, exe, "bash", "echo -n hello && echo -n err 1>&2")
	require.Equal(t, engine.RunSuccess, res.Status)
	require.NotNil(t, res.RunOutcome)
	require.Equal(t, engine.StatusFinished, res.RunOutcome.Status)
	require.Equal(t, 0, *res.RunOutcome.ReturnCode)
	require.Equal(t, "hello", res.RunOutcome.Stdout)
	require.Equal(t, "err", res.RunOutcome.Stderr)

	// Non-zero exit is Failed, not an error
	res = execRun(t, exe, "bash", "exit 3")
	require.Equal(t, engine.RunFailed, res.Status)
	require.Equal(t, 3, *res.RunOutcome.ReturnCode)

	// A sleep past the deadline reports TimeLimitExceeded
	res = execRun(t, exe, "bash", "sleep 5", "--run-timeout", "0.2")
	require.Equal(t, engine.RunFailed, res.Status)
	require.Equal(t, engine.StatusTimeLimitExceeded, res.RunOutcome.Status)
	require.LessOrEqual(t, res.RunOutcome.ExecutionTime, 1.0)
}

type runOutput struct {
	Status engine.RunStatus `json:"status"`
	engine.RunResult
}

func buildBinary(t *testing.T) string {
	_, currFile, _, _ := runtime.Caller(0)
	modDir := filepath.Join(filepath.Dir(currFile), "..")
	tmpDir := t.TempDir()
	exe := filepath.Join(tmpDir, "sandboxd")
	buildCmd := exec.Command("go", "build", "-o", exe, ".")
	buildCmd.Dir = modDir
	b, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "build output:\n%s", b)
	return exe
}

func execRun(t *testing.T, exe, language, code string, extraArgs ...string) runOutput {
	args := append([]string{"run", "--language", language, "--config-dir", t.TempDir()}, extraArgs...)
	cmd := exec.Command(exe, args...)
	cmd.Stdin = strings.NewReader(code)
	cmd.Env = append(os.Environ(), "SANDBOX_CONFIG=missing")
	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		require.NoError(t, err, fmt.Sprintf("stderr:\n%s", stderr))
	}
	var res runOutput
	require.NoError(t, json.Unmarshal(out, &res))
	return res
}
