// Package runner implements the language-agnostic command execution
// primitive: spawn a process with timeout/stdin/env/preexec, capture bounded
// stdout/stderr, and guarantee process-tree cleanup on every exit path.
package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sandboxd/engine"
)

// Options configure a single Runner.Run invocation.
type Options struct {
	// Command to run. If Shell is set, Command is passed to /bin/bash -c;
	// otherwise Command/Args are exec'd directly.
	Command string
	Args    []string
	Shell   bool

	Timeout time.Duration
	Stdin   string
	Dir     string
	Env     []string

	// SetUID, when > 0, is the uid the child runs as. Run applies it via
	// SysProcAttr.Credential before starting the process.
	SetUID int

	// SysProcAttr, when set, is used verbatim (isolation composes namespace
	// clone flags here); SetUID is still layered on top via Credential.
	SysProcAttr *syscall.SysProcAttr

	CleanupProcess bool
	RestoreBash    bool
}

// Runner executes commands and enforces cleanup. The zero value is usable.
type Runner struct {
	Logger zerolog.Logger

	mu       sync.Mutex
	selfPIDs map[int]struct{}
}

// New creates a Runner bound to the given logger.
func New(logger zerolog.Logger) *Runner {
	return &Runner{Logger: logger, selfPIDs: map[int]struct{}{}}
}

// Run spawns the command described by opts, waits up to opts.Timeout, and
// always performs the full cleanup chain before returning: kill the process
// tree, optionally sweep orphan workload processes, optionally restore
// /bin/bash integrity.
func (r *Runner) Run(ctx context.Context, opts Options) engine.CommandOutcome {
	var cmd *exec.Cmd
	if opts.Shell {
		cmd = exec.CommandContext(ctx, "/bin/bash", "-c", opts.Command)
	} else {
		cmd = exec.CommandContext(ctx, opts.Command, opts.Args...)
	}
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	if opts.SysProcAttr != nil {
		cmd.SysProcAttr = opts.SysProcAttr
	}
	applyCredential(cmd, opts.SetUID)

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return engine.CommandOutcome{Status: engine.StatusError, Stderr: "stdin pipe: " + err.Error()}
	}
	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return engine.CommandOutcome{Status: engine.StatusError, Stderr: "start: " + err.Error()}
	}
	r.trackPID(cmd.Process.Pid)
	defer r.untrackPID(cmd.Process.Pid)

	if opts.Stdin != "" {
		_, _ = io.WriteString(stdinPipe, opts.Stdin)
	}
	_ = stdinPipe.Close()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var outcome engine.CommandOutcome
	select {
	case err := <-waitCh:
		elapsed := time.Since(start).Seconds()
		code := exitCode(cmd, err)
		outcome = engine.CommandOutcome{
			Status:        engine.StatusFinished,
			ExecutionTime: elapsed,
			ReturnCode:    &code,
			Stdout:        stdout.String(),
			Stderr:        stderr.String(),
		}
	case <-timeoutCh:
		outcome = engine.CommandOutcome{
			Status:        engine.StatusTimeLimitExceeded,
			ExecutionTime: time.Since(start).Seconds(),
			Stdout:        stdout.String(),
			Stderr:        stderr.String(),
		}
	}

	if cmd.Process != nil {
		killTree(cmd.Process.Pid)
	}
	if opts.CleanupProcess {
		sweepOrphans(r.knownPIDs(), r.Logger)
	}
	if opts.RestoreBash {
		ensureBashIntegrity(r.Logger)
	}
	return outcome
}

func (r *Runner) trackPID(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfPIDs[pid] = struct{}{}
}

func (r *Runner) untrackPID(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.selfPIDs, pid)
}

func (r *Runner) knownPIDs() map[int]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int]struct{}, len(r.selfPIDs))
	for k := range r.selfPIDs {
		out[k] = struct{}{}
	}
	return out
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return cmd.ProcessState.ExitCode()
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// boundedBuffer caps the total bytes retained at MaxCapturedOutput. The
// mutex matters on the timeout path: exec's copy goroutines may still be
// writing while the outcome is read, before the process tree is killed.
type boundedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := engine.MaxCapturedOutput - b.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
	} else {
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func applyCredential(cmd *exec.Cmd, uid int) {
	if uid <= 0 {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uint32(uid)}
}
