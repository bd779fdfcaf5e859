// Package orchestrator sequences one sandboxed run: materialize request
// files into the workspace, run the compile phase then the run phase under
// isolation, and collect fetch_files afterward.
package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/isolation"
	"sandboxd/engine/runner"
)

// fetchCeiling bounds how much of a fetched file is read back, matching the
// stdout/stderr capture ceiling.
const fetchCeiling = engine.MaxCapturedOutput

// Spec describes one orchestrated run: the compile/run command strings, the
// working directory they execute in, and any extra environment variables an
// adapter wants layered on top of the base environment.
type Spec struct {
	CompileCmd string // empty means no compile phase
	RunCmd     string
	Cwd        string
	Env        []string

	// NoNetBridge requests a netns with no veth/bridge wiring (Jupyter).
	NoNetBridge bool
	// DisablePIDIsolation skips the pid namespace (the Lean runner needs
	// to see host PID 1).
	DisablePIDIsolation bool

	// CompileSem/RunSem, when set, are acquired for the duration of just
	// that phase, letting GPU adapters cap compile concurrency and
	// serialize runs while still sharing the single isolation session the
	// compile and run phases of one request run in.
	CompileSem *semaphore.Weighted
	RunSem     *semaphore.Weighted
}

// Orchestrator runs compile/run command pairs under isolation.
type Orchestrator struct {
	Cfg    config.Config
	Runner *runner.Runner
	Pool   *isolation.SubnetPool
	Logger zerolog.Logger

	// OnIsolationSetup, when set, is called with how long isolation.Prepare
	// took for a "lite" run, letting callers feed a metrics histogram
	// without this package importing prometheus itself.
	OnIsolationSetup func(time.Duration)
}

// New constructs an Orchestrator bound to cfg, using pool for netns subnet
// leases (shared across requests) and a fresh Runner for process execution.
func New(cfg config.Config, pool *isolation.SubnetPool, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{Cfg: cfg, Runner: runner.New(logger), Pool: pool, Logger: logger}
}

// Run materializes req.Files under spec.Cwd, runs the compile phase (if
// any) followed by the run phase (unless compile failed or timed out), and
// collects req.FetchFiles afterward. Every isolation resource created for
// this call is released on every exit path; the cgroup teardown is started
// on its own goroutine and may finish after Run returns.
func (o *Orchestrator) Run(ctx context.Context, spec Spec, req engine.RunRequest) (engine.RunResult, error) {
	if err := materializeFiles(spec.Cwd, req.Files); err != nil {
		return engine.RunResult{}, fmt.Errorf("materializing files: %w", err)
	}

	if o.Cfg.Runner.Isolation == config.IsolationLite {
		return o.runLite(ctx, spec, req)
	}
	return o.runNone(ctx, spec, req)
}

func (o *Orchestrator) runNone(ctx context.Context, spec Spec, req engine.RunRequest) (engine.RunResult, error) {
	var attr *syscall.SysProcAttr
	if o.Cfg.Runner.SetUID > 0 {
		_ = os.Chmod(spec.Cwd, 0777)
		_ = filepath.Walk(spec.Cwd, func(p string, info os.FileInfo, err error) error {
			if err == nil {
				_ = os.Chmod(p, 0777)
			}
			return nil
		})
	}

	var result engine.RunResult
	if spec.CompileCmd != "" {
		if err := acquire(ctx, spec.CompileSem); err != nil {
			return engine.RunResult{}, err
		}
		outcome := o.Runner.Run(ctx, runner.Options{
			Shell: true, Command: spec.CompileCmd, Dir: spec.Cwd, Env: spec.Env,
			Timeout: secToDuration(req.CompileTimeout), SetUID: o.Cfg.Runner.SetUID, SysProcAttr: attr,
			CleanupProcess: o.Cfg.Runner.CleanupProcess, RestoreBash: o.Cfg.Runner.RestoreBash,
		})
		release(spec.CompileSem)
		result.CompileOutcome = &outcome
	}
	if result.CompileOutcome == nil || compileSucceeded(result.CompileOutcome) {
		if err := acquire(ctx, spec.RunSem); err != nil {
			return result, err
		}
		outcome := o.Runner.Run(ctx, runner.Options{
			Shell: true, Command: spec.RunCmd, Dir: spec.Cwd, Env: spec.Env, Stdin: req.Stdin,
			Timeout: secToDuration(req.RunTimeout), SetUID: o.Cfg.Runner.SetUID, SysProcAttr: attr,
			CleanupProcess: o.Cfg.Runner.CleanupProcess, RestoreBash: o.Cfg.Runner.RestoreBash,
		})
		release(spec.RunSem)
		result.RunOutcome = &outcome
	}
	result.Files = fetchFiles(spec.Cwd, req.FetchFiles)
	return result, nil
}

func (o *Orchestrator) runLite(ctx context.Context, spec Spec, req engine.RunRequest) (engine.RunResult, error) {
	limits := isolation.Limits{
		MemoryLimitBytes:    o.Cfg.Runner.MemoryLimitMB * 1024 * 1024,
		CPULimit:            o.Cfg.Runner.CPULimit,
		DisablePIDIsolation: spec.DisablePIDIsolation,
		NoNetBridge:         spec.NoNetBridge,
	}
	setupStart := time.Now()
	sbx, err := isolation.Prepare(ctx, o.Cfg.Runner.ScratchRoot, o.Pool, limits)
	if o.OnIsolationSetup != nil {
		o.OnIsolationSetup(time.Since(setupStart))
	}
	if err != nil {
		return engine.RunResult{}, fmt.Errorf("preparing sandbox: %w", err)
	}
	defer sbx.Teardown(ctx, o.Pool)

	var result engine.RunResult
	if spec.CompileCmd != "" {
		if err := acquire(ctx, spec.CompileSem); err != nil {
			return engine.RunResult{}, err
		}
		name, args, attr := sbx.BuildCommand(spec.Cwd, spec.CompileCmd)
		outcome := o.Runner.Run(ctx, runner.Options{
			Command: name, Args: args, Env: spec.Env,
			Timeout: secToDuration(req.CompileTimeout), SysProcAttr: attr,
			CleanupProcess: o.Cfg.Runner.CleanupProcess, RestoreBash: o.Cfg.Runner.RestoreBash,
		})
		release(spec.CompileSem)
		result.CompileOutcome = &outcome
	}
	if result.CompileOutcome == nil || compileSucceeded(result.CompileOutcome) {
		if err := acquire(ctx, spec.RunSem); err != nil {
			return result, err
		}
		name, args, attr := sbx.BuildCommand(spec.Cwd, spec.RunCmd)
		outcome := o.Runner.Run(ctx, runner.Options{
			Command: name, Args: args, Env: spec.Env, Stdin: req.Stdin,
			Timeout: secToDuration(req.RunTimeout), SysProcAttr: attr,
			CleanupProcess: o.Cfg.Runner.CleanupProcess, RestoreBash: o.Cfg.Runner.RestoreBash,
		})
		release(spec.RunSem)
		result.RunOutcome = &outcome
	}
	result.Files = fetchFilesUnderRoot(sbx.Overlay.Root, spec.Cwd, req.FetchFiles)
	return result, nil
}

func acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if sem == nil {
		return nil
	}
	return sem.Acquire(ctx, 1)
}

func release(sem *semaphore.Weighted) {
	if sem != nil {
		sem.Release(1)
	}
}

func compileSucceeded(o *engine.CommandOutcome) bool {
	return o.Status == engine.StatusFinished && o.ReturnCode != nil && *o.ReturnCode == 0
}

func secToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds * float64(time.Second))
}

// materializeFiles restores req.Files into dir, skipping nil values and
// paths containing the IGNORE_THIS_FILE sentinel.
func materializeFiles(dir string, files map[string]*string) error {
	for path, content := range files {
		if content == nil {
			continue
		}
		if strings.Contains(path, "IGNORE_THIS_FILE") {
			continue
		}
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("creating dir for %v: %w", path, err)
		}
		data, err := base64.StdEncoding.DecodeString(*content)
		if err != nil {
			return fmt.Errorf("decoding %v: %w", path, err)
		}
		if err := os.WriteFile(full, data, 0644); err != nil {
			return fmt.Errorf("writing %v: %w", path, err)
		}
	}
	return nil
}

func fetchFiles(cwd string, paths []string) map[string]string {
	out := map[string]string{}
	for _, p := range paths {
		full := filepath.Join(cwd, p)
		data, err := readBounded(full, fetchCeiling)
		if err != nil {
			continue
		}
		out[p] = base64.StdEncoding.EncodeToString(data)
	}
	return out
}

func fetchFilesUnderRoot(root, cwd string, paths []string) map[string]string {
	out := map[string]string{}
	for _, p := range paths {
		full := filepath.Join(root, filepath.Join(cwd, p))
		data, err := readBounded(full, fetchCeiling)
		if err != nil {
			continue
		}
		out[p] = base64.StdEncoding.EncodeToString(data)
	}
	return out
}

func readBounded(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("not a readable file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, minInt64(info.Size(), limit))
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
