// Package api implements the HTTP/JSON external interface, plus the Service
// facade that wires together every engine layer (isolation, runner,
// orchestrator, adapter, jupyter, eval, extract, antihack) behind a single
// RunCode/RunJupyter/CheckStdioCases surface.
package api

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/adapter"
	"sandboxd/engine/antihack"
	"sandboxd/engine/eval"
	"sandboxd/engine/extract"
	"sandboxd/engine/isolation"
	"sandboxd/engine/jupyter"
	"sandboxd/engine/orchestrator"
)

// Service ties the engine layers together into the operations the HTTP
// handlers and the dataset-collaborator surface call.
type Service struct {
	Cfg    config.Config
	Logger zerolog.Logger

	pool    *isolation.SubnetPool
	orch    *orchestrator.Orchestrator
	jupyter *jupyter.Runner
	metrics *Metrics
	store   *Store

	gpuCompile *semaphore.Weighted
	gpuRun     *semaphore.Weighted

	// runnerSem is the process-wide cap on concurrently-running test
	// cases, shared by every CheckStdioCases call.
	runnerSem *semaphore.Weighted
}

// NewService constructs a Service from cfg, building the shared subnet
// pool and orchestrator once for the process lifetime. metrics may be nil,
// in which case requests simply aren't instrumented.
func NewService(cfg config.Config, logger zerolog.Logger, metrics *Metrics) *Service {
	pool := isolation.NewSubnetPool(cfg.Runner.SubnetPoolSize, cfg.Runner.SubnetWorkerEnv)
	orch := orchestrator.New(cfg, pool, logger)
	if metrics != nil {
		orch.OnIsolationSetup = metrics.ObserveIsolationSetup
	}
	s := &Service{
		Cfg:        cfg,
		Logger:     logger,
		pool:       pool,
		orch:       orch,
		jupyter:    jupyter.New(cfg, orch),
		metrics:    metrics,
		store:      NewStore(),
		gpuCompile: semaphore.NewWeighted(int64(cfg.Runner.GPUCompileCap)),
		gpuRun:     semaphore.NewWeighted(int64(cfg.Runner.GPURunCap)),
	}
	if cfg.Runner.MaxConcurrency > 0 {
		s.runnerSem = semaphore.NewWeighted(int64(cfg.Runner.MaxConcurrency))
	}
	return s
}

// Store exposes the in-memory problem catalog so a deployment can seed it
// at startup before mounting the HTTP surface.
func (s *Service) Store() *Store { return s.store }

// RunCode is the engine's run_code operation: resolve the adapter for
// req.Language, build its workspace, and run compile/run under isolation.
// GPU languages are additionally bounded by the configured compile/run
// concurrency caps.
func (s *Service) RunCode(ctx context.Context, req engine.RunRequest) (engine.RunResult, error) {
	start := time.Now()
	spec, workDir, err := adapter.Build(s.Cfg, req)
	if err != nil {
		return engine.RunResult{}, err
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			s.Logger.Warn().Err(rmErr).Str("dir", workDir).Msg("failed to remove workspace")
		}
	}()

	if engine.GPULanguages[req.Language] {
		// Both phases share the one isolation session this call opens;
		// the semaphores only throttle which phase may run concurrently
		// with other requests' same phase.
		spec.CompileSem = s.gpuCompile
		spec.RunSem = s.gpuRun
	}
	result, err := s.orch.Run(ctx, spec, req)
	if s.metrics != nil {
		status := string(engine.RunSandboxError)
		if err == nil {
			status = string(result.Status())
		}
		s.metrics.ObserveRun("run_code", string(req.Language), status, time.Since(start))
	}
	return result, err
}

// RunJupyter is the engine's run_jupyter operation.
func (s *Service) RunJupyter(ctx context.Context, req engine.JupyterRequest) (engine.JupyterResult, error) {
	start := time.Now()
	result, err := s.jupyter.Run(ctx, req)
	if s.metrics != nil {
		status := string(engine.StatusError)
		if err == nil {
			status = string(result.Status)
		}
		s.metrics.ObserveRun("run_jupyter", string(req.Kernel), status, time.Since(start))
	}
	return result, err
}

// CheckStdioCases fans the problem's stdio cases out through RunCode,
// bounded by the process-wide runner cap unless the caller supplied its own
// Sem or MaxRunnerConcurrency, which then replaces that cap whatever its
// width.
func (s *Service) CheckStdioCases(ctx context.Context, code string, language engine.Language, cases []eval.Case, cfg eval.Config) []eval.Outcome {
	if cfg.Sem == nil && cfg.MaxRunnerConcurrency == 0 {
		cfg.Sem = s.runnerSem
	}
	return eval.CheckStdioCases(ctx, s.RunCode, code, language, cases, cfg)
}

// ExtractCode pulls a canonical code string out of a free-form completion.
func (s *Service) ExtractCode(completion, language string) string {
	return extract.Extract(completion, language)
}

// AntihackJudge reports whether code passes the antihack static check and,
// if so, returns the expanded (prologue-injected) code to execute.
func (s *Service) AntihackJudge(language, code string) (expanded string, ok bool) {
	if !antihack.Judge(language, code) {
		return "", false
	}
	return antihack.Apply(language, code), true
}
