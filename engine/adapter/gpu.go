package adapter

import (
	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/orchestrator"
)

// runCUDA and runPythonGPU do not write a primary source file: the request's
// files carry the whole project (a CMake build for CUDA, compile.py/run.py
// for python_gpu). The compile/run concurrency caps are enforced by the
// service's GPU semaphores, not here; an adapter only describes the
// commands to run.

func runCUDA(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	return orchestrator.Spec{
		CompileCmd: "mkdir build && cd build && cmake .. && make -j4",
		RunCmd:     "./build/main",
		Cwd:        dir,
		Env:        pythonRuntimeEnv(depsRoot),
	}, nil
}

func runPythonGPU(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	return orchestrator.Spec{
		CompileCmd: "python compile.py",
		RunCmd:     "python run.py",
		Cwd:        dir,
		Env:        pythonRuntimeEnv(depsRoot),
	}, nil
}
