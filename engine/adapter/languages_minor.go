package adapter

import (
	"fmt"
	"os"
	"path/filepath"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/orchestrator"
)

func runLua(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".lua", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "lua " + src, Cwd: dir}, nil
}

func runR(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".R", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "Rscript " + src, Cwd: dir}, nil
}

func runPerl(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".pl", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "perl " + src, Cwd: dir}, nil
}

func runDUnitTest(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".d", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{CompileCmd: "dmd " + src + " -unittest -of=test", RunCmd: "./test", Cwd: dir}, nil
}

func runRuby(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".rb", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "ruby " + src, Cwd: dir}, nil
}

func runScala(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	className := findScalaClassName(req.Code)
	if className == "" {
		return orchestrator.Spec{}, ErrScalaObjectNameMissing
	}
	src, err := writeSource(dir, ".scala", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{CompileCmd: "scalac " + src, RunCmd: "scala " + className, Cwd: dir}, nil
}

func runJulia(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".jl", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "julia " + src, Cwd: dir}, nil
}

func runKotlinScript(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".kts", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "kotlin " + src, Cwd: dir}, nil
}

// runVerilog compiles with iverilog against a testbench module named tb and
// runs the result with vvp.
func runVerilog(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".sv", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	compile := fmt.Sprintf("iverilog -Wall -Winfloop -Wno-timescale -g2012 -s tb -o test.vvp %s", src)
	return orchestrator.Spec{CompileCmd: compile, RunCmd: "vvp -n test.vvp", Cwd: dir}, nil
}

// runLean symlinks the shared Mathlib dependency tree and runs `lake
// build`; there is no separate run phase because a successful build already
// proves every theorem. PID isolation is disabled because lake needs to see
// host PID 1.
func runLean(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	leanDeps := filepath.Join(depsRoot, "lean")
	if err := os.MkdirAll(filepath.Join(dir, ".lake"), 0755); err != nil {
		return orchestrator.Spec{}, fmt.Errorf("creating .lake dir: %w", err)
	}
	for _, name := range []string{".lake/packages", "lake-manifest.json", "lakefile.lean", "lean-toolchain"} {
		if err := symlinkInto(filepath.Join(leanDeps, name), dir, name); err != nil {
			return orchestrator.Spec{}, err
		}
	}
	if _, err := writeNamed(dir, "Main.lean", req.Code); err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "lake build", Cwd: dir, DisablePIDIsolation: true}, nil
}

func runSwift(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".swift", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{CompileCmd: "swiftc " + src + " -o test.out", RunCmd: "./test.out", Cwd: dir}, nil
}

func runRacket(cfg config.Config, depsRoot, dir string, req engine.RunRequest) (orchestrator.Spec, error) {
	src, err := writeSource(dir, ".rkt", req.Code)
	if err != nil {
		return orchestrator.Spec{}, err
	}
	return orchestrator.Spec{RunCmd: "racket " + src, Cwd: dir}, nil
}
