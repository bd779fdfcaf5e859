// Package adapter holds the per-language adapters: each takes a RunRequest
// and a temp workspace and returns the concrete orchestrator.Spec
// (compile/run commands, cwd, env) the orchestrator needs.
package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/orchestrator"
)

// AdapterFunc builds an orchestrator.Spec for one request, given a fresh
// temp workspace directory. File materialization is owned by the
// orchestrator; an adapter only emits the primary source file and links or
// copies in the shared dependency files it needs before returning the
// command spec.
type AdapterFunc func(cfg config.Config, depsRoot, workDir string, req engine.RunRequest) (orchestrator.Spec, error)

// Table maps each supported language to its adapter function.
var Table = map[engine.Language]AdapterFunc{
	engine.LangPython:       runPython,
	engine.LangPytest:       runPytest,
	engine.LangCPP:          runCPP,
	engine.LangGo:           runGo,
	engine.LangGoTest:       runGoTest,
	engine.LangJava:         runJava,
	engine.LangJUnit:        runJUnit,
	engine.LangNodeJS:       runNodeJS,
	engine.LangTypeScript:   runTypeScript,
	engine.LangJest:         runJest,
	engine.LangCSharp:       runCSharp,
	engine.LangPHP:          runPHP,
	engine.LangBash:         runBash,
	engine.LangRust:         runRust,
	engine.LangLua:          runLua,
	engine.LangR:            runR,
	engine.LangPerl:         runPerl,
	engine.LangDUnitTest:    runDUnitTest,
	engine.LangRuby:         runRuby,
	engine.LangScala:        runScala,
	engine.LangJulia:        runJulia,
	engine.LangKotlinScript: runKotlinScript,
	engine.LangVerilog:      runVerilog,
	engine.LangLean:         runLean,
	engine.LangSwift:        runSwift,
	engine.LangRacket:       runRacket,
	engine.LangCUDA:         runCUDA,
	engine.LangPythonGPU:    runPythonGPU,
}

// ErrUnsupportedLanguage is returned by Build for an unknown Language tag.
var ErrUnsupportedLanguage = fmt.Errorf("unsupported language")

// Build resolves req.Language's adapter, creates a fresh temp workspace
// under cfg.Runner.TmpRoot, and returns the orchestrator.Spec plus the
// workspace path (the caller removes it after the orchestrator run
// completes, since the adapter and the orchestrator share the same dir for
// both file materialization and source emission).
func Build(cfg config.Config, req engine.RunRequest) (orchestrator.Spec, string, error) {
	fn, ok := Table[req.Language]
	if !ok {
		return orchestrator.Spec{}, "", fmt.Errorf("%w: %v", ErrUnsupportedLanguage, req.Language)
	}
	if err := os.MkdirAll(cfg.Runner.TmpRoot, 0755); err != nil {
		return orchestrator.Spec{}, "", fmt.Errorf("creating tmp root: %w", err)
	}
	workDir, err := os.MkdirTemp(cfg.Runner.TmpRoot, "run-")
	if err != nil {
		return orchestrator.Spec{}, "", fmt.Errorf("creating workspace: %w", err)
	}
	depsRoot := filepath.Join(cfg.Runner.TmpRoot, "..", "runtime")
	if abs, err := filepath.Abs(depsRoot); err == nil {
		depsRoot = abs
	}
	spec, err := fn(cfg, depsRoot, workDir, req)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return orchestrator.Spec{}, "", err
	}
	return spec, workDir, nil
}

func writeSource(dir, suffix, code string) (string, error) {
	f, err := os.CreateTemp(dir, "src-*"+suffix)
	if err != nil {
		return "", fmt.Errorf("creating source file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(code); err != nil {
		return "", fmt.Errorf("writing source file: %w", err)
	}
	return f.Name(), nil
}

func writeNamed(dir, name, code string) (string, error) {
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, []byte(code), 0644); err != nil {
		return "", fmt.Errorf("writing %v: %w", name, err)
	}
	return full, nil
}

func symlinkInto(src, dstDir, name string) error {
	return os.Symlink(src, filepath.Join(dstDir, name))
}

func copyInto(src, dstDir, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %v: %w", src, err)
	}
	return os.WriteFile(filepath.Join(dstDir, name), data, 0644)
}

var javaClassNameRE = regexp.MustCompile(`public\s+(?:final\s+)?class\s+(\w+)`)

// findJavaPublicClassName discovers the public class name so the source
// file can be named to match; callers default to "Main" when absent.
func findJavaPublicClassName(code string) string {
	m := javaClassNameRE.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

var scalaClassNameRE = regexp.MustCompile(`object\s+(\w+)`)

// findScalaClassName discovers the `object X` name scalac will emit a main
// class for.
func findScalaClassName(code string) string {
	m := scalaClassNameRE.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}
