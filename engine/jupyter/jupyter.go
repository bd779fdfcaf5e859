// Package jupyter drives a Jupyter kernel subprocess, executing cells
// sequentially with per-cell and total deadlines. The kernel-facing driver
// runs as a sandboxed subprocess through the orchestrator, exactly like any
// other language workload: an input JSON goes in, an output JSON with
// per-cell results comes back via fetch_files.
package jupyter

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sandboxd/config"
	"sandboxd/engine"
	"sandboxd/engine/orchestrator"
)

//go:embed driver.py
var driverScript []byte

const (
	inputRelPath  = "tmp/sandbox/configs/input.json"
	outputRelPath = "tmp/sandbox/configs/output.json"
)

// inputFile is the JSON payload written for the driver subprocess.
type inputFile struct {
	Kernel       string   `json:"kernel"`
	Cells        []string `json:"cells"`
	CellTimeout  float64  `json:"cell_timeout"`
	TotalTimeout float64  `json:"total_timeout"`
}

// outputFile is the JSON payload the driver subprocess writes back.
type outputFile struct {
	Status string              `json:"status"`
	Cells  []engine.CellResult `json:"cells"`
}

// Runner drives run_jupyter calls through an Orchestrator.
type Runner struct {
	Cfg  config.Config
	Orch *orchestrator.Orchestrator
}

// New builds a jupyter.Runner bound to orch.
func New(cfg config.Config, orch *orchestrator.Orchestrator) *Runner {
	return &Runner{Cfg: cfg, Orch: orch}
}

// Run executes req's cells against a fresh kernel subprocess and returns the
// JupyterResult. The driver subprocess itself runs inside the sandbox via
// the orchestrator with NoNetBridge set so the kernel cannot reach host
// loopback.
func (r *Runner) Run(ctx context.Context, req engine.JupyterRequest) (engine.JupyterResult, error) {
	dir, err := os.MkdirTemp(r.Cfg.Runner.TmpRoot, "jupyter-")
	if err != nil {
		return engine.JupyterResult{}, fmt.Errorf("creating jupyter workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "main.py"), driverScript, 0644); err != nil {
		return engine.JupyterResult{}, fmt.Errorf("writing driver script: %w", err)
	}
	inputDir := filepath.Join(dir, "tmp", "sandbox", "configs")
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return engine.JupyterResult{}, fmt.Errorf("creating input dir: %w", err)
	}
	inPayload, err := json.MarshalIndent(inputFile{
		Kernel: req.Kernel, Cells: req.Cells,
		CellTimeout: req.CellTimeout, TotalTimeout: req.TotalTimeout,
	}, "", "  ")
	if err != nil {
		return engine.JupyterResult{}, fmt.Errorf("encoding driver input: %w", err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "input.json"), inPayload, 0644); err != nil {
		return engine.JupyterResult{}, fmt.Errorf("writing driver input: %w", err)
	}

	files := make(map[string]*string, len(req.Files))
	for k, v := range req.Files {
		v := v
		files[k] = &v
	}
	fetch := append(append([]string{}, req.FetchFiles...), outputRelPath)

	runReq := engine.RunRequest{
		Files:      files,
		FetchFiles: fetch,
		RunTimeout: req.TotalTimeout + 10,
	}
	spec := orchestrator.Spec{RunCmd: "python main.py", Cwd: dir, NoNetBridge: true}

	result, err := r.Orch.Run(ctx, spec, runReq)
	if err != nil {
		return engine.JupyterResult{}, fmt.Errorf("running jupyter driver: %w", err)
	}

	if result.RunOutcome == nil || result.RunOutcome.Status != engine.StatusFinished {
		driver := engine.CommandOutcome{}
		if result.RunOutcome != nil {
			driver = *result.RunOutcome
		}
		return engine.JupyterResult{Status: engine.StatusError, Driver: driver, Files: result.Files}, nil
	}

	encoded, ok := result.Files[outputRelPath]
	if !ok {
		return engine.JupyterResult{Status: engine.StatusError, Driver: *result.RunOutcome, Files: result.Files}, nil
	}
	delete(result.Files, outputRelPath)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return engine.JupyterResult{}, fmt.Errorf("decoding driver output: %w", err)
	}
	var out outputFile
	if err := json.Unmarshal(raw, &out); err != nil {
		return engine.JupyterResult{}, fmt.Errorf("parsing driver output: %w", err)
	}

	return engine.JupyterResult{
		Status: engine.CommandStatus(out.Status),
		Driver: *result.RunOutcome,
		Cells:  out.Cells,
		Files:  result.Files,
	}, nil
}
