package api

import (
	"sandboxd/engine"
	"sandboxd/engine/eval"
)

// RunCodeRequest is the JSON body of POST /run_code.
type RunCodeRequest struct {
	Code           string             `json:"code"`
	Language       engine.Language    `json:"language"`
	Stdin          string             `json:"stdin,omitempty"`
	Files          map[string]*string `json:"files,omitempty"`
	FetchFiles     []string           `json:"fetch_files,omitempty"`
	CompileTimeout float64            `json:"compile_timeout,omitempty"`
	RunTimeout     float64            `json:"run_timeout,omitempty"`
}

// RunCodeResponse is the JSON body returned by POST /run_code: status is
// derived from the phases, message is only populated on SandboxError.
type RunCodeResponse struct {
	Status        engine.RunStatus       `json:"status"`
	Message       string                 `json:"message,omitempty"`
	CompileResult *engine.CommandOutcome `json:"compile_result,omitempty"`
	RunResult     *engine.CommandOutcome `json:"run_result,omitempty"`
	Files         map[string]string      `json:"files,omitempty"`
}

func newRunCodeResponse(result engine.RunResult) RunCodeResponse {
	return RunCodeResponse{
		Status:        result.Status(),
		CompileResult: result.CompileOutcome,
		RunResult:     result.RunOutcome,
		Files:         result.Files,
	}
}

func sandboxErrorResponse(err error) RunCodeResponse {
	return RunCodeResponse{Status: engine.RunSandboxError, Message: err.Error()}
}

// RunJupyterRequest is the JSON body of POST /run_jupyter.
type RunJupyterRequest struct {
	Cells        []string          `json:"cells"`
	CellTimeout  float64           `json:"cell_timeout,omitempty"`
	TotalTimeout float64           `json:"total_timeout,omitempty"`
	Kernel       string            `json:"kernel,omitempty"`
	Files        map[string]string `json:"files,omitempty"`
	FetchFiles   []string          `json:"fetch_files,omitempty"`
}

// RunJupyterResponse is the JSON body returned by POST /run_jupyter.
type RunJupyterResponse struct {
	Status          engine.CommandStatus  `json:"status"`
	DriverOutcome   engine.CommandOutcome `json:"driver_outcome"`
	PerCellOutcomes []engine.CellResult   `json:"per_cell_outcomes,omitempty"`
	Files           map[string]string     `json:"files,omitempty"`
}

// CheckStdioCasesRequest is the JSON body of the stdio test-case evaluator
// endpoint, exposed so an HTTP caller can exercise the evaluator without
// embedding the Go module directly.
type CheckStdioCasesRequest struct {
	Code         string          `json:"code"`
	Language     engine.Language `json:"language"`
	Cases        []eval.Case     `json:"cases"`
	RunTimeout   float64         `json:"run_timeout,omitempty"`
	LowerCmp     bool            `json:"lower_cmp,omitempty"`
	RunAllCases  bool            `json:"run_all_cases,omitempty"`
	MaxRunnerCap int64           `json:"max_runner_concurrency,omitempty"`
}

// ExtractCodeRequest is the JSON body for the code-extraction helper.
type ExtractCodeRequest struct {
	Completion string `json:"completion"`
	Language   string `json:"language"`
}

// ExtractCodeResponse reports the extraction verdict: failure yields
// Accepted=false, ExtractedCode="", never an error.
type ExtractCodeResponse struct {
	Accepted      bool   `json:"accepted"`
	ExtractedCode string `json:"extracted_code"`
}

// AntihackRequest is the JSON body for the antihack judge helper.
type AntihackRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// AntihackResponse reports the judge verdict and, if accepted, the
// prologue-expanded code ready to execute.
type AntihackResponse struct {
	Accepted     bool   `json:"accepted"`
	ExpandedCode string `json:"expanded_code,omitempty"`
}
