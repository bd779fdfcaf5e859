// Package engine implements the multi-language code execution core: the
// isolation lifecycle, command runner, run orchestrator, language adapters,
// Jupyter runner, and test-case evaluator.
package engine

// Language is a closed tag identifying a supported execution mode.
type Language string

const (
	LangPython       Language = "python"
	LangPytest       Language = "pytest"
	LangCPP          Language = "cpp"
	LangGo           Language = "go"
	LangGoTest       Language = "go_test"
	LangJava         Language = "java"
	LangJUnit        Language = "junit"
	LangNodeJS       Language = "nodejs"
	LangTypeScript   Language = "typescript"
	LangJest         Language = "jest"
	LangCSharp       Language = "csharp"
	LangPHP          Language = "php"
	LangBash         Language = "bash"
	LangRust         Language = "rust"
	LangLua          Language = "lua"
	LangR            Language = "R"
	LangPerl         Language = "perl"
	LangDUnitTest    Language = "D_ut"
	LangRuby         Language = "ruby"
	LangScala        Language = "scala"
	LangJulia        Language = "julia"
	LangKotlinScript Language = "kotlin_script"
	LangVerilog      Language = "verilog"
	LangLean         Language = "lean"
	LangSwift        Language = "swift"
	LangRacket       Language = "racket"
	LangCUDA         Language = "cuda"
	LangPythonGPU    Language = "python_gpu"
)

// CompileLanguages distinguishes two-phase (compile then run) modes.
var CompileLanguages = map[Language]bool{
	LangCPP: true, LangGo: true, LangJava: true,
	LangJUnit: true, LangCSharp: true, LangRust: true, LangDUnitTest: true,
	LangScala: true, LangVerilog: true, LangSwift: true,
	LangCUDA: true, LangPythonGPU: true,
}

// CPULanguages is the default execution pool.
var CPULanguages = map[Language]bool{
	LangPython: true, LangCPP: true, LangNodeJS: true, LangGo: true, LangGoTest: true,
	LangJava: true, LangPHP: true, LangCSharp: true, LangBash: true, LangTypeScript: true,
	LangRust: true, LangLua: true, LangR: true, LangPerl: true,
	LangDUnitTest: true, LangRuby: true, LangScala: true, LangJulia: true, LangPytest: true,
	LangJUnit: true, LangKotlinScript: true, LangJest: true, LangVerilog: true, LangLean: true,
	LangSwift: true, LangRacket: true,
}

// GPULanguages requires the GPU pool and its exclusivity semaphore.
var GPULanguages = map[Language]bool{
	LangCUDA: true, LangPythonGPU: true,
}

// RunRequest carries the inputs to a single run_code call.
type RunRequest struct {
	Code           string             `json:"code"`
	Language       Language           `json:"language"`
	Stdin          string             `json:"stdin,omitempty"`
	Files          map[string]*string `json:"files,omitempty"`
	FetchFiles     []string           `json:"fetch_files,omitempty"`
	CompileTimeout float64            `json:"compile_timeout,omitempty"`
	RunTimeout     float64            `json:"run_timeout,omitempty"`
}

// CommandStatus is the terminal state of one executed command.
type CommandStatus string

const (
	StatusFinished          CommandStatus = "Finished"
	StatusError             CommandStatus = "Error"
	StatusTimeLimitExceeded CommandStatus = "TimeLimitExceeded"
)

// MaxCapturedOutput bounds stdout/stderr capture per command.
const MaxCapturedOutput = 1 << 20 // 1 MiB

// CommandOutcome is the result of one run_command invocation.
type CommandOutcome struct {
	Status        CommandStatus `json:"status"`
	ExecutionTime float64       `json:"execution_time,omitempty"`
	ReturnCode    *int          `json:"return_code,omitempty"`
	Stdout        string        `json:"stdout,omitempty"`
	Stderr        string        `json:"stderr,omitempty"`
}

// RunStatus is the derived overall status of a RunResult.
type RunStatus string

const (
	RunSuccess      RunStatus = "Success"
	RunFailed       RunStatus = "Failed"
	RunSandboxError RunStatus = "SandboxError"
)

// RunResult is the output of a run_code call.
type RunResult struct {
	CompileOutcome *CommandOutcome   `json:"compile_result,omitempty"`
	RunOutcome     *CommandOutcome   `json:"run_result,omitempty"`
	Files          map[string]string `json:"files,omitempty"`
}

// Status derives the overall RunStatus: Success iff every present phase
// finished with return code 0.
func (r *RunResult) Status() RunStatus {
	phases := []*CommandOutcome{r.CompileOutcome, r.RunOutcome}
	for _, p := range phases {
		if p == nil {
			continue
		}
		if p.Status != StatusFinished || p.ReturnCode == nil || *p.ReturnCode != 0 {
			return RunFailed
		}
	}
	return RunSuccess
}

// JupyterRequest carries the inputs to run_jupyter.
type JupyterRequest struct {
	Cells        []string          `json:"cells"`
	CellTimeout  float64           `json:"cell_timeout,omitempty"`
	TotalTimeout float64           `json:"total_timeout,omitempty"`
	Kernel       string            `json:"kernel,omitempty"`
	Files        map[string]string `json:"files,omitempty"`
	FetchFiles   []string          `json:"fetch_files,omitempty"`
}

// CellResult is the per-cell outcome of a Jupyter run.
type CellResult struct {
	Stdout  string                   `json:"stdout"`
	Stderr  string                   `json:"stderr"`
	Display []map[string]interface{} `json:"display"`
	Error   []map[string]interface{} `json:"error"`
	Status  string                   `json:"status,omitempty"`
}

// JupyterResult is the output of a run_jupyter call.
type JupyterResult struct {
	Status CommandStatus     `json:"status"`
	Driver CommandOutcome    `json:"driver"`
	Cells  []CellResult      `json:"cells,omitempty"`
	Files  map[string]string `json:"files,omitempty"`
}
