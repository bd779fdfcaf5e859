// Package eval fans stdio test cases out through run_code under a global
// semaphore, compares outputs with numeric tolerance, and short-circuits on
// the first failure unless told to run every case.
package eval

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"sandboxd/engine"
)

// StdinInput carries a test case's stdin payload.
type StdinInput struct {
	Stdin string `json:"stdin"`
}

// Case is one stdio test case: input fed to the program, expected stdout.
type Case struct {
	Input    StdinInput `json:"input"`
	Expected string     `json:"expected"`
}

// Config tunes the evaluation run.
type Config struct {
	RunTimeout           float64
	LowerCmp             bool
	RunAllCases          bool
	MaxRunnerConcurrency int64

	// Sem, when set, is used instead of a fresh semaphore built from
	// MaxRunnerConcurrency, so a caller can bound all evaluations with one
	// process-wide cap.
	Sem *semaphore.Weighted
}

// ExecInfo mirrors the exec_info field of an Outcome: the raw run result
// for the case's run_code call.
type ExecInfo struct {
	RunResult engine.RunResult `json:"run_result"`
}

// Outcome is the per-case result of check_stdio_cases.
type Outcome struct {
	Passed   bool     `json:"passed"`
	ExecInfo ExecInfo `json:"exec_info"`
	TestInfo *Case    `json:"test_info,omitempty"`
}

// RunCodeFunc is the run_code collaborator the evaluator fans out to. It is
// injected rather than imported directly so this package has no dependency
// on the orchestrator/adapter wiring — only on the shared engine types.
type RunCodeFunc func(ctx context.Context, req engine.RunRequest) (engine.RunResult, error)

// CheckStdioCases runs every case concurrently (bounded by
// cfg.MaxRunnerConcurrency when > 0), comparing actual stdout against each
// case's expected output. Unless cfg.RunAllCases is set, as soon as one
// case resolves with Passed=false every still-pending case is cancelled;
// the returned slice keeps the input order of cases that actually ran to
// completion (dropping any that never started or were cancelled), and is
// never longer than len(cases).
func CheckStdioCases(ctx context.Context, runCode RunCodeFunc, code string, language engine.Language, cases []Case, cfg Config) []Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := cfg.Sem
	if sem == nil && cfg.MaxRunnerConcurrency > 0 {
		sem = semaphore.NewWeighted(cfg.MaxRunnerConcurrency)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes []Outcome
	)

	// All cases are launched concurrently up front; the semaphore (and
	// ctx cancellation on first failure) governs how many actually run.
	// Once a failure is observed no further results are awaited, but any
	// case that already started keeps running and still cleans up.
	results := make([]*Outcome, len(cases))
	for i, c := range cases {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return
				}
				defer sem.Release(1)
			}
			if ctx.Err() != nil {
				return
			}
			timeout := cfg.RunTimeout
			if timeout == 0 {
				timeout = 10
			}
			result, err := runCode(ctx, engine.RunRequest{
				Code: code, Language: language, Stdin: c.Input.Stdin, RunTimeout: timeout,
			})
			if err != nil {
				return
			}
			passed := compare(c.Expected, actualStdout(result), cfg.LowerCmp)
			outcome := Outcome{Passed: passed, ExecInfo: ExecInfo{RunResult: result}, TestInfo: &c}
			mu.Lock()
			results[i] = &outcome
			if !passed && !cfg.RunAllCases {
				cancel()
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, r := range results {
		if r != nil {
			outcomes = append(outcomes, *r)
		}
	}
	return outcomes
}

func actualStdout(r engine.RunResult) string {
	if r.RunOutcome == nil {
		return ""
	}
	return r.RunOutcome.Stdout
}

// compare splits both sides into lines, tolerates one trailing empty-line
// mismatch, trims, optionally lowercases, and falls back to a
// numeric-tolerance comparison when a literal match fails but both sides
// parse as floats.
func compare(expected, actual string, lowerCmp bool) bool {
	expLines := splitTrimTrailingEmpty(expected)
	actLines := splitTrimTrailingEmpty(actual)
	if len(expLines) != len(actLines) {
		return false
	}
	for i := range expLines {
		e := strings.TrimSpace(expLines[i])
		a := strings.TrimSpace(actLines[i])
		if lowerCmp {
			e = strings.ToLower(e)
			a = strings.ToLower(a)
		}
		if e == a {
			continue
		}
		ef, eerr := strconv.ParseFloat(e, 64)
		af, aerr := strconv.ParseFloat(a, 64)
		if eerr != nil || aerr != nil {
			return false
		}
		denom := math.Abs(ef)
		if denom < 1e-10 {
			denom = 1e-10
		}
		if math.Abs(ef-af)/denom >= 1e-5 {
			return false
		}
	}
	return true
}

func splitTrimTrailingEmpty(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
