package api

import (
	"context"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"sandboxd/engine"
	"sandboxd/engine/eval"
)

// Problem is one judged task: the prompt shown to a model and the stdio
// cases its completion is evaluated against.
type Problem struct {
	ID       string          `json:"id"`
	Dataset  string          `json:"dataset"`
	Prompt   string          `json:"prompt"`
	Language engine.Language `json:"language"`
	Cases    []eval.Case     `json:"cases,omitempty"`
	LowerCmp bool            `json:"lower_cmp,omitempty"`
}

// Store is an in-memory problem catalog. The service holds exactly one; it
// carries no persistence, so a deployment seeds it at startup via Register.
type Store struct {
	mu       sync.RWMutex
	problems map[string]map[string]Problem // dataset -> id -> problem

	// submission tallies per dataset, backing get_metrics
	attempts map[string]int
	accepted map[string]int
}

// NewStore returns an empty catalog.
func NewStore() *Store {
	return &Store{
		problems: map[string]map[string]Problem{},
		attempts: map[string]int{},
		accepted: map[string]int{},
	}
}

// Register adds or replaces a problem in its dataset.
func (s *Store) Register(p Problem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.problems[p.Dataset] == nil {
		s.problems[p.Dataset] = map[string]Problem{}
	}
	s.problems[p.Dataset][p.ID] = p
}

// Get looks up one problem.
func (s *Store) Get(dataset, id string) (Problem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.problems[dataset][id]
	return p, ok
}

// List returns every problem in dataset, sorted by ID.
func (s *Store) List(dataset string) []Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Problem, 0, len(s.problems[dataset]))
	for _, p := range s.problems[dataset] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Datasets returns the sorted dataset names with at least one problem.
func (s *Store) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.problems))
	for name := range s.problems {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Store) recordSubmission(dataset string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[dataset]++
	if ok {
		s.accepted[dataset]++
	}
}

// Accuracy returns accepted/attempted for dataset; zero attempts yields 0.
func (s *Store) Accuracy(dataset string) (attempts int, accuracy float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts = s.attempts[dataset]
	if attempts == 0 {
		return 0, 0
	}
	return attempts, float64(s.accepted[dataset]) / float64(attempts)
}

// EvalResult is the verdict returned by /submit. Extraction or execution
// trouble is reported as Accepted=false, never an HTTP error, so evaluation
// pipelines keep moving.
type EvalResult struct {
	Accepted      bool           `json:"accepted"`
	ExtractedCode string         `json:"extracted_code"`
	Outcomes      []eval.Outcome `json:"outcomes,omitempty"`
	Message       string         `json:"message,omitempty"`
}

// SubmitRequest is the JSON body of POST /submit: a free-form completion
// evaluated against one problem's cases.
type SubmitRequest struct {
	Dataset     string  `json:"dataset"`
	ID          string  `json:"id"`
	Completion  string  `json:"completion"`
	RunTimeout  float64 `json:"run_timeout,omitempty"`
	RunAllCases bool    `json:"run_all_cases,omitempty"`
}

const submitMaxAttempts = 3

// Submit evaluates one completion end to end: extract code, antihack judge,
// fan the problem's cases through run_code. The whole evaluation is retried
// with exponential jitter when the engine itself fails (never when the
// program merely fails its cases).
func (s *Service) Submit(ctx context.Context, req SubmitRequest) EvalResult {
	problem, ok := s.store.Get(req.Dataset, req.ID)
	if !ok {
		return EvalResult{Message: "unknown problem: " + req.Dataset + "/" + req.ID}
	}

	code := s.ExtractCode(req.Completion, string(problem.Language))
	if code == "" {
		s.store.recordSubmission(req.Dataset, false)
		return EvalResult{Accepted: false, ExtractedCode: ""}
	}
	expanded, ok := s.AntihackJudge(string(problem.Language), code)
	if !ok {
		s.store.recordSubmission(req.Dataset, false)
		return EvalResult{Accepted: false, ExtractedCode: code, Message: "rejected by antihack check"}
	}

	cfg := eval.Config{
		RunTimeout:  req.RunTimeout,
		LowerCmp:    problem.LowerCmp,
		RunAllCases: req.RunAllCases,
		Sem:         s.runnerSem,
	}
	var outcomes []eval.Outcome
	for attempt := 0; ; attempt++ {
		var engineErr error
		outcomes, engineErr = s.checkWithEngineError(ctx, expanded, problem, cfg)
		if engineErr == nil {
			break
		}
		if attempt+1 >= submitMaxAttempts || ctx.Err() != nil {
			s.store.recordSubmission(req.Dataset, false)
			return EvalResult{Accepted: false, ExtractedCode: code, Message: engineErr.Error()}
		}
		backoff := time.Duration(1<<attempt) * 500 * time.Millisecond
		jitter := time.Duration(rand.Int63n(int64(backoff)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
		}
	}

	accepted := len(outcomes) == len(problem.Cases)
	for _, o := range outcomes {
		if !o.Passed {
			accepted = false
		}
	}
	s.store.recordSubmission(req.Dataset, accepted)
	return EvalResult{Accepted: accepted, ExtractedCode: code, Outcomes: outcomes}
}

// checkWithEngineError runs the case fan-out, separating "engine broke" from
// "program failed": a SandboxError on any case surfaces as an error so
// Submit's retry loop can re-run the evaluation.
func (s *Service) checkWithEngineError(ctx context.Context, code string, p Problem, cfg eval.Config) ([]eval.Outcome, error) {
	var (
		mu        sync.Mutex
		engineErr error
	)
	outcomes := eval.CheckStdioCases(ctx, func(ctx context.Context, req engine.RunRequest) (engine.RunResult, error) {
		result, err := s.RunCode(ctx, req)
		if err != nil {
			mu.Lock()
			if engineErr == nil {
				engineErr = err
			}
			mu.Unlock()
		}
		return result, err
	}, code, p.Language, p.Cases, cfg)
	return outcomes, engineErr
}

func (s *Service) handleSubmit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Dataset == "" || req.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dataset and id are required")
	}
	return c.JSON(http.StatusOK, s.Submit(c.Request().Context(), req))
}

type promptsRequest struct {
	Dataset string `json:"dataset"`
	ID      string `json:"id,omitempty"`
}

type promptRow struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

func (s *Service) handleGetPrompts(c echo.Context) error {
	var req promptsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rows := []promptRow{}
	for _, p := range s.store.List(req.Dataset) {
		rows = append(rows, promptRow{ID: p.ID, Prompt: p.Prompt})
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Service) handleGetPromptByID(c echo.Context) error {
	var req promptsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, ok := s.store.Get(req.Dataset, req.ID)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown problem: "+req.Dataset+"/"+req.ID)
	}
	return c.JSON(http.StatusOK, promptRow{ID: p.ID, Prompt: p.Prompt})
}

func (s *Service) handleListIDs(c echo.Context) error {
	var req promptsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ids := []string{}
	for _, p := range s.store.List(req.Dataset) {
		ids = append(ids, p.ID)
	}
	return c.JSON(http.StatusOK, ids)
}

func (s *Service) handleListDatasets(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Datasets())
}

type metricsRow struct {
	Dataset  string  `json:"dataset"`
	Attempts int     `json:"attempts"`
	Accuracy float64 `json:"accuracy"`
}

func (s *Service) handleGetMetrics(c echo.Context) error {
	rows := []metricsRow{}
	for _, name := range s.store.Datasets() {
		attempts, accuracy := s.store.Accuracy(name)
		rows = append(rows, metricsRow{Dataset: name, Attempts: attempts, Accuracy: accuracy})
	}
	return c.JSON(http.StatusOK, rows)
}

// handleGetMetricsFunction describes how the accuracy number is computed,
// so evaluation pipelines can display it next to the scores.
func (s *Service) handleGetMetricsFunction(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":        "accuracy",
		"description": "accepted submissions / total submissions per dataset; a submission is accepted when every stdio case passes",
	})
}
