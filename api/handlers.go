package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"sandboxd/engine"
	"sandboxd/engine/adapter"
	"sandboxd/engine/eval"
)

// Mount registers every HTTP route onto e, backed by s.
func Mount(e *echo.Echo, s *Service) {
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "https://github.com/sandboxd/sandboxd")
	})
	e.GET("/v1/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.POST("/run_code", s.handleRunCode)
	e.POST("/run_jupyter", s.handleRunJupyter)
	e.POST("/check_stdio_cases", s.handleCheckStdioCases)
	e.POST("/extract_code", s.handleExtractCode)
	e.POST("/antihack_judge", s.handleAntihackJudge)

	// Dataset-collaborator surface: served from the in-memory catalog; no
	// SQL/JSONL-backed problem store behind it.
	e.POST("/submit", s.handleSubmit)
	e.POST("/get_prompts", s.handleGetPrompts)
	e.POST("/get_prompt_by_id", s.handleGetPromptByID)
	e.POST("/list_ids", s.handleListIDs)
	e.POST("/list_datasets", s.handleListDatasets)
	e.GET("/get_metrics", s.handleGetMetrics)
	e.GET("/get_metrics_function", s.handleGetMetricsFunction)
}

// handleRunCode implements POST /run_code. Engine failures (isolation
// setup, overlay mount, cgroup control) are reported as status=SandboxError
// with HTTP 200; only request validation and unhandled panics use non-200
// status codes.
func (s *Service) handleRunCode(c echo.Context) error {
	var req RunCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "language is required")
	}
	if _, ok := adapter.Table[req.Language]; !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported language: "+string(req.Language))
	}

	result, err := s.RunCode(c.Request().Context(), engine.RunRequest{
		Code: req.Code, Language: req.Language, Stdin: req.Stdin,
		Files: req.Files, FetchFiles: req.FetchFiles,
		CompileTimeout: req.CompileTimeout, RunTimeout: req.RunTimeout,
	})
	if err != nil {
		return c.JSON(http.StatusOK, sandboxErrorResponse(err))
	}
	return c.JSON(http.StatusOK, newRunCodeResponse(result))
}

// handleRunJupyter implements POST /run_jupyter.
func (s *Service) handleRunJupyter(c echo.Context) error {
	var req RunJupyterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Cells) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cells is required")
	}

	result, err := s.RunJupyter(c.Request().Context(), engine.JupyterRequest{
		Cells: req.Cells, CellTimeout: req.CellTimeout, TotalTimeout: req.TotalTimeout,
		Kernel: req.Kernel, Files: req.Files, FetchFiles: req.FetchFiles,
	})
	if err != nil {
		return c.JSON(http.StatusOK, RunJupyterResponse{
			Status:        engine.StatusError,
			DriverOutcome: engine.CommandOutcome{Status: engine.StatusError, Stderr: err.Error()},
		})
	}
	return c.JSON(http.StatusOK, RunJupyterResponse{
		Status:          result.Status,
		DriverOutcome:   result.Driver,
		PerCellOutcomes: result.Cells,
		Files:           result.Files,
	})
}

// handleCheckStdioCases exposes the stdio test-case evaluator as an HTTP
// operation for callers outside the Go module.
func (s *Service) handleCheckStdioCases(c echo.Context) error {
	var req CheckStdioCasesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Language == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "language is required")
	}

	outcomes := s.CheckStdioCases(c.Request().Context(), req.Code, req.Language, req.Cases, eval.Config{
		RunTimeout: req.RunTimeout, LowerCmp: req.LowerCmp, RunAllCases: req.RunAllCases,
		MaxRunnerConcurrency: req.MaxRunnerCap,
	})
	return c.JSON(http.StatusOK, outcomes)
}

// handleExtractCode exposes code extraction over HTTP: extraction failure
// never surfaces as an error, only an empty accepted=false result.
func (s *Service) handleExtractCode(c echo.Context) error {
	var req ExtractCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code := s.ExtractCode(req.Completion, req.Language)
	return c.JSON(http.StatusOK, ExtractCodeResponse{Accepted: code != "", ExtractedCode: code})
}

// handleAntihackJudge implements the L4′ antihack judge helper.
func (s *Service) handleAntihackJudge(c echo.Context) error {
	var req AntihackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	expanded, ok := s.AntihackJudge(req.Language, req.Code)
	return c.JSON(http.StatusOK, AntihackResponse{Accepted: ok, ExpandedCode: expanded})
}
