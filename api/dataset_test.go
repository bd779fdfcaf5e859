package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"sandboxd/engine"
	"sandboxd/engine/eval"
)

func seedEchoProblem(s *Service) {
	s.Store().Register(Problem{
		ID:       "echo-1",
		Dataset:  "smoke",
		Prompt:   "Read one integer from stdin and print it.",
		Language: engine.LangPython,
		Cases: []eval.Case{
			{Input: eval.StdinInput{Stdin: "7\n"}, Expected: "7\n"},
			{Input: eval.StdinInput{Stdin: "42\n"}, Expected: "42\n"},
		},
	})
}

func TestSubmitAcceptsPassingCompletion(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)
	rec := doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", RunTimeout: 5,
		Completion: "```python\nprint(input())\n```",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res EvalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Accepted)
	require.Equal(t, "print(input())\n", res.ExtractedCode)
	require.Len(t, res.Outcomes, 2)
}

func TestSubmitRejectsWrongAnswer(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)
	rec := doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", RunTimeout: 5,
		Completion: "```python\nprint('nope')\n```",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res EvalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Accepted)
}

func TestSubmitRejectsWhenNoCodeExtracted(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)
	rec := doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", Completion: "I cannot solve this.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res EvalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Accepted)
	require.Empty(t, res.ExtractedCode)
}

func TestSubmitRejectsExitZeroHack(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)
	rec := doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", Completion: "```python\nexit(0)\n```",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res EvalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Accepted)
	require.Contains(t, res.Message, "antihack")
}

func TestPromptListingEndpoints(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)

	rec := doJSON(e, http.MethodPost, "/list_datasets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var datasets []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &datasets))
	require.Equal(t, []string{"smoke"}, datasets)

	rec = doJSON(e, http.MethodPost, "/list_ids", map[string]string{"dataset": "smoke"})
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	require.Equal(t, []string{"echo-1"}, ids)

	rec = doJSON(e, http.MethodPost, "/get_prompt_by_id", map[string]string{"dataset": "smoke", "id": "echo-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var row promptRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &row))
	require.Equal(t, "Read one integer from stdin and print it.", row.Prompt)

	rec = doJSON(e, http.MethodPost, "/get_prompt_by_id", map[string]string{"dataset": "smoke", "id": "missing"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsTrackSubmissionAccuracy(t *testing.T) {
	e, svc := newTestService(t)
	seedEchoProblem(svc)

	doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", RunTimeout: 5,
		Completion: "```python\nprint(input())\n```",
	})
	doJSON(e, http.MethodPost, "/submit", SubmitRequest{
		Dataset: "smoke", ID: "echo-1", RunTimeout: 5,
		Completion: "```python\nprint('nope')\n```",
	})

	rec := doJSON(e, http.MethodGet, "/get_metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []metricsRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, 2, rows[0].Attempts)
	require.InDelta(t, 0.5, rows[0].Accuracy, 1e-9)
}
