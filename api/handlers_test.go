package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"sandboxd/config"
	"sandboxd/engine"
)

func newTestService(t *testing.T) (*echo.Echo, *Service) {
	cfg := config.Default()
	cfg.Runner.Isolation = config.IsolationNone
	cfg.Runner.TmpRoot = filepath.Join(t.TempDir(), "tmp")
	cfg.Runner.CleanupProcess = false
	svc := NewService(cfg, zerolog.Nop(), nil)
	e := echo.New()
	Mount(e, svc)
	return e, svc
}

func doJSON(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPingEndpoint(t *testing.T) {
	e, _ := newTestService(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pong", rec.Body.String())
}

func TestRootRedirectsToDocs(t *testing.T) {
	e, _ := newTestService(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)
}

func TestRunCodePythonSuccess(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/run_code", RunCodeRequest{
		Code: "print(123)", Language: engine.LangPython, RunTimeout: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, engine.RunSuccess, resp.Status)
	require.NotNil(t, resp.RunResult)
	require.Equal(t, "123\n", resp.RunResult.Stdout)
}

func TestRunCodeMissingLanguageIsBadRequest(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/run_code", RunCodeRequest{Code: "print(1)"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunCodeUnsupportedLanguageIsBadRequest(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/run_code", RunCodeRequest{Code: "x", Language: "cobol"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunCodeTimeoutReportsFailed(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/run_code", RunCodeRequest{
		Code: "import time; time.sleep(0.3)", Language: engine.LangPython, RunTimeout: 0.1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, engine.RunFailed, resp.Status)
	require.Equal(t, engine.StatusTimeLimitExceeded, resp.RunResult.Status)
}

func TestRunCodeFetchFilesRoundTrip(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/run_code", RunCodeRequest{
		Code:       "with open('out.txt', 'w') as f:\n    f.write('hello from sandbox')\n",
		Language:   engine.LangPython,
		RunTimeout: 5,
		FetchFiles: []string{"out.txt"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, engine.RunSuccess, resp.Status)
	require.Contains(t, resp.Files, "out.txt")
}

func TestExtractCodeEndpoint(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/extract_code", ExtractCodeRequest{
		Completion: "```python\nprint(1)\n```", Language: "python",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ExtractCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
	require.Equal(t, "print(1)\n", resp.ExtractedCode)
}

func TestExtractCodeEndpointEmptyNeverErrors(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/extract_code", ExtractCodeRequest{
		Completion: "no code here", Language: "python",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ExtractCodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Accepted)
}

func TestAntihackJudgeEndpointRejectsExitZero(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/antihack_judge", AntihackRequest{
		Language: "python", Code: "exit(0)",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AntihackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Accepted)
}

func TestSubmitRequiresDatasetAndID(t *testing.T) {
	e, _ := newTestService(t)
	rec := doJSON(e, http.MethodPost, "/submit", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
