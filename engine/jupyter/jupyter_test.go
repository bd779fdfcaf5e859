package jupyter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"sandboxd/engine"
)

func TestInputFileMarshalsExpectedShape(t *testing.T) {
	in := inputFile{Kernel: "python3", Cells: []string{"print(1)"}, CellTimeout: 2, TotalTimeout: 10}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "python3", decoded["kernel"])
	require.Equal(t, 2.0, decoded["cell_timeout"])
	require.Equal(t, 10.0, decoded["total_timeout"])
}

func TestOutputFileRoundTrip(t *testing.T) {
	raw := `{
		"status": "Finished",
		"cells": [
			{"stdout": "hello\n", "stderr": "", "display": [], "error": []}
		]
	}`
	var out outputFile
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	require.Equal(t, "Finished", out.Status)
	require.Len(t, out.Cells, 1)
	require.Equal(t, "hello\n", out.Cells[0].Stdout)
}

func TestDriverScriptIsEmbedded(t *testing.T) {
	require.NotEmpty(t, driverScript)
}

func TestJupyterResultCarriesErrorStatus(t *testing.T) {
	r := engine.JupyterResult{Status: engine.StatusError}
	require.Equal(t, engine.StatusError, r.Status)
}
