package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func TestRunResultStatusSuccess(t *testing.T) {
	r := RunResult{
		CompileOutcome: &CommandOutcome{Status: StatusFinished, ReturnCode: intp(0)},
		RunOutcome:     &CommandOutcome{Status: StatusFinished, ReturnCode: intp(0)},
	}
	require.Equal(t, RunSuccess, r.Status())
}

func TestRunResultStatusFailedOnNonZeroExit(t *testing.T) {
	r := RunResult{
		RunOutcome: &CommandOutcome{Status: StatusFinished, ReturnCode: intp(1)},
	}
	require.Equal(t, RunFailed, r.Status())
}

func TestRunResultStatusFailedOnTimeout(t *testing.T) {
	r := RunResult{
		RunOutcome: &CommandOutcome{Status: StatusTimeLimitExceeded},
	}
	require.Equal(t, RunFailed, r.Status())
}

func TestRunResultStatusSuccessWithNoCompilePhase(t *testing.T) {
	r := RunResult{
		RunOutcome: &CommandOutcome{Status: StatusFinished, ReturnCode: intp(0)},
	}
	require.Equal(t, RunSuccess, r.Status())
}

func TestRunResultStatusFailedWhenCompileFails(t *testing.T) {
	r := RunResult{
		CompileOutcome: &CommandOutcome{Status: StatusFinished, ReturnCode: intp(1)},
	}
	require.Equal(t, RunFailed, r.Status())
}

func TestCompileLanguagesPartition(t *testing.T) {
	require.True(t, CompileLanguages[LangCPP])
	require.True(t, CompileLanguages[LangGo])
	require.True(t, CompileLanguages[LangJava])
	require.False(t, CompileLanguages[LangPython])
}

func TestCPUAndGPULanguagesDisjoint(t *testing.T) {
	for lang := range GPULanguages {
		require.False(t, CPULanguages[lang], "language %v should not be in both pools", lang)
	}
}
