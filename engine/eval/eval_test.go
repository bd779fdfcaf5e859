package eval

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sandboxd/engine"
)

func outcomeFor(stdout string) engine.RunResult {
	code := 0
	return engine.RunResult{RunOutcome: &engine.CommandOutcome{
		Status: engine.StatusFinished, ReturnCode: &code, Stdout: stdout,
	}}
}

func TestCompareExactLineMatch(t *testing.T) {
	require.True(t, compare("hello\nworld", "hello\nworld", false))
	require.False(t, compare("hello\nworld", "hello\nthere", false))
}

func TestCompareTrailingEmptyLineTolerated(t *testing.T) {
	require.True(t, compare("123\n", "123", false))
	require.True(t, compare("123", "123\n", false))
}

func TestCompareLowerCmp(t *testing.T) {
	require.False(t, compare("Hello", "hello", false))
	require.True(t, compare("Hello", "hello", true))
}

func TestCompareNumericTolerance(t *testing.T) {
	require.True(t, compare("1.0", "1.0000001", false))
	require.False(t, compare("1.0", "1.01", false))
}

func TestCheckStdioCasesAllPass(t *testing.T) {
	run := func(ctx context.Context, req engine.RunRequest) (engine.RunResult, error) {
		return outcomeFor(req.Stdin), nil
	}
	cases := []Case{
		{Input: StdinInput{Stdin: "a"}, Expected: "a"},
		{Input: StdinInput{Stdin: "b"}, Expected: "b"},
	}
	outcomes := CheckStdioCases(context.Background(), run, "code", engine.LangPython, cases, Config{RunAllCases: true})
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.True(t, o.Passed)
	}
}

// TestCheckStdioCasesShortCircuit verifies that with run_all_cases=false
// the cases [pass, fail, pass] yield exactly two outcomes, the second of
// which failed, and the third case is never fully executed. The fake run
// gates each case on its index so the failing case always resolves before
// the third gets a turn; the failing case never advances the turn, leaving
// the third blocked until the short-circuit cancels it.
func TestCheckStdioCasesShortCircuit(t *testing.T) {
	var turn, executed int32
	run := func(ctx context.Context, req engine.RunRequest) (engine.RunResult, error) {
		idx, err := strconv.Atoi(req.Stdin)
		require.NoError(t, err)
		for atomic.LoadInt32(&turn) != int32(idx) {
			select {
			case <-ctx.Done():
				return engine.RunResult{}, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
		atomic.AddInt32(&executed, 1)
		if idx == 1 {
			return outcomeFor("wrong"), nil
		}
		atomic.AddInt32(&turn, 1)
		return outcomeFor(req.Stdin), nil
	}
	cases := []Case{
		{Input: StdinInput{Stdin: "0"}, Expected: "0"},
		{Input: StdinInput{Stdin: "1"}, Expected: "1"},
		{Input: StdinInput{Stdin: "2"}, Expected: "2"},
	}
	outcomes := CheckStdioCases(context.Background(), run, "code", engine.LangPython, cases, Config{})
	require.Len(t, outcomes, 2)
	require.True(t, outcomes[0].Passed)
	require.False(t, outcomes[1].Passed)
	require.Equal(t, int32(2), atomic.LoadInt32(&executed), "third case must never fully execute")
}

func TestCheckStdioCasesRunCodeError(t *testing.T) {
	run := func(ctx context.Context, req engine.RunRequest) (engine.RunResult, error) {
		return engine.RunResult{}, fmt.Errorf("boom")
	}
	outcomes := CheckStdioCases(context.Background(), run, "code", engine.LangPython, []Case{
		{Input: StdinInput{Stdin: "a"}, Expected: "a"},
	}, Config{RunAllCases: true})
	require.Empty(t, outcomes)
}
