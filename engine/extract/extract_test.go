package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTaggedFenceWinsOverGeneric(t *testing.T) {
	completion := "here is code\n```python\nprint(1)\n```\nand also\n```\nprint(2)\n```\n"
	require.Equal(t, "print(1)\n", Extract(completion, "python"))
}

func TestExtractGenericFenceWhenNoTag(t *testing.T) {
	completion := "```\nx = 1\n```"
	require.Equal(t, "x = 1\n", Extract(completion, "python"))
}

func TestExtractOpenOnlyFence(t *testing.T) {
	completion := "```python\nprint('unterminated')\n"
	require.Contains(t, Extract(completion, "python"), "print('unterminated')")
}

func TestExtractHeuristicFallback(t *testing.T) {
	completion := "Sure, here's the answer:\nimport os\nprint(os.getcwd())"
	got := Extract(completion, "python")
	require.Contains(t, got, "import os")
}

func TestExtractJavaHeuristic(t *testing.T) {
	completion := "public final class Solution {\n  public static void main(String[] a) {}\n}"
	got := Extract(completion, "java")
	require.Contains(t, got, "public final class Solution")
}

func TestExtractNothingFound(t *testing.T) {
	require.Equal(t, "", Extract("no code here at all", "python"))
}

func TestExtractCustomBlockHighestPriorityWins(t *testing.T) {
	completion := "```python\nprint(1)\n```"
	custom := CodeBlock{Priority: PriorityTaggedFence + 1, Code: "print(999)", Language: "python"}
	require.Equal(t, "print(999)", Extract(completion, "python", custom))
}

func TestSubmitCodeBlocksPicksHighestPriority(t *testing.T) {
	blocks := []CodeBlock{
		{Priority: PriorityHeuristic, Code: "low"},
		{Priority: PriorityTaggedFence, Code: "high"},
		{Priority: PriorityGenericFence, Code: "mid"},
	}
	require.Equal(t, "high", SubmitCodeBlocks(blocks).Code)
}
