package interpret_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixforward/fixforward/internal/domain"
	"github.com/fixforward/fixforward/internal/domain/interpret"
)

const fixedApp = "def divide(a, b):\n    return a // b\n"

func TestInterpret_MarkerBlock(t *testing.T) {
	response := "I found the bug.\n\nFILE: app.py\n```python\n" + fixedApp + "```\n\nThe fix uses floor division."

	res := interpret.Interpret(response, []string{"app.py", "test_app.py"}, interpret.Options{})

	require.False(t, res.Empty())
	assert.Equal(t, domain.StrategyMarker, res.Strategy)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "app.py", res.Candidates[0].Path)
	assert.Equal(t, fixedApp, res.Candidates[0].Content)
	assert.Equal(t, domain.StrategyMarker, res.Candidates[0].Strategy)
}

func TestInterpret_BoldMarker(t *testing.T) {
	response := "**FILE: src/lib.rs**\n\n```rust\npub fn add(a: i32, b: i32) -> i32 { a + b }\n```\n"

	res := interpret.Interpret(response, []string{"src/lib.rs", "Cargo.toml"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "src/lib.rs", res.Candidates[0].Path)
	assert.Equal(t, domain.StrategyMarker, res.Strategy)
}

func TestInterpret_HeaderBlocksWhenNoMarkers(t *testing.T) {
	response := "Here is the corrected module.\n\n### `app.py`\n\n```python\n" + fixedApp + "```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, domain.StrategyHeader, res.Strategy)
	assert.Equal(t, "app.py", res.Candidates[0].Path)
	assert.Equal(t, fixedApp, res.Candidates[0].Content)
}

func TestInterpret_HeaderVariants(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"emphasis", "**app.py**\n```python\n" + fixedApp + "```\n"},
		{"colon line", "Update app.py as follows:\n```python\n" + fixedApp + "```\n"},
		{"inline code", "`app.py`\n```\n" + fixedApp + "```\n"},
		{"fence info", "```python app.py\n" + fixedApp + "```\n"},
		{"title attribute", "```py title=\"app.py\"\n" + fixedApp + "```\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := interpret.Interpret(tt.response, []string{"app.py", "test_app.py"}, interpret.Options{})
			require.Len(t, res.Candidates, 1)
			assert.Equal(t, domain.StrategyHeader, res.Strategy)
			assert.Equal(t, "app.py", res.Candidates[0].Path)
		})
	}
}

func TestInterpret_StrategiesAreNotMerged(t *testing.T) {
	response := "FILE: app.py\n```python\n" + fixedApp + "```\n\n" +
		"### util.py\n```python\nX = 1\n```\n"

	res := interpret.Interpret(response, []string{"app.py", "util.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "app.py", res.Candidates[0].Path)
}

func TestInterpret_LanguageBlockSingleFile(t *testing.T) {
	response := "Change the function:\n\n```rust\npub fn add(a: i32, b: i32) -> i32 { a + b }\n```\n"

	res := interpret.Interpret(response, []string{"src/lib.rs", "Cargo.toml"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, domain.StrategyLanguage, res.Strategy)
	assert.Equal(t, "src/lib.rs", res.Candidates[0].Path)
}

func TestInterpret_LanguageBlockNarrowedByMention(t *testing.T) {
	response := "The bug is in calc.py, the divide helper truncates.\n\n```python\n" + fixedApp + "```\n"

	res := interpret.Interpret(response, []string{"calc.py", "test_calc.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "calc.py", res.Candidates[0].Path)
}

func TestInterpret_LanguageBlockAmbiguous(t *testing.T) {
	response := "Replace it with:\n\n```python\n" + fixedApp + "```\n"

	res := interpret.Interpret(response, []string{"a.py", "b.py"}, interpret.Options{})

	assert.True(t, res.Empty())
}

func TestInterpret_DiffBlocksIgnored(t *testing.T) {
	response := "```diff\n--- a/app.py\n+++ b/app.py\n-x\n+y\n```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	assert.True(t, res.Empty())
}

func TestInterpret_FuzzyMatch(t *testing.T) {
	response := "The problem is in mathUtils; here is the new version of MathUtils.js\n\n```\nmodule.exports = {}\n```\n"
	files := []string{"src/math_utils.js", "src/index.js", "node_modules/math_utils.js"}

	res := interpret.Interpret(response, files, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, domain.StrategyFuzzy, res.Strategy)
	assert.Equal(t, "src/math_utils.js", res.Candidates[0].Path)
}

func TestInterpret_FuzzyBelowThresholdDropped(t *testing.T) {
	response := "See helpers.js for context.\n\n```\nmodule.exports = {}\n```\n"

	res := interpret.Interpret(response, []string{"src/index.js", "src/server.js"}, interpret.Options{FuzzyThreshold: 0.9})

	assert.True(t, res.Empty())
}

func TestInterpret_PathTraversalRejected(t *testing.T) {
	response := "FILE: ../../etc/passwd\n```\nroot::0:0::/root:/bin/sh\n```\n\n" +
		"FILE: app.py\n```python\n" + fixedApp + "```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "app.py", res.Candidates[0].Path)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "../../etc/passwd", res.Rejected[0].Path)
	assert.Equal(t, domain.StrategyMarker, res.Rejected[0].Strategy)
}

func TestInterpret_OnlyTraversalIsEmpty(t *testing.T) {
	response := "FILE: /etc/hosts\n```\n127.0.0.1 localhost\n```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	assert.True(t, res.Empty())
	assert.Empty(t, res.Strategy)
	require.NotEmpty(t, res.Rejected)
	assert.Equal(t, "absolute path", res.Rejected[0].Reason)
}

func TestInterpret_RejectedFenceIsNotReusedByLaterStrategies(t *testing.T) {
	tests := []struct {
		name     string
		response string
		files    []string
		reason   string
	}{
		{
			name:     "traversal with language tag",
			response: "FILE: ../../etc/app.py\n```python\nprint('pwn')\n```\n",
			files:    []string{"app.py", "test_app.py"},
			reason:   "escapes project root",
		},
		{
			name:     "dependency directory",
			response: "FILE: node_modules/lodash/index.js\n```javascript\nmodule.exports = {}\n```\nSee index.js.\n",
			files:    []string{"index.js", "package.json"},
			reason:   "inside a dependency directory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := interpret.Interpret(tt.response, tt.files, interpret.Options{})

			assert.True(t, res.Empty(), "candidates: %+v", res.Candidates)
			assert.Empty(t, res.Strategy)
			require.Len(t, res.Rejected, 1)
			assert.Equal(t, domain.StrategyMarker, res.Rejected[0].Strategy)
			assert.Equal(t, tt.reason, res.Rejected[0].Reason)
		})
	}
}

func TestInterpret_RejectedFenceLeavesOthersUsable(t *testing.T) {
	response := "FILE: ../outside.py\n```python\nx = 1\n```\n\n" +
		"### app.py\n```python\ndef divide(a, b):\n    return a // b\n```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "app.py", res.Candidates[0].Path)
	assert.Equal(t, domain.StrategyHeader, res.Strategy)
	assert.Contains(t, res.Candidates[0].Content, "a // b")
}

func TestInterpret_LaterBlockReplacesEarlier(t *testing.T) {
	response := "FILE: app.py\n```python\nold\n```\n\nFILE: app.py\n```python\nnew\n```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "new\n", res.Candidates[0].Content)
}

func TestInterpret_ResolvesBareNameToProjectFile(t *testing.T) {
	response := "FILE: lib.rs\n```rust\nfn main() {}\n```\n"

	res := interpret.Interpret(response, []string{"src/lib.rs"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "src/lib.rs", res.Candidates[0].Path)
}

func TestInterpret_NewFileKept(t *testing.T) {
	response := "FILE: conftest.py\n```python\nimport pytest\n```\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "conftest.py", res.Candidates[0].Path)
}

func TestInterpret_UnterminatedFenceIgnored(t *testing.T) {
	response := "FILE: app.py\n```python\ndef divide(a, b):\n"

	res := interpret.Interpret(response, []string{"app.py"}, interpret.Options{})

	assert.True(t, res.Empty())
}

func TestInterpret_NoCodeAtAll(t *testing.T) {
	res := interpret.Interpret("I could not determine a fix.", []string{"app.py"}, interpret.Options{})

	assert.True(t, res.Empty())
	assert.Empty(t, res.Rejected)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, interpret.Similarity("app.py", "app.py"))
	assert.InDelta(t, 0.83, interpret.Similarity("utils.py", "util.py"), 0.05)
	assert.Less(t, interpret.Similarity("app.py", "test_app.py"), 0.8)
}
