package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffreview/internal/config"
)

const multiFileDiff = `diff --git a/x.ts b/x.ts
@@ -1,2 +1,3 @@
 line1
+line2
 line3
diff --git a/y.go b/y.go
@@ -1,1 +1,1 @@
-old()
+new()
`

func newTestRunner(t *testing.T, strategyID string, mode config.ArtifactMode) (*Runner, *config.Options) {
	t.Helper()

	opts := &config.Options{
		Strategy:         strategyID,
		DiffArtifactMode: mode,
		ArtifactsDir:     t.TempDir(),
		WorkspaceDir:     t.TempDir(),
	}
	return NewRunner(opts, zerolog.Nop()), opts
}

// annotateEverything is a fake model that appends a phrase annotation to
// every added line of the diff embedded in the prompt.
func annotateEverything(ctx context.Context, prompt string) (string, error) {
	start := strings.Index(prompt, "```diff\n")
	if start < 0 {
		return "", errors.New("prompt carries no diff block")
	}
	body := prompt[start+len("```diff\n"):]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			line += ` // review 0.8 "` + strings.TrimPrefix(line, "+") + `" added code`
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), nil
}

func TestReviewDiffFanOut(t *testing.T) {
	runner, opts := newTestRunner(t, "inline-phrase", config.ArtifactModeSingle)

	results, err := runner.ReviewDiff(context.Background(), multiFileDiff, annotateEverything)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byFile := map[string]FileResult{}
	for _, r := range results {
		require.NoError(t, r.Err)
		byFile[r.FilePath] = r
	}

	require.Contains(t, byFile, "x.ts")
	require.Contains(t, byFile, "y.go")
	assert.Len(t, byFile["x.ts"].Annotations, 1)
	assert.Len(t, byFile["y.go"].Annotations, 1)
	assert.Equal(t, "line2", *byFile["x.ts"].Annotations[0].HighlightPhrase)

	// Single mode aggregates both files into one artifact per kind.
	diffArtifact, err := os.ReadFile(filepath.Join(opts.ArtifactsDir, "diffs", "output.diff"))
	require.NoError(t, err)
	assert.Contains(t, string(diffArtifact), "=== x.ts ===")
	assert.Contains(t, string(diffArtifact), "=== y.go ===")

	_, err = os.Stat(filepath.Join(opts.ArtifactsDir, "annotated", "output.review.txt"))
	assert.NoError(t, err)
}

func TestReviewDiffUnknownStrategy(t *testing.T) {
	runner, _ := newTestRunner(t, "inline-phrase", config.ArtifactModeSingle)
	runner.opts.Strategy = "telepathy"

	_, err := runner.ReviewDiff(context.Background(), multiFileDiff, annotateEverything)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestReviewDiffModelFailureIsPerFile(t *testing.T) {
	runner, _ := newTestRunner(t, "inline-phrase", config.ArtifactModeSingle)

	failOnY := func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "y.go") {
			return "", errors.New("model unavailable")
		}
		return annotateEverything(ctx, prompt)
	}

	results, err := runner.ReviewDiff(context.Background(), multiFileDiff, failOnY)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Contains(t, r.Error, "model invocation failed")
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)
}

func TestPerFileModeDeterministicPaths(t *testing.T) {
	runner, _ := newTestRunner(t, "inline-phrase", config.ArtifactModePerFile)

	first, err := runner.ReviewDiff(context.Background(), multiFileDiff, annotateEverything)
	require.NoError(t, err)

	second, err := runner.ReviewDiff(context.Background(), multiFileDiff, annotateEverything)
	require.NoError(t, err)

	paths := func(results []FileResult) map[string]string {
		out := map[string]string{}
		for _, r := range results {
			require.NoError(t, r.Err)
			require.Len(t, r.Artifacts, 1)
			out[r.FilePath] = r.Artifacts[0].RelativePath
		}
		return out
	}

	// Identical (filePath, diffText) hashes to the identical artifact path.
	assert.Equal(t, paths(first), paths(second))

	// Different files land on different artifacts despite shared kind.
	p := paths(first)
	assert.NotEqual(t, p["x.ts"], p["y.go"])
}

func TestCompareRunsAllStrategies(t *testing.T) {
	runner, opts := newTestRunner(t, "inline-phrase", config.ArtifactModeSingle)

	byStrategy, err := runner.Compare(context.Background(), multiFileDiff, annotateEverything)
	require.NoError(t, err)
	require.Len(t, byStrategy, len(config.StrategyIDs))

	for _, id := range config.StrategyIDs {
		require.Contains(t, byStrategy, id)
		assert.Len(t, byStrategy[id], 2, id)
	}

	// Harness layout: per-strategy prompt and response files.
	promptPath := filepath.Join(opts.ArtifactsDir, "inline-phrase", "x.ts.prompt.txt")
	_, err = os.Stat(promptPath)
	assert.NoError(t, err)

	responsePath := filepath.Join(opts.ArtifactsDir, "json-lines", "y.go.response.txt")
	_, err = os.Stat(responsePath)
	assert.NoError(t, err)

	// The phrase response parses for inline-phrase; json codecs fail closed
	// on the same non-JSON response without erroring.
	for _, r := range byStrategy["json-lines"] {
		require.NoError(t, r.Err)
		assert.Empty(t, r.Annotations)
	}
	for _, r := range byStrategy["inline-phrase"] {
		require.NoError(t, r.Err)
		assert.NotEmpty(t, r.Annotations)
	}
}

func TestReviewDiffEmptyInput(t *testing.T) {
	runner, _ := newTestRunner(t, "inline-phrase", config.ArtifactModeSingle)

	results, err := runner.ReviewDiff(context.Background(), "", annotateEverything)
	require.NoError(t, err)
	assert.Empty(t, results)
}
