package strategy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/diffreview/internal/artifacts"
	"github.com/diffreview/internal/config"
	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

const testDiff = "diff --git a/x.ts b/x.ts\n@@ -1,2 +1,3 @@\n line1\n+line2\n line3"

// newTestInput builds a PrepareInput over temp stores for one test.
func newTestInput(t *testing.T, mode config.ArtifactMode) PrepareInput {
	t.Helper()

	opts := &config.Options{
		Strategy:         "inline-phrase",
		DiffArtifactMode: mode,
		ArtifactsDir:     t.TempDir(),
		WorkspaceDir:     t.TempDir(),
	}

	return PrepareInput{
		FilePath:      "x.ts",
		Diff:          testDiff,
		FormattedDiff: diff.Format(testDiff, diff.FormatOptions{}),
		Options:       opts,
		Store:         artifacts.NewStore(opts.ArtifactsDir),
		Workspace:     artifacts.NewStore(opts.WorkspaceDir),
		Log:           zerolog.Nop(),
	}
}

// runPipeline executes Prepare then Process with a canned response.
func runPipeline(t *testing.T, s Strategy, in PrepareInput, response string) ProcessResult {
	t.Helper()

	prepared, err := s.Prepare(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, prepared.Prompt)

	processed, err := s.Process(context.Background(), ProcessInput{
		FilePath:     in.FilePath,
		ResponseText: response,
		Metadata:     prepared.Metadata,
		Options:      in.Options,
		Store:        in.Store,
		Workspace:    in.Workspace,
		Log:          in.Log,
	})
	require.NoError(t, err)
	return processed
}

// scores projects annotations to their scores for compact assertions.
func scores(annotations []models.Annotation) []float64 {
	out := make([]float64, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, a.ShouldBeReviewedScore)
	}
	return out
}
