// Package strategy implements the pluggable annotation wire formats used to
// drive automated diff review. A Strategy turns a formatted diff into a model
// prompt (Prepare) and parses the model's free-form response back into
// structured line-level annotations (Process). Seven incompatible formats are
// supported simultaneously because no single encoding is equally reliable
// across every model.
package strategy

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/diffreview/internal/artifacts"
	"github.com/diffreview/internal/config"
	"github.com/diffreview/pkg/models"
)

// Strategy is one annotation wire format. Implementations are stateless; a
// single instance may serve any number of concurrently reviewed files, with
// all per-run state carried in the inputs and the metadata bag.
type Strategy interface {
	// Name returns the registry id of the strategy.
	Name() string

	// Prepare renders the prompt for one file's diff. The returned metadata
	// is handed back unchanged to Process.
	Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error)

	// Process parses the raw model response into annotations and persists
	// audit artifacts. It must persist the raw response even when zero
	// annotations are extracted.
	Process(ctx context.Context, in ProcessInput) (ProcessResult, error)
}

// PrepareInput carries everything a strategy needs to build a prompt for one
// file.
type PrepareInput struct {
	FilePath      string
	Diff          string
	FormattedDiff []models.UnifiedDiffLine
	Options       *config.Options

	// Store persists artifacts under the artifacts directory; Workspace
	// persists model-editable files under the workspace directory.
	Store     *artifacts.Store
	Workspace *artifacts.Store

	Log zerolog.Logger
}

// PrepareResult is the prompt plus an opaque metadata bag. Each strategy
// defines its own typed metadata internally; the map boundary keeps the
// driver polymorphic over all of them.
type PrepareResult struct {
	Prompt   string
	Metadata map[string]any
}

// ProcessInput carries the untrusted model response for one file together
// with the metadata its Prepare call produced.
type ProcessInput struct {
	FilePath     string
	ResponseText string
	Metadata     map[string]any
	Options      *config.Options

	Store     *artifacts.Store
	Workspace *artifacts.Store

	Log zerolog.Logger
}

// ProcessResult is the uniform output shape every codec produces.
type ProcessResult struct {
	// RawResponse echoes the input response for audit.
	RawResponse string
	Artifacts   []models.ArtifactRef
	Annotations []models.Annotation
}

// validScore reports whether a parsed score is usable. Out-of-range values
// are a parse failure for that candidate, never clamped.
func validScore(score float64) bool {
	return score >= 0.0 && score <= 1.0
}

// diffArtifactPath resolves where a file's diff artifact lives for the
// configured mode.
func diffArtifactPath(opts *config.Options, filePath, diffText string) (relPath string, appendMode bool) {
	if opts.DiffArtifactMode == config.ArtifactModePerFile {
		return artifacts.PerFilePath(artifacts.KindDiff, filePath, diffText), false
	}
	return artifacts.SingleModePath(artifacts.KindDiff), true
}

// annotatedArtifactPath resolves where a file's response artifact lives for
// the configured mode.
func annotatedArtifactPath(opts *config.Options, filePath, diffText string) (relPath string, appendMode bool) {
	if opts.DiffArtifactMode == config.ArtifactModePerFile {
		return artifacts.PerFilePath(artifacts.KindAnnotated, filePath, diffText), false
	}
	return artifacts.SingleModePath(artifacts.KindAnnotated), true
}

// persistDiff writes the rendered diff artifact for one file and returns its
// reference. In single mode entries are prefixed with a file banner so the
// aggregated document stays attributable.
func persistDiff(in PrepareInput, rendered string) (models.ArtifactRef, error) {
	relPath, appendMode := diffArtifactPath(in.Options, in.FilePath, in.Diff)

	content := rendered
	if appendMode {
		content = "=== " + in.FilePath + " ===\n" + rendered
	}

	written, err := in.Store.Persist(relPath, content, appendMode)
	if err != nil {
		return models.ArtifactRef{}, err
	}

	return models.ArtifactRef{Label: "diff", RelativePath: written}, nil
}

// persistResponse writes the raw model response artifact for one file. The
// destination was resolved during Prepare and travels through metadata, since
// Process no longer sees the diff text the per-file hash derives from.
func persistResponse(in ProcessInput, relPath string, appendMode bool) (models.ArtifactRef, error) {
	content := in.ResponseText
	if appendMode {
		content = "=== " + in.FilePath + " ===\n" + in.ResponseText
	}

	written, err := in.Store.Persist(relPath, content, appendMode)
	if err != nil {
		return models.ArtifactRef{}, err
	}

	return models.ArtifactRef{Label: "response", RelativePath: written}, nil
}
