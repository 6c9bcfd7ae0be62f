package strategy

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/diffreview/internal/artifacts"
	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// inlineFiles is the structurally distinct codec: instead of reading the chat
// response, it writes the diff to a workspace file during Prepare, has the
// model edit that file in place with inline-phrase markers, and re-reads the
// file from disk during Process. ResponseText is persisted for audit but
// contributes no annotations.
type inlineFiles struct{}

// NewInlineFiles returns the inline-files strategy.
func NewInlineFiles() Strategy {
	return &inlineFiles{}
}

func (s *inlineFiles) Name() string {
	return "inline-files"
}

func (s *inlineFiles) Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error) {
	rendered := diff.Render(in.FormattedDiff)

	ref, err := persistDiff(in, rendered)
	if err != nil {
		return PrepareResult{}, err
	}

	// The workspace file must exist before the prompt is returned so the
	// model has something to edit.
	inlinePath := workspaceFilePath(in.FilePath, in.Diff)
	if _, err := in.Workspace.Persist(inlinePath, rendered, false); err != nil {
		return PrepareResult{}, fmt.Errorf("failed to create inline workspace file: %w", err)
	}

	in.Log.Debug().Str("file", in.FilePath).Str("workspaceFile", inlinePath).Msg("wrote inline review file")

	meta := make(map[string]any)
	newBaseMetadata(in, ref.RelativePath).fill(meta)
	meta[metaInlineFileRelative] = inlinePath

	prompt := buildPrompt(
		fmt.Sprintf(inlineFilesInstructionsFmt, filepath.Join(in.Workspace.Root(), inlinePath)),
		in.FilePath,
		in.FormattedDiff,
	)

	return PrepareResult{Prompt: prompt, Metadata: meta}, nil
}

func (s *inlineFiles) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	base := baseMetadataFrom(in.Metadata)

	responseRef, err := persistResponse(in, base.AnnotatedPath, base.AnnotatedAppend)
	if err != nil {
		return ProcessResult{}, err
	}

	inlinePath := stringValue(in.Metadata, metaInlineFileRelative)
	if inlinePath == "" {
		return ProcessResult{}, fmt.Errorf("inline file metadata missing for %s", in.FilePath)
	}

	// The on-disk file is the source of truth. A missing or unreadable file
	// is fatal for this file only; the caller reports it and moves on.
	edited, err := in.Workspace.Read(inlinePath)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("inline review file unreadable for %s: %w", in.FilePath, err)
	}

	annotations := scanLines(edited, in.Log, parsePhraseLine)

	return ProcessResult{
		RawResponse: in.ResponseText,
		Artifacts:   []models.ArtifactRef{responseRef},
		Annotations: annotations,
	}, nil
}

// workspaceFilePath mirrors the per-file artifact naming so two same-basename
// files never collide in the workspace.
func workspaceFilePath(filePath, diffText string) string {
	return filepath.Join("inline", filepath.Base(artifacts.PerFilePath(artifacts.KindDiff, filePath, diffText)))
}
