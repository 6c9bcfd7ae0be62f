package strategy

import (
	"context"

	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// inlinePhrase expects the model to echo the diff with
// `// review <score> "<snippet>" <comment?>` appended to changed lines.
type inlinePhrase struct{}

// NewInlinePhrase returns the inline-phrase strategy.
func NewInlinePhrase() Strategy {
	return &inlinePhrase{}
}

func (s *inlinePhrase) Name() string {
	return "inline-phrase"
}

func (s *inlinePhrase) Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error) {
	rendered := diff.Render(in.FormattedDiff)

	ref, err := persistDiff(in, rendered)
	if err != nil {
		return PrepareResult{}, err
	}

	meta := make(map[string]any)
	newBaseMetadata(in, ref.RelativePath).fill(meta)

	return PrepareResult{
		Prompt:   buildPrompt(inlinePhraseInstructions, in.FilePath, in.FormattedDiff),
		Metadata: meta,
	}, nil
}

func (s *inlinePhrase) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	base := baseMetadataFrom(in.Metadata)

	responseRef, err := persistResponse(in, base.AnnotatedPath, base.AnnotatedAppend)
	if err != nil {
		return ProcessResult{}, err
	}

	annotations := scanLines(in.ResponseText, in.Log, parsePhraseLine)

	return ProcessResult{
		RawResponse: in.ResponseText,
		Artifacts:   []models.ArtifactRef{responseRef},
		Annotations: annotations,
	}, nil
}

// parsePhraseLine applies the shared marker/score policy and pulls the quoted
// snippet out of the remainder. A marker line with a missing or out-of-range
// score is dropped, not defaulted.
func parsePhraseLine(line string) (models.Annotation, bool) {
	candidate, ok := findMarker(line)
	if !ok {
		return models.Annotation{}, false
	}

	score, rest, ok := parseLeadingScore(candidate.remainder)
	if !ok {
		return models.Annotation{}, false
	}

	snippet, rest, hasSnippet := extractQuoted(rest)

	annotation := models.Annotation{
		LineContent:           candidate.content,
		ShouldBeReviewedScore: score,
		Comment:               models.StrPtr(rest),
	}
	if hasSnippet {
		annotation.HighlightPhrase = models.StrPtr(snippet)
	}

	return annotation, true
}
