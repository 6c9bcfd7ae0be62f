package strategy

import (
	"context"
	"strings"

	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// Bracket markers wrap the salient span in place: `const {|x|} = 1`.
const (
	bracketOpen  = "{|"
	bracketClose = "|}"
)

// inlineBrackets expects the model to echo the diff with the salient span
// wrapped in {| |} markers and `// review <score> <comment?>` appended.
type inlineBrackets struct{}

// NewInlineBrackets returns the inline-brackets strategy.
func NewInlineBrackets() Strategy {
	return &inlineBrackets{}
}

func (s *inlineBrackets) Name() string {
	return "inline-brackets"
}

func (s *inlineBrackets) Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error) {
	rendered := diff.Render(in.FormattedDiff)

	ref, err := persistDiff(in, rendered)
	if err != nil {
		return PrepareResult{}, err
	}

	meta := make(map[string]any)
	newBaseMetadata(in, ref.RelativePath).fill(meta)

	return PrepareResult{
		Prompt:   buildPrompt(inlineBracketsInstructions, in.FilePath, in.FormattedDiff),
		Metadata: meta,
	}, nil
}

func (s *inlineBrackets) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	base := baseMetadataFrom(in.Metadata)

	responseRef, err := persistResponse(in, base.AnnotatedPath, base.AnnotatedAppend)
	if err != nil {
		return ProcessResult{}, err
	}

	annotations := scanLines(in.ResponseText, in.Log, parseBracketLine)

	return ProcessResult{
		RawResponse: in.ResponseText,
		Artifacts:   []models.ArtifactRef{responseRef},
		Annotations: annotations,
	}, nil
}

// parseBracketLine applies the shared marker/score policy and extracts the
// span between the first {| and the first |} after it. The emitted line
// content is cleaned of the markers with the span text kept in place.
func parseBracketLine(line string) (models.Annotation, bool) {
	candidate, ok := findMarker(line)
	if !ok {
		return models.Annotation{}, false
	}

	score, comment, ok := parseLeadingScore(candidate.remainder)
	if !ok {
		return models.Annotation{}, false
	}

	phrase, cleaned := extractBracketSpan(candidate.content)

	annotation := models.Annotation{
		LineContent:           cleaned,
		ShouldBeReviewedScore: score,
		Comment:               models.StrPtr(comment),
	}
	if phrase != "" {
		annotation.HighlightPhrase = models.StrPtr(phrase)
	}

	return annotation, true
}

// extractBracketSpan pulls the {| |}-delimited span out of a line. When the
// markers are missing or unbalanced the line is returned untouched with an
// empty span; the annotation still stands on the score alone.
func extractBracketSpan(content string) (phrase, cleaned string) {
	open := strings.Index(content, bracketOpen)
	if open < 0 {
		return "", content
	}

	rest := content[open+len(bracketOpen):]
	closeIdx := strings.Index(rest, bracketClose)
	if closeIdx < 0 {
		return "", content
	}

	phrase = rest[:closeIdx]
	cleaned = content[:open] + phrase + rest[closeIdx+len(bracketClose):]
	return phrase, cleaned
}
