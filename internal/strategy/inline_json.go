package strategy

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// jsonMarkerRe locates a trailing `// {...}` annotation object.
var jsonMarkerRe = regexp.MustCompile(`//\s*\{`)

// inlineAnnotationPayload is the per-line JSON object the inline-json codec
// asks the model to append.
type inlineAnnotationPayload struct {
	Score             *float64 `json:"score"`
	Phrase            string   `json:"phrase"`
	Comment           string   `json:"comment"`
	MostImportantWord string   `json:"mostImportantWord"`
}

// inlineJSON expects the model to echo the diff with a single-line JSON
// object appended to changed lines.
type inlineJSON struct{}

// NewInlineJSON returns the inline-json strategy.
func NewInlineJSON() Strategy {
	return &inlineJSON{}
}

func (s *inlineJSON) Name() string {
	return "inline-json"
}

func (s *inlineJSON) Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error) {
	rendered := diff.Render(in.FormattedDiff)

	ref, err := persistDiff(in, rendered)
	if err != nil {
		return PrepareResult{}, err
	}

	meta := make(map[string]any)
	newBaseMetadata(in, ref.RelativePath).fill(meta)

	return PrepareResult{
		Prompt:   buildPrompt(inlineJSONInstructions, in.FilePath, in.FormattedDiff),
		Metadata: meta,
	}, nil
}

func (s *inlineJSON) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	base := baseMetadataFrom(in.Metadata)

	responseRef, err := persistResponse(in, base.AnnotatedPath, base.AnnotatedAppend)
	if err != nil {
		return ProcessResult{}, err
	}

	annotations := scanLines(in.ResponseText, in.Log, parseJSONLine)

	return ProcessResult{
		RawResponse: in.ResponseText,
		Artifacts:   []models.ArtifactRef{responseRef},
		Annotations: annotations,
	}, nil
}

// parseJSONLine extracts the trailing JSON object from a candidate line. The
// marker here is `//` followed by an object; the score lives inside the JSON
// instead of the positional grammar. Malformed JSON drops the line.
func parseJSONLine(line string) (models.Annotation, bool) {
	loc := jsonMarkerRe.FindStringIndex(line)
	if loc == nil {
		return models.Annotation{}, false
	}

	content := strings.TrimRight(line[:loc[0]], " \t")
	raw := line[strings.Index(line[loc[0]:], "{")+loc[0]:]

	payload, ok := decodeInlinePayload(raw)
	if !ok || payload.Score == nil || !validScore(*payload.Score) {
		return models.Annotation{}, false
	}

	return models.Annotation{
		LineContent:           content,
		ShouldBeReviewedScore: *payload.Score,
		HighlightPhrase:       models.StrPtr(payload.Phrase),
		MostImportantWord:     models.StrPtr(payload.MostImportantWord),
		Comment:               models.StrPtr(payload.Comment),
	}, true
}

// decodeInlinePayload parses a per-line annotation object, allowing one
// syntactic repair pass before the strict re-parse. A payload that still
// fails to parse rejects the line.
func decodeInlinePayload(raw string) (inlineAnnotationPayload, bool) {
	var payload inlineAnnotationPayload

	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return payload, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return inlineAnnotationPayload{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return inlineAnnotationPayload{}, false
	}

	return payload, true
}
