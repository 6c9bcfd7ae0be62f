package strategy

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// The json-lines, line-numbers, and openai-responses codecs all expect one
// JSON document with a lines[] array and differ only in how an item names its
// diff line (literal text vs. 1-based position) and in response envelope
// handling. docCodec carries those differences as data.

// docLineItem is one entry of the lines[] array.
type docLineItem struct {
	Line              *string  `json:"line"`
	LineNumber        *int     `json:"lineNumber"`
	Score             *float64 `json:"score"`
	Why               string   `json:"why"`
	Comment           string   `json:"comment"`
	MostImportantWord string   `json:"mostImportantWord"`
}

// annotationDoc is the whole-response document shape.
type annotationDoc struct {
	Lines []docLineItem `json:"lines"`
}

type docCodec struct {
	name         string
	instructions string

	// byLineNumber items reference diff positions and are resolved against
	// the formatted diff's content lines, remembered through metadata.
	byLineNumber bool

	// unwrapEnvelope strips the OpenAI Responses API envelope before the
	// document parse.
	unwrapEnvelope bool
}

// NewJSONLines returns the json-lines strategy: items carry literal changed
// line text.
func NewJSONLines() Strategy {
	return &docCodec{name: "json-lines", instructions: jsonLinesInstructions}
}

// NewLineNumbers returns the line-numbers strategy: items reference diff
// content lines by 1-based position.
func NewLineNumbers() Strategy {
	return &docCodec{name: "line-numbers", instructions: lineNumbersInstructions, byLineNumber: true}
}

// NewOpenAIResponses returns the openai-responses strategy: line-numbers
// semantics wrapped in the OpenAI Responses API envelope.
func NewOpenAIResponses() Strategy {
	return &docCodec{
		name:           "openai-responses",
		instructions:   lineNumbersInstructions,
		byLineNumber:   true,
		unwrapEnvelope: true,
	}
}

func (s *docCodec) Name() string {
	return s.name
}

func (s *docCodec) Prepare(ctx context.Context, in PrepareInput) (PrepareResult, error) {
	rendered := diff.Render(in.FormattedDiff)

	ref, err := persistDiff(in, rendered)
	if err != nil {
		return PrepareResult{}, err
	}

	meta := make(map[string]any)
	newBaseMetadata(in, ref.RelativePath).fill(meta)

	if s.byLineNumber {
		meta[metaContentLines] = contentLines(in.FormattedDiff)
	}

	return PrepareResult{
		Prompt:   buildPrompt(s.instructions, in.FilePath, in.FormattedDiff),
		Metadata: meta,
	}, nil
}

func (s *docCodec) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	base := baseMetadataFrom(in.Metadata)

	responseRef, err := persistResponse(in, base.AnnotatedPath, base.AnnotatedAppend)
	if err != nil {
		return ProcessResult{}, err
	}

	text := in.ResponseText
	if s.unwrapEnvelope {
		text = unwrapResponsesEnvelope(text)
	}

	// Whole-document parse is fail-closed: a response that cannot be parsed
	// yields zero annotations rather than a best-effort partial repair. The
	// raw response artifact above keeps the failure auditable.
	doc, ok := decodeAnnotationDoc(text, in.Log)
	if !ok {
		in.Log.Debug().Str("strategy", s.name).Str("file", in.FilePath).Msg("response document unparsable, dropping all annotations")
		return ProcessResult{
			RawResponse: in.ResponseText,
			Artifacts:   []models.ArtifactRef{responseRef},
		}, nil
	}

	lines := stringSliceValue(in.Metadata, metaContentLines)

	var annotations []models.Annotation
	for _, item := range doc.Lines {
		annotation, ok := s.annotationFromItem(item, lines)
		if !ok {
			continue
		}
		annotations = append(annotations, annotation)
	}

	return ProcessResult{
		RawResponse: in.ResponseText,
		Artifacts:   []models.ArtifactRef{responseRef},
		Annotations: annotations,
	}, nil
}

// annotationFromItem validates one lines[] entry. Items with a missing or
// out-of-range score, or an unresolvable line reference, are dropped.
func (s *docCodec) annotationFromItem(item docLineItem, lines []string) (models.Annotation, bool) {
	if item.Score == nil || !validScore(*item.Score) {
		return models.Annotation{}, false
	}

	var lineContent string
	if s.byLineNumber {
		if item.LineNumber == nil || *item.LineNumber < 1 || *item.LineNumber > len(lines) {
			return models.Annotation{}, false
		}
		lineContent = lines[*item.LineNumber-1]
	} else {
		if item.Line == nil {
			return models.Annotation{}, false
		}
		lineContent = *item.Line
	}

	comment := item.Why
	if comment == "" {
		comment = item.Comment
	}

	return models.Annotation{
		LineContent:           lineContent,
		ShouldBeReviewedScore: *item.Score,
		MostImportantWord:     models.StrPtr(item.MostImportantWord),
		Comment:               models.StrPtr(comment),
	}, true
}

// contentLines collects the content of added/removed/context lines in diff
// order; positions in this slice are what lineNumber references resolve to.
func contentLines(formatted []models.UnifiedDiffLine) []string {
	var lines []string
	for _, line := range formatted {
		if line.Touched() {
			lines = append(lines, line.Content)
		}
	}
	return lines
}

// decodeAnnotationDoc parses the whole response document, allowing one
// syntactic jsonrepair pass before the strict re-parse.
func decodeAnnotationDoc(text string, logger zerolog.Logger) (annotationDoc, bool) {
	text = stripCodeFences(text)

	var doc annotationDoc
	if err := json.Unmarshal([]byte(text), &doc); err == nil {
		return doc, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return annotationDoc{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return annotationDoc{}, false
	}

	logger.Debug().Msg("response document parsed after JSON repair")
	return doc, true
}

// responsesEnvelope is the subset of the OpenAI Responses API shape the codec
// unwraps.
type responsesEnvelope struct {
	Output []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// unwrapResponsesEnvelope extracts output text from a Responses API payload.
// A response that is not an envelope is passed through untouched.
func unwrapResponsesEnvelope(text string) string {
	var envelope responsesEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &envelope); err != nil {
		return text
	}

	var sb strings.Builder
	for _, output := range envelope.Output {
		for _, content := range output.Content {
			if content.Type == "" || content.Type == "output_text" {
				sb.WriteString(content.Text)
			}
		}
	}

	if sb.Len() == 0 {
		return text
	}
	return sb.String()
}

// stripCodeFences removes a wrapping Markdown code fence, which models add
// around JSON documents despite instructions not to.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
