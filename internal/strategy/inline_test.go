package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffreview/internal/config"
)

func TestParsePhraseLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantOK      bool
		wantScore   float64
		wantPhrase  string
		wantComment string
	}{
		{
			name:        "full annotation",
			line:        `+	user := db.LookupUser(id) // review 0.7 "LookupUser(id)" missing error check`,
			wantOK:      true,
			wantScore:   0.7,
			wantPhrase:  "LookupUser(id)",
			wantComment: "missing error check",
		},
		{
			name:      "score only",
			line:      "foo() // review 0.5",
			wantOK:    true,
			wantScore: 0.5,
		},
		{
			name:   "no marker",
			line:   "plain line of code",
			wantOK: false,
		},
		{
			name:   "marker without score",
			line:   `x // review "x" comment`,
			wantOK: false,
		},
		{
			name:   "score above one",
			line:   "x // review 1.5 too eager",
			wantOK: false,
		},
		{
			name:   "negative score",
			line:   "x // review -0.1 nope",
			wantOK: false,
		},
		{
			name:   "non-numeric score",
			line:   "x // review high risky",
			wantOK: false,
		},
		{
			name:      "marker case insensitive",
			line:      "x // REVIEW 0.25",
			wantOK:    true,
			wantScore: 0.25,
		},
		{
			name:      "space between slashes and keyword",
			line:      "x //  review 1.0",
			wantOK:    true,
			wantScore: 1.0,
		},
		{
			name:      "boundary zero",
			line:      "x // review 0.0",
			wantOK:    true,
			wantScore: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotation, ok := parsePhraseLine(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}

			assert.Equal(t, tt.wantScore, annotation.ShouldBeReviewedScore)
			if tt.wantPhrase != "" {
				require.NotNil(t, annotation.HighlightPhrase)
				assert.Equal(t, tt.wantPhrase, *annotation.HighlightPhrase)
			}
			if tt.wantComment != "" {
				require.NotNil(t, annotation.Comment)
				assert.Equal(t, tt.wantComment, *annotation.Comment)
			}
		})
	}
}

func TestParseBracketLine(t *testing.T) {
	annotation, ok := parseBracketLine("const {|x|} = 1; // review 0.8 looks risky")
	require.True(t, ok)

	assert.Equal(t, 0.8, annotation.ShouldBeReviewedScore)
	require.NotNil(t, annotation.HighlightPhrase)
	assert.Equal(t, "x", *annotation.HighlightPhrase)
	require.NotNil(t, annotation.Comment)
	assert.Equal(t, "looks risky", *annotation.Comment)
	// Brackets removed, span text kept in place.
	assert.Equal(t, "const x = 1;", annotation.LineContent)
}

func TestParseBracketLineWithoutSpan(t *testing.T) {
	annotation, ok := parseBracketLine("return err // review 0.4")
	require.True(t, ok)
	assert.Nil(t, annotation.HighlightPhrase)
	assert.Equal(t, "return err", annotation.LineContent)
}

func TestParseBracketLineUnbalanced(t *testing.T) {
	annotation, ok := parseBracketLine("const {|x = 1; // review 0.6")
	require.True(t, ok)
	// Unbalanced markers: no span, line untouched.
	assert.Nil(t, annotation.HighlightPhrase)
	assert.Equal(t, "const {|x = 1;", annotation.LineContent)
}

func TestParseBracketLineOutOfRangeScore(t *testing.T) {
	_, ok := parseBracketLine("const {|x|} = 1; // review 1.5 over")
	assert.False(t, ok)

	_, ok = parseBracketLine("const {|x|} = 1; // review -0.1 under")
	assert.False(t, ok)
}

func TestParseJSONLine(t *testing.T) {
	annotation, ok := parseJSONLine(`user := db.LookupUser(id) // {"score": 0.7, "phrase": "LookupUser(id)", "comment": "missing error check"}`)
	require.True(t, ok)

	assert.Equal(t, "user := db.LookupUser(id)", annotation.LineContent)
	assert.Equal(t, 0.7, annotation.ShouldBeReviewedScore)
	require.NotNil(t, annotation.HighlightPhrase)
	assert.Equal(t, "LookupUser(id)", *annotation.HighlightPhrase)
	require.NotNil(t, annotation.Comment)
	assert.Equal(t, "missing error check", *annotation.Comment)
}

func TestParseJSONLineRepairsTrailingComma(t *testing.T) {
	annotation, ok := parseJSONLine(`x() // {"score": 0.3, "comment": "minor",}`)
	require.True(t, ok)
	assert.Equal(t, 0.3, annotation.ShouldBeReviewedScore)
}

func TestParseJSONLineRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "no marker", line: "plain code"},
		{name: "missing score", line: `x // {"comment": "no score"}`},
		{name: "score out of range", line: `x // {"score": 2.0}`},
		{name: "repaired but still scoreless", line: `x // {"comment": unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseJSONLine(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestInlinePhrasePipeline(t *testing.T) {
	in := newTestInput(t, config.ArtifactModeSingle)

	response := `diff --git a/x.ts b/x.ts
@@ -1,2 +1,3 @@
 line1
+line2 // review 0.9 "line2" suspicious addition
 line3`

	result := runPipeline(t, NewInlinePhrase(), in, response)

	require.Len(t, result.Annotations, 1)
	assert.Equal(t, []float64{0.9}, scores(result.Annotations))
	assert.Equal(t, response, result.RawResponse)

	// Raw response artifact always persisted.
	require.Len(t, result.Artifacts, 1)
	content, err := in.Store.Read(result.Artifacts[0].RelativePath)
	require.NoError(t, err)
	assert.Contains(t, content, "suspicious addition")
}

func TestInlineBracketsPipelineSkipsBadLines(t *testing.T) {
	in := newTestInput(t, config.ArtifactModeSingle)

	response := `+good := {|call()|} // review 0.6 fine
+bad := other() // review 7.0 way out of range
+ignored line with no marker`

	result := runPipeline(t, NewInlineBrackets(), in, response)

	// Per-line failure drops only that line.
	require.Len(t, result.Annotations, 1)
	assert.Equal(t, 0.6, result.Annotations[0].ShouldBeReviewedScore)
}
