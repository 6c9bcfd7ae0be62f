package models

// FileDiff is one file's section of a multi-file unified diff.
type FileDiff struct {
	FilePath string
	DiffText string
}

// LineOrigin classifies a line of a unified diff.
type LineOrigin string

const (
	OriginFileHeader LineOrigin = "file_header"
	OriginHunkHeader LineOrigin = "hunk_header"
	OriginAdded      LineOrigin = "added"
	OriginRemoved    LineOrigin = "removed"
	OriginContext    LineOrigin = "context"
)

// UnifiedDiffLine is one line of a formatted, single-file diff.
//
// OldLineNumber and NewLineNumber are set only for added/removed/context
// lines, and only when the corresponding numbering flag was enabled during
// formatting. Content has the diff marker stripped for numbered lines and is
// kept verbatim for header lines.
type UnifiedDiffLine struct {
	Origin        LineOrigin `json:"origin"`
	OldLineNumber *int       `json:"oldLineNumber,omitempty"`
	NewLineNumber *int       `json:"newLineNumber,omitempty"`
	Content       string     `json:"content"`
}

// Touched reports whether the line carries file content (as opposed to a
// diff or hunk header).
func (l UnifiedDiffLine) Touched() bool {
	switch l.Origin {
	case OriginAdded, OriginRemoved, OriginContext:
		return true
	}
	return false
}

// Annotation is the normalized, codec-independent record of one line-level
// review judgment. Every strategy produces this shape regardless of the wire
// format it parsed.
type Annotation struct {
	// LineContent is the line text the annotation refers to. Fidelity is
	// codec-dependent: verbatim for the bracket/phrase codecs, reconstructed
	// from the formatted diff for numeric-reference codecs.
	LineContent string `json:"lineContent"`

	// ShouldBeReviewedScore is always in [0.0, 1.0]. Codecs drop candidates
	// whose score is missing or out of range; scores are never clamped.
	ShouldBeReviewedScore float64 `json:"shouldBeReviewedScore"`

	HighlightPhrase   *string `json:"highlightPhrase,omitempty"`
	MostImportantWord *string `json:"mostImportantWord,omitempty"`
	Comment           *string `json:"shouldReviewWhy,omitempty"`
}

// ArtifactRef names a persisted byproduct of a strategy run.
type ArtifactRef struct {
	Label        string `json:"label"`
	RelativePath string `json:"relativePath"`
}

// StrPtr returns a pointer to s, or nil when s is empty. Annotation optional
// fields use nil for "absent" rather than the empty string.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
