package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/diffreview/pkg/models"
)

// FormatOptions controls line numbering during formatting.
type FormatOptions struct {
	// ShowLineNumbers attaches old/new line numbers to added and removed
	// lines.
	ShowLineNumbers bool
	// IncludeContextLineNumbers additionally numbers unchanged context
	// lines. Has no effect unless ShowLineNumbers is set.
	IncludeContextLineNumbers bool
}

// hunkRe matches "@@ -a,b +c,d @@" headers. The count fields are optional in
// the format ("@@ -a +c @@" for single-line hunks).
var hunkRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Format renders a single file's diff into structured lines, walking hunk
// headers to assign per-side line numbers.
//
// Added lines advance the new-side counter only, removed lines the old side
// only, context lines both. A malformed hunk header degrades the remainder of
// the file to an unnumbered passthrough rather than failing the file.
// Line order and content are preserved exactly; no line is dropped.
func Format(diffText string, opts FormatOptions) []models.UnifiedDiffLine {
	lines := strings.Split(diffText, "\n")
	// Trailing newline yields one empty trailing element; keep the split
	// faithful otherwise.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	result := make([]models.UnifiedDiffLine, 0, len(lines))

	var oldLine, newLine int
	inHunk := false
	degraded := false

	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			matches := hunkRe.FindStringSubmatch(line)
			if matches == nil {
				degraded = true
			} else {
				oldLine, _ = strconv.Atoi(matches[1])
				newLine, _ = strconv.Atoi(matches[3])
				inHunk = true
			}
			result = append(result, models.UnifiedDiffLine{
				Origin:  models.OriginHunkHeader,
				Content: line,
			})
			continue
		}

		if !inHunk || degraded {
			entry := models.UnifiedDiffLine{
				Origin:  models.OriginFileHeader,
				Content: line,
			}
			if inHunk || degraded {
				entry.Origin = originOf(line)
				entry.Content = stripMarker(line)
			}
			result = append(result, entry)
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			entry := models.UnifiedDiffLine{
				Origin:  models.OriginAdded,
				Content: line[1:],
			}
			if opts.ShowLineNumbers {
				entry.NewLineNumber = models.IntPtr(newLine)
			}
			newLine++
			result = append(result, entry)

		case strings.HasPrefix(line, "-"):
			entry := models.UnifiedDiffLine{
				Origin:  models.OriginRemoved,
				Content: line[1:],
			}
			if opts.ShowLineNumbers {
				entry.OldLineNumber = models.IntPtr(oldLine)
			}
			oldLine++
			result = append(result, entry)

		default:
			content := line
			if strings.HasPrefix(line, " ") {
				content = line[1:]
			}
			entry := models.UnifiedDiffLine{
				Origin:  models.OriginContext,
				Content: content,
			}
			if opts.ShowLineNumbers && opts.IncludeContextLineNumbers {
				entry.OldLineNumber = models.IntPtr(oldLine)
				entry.NewLineNumber = models.IntPtr(newLine)
			}
			oldLine++
			newLine++
			result = append(result, entry)
		}
	}

	return result
}

// stripMarker removes the leading diff marker from a content line.
func stripMarker(line string) string {
	if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ") {
		return line[1:]
	}
	return line
}

// originOf classifies a content line when numbering has been abandoned.
func originOf(line string) models.LineOrigin {
	switch {
	case strings.HasPrefix(line, "+"):
		return models.OriginAdded
	case strings.HasPrefix(line, "-"):
		return models.OriginRemoved
	default:
		return models.OriginContext
	}
}

// Render produces the prompt-facing text form of a formatted diff. Numbered
// content lines get an "old|new|" gutter plus the original diff marker;
// everything else is emitted verbatim.
func Render(lines []models.UnifiedDiffLine) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(RenderLine(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderLine renders one formatted line without a trailing newline.
func RenderLine(line models.UnifiedDiffLine) string {
	if !line.Touched() {
		return line.Content
	}

	marker := " "
	switch line.Origin {
	case models.OriginAdded:
		marker = "+"
	case models.OriginRemoved:
		marker = "-"
	}

	if line.OldLineNumber == nil && line.NewLineNumber == nil {
		return marker + line.Content
	}

	return fmt.Sprintf("%s|%s|%s%s", gutter(line.OldLineNumber), gutter(line.NewLineNumber), marker, line.Content)
}

func gutter(n *int) string {
	if n == nil {
		return "    "
	}
	return fmt.Sprintf("%4d", *n)
}
