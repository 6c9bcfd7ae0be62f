package diff

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/diffreview/pkg/models"
)

// headerRe matches the per-file header of a unified diff. The new path (the
// b/ side) is what downstream review consumers care about.
var headerRe = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)

// Split partitions a multi-file unified diff into one FileDiff per file.
//
// Sections are delimited by lines starting with "diff --git ". Any preamble
// before the first header is discarded. A section whose header cannot be
// parsed is dropped so that one malformed file never blocks review of the
// rest of the diff.
func Split(fullDiff string) []models.FileDiff {
	if fullDiff == "" {
		return nil
	}

	sections := strings.Split(fullDiff, "\ndiff --git ")

	// The first chunk keeps its own prefix; re-attach the delimiter to the
	// rest so every section is a self-contained diff.
	for i := 1; i < len(sections); i++ {
		sections[i] = "diff --git " + sections[i]
	}

	result := make([]models.FileDiff, 0, len(sections))
	for i, section := range sections {
		if i == 0 && !strings.HasPrefix(section, "diff --git ") {
			continue
		}

		filePath, ok := extractFilePath(section)
		if !ok {
			log.Debug().Str("header", firstLine(section)).Msg("dropping diff section with unparsable header")
			continue
		}

		result = append(result, models.FileDiff{
			FilePath: filePath,
			DiffText: section,
		})
	}

	return result
}

// extractFilePath pulls the new-side path out of a "diff --git a/x b/y"
// header line.
func extractFilePath(diffText string) (string, bool) {
	matches := headerRe.FindStringSubmatch(firstLine(diffText))
	if len(matches) < 3 {
		return "", false
	}
	return matches[2], true
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
