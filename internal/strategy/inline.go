package strategy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/diffreview/pkg/models"
)

// The three inline codecs (phrase, brackets, inline-json) share one per-line
// parsing policy: locate the marker, split content from remainder, gate on a
// valid [0,1] score, then extract the codec payload. Only marker location and
// payload extraction differ between them, so they share this scanner.

// reviewMarkerRe matches the "// review" marker case-insensitively, tolerating
// spaces between the slashes and the keyword.
var reviewMarkerRe = regexp.MustCompile(`(?i)//\s*review\b`)

// quotedRe captures the first double-quoted snippet in a remainder.
var quotedRe = regexp.MustCompile(`"([^"]*)"`)

// inlineCandidate is one response line that carries a review marker.
type inlineCandidate struct {
	// content is everything before the marker, right-trimmed.
	content string
	// remainder is everything after the marker, trimmed.
	remainder string
}

// findMarker locates the review marker in a response line. Lines without a
// marker are not candidates and contribute no annotation.
func findMarker(line string) (inlineCandidate, bool) {
	loc := reviewMarkerRe.FindStringIndex(line)
	if loc == nil {
		return inlineCandidate{}, false
	}
	return inlineCandidate{
		content:   strings.TrimRight(line[:loc[0]], " \t"),
		remainder: strings.TrimSpace(line[loc[1]:]),
	}, true
}

// parseLeadingScore consumes a leading floating-point score from a marker
// remainder. The first whitespace-delimited token must parse fully as a float
// in [0,1]; anything else rejects the candidate.
func parseLeadingScore(remainder string) (score float64, rest string, ok bool) {
	fields := strings.Fields(remainder)
	if len(fields) == 0 {
		return 0, "", false
	}

	score, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || !validScore(score) {
		return 0, "", false
	}

	rest = strings.TrimSpace(strings.TrimPrefix(remainder, fields[0]))
	return score, rest, true
}

// extractQuoted pulls the first double-quoted snippet out of a remainder and
// returns the remainder with the snippet removed.
func extractQuoted(remainder string) (snippet string, rest string, ok bool) {
	loc := quotedRe.FindStringSubmatchIndex(remainder)
	if loc == nil {
		return "", remainder, false
	}
	snippet = remainder[loc[2]:loc[3]]
	rest = strings.TrimSpace(remainder[:loc[0]] + " " + remainder[loc[1]:])
	return snippet, rest, true
}

// lineParser extracts a codec-specific annotation from one candidate line.
// Returning ok=false drops the line and continues the scan.
type lineParser func(line string) (models.Annotation, bool)

// scanLines applies a per-line parser over a whole response, skipping
// non-candidate and malformed lines. Per-line failures never abort the rest
// of the response.
func scanLines(text string, logger zerolog.Logger, parse lineParser) []models.Annotation {
	var annotations []models.Annotation

	for _, line := range strings.Split(text, "\n") {
		annotation, ok := parse(line)
		if !ok {
			continue
		}
		annotations = append(annotations, annotation)
	}

	logger.Debug().Int("annotations", len(annotations)).Msg("inline scan complete")
	return annotations
}
