package strategy

import (
	"strings"

	"github.com/diffreview/internal/diff"
	"github.com/diffreview/pkg/models"
)

// Prompt assembly. Each codec carries its own protocol instructions; the
// review framing and the diff rendering are shared.

const promptPreamble = `You are reviewing a code change. For each changed line in the diff below,
judge how much it deserves human review attention. A score of 0.0 means the
line is trivial or mechanical; 1.0 means it very likely needs careful review
(possible bug, security issue, behavior change, or unclear intent).`

const promptScoreRules = `Scores must be decimal numbers between 0.0 and 1.0 inclusive. Do not
invent lines that are not in the diff. Do not annotate lines you have no
opinion about.`

const inlinePhraseInstructions = `Echo the diff back. For each changed (+ or -) line worth attention, append
an annotation to the end of that line in exactly this form:

  // review <score> "<verbatim snippet from the line>" <optional comment>

The snippet must be copied verbatim from the line. Leave all other lines
untouched. Example:

  +	user := db.LookupUser(id) // review 0.7 "LookupUser(id)" missing error check`

const inlineBracketsInstructions = `Echo the diff back. For each changed (+ or -) line worth attention, wrap the
most salient span of that line in {| and |} markers, keeping the span text in
place, then append to the end of the line:

  // review <score> <optional comment>

Example:

  +	user := db.{|LookupUser(id)|} // review 0.7 missing error check`

const inlineJSONInstructions = `Echo the diff back. For each changed (+ or -) line worth attention, append a
single-line JSON object to the end of that line:

  // {"score": <score>, "phrase": "<verbatim snippet>", "comment": "<why>"}

The JSON must be valid and stay on one line. Example:

  +	user := db.LookupUser(id) // {"score": 0.7, "phrase": "LookupUser(id)", "comment": "missing error check"}`

const jsonLinesInstructions = `Respond with exactly one JSON document, no prose before or after:

  {"lines": [{"line": "<verbatim changed line text>", "score": <score>,
              "mostImportantWord": "<single token>", "why": "<short reason>"}]}

The "line" field must be the exact text of a changed line from the diff,
without the +/- marker. Include one entry per line worth attention.`

const lineNumbersInstructions = `Respond with exactly one JSON document, no prose before or after:

  {"lines": [{"lineNumber": <n>, "score": <score>,
              "mostImportantWord": "<single token>", "why": "<short reason>"}]}

"lineNumber" is the 1-based position of the line within the diff content
shown below (count every added, removed, and context line; skip headers).
Include one entry per line worth attention.`

const inlineFilesInstructionsFmt = `The diff has been written to the file %q in your workspace. Edit that file
in place: for each changed (+ or -) line worth attention, append to the end
of that line an annotation in exactly this form:

  // review <score> "<verbatim snippet from the line>" <optional comment>

Do not reorder, add, or remove lines. Save the file when done; your chat
reply is ignored.`

// buildPrompt assembles a codec prompt around the rendered diff.
func buildPrompt(instructions, filePath string, formatted []models.UnifiedDiffLine) string {
	var sb strings.Builder

	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(promptScoreRules)
	sb.WriteString("\n\nFile: ")
	sb.WriteString(filePath)
	sb.WriteString("\n\n```diff\n")
	sb.WriteString(diff.Render(formatted))
	sb.WriteString("```\n")

	return sb.String()
}
