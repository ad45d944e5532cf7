package prompt

import (
	"regexp"
	"strings"
)

// SuggestedTag is the fence language tag marking a literal replacement for
// the selected lines.
const SuggestedTag = "suggested"

var suggestedBlockRe = regexp.MustCompile("(?s)```" + SuggestedTag + "[ \t]*\r?\n(.*?)```")

// ExtractSuggested returns the inner text of the first ```suggested fenced
// block in response, with CRLF line endings normalised to LF and leading and
// trailing blank lines removed.
// ok is false when there is no such block or it is blank: prose-only advice
// is a valid response, not an error.
func ExtractSuggested(response string) (code string, ok bool) {
	m := suggestedBlockRe.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	code = trimBlankLines(strings.ReplaceAll(m[1], "\r\n", "\n"))
	return code, code != ""
}

// trimBlankLines drops whitespace-only lines at both ends of text, keeping
// the indentation of the first and last remaining lines.
func trimBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	lo, hi := 0, len(lines)
	for lo < hi && strings.TrimSpace(lines[lo]) == "" {
		lo++
	}
	for hi > lo && strings.TrimSpace(lines[hi-1]) == "" {
		hi--
	}
	return strings.Join(lines[lo:hi], "\n")
}

// CleanSuggested prepares an extracted block for application: echoed line
// number prefixes are stripped.
func CleanSuggested(code string) string {
	return StripLineNumbers(code)
}
