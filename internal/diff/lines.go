package diff

import (
	"strings"
)

// SplitDocument splits document text into lines. The split is lossless:
// JoinDocument(SplitDocument(s)) == s, so a trailing newline yields a final
// empty line. Empty text has zero lines.
func SplitDocument(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// JoinDocument joins lines back into document text.
func JoinDocument(lines []string) string {
	return strings.Join(lines, "\n")
}

// SplitReplacement splits replacement text into lines. Unlike SplitDocument,
// empty text is a single empty line: a replacement always occupies at least
// one line.
func SplitReplacement(text string) []string {
	return strings.Split(text, "\n")
}

// CountLines returns the number of lines text occupies as a replacement.
func CountLines(text string) int {
	return strings.Count(text, "\n") + 1
}

// clampRange converts a 1-indexed inclusive range into slice bounds within
// [0, n]. lo may exceed hi when the range is empty or out of bounds.
func clampRange(n, start, end int) (lo, hi int) {
	lo = start - 1
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi = end
	if hi > n {
		hi = n
	}
	if hi < 0 {
		hi = 0
	}
	return lo, hi
}

// Extract returns lines start..end (1-indexed, inclusive) joined by "\n".
// Out-of-range bounds are clamped and an empty range yields "". Ranges may
// already be stale, so this never fails.
func Extract(lines []string, start, end int) string {
	lo, hi := clampRange(len(lines), start, end)
	if lo >= hi {
		return ""
	}
	return strings.Join(lines[lo:hi], "\n")
}

// ReplaceRange returns a new line slice with lines start..end (1-indexed,
// inclusive) replaced by the lines of replacement, and the range the
// replacement now occupies. The input slice is not modified.
//
// Bounds are clamped like Extract, so a range past the end of the document
// appends and the returned start is len(lines)+1. The returned end is always
// newStart + CountLines(replacement) - 1.
func ReplaceRange(lines []string, start, end int, replacement string) (result []string, newStart, newEnd int) {
	repl := SplitReplacement(replacement)
	lo, hi := clampRange(len(lines), start, end)
	if hi < lo {
		hi = lo
	}

	result = make([]string, 0, len(lines)-(hi-lo)+len(repl))
	result = append(result, lines[:lo]...)
	result = append(result, repl...)
	result = append(result, lines[hi:]...)

	return result, lo + 1, lo + len(repl)
}
