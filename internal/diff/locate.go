package diff

import (
	"fmt"
	"strings"
)

// Match is a candidate location of anchor text in a document.
type Match struct {
	StartLine int    `json:"start_line"` // 1-indexed
	EndLine   int    `json:"end_line"`   // 1-indexed, inclusive
	Pass      string `json:"pass"`       // "exact", "trailing_whitespace" or "trimmed"
}

type matchPass struct {
	name string
	eq   func(a, b string) bool
}

var locatePasses = []matchPass{
	{name: "exact", eq: func(a, b string) bool { return a == b }},
	{name: "trailing_whitespace", eq: func(a, b string) bool {
		return strings.TrimRight(a, " \t\r") == strings.TrimRight(b, " \t\r")
	}},
	{name: "trimmed", eq: func(a, b string) bool {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}},
}

// Locate finds where text currently occurs in lines. Passes are tried in
// order (exact, trailing whitespace trimmed, all surrounding whitespace
// trimmed) and the matches of the first pass that finds any are returned.
//
// Locate only reports candidates. Callers decide whether to move anything.
func Locate(lines []string, text string) []Match {
	anchor := SplitReplacement(text)
	if text == "" || len(anchor) > len(lines) {
		return nil
	}

	for _, p := range locatePasses {
		positions := findConsecutive(lines, anchor, 0, p.eq)
		if len(positions) == 0 {
			continue
		}
		matches := make([]Match, len(positions))
		for i, pos := range positions {
			matches[i] = Match{StartLine: pos + 1, EndLine: pos + len(anchor), Pass: p.name}
		}
		return matches
	}
	return nil
}

// findConsecutive finds all positions where anchor lines match consecutively
// in the file starting from `from`, using the given comparison function.
func findConsecutive(lines []string, anchor []string, from int, eq func(string, string) bool) []int {
	var matches []int
	limit := len(lines) - len(anchor) + 1
	for i := from; i < limit; i++ {
		found := true
		for j, a := range anchor {
			if !eq(lines[i+j], a) {
				found = false
				break
			}
		}
		if found {
			matches = append(matches, i)
		}
	}
	return matches
}

// FormatMatches renders match ranges for display, e.g. "4-6, 12-14".
func FormatMatches(matches []Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("%d-%d", m.StartLine, m.EndLine)
	}
	return strings.Join(parts, ", ")
}
