package diff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// LineKind tags a line of a line diff.
type LineKind string

const (
	LineAdded     LineKind = "added"
	LineRemoved   LineKind = "removed"
	LineUnchanged LineKind = "unchanged"
)

// Line is one line of a diff between an anchor's text and a suggestion.
// Line numbers are 1-indexed and relative to the compared texts; zero means
// the line does not exist on that side.
type Line struct {
	Kind    LineKind `json:"type" yaml:"type"`
	Content string   `json:"content" yaml:"content"`
	OldLine int      `json:"old_line,omitempty" yaml:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty" yaml:"new_line,omitempty"`
}

// Stats counts added and removed lines.
type Stats struct {
	Added   int `json:"added" yaml:"added"`
	Removed int `json:"removed" yaml:"removed"`
}

// Compare produces a line diff of original against suggested. Replaced runs
// are emitted as removed lines followed by added lines.
func Compare(original, suggested string) []Line {
	a := SplitDocument(original)
	b := SplitDocument(suggested)

	var out []Line
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				out = append(out, Line{Kind: LineUnchanged, Content: a[op.I1+k], OldLine: op.I1 + k + 1, NewLine: op.J1 + k + 1})
			}
		case 'd', 'r', 'i':
			for i := op.I1; i < op.I2; i++ {
				out = append(out, Line{Kind: LineRemoved, Content: a[i], OldLine: i + 1})
			}
			for j := op.J1; j < op.J2; j++ {
				out = append(out, Line{Kind: LineAdded, Content: b[j], NewLine: j + 1})
			}
		}
	}
	return out
}

// Summarize counts added and removed lines in a diff.
func Summarize(lines []Line) Stats {
	var s Stats
	for _, l := range lines {
		switch l.Kind {
		case LineAdded:
			s.Added++
		case LineRemoved:
			s.Removed++
		}
	}
	return s
}
