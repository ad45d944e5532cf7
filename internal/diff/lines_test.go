package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitJoinDocument(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		lines int
	}{
		{name: "empty", text: "", lines: 0},
		{name: "single line", text: "hello", lines: 1},
		{name: "multi line", text: "a\nb\nc", lines: 3},
		{name: "trailing newline", text: "a\nb\n", lines: 3},
		{name: "blank lines", text: "\n\n", lines: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := SplitDocument(tt.text)
			assert.Len(t, lines, tt.lines)
			assert.Equal(t, tt.text, JoinDocument(lines), "round trip")
		})
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 1, CountLines(""))
	assert.Equal(t, 1, CountLines("x"))
	assert.Equal(t, 3, CountLines("a\nb\nc"))
	assert.Equal(t, 2, CountLines("a\n"))
}

func TestExtract(t *testing.T) {
	lines := SplitDocument("line1\nline2\nline3\nline4\nline5")

	tests := []struct {
		name       string
		start, end int
		want       string
	}{
		{name: "middle", start: 2, end: 3, want: "line2\nline3"},
		{name: "single", start: 4, end: 4, want: "line4"},
		{name: "whole", start: 1, end: 5, want: "line1\nline2\nline3\nline4\nline5"},
		{name: "end past document", start: 4, end: 99, want: "line4\nline5"},
		{name: "start before document", start: -3, end: 1, want: "line1"},
		{name: "start past document", start: 7, end: 9, want: ""},
		{name: "inverted", start: 3, end: 2, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(lines, tt.start, tt.end))
		})
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	assert.Equal(t, "", Extract(nil, 1, 1))
}

func TestReplaceRange_SameLength(t *testing.T) {
	lines := SplitDocument("a\nb\nc\nd")
	got, _, end := ReplaceRange(lines, 2, 3, "B\nC")
	assert.Equal(t, "a\nB\nC\nd", JoinDocument(got))
	assert.Equal(t, 3, end)
	assert.Equal(t, "a\nb\nc\nd", JoinDocument(lines), "input must not be modified")
}

func TestReplaceRange_Grow(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "x")
	}
	got, _, end := ReplaceRange(lines, 10, 11, "1\n2\n3\n4\n5")
	assert.Equal(t, 14, end)
	assert.Len(t, got, len(lines)+3)
	assert.Equal(t, "1\n2\n3\n4\n5", Extract(got, 10, 14))
	assert.Equal(t, "x", got[8])
	assert.Equal(t, "x", got[14])
}

func TestReplaceRange_Shrink(t *testing.T) {
	lines := SplitDocument("a\nb\nc\nd\ne")
	got, _, end := ReplaceRange(lines, 2, 4, "only")
	assert.Equal(t, "a\nonly\ne", JoinDocument(got))
	assert.Equal(t, 2, end)
}

func TestReplaceRange_EmptyReplacementKeepsOneLine(t *testing.T) {
	lines := SplitDocument("a\nb\nc")
	got, _, end := ReplaceRange(lines, 2, 2, "")
	assert.Equal(t, "a\n\nc", JoinDocument(got))
	assert.Equal(t, 2, end)
}

func TestReplaceRange_PastEndAppends(t *testing.T) {
	lines := SplitDocument("a\nb")
	got, start, end := ReplaceRange(lines, 5, 6, "z")
	assert.Equal(t, "a\nb\nz", JoinDocument(got))
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
	assert.Equal(t, "z", Extract(got, start, end))
}

func TestReplaceRange_EndToEnd(t *testing.T) {
	lines := SplitDocument("line1\nline2\nline3\nline4\nline5")
	got, start, end := ReplaceRange(lines, 2, 3, "lineB\nlineC\nlineD")
	assert.Equal(t, "line1\nlineB\nlineC\nlineD\nline4\nline5", JoinDocument(got))
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)
}
