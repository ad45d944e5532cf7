package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_Exact(t *testing.T) {
	lines := SplitDocument("package main\n\nfunc a() {}\nfunc b() {}\n")
	matches := Locate(lines, "func a() {}\nfunc b() {}")
	require.Len(t, matches, 1)
	assert.Equal(t, Match{StartLine: 3, EndLine: 4, Pass: "exact"}, matches[0])
}

func TestLocate_MovedDown(t *testing.T) {
	lines := SplitDocument("// header\n// more\nfoo\nbar\nbaz")
	matches := Locate(lines, "foo\nbar")
	require.Len(t, matches, 1)
	assert.Equal(t, 3, matches[0].StartLine)
	assert.Equal(t, 4, matches[0].EndLine)
}

func TestLocate_TrailingWhitespace(t *testing.T) {
	lines := []string{"a", "b  ", "c\t"}
	matches := Locate(lines, "b\nc")
	require.Len(t, matches, 1)
	assert.Equal(t, "trailing_whitespace", matches[0].Pass)
}

func TestLocate_Reindented(t *testing.T) {
	lines := []string{"func x() {", "\t\treturn 1", "}"}
	matches := Locate(lines, "    return 1")
	require.Len(t, matches, 1)
	assert.Equal(t, "trimmed", matches[0].Pass)
	assert.Equal(t, 2, matches[0].StartLine)
}

func TestLocate_Multiple(t *testing.T) {
	lines := SplitDocument("x\ny\nx\ny")
	matches := Locate(lines, "x\ny")
	require.Len(t, matches, 2)
	assert.Equal(t, "1-2, 3-4", FormatMatches(matches))
}

func TestLocate_NotFound(t *testing.T) {
	assert.Empty(t, Locate(SplitDocument("a\nb"), "zzz"))
	assert.Empty(t, Locate(SplitDocument("a\nb"), ""))
	assert.Empty(t, Locate(SplitDocument("a"), "a\nb\nc"))
}
