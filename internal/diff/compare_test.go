package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	got := Compare("a\nb\nc", "a\nB\nc\nd")

	want := []Line{
		{Kind: LineUnchanged, Content: "a", OldLine: 1, NewLine: 1},
		{Kind: LineRemoved, Content: "b", OldLine: 2},
		{Kind: LineAdded, Content: "B", NewLine: 2},
		{Kind: LineUnchanged, Content: "c", OldLine: 3, NewLine: 3},
		{Kind: LineAdded, Content: "d", NewLine: 4},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, Stats{Added: 2, Removed: 1}, Summarize(got))
}

func TestCompare_Identical(t *testing.T) {
	got := Compare("x\ny", "x\ny")
	assert.Equal(t, Stats{}, Summarize(got))
	assert.Len(t, got, 2)
}

func TestCompare_EmptySides(t *testing.T) {
	assert.Equal(t, []Line{{Kind: LineAdded, Content: "new", NewLine: 1}}, Compare("", "new"))
	assert.Equal(t, []Line{{Kind: LineRemoved, Content: "old", OldLine: 1}}, Compare("old", ""))
	assert.Empty(t, Compare("", ""))
}
