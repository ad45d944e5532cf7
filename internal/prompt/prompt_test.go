package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFirstPrompt(t *testing.T) {
	doc := []string{"line1", "line2", "line3", "line4", "line5"}
	got := BuildFirstPrompt(Request{
		FileName:     "main.go",
		Language:     "go",
		StartLine:    2,
		EndLine:      3,
		SelectedText: "line2\nline3",
		Document:     doc,
		Question:     "Can this be simpler?",
		Tiers:        DefaultTiers,
	})

	assert.Contains(t, got, "**main.go** (go)")
	assert.Contains(t, got, "Selected lines 2-3 (2 lines to improve)")
	assert.Contains(t, got, "```go\n2: line2\n3: line3\n```")
	assert.Contains(t, got, "Context, lines 1-5")
	assert.Contains(t, got, "1: line1\n2: line2\n3: line3\n4: line4\n5: line5")
	assert.Contains(t, got, "**My question:**\nCan this be simpler?")
	assert.Contains(t, got, "ONLY the new version of lines 2-3")
	assert.True(t, strings.HasSuffix(got, "replaces these 2 lines."))
}

func TestBuildFirstPrompt_SingleLine(t *testing.T) {
	got := BuildFirstPrompt(Request{
		FileName:     "a.py",
		Language:     "python",
		StartLine:    1,
		EndLine:      1,
		SelectedText: "print(x)",
		Document:     []string{"print(x)"},
		Question:     "?",
		Tiers:        DefaultTiers,
	})
	assert.Contains(t, got, "(1 line to improve)")
}

func TestSystemMessageDescribesContract(t *testing.T) {
	assert.Contains(t, SystemMessage, "```suggested")
	assert.Contains(t, SystemMessage, "ONLY the new version")
}
