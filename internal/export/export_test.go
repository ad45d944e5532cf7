package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/state"
)

var generated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func session(t *testing.T) *state.Store {
	t.Helper()
	s := state.New()
	s.Open("src/app.ts", "line1\nline2\nline3\nline4\nline5")

	a, err := s.CreateThread(state.Selection{StartLine: 2, EndLine: 3, Text: "line2\nline3"}, "")
	require.NoError(t, err)
	turn, err := s.BeginSend(a, "can this be shorter?", nil)
	require.NoError(t, err)
	require.True(t, s.Fulfill(a, turn.PlaceholderID, "Yes:\n```suggested\n2: lineB\n```", "2: lineB"))

	b, err := s.CreateThread(state.Selection{StartLine: 5, EndLine: 5, Text: "line5"}, "")
	require.NoError(t, err)
	turn, err = s.BeginSend(b, "why?", nil)
	require.NoError(t, err)
	require.True(t, s.Fail(b, turn.PlaceholderID, "Error: network error: refused\n\nPlease try again.", "refused"))
	s.Resolve(b)

	c, err := s.CreateThread(state.Selection{StartLine: 1, EndLine: 1, Text: "line1"}, "")
	require.NoError(t, err)
	_, err = s.BeginSend(c, "still waiting", nil)
	require.NoError(t, err)
	s.Archive(c)

	s.SetDocument("line1\nline2\nline3\nline4\nchanged")
	return s
}

func TestBuild(t *testing.T) {
	s := session(t)
	r := Build(s.AllThreads(), s.FileName(), s.Language(), s.Document(), generated)

	assert.Equal(t, "src/app.ts", r.FileName)
	assert.Equal(t, "typescript", r.Language)
	assert.Equal(t, 5, r.TotalLines)
	assert.Equal(t, s.Version(), r.Version)
	assert.Equal(t, Summary{Threads: 3, Active: 1, Resolved: 1, Archived: 1, Stale: 1, Questions: 3, Suggestions: 1}, r.Summary)

	require.Len(t, r.Threads, 3)
	first := r.Threads[0]
	require.NotNil(t, first.Suggestion)
	assert.Equal(t, "lineB", first.Suggestion.Code, "line numbers stripped")
	assert.Equal(t, diff.Stats{Added: 1, Removed: 2}, first.Suggestion.Stats)
	require.Len(t, first.Messages, 2)

	second := r.Threads[1]
	assert.True(t, second.Stale)
	assert.Nil(t, second.Suggestion)
	assert.True(t, second.Messages[1].Failed)

	third := r.Threads[2]
	require.Len(t, third.Messages, 1, "pending placeholder left out")
	assert.Equal(t, "still waiting", third.Messages[0].Content)
}

func TestMarkdown(t *testing.T) {
	s := session(t)
	md := Markdown(Build(s.AllThreads(), s.FileName(), s.Language(), s.Document(), generated))

	assert.Contains(t, md, "# Code Review: src/app.ts")
	assert.Contains(t, md, "- Generated: 2026-03-01T12:00:00Z")
	assert.Contains(t, md, "| 3 | 1 | 1 | 1 | 1 | 1 |")
	assert.Contains(t, md, "## 1. Lines 2-3 (active)")
	assert.Contains(t, md, "```typescript\nline2\nline3\n```")
	assert.Contains(t, md, "**You**:\n\ncan this be shorter?")
	assert.Contains(t, md, "### Suggested change (+1 -2)")
	assert.Contains(t, md, "```diff\n-line2\n-line3\n+lineB\n```")
	assert.Contains(t, md, "## 2. Lines 5-5 (resolved, stale)")
	assert.Contains(t, md, "**Assistant** (failed)")
}

func TestJSONAndYAML(t *testing.T) {
	s := session(t)
	r := Build(s.AllThreads(), s.FileName(), s.Language(), s.Document(), generated)

	raw, err := JSON(r)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "src/app.ts", decoded["file_name"])
	threads := decoded["threads"].([]any)
	sugg := threads[0].(map[string]any)["suggestion"].(map[string]any)
	assert.Equal(t, "lineB", sugg["code"])

	raw, err = YAML(r)
	require.NoError(t, err)
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &y))
	assert.Equal(t, "typescript", y["language"])
	summary := y["summary"].(map[string]any)
	assert.Equal(t, 3, summary["threads"])
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil, "", "typescript", "", generated)
	assert.Equal(t, 0, r.TotalLines)
	assert.Empty(t, r.Threads)
	assert.Contains(t, Markdown(r), "# Code Review: untitled")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "app-review.md", FileName("src/app.ts", ".md"))
	assert.Equal(t, "Makefile-review.json", FileName("Makefile", ".json"))
	assert.Equal(t, "untitled-review.yaml", FileName("", ".yaml"))
}
