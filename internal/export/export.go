// Package export turns a review session into a readable report and a
// structured record.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/prompt"
	"github.com/nsouzaco/code-assistant/internal/state"
)

// Record is the structured form of a review.
type Record struct {
	FileName    string         `json:"file_name" yaml:"file_name"`
	Language    string         `json:"language" yaml:"language"`
	Version     string         `json:"version" yaml:"version"`
	TotalLines  int            `json:"total_lines" yaml:"total_lines"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Summary     Summary        `json:"summary" yaml:"summary"`
	Threads     []ThreadRecord `json:"threads" yaml:"threads"`
}

type Summary struct {
	Threads     int `json:"threads" yaml:"threads"`
	Active      int `json:"active" yaml:"active"`
	Resolved    int `json:"resolved" yaml:"resolved"`
	Archived    int `json:"archived" yaml:"archived"`
	Stale       int `json:"stale" yaml:"stale"`
	Questions   int `json:"questions" yaml:"questions"`
	Suggestions int `json:"suggestions" yaml:"suggestions"`
}

type ThreadRecord struct {
	ID           string          `json:"id" yaml:"id"`
	StartLine    int             `json:"start_line" yaml:"start_line"`
	EndLine      int             `json:"end_line" yaml:"end_line"`
	Status       string          `json:"status" yaml:"status"`
	Stale        bool            `json:"stale" yaml:"stale"`
	Language     string          `json:"language" yaml:"language"`
	SelectedText string          `json:"selected_text" yaml:"selected_text"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
	Messages     []MessageRecord `json:"messages" yaml:"messages"`
	Suggestion   *Suggestion     `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

type MessageRecord struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Failed    bool      `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Suggestion is the latest patch offered on a thread, as a line diff
// against the thread's anchored text.
type Suggestion struct {
	MessageID string      `json:"message_id" yaml:"message_id"`
	Code      string      `json:"code" yaml:"code"`
	Stats     diff.Stats  `json:"stats" yaml:"stats"`
	Diff      []diff.Line `json:"diff" yaml:"diff"`
}

// Build assembles a record from the full thread collection. Pending
// placeholders are left out.
func Build(threads []state.Thread, fileName, language, code string, now time.Time) Record {
	r := Record{
		FileName:    fileName,
		Language:    language,
		Version:     state.DocumentVersion(fileName, code),
		TotalLines:  len(diff.SplitDocument(code)),
		GeneratedAt: now,
		Threads:     make([]ThreadRecord, 0, len(threads)),
	}

	for _, t := range threads {
		tr := ThreadRecord{
			ID:           t.ID,
			StartLine:    t.StartLine,
			EndLine:      t.EndLine,
			Status:       t.Status,
			Stale:        t.IsStale,
			Language:     t.Language,
			SelectedText: t.SelectedText,
			CreatedAt:    t.CreatedAt,
		}
		for _, m := range t.Messages {
			if t.Request.State == state.RequestPending && m.ID == t.Request.MessageID {
				continue
			}
			tr.Messages = append(tr.Messages, MessageRecord{
				Role:      m.Role,
				Content:   m.Content,
				Timestamp: m.Timestamp,
				Failed:    m.Failed,
			})
		}
		if m, ok := t.LastSuggestion(); ok {
			clean := prompt.CleanSuggested(m.SuggestedCode)
			lines := diff.Compare(t.SelectedText, clean)
			tr.Suggestion = &Suggestion{
				MessageID: m.ID,
				Code:      clean,
				Stats:     diff.Summarize(lines),
				Diff:      lines,
			}
			r.Summary.Suggestions++
		}

		r.Summary.Threads++
		r.Summary.Questions += t.UserMessages()
		switch t.Status {
		case state.StatusActive:
			r.Summary.Active++
		case state.StatusResolved:
			r.Summary.Resolved++
		case state.StatusArchived:
			r.Summary.Archived++
		}
		if t.IsStale && t.Live() {
			r.Summary.Stale++
		}
		r.Threads = append(r.Threads, tr)
	}
	return r
}

// JSON renders the record as indented JSON.
func JSON(r Record) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// YAML renders the record as YAML.
func YAML(r Record) ([]byte, error) {
	return yaml.Marshal(r)
}

// FileName derives the report file name for a document, e.g.
// "src/app.ts" -> "app-review.md".
func FileName(docName, ext string) string {
	base := filepath.Base(docName)
	if docName == "" || base == "." || base == "/" {
		base = "untitled"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "untitled"
	}
	return base + "-review" + ext
}

// Markdown renders the human-readable report.
func Markdown(r Record) string {
	var b strings.Builder

	name := r.FileName
	if name == "" {
		name = "untitled"
	}
	fmt.Fprintf(&b, "# Code Review: %s\n\n", name)
	fmt.Fprintf(&b, "- Language: %s\n", r.Language)
	fmt.Fprintf(&b, "- Lines: %d\n", r.TotalLines)
	fmt.Fprintf(&b, "- Version: %s\n", r.Version)
	fmt.Fprintf(&b, "- Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339))

	s := r.Summary
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Threads | Active | Resolved | Archived | Stale | Suggestions |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d |\n", s.Threads, s.Active, s.Resolved, s.Archived, s.Stale, s.Suggestions)

	for i, t := range r.Threads {
		fmt.Fprintf(&b, "\n## %d. Lines %d-%d (%s", i+1, t.StartLine, t.EndLine, t.Status)
		if t.Stale {
			b.WriteString(", stale")
		}
		b.WriteString(")\n\n")

		writeFence(&b, t.Language, t.SelectedText)

		for _, m := range t.Messages {
			who := "**You**"
			if m.Role == state.RoleAssistant {
				who = "**Assistant**"
				if m.Failed {
					who = "**Assistant** (failed)"
				}
			}
			fmt.Fprintf(&b, "\n%s:\n\n%s\n", who, m.Content)
		}

		if t.Suggestion != nil {
			fmt.Fprintf(&b, "\n### Suggested change (+%d -%d)\n\n", t.Suggestion.Stats.Added, t.Suggestion.Stats.Removed)
			writeFence(&b, "diff", diffBody(t.Suggestion.Diff))
		}
	}
	return b.String()
}

func diffBody(lines []diff.Line) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		prefix := " "
		switch l.Kind {
		case diff.LineAdded:
			prefix = "+"
		case diff.LineRemoved:
			prefix = "-"
		}
		out[i] = prefix + l.Content
	}
	return strings.Join(out, "\n")
}

func writeFence(b *strings.Builder, lang, body string) {
	b.WriteString("```")
	b.WriteString(lang)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n```\n")
}
