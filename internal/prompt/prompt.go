// Package prompt builds model-ready text from documents and parses the
// model's replies: context windowing, line numbering, the first-turn prompt
// and extraction of ```suggested replacement blocks.
package prompt

import (
	"fmt"
	"strings"
)

// SystemMessage is the single system instruction sent first on every model
// call. It fixes the response contract: replacements go in a ```suggested
// block that holds only the new version of the selected lines.
const SystemMessage = `You are a senior code reviewer. Give concrete, actionable feedback on the code the user selected.

Guidelines:
- Be direct and specific.
- Prioritise correctness, security, performance and readability, in that order.
- Keep answers short unless the user asks for more detail.
- Use plain markdown for feedback that needs no code change.

When you propose a change, put the replacement in a fenced block tagged "suggested":

` + "```" + `suggested
<new version of the selected lines only>
` + "```" + `

Rules for the suggested block:
- It replaces the selected lines verbatim, so it must contain ONLY the new version of those lines.
- Never copy code from the surrounding context into it.
- Never add unrelated code outside the scope of the selection.
- Line number prefixes are optional; they are removed before the block is applied.`

// Request carries everything needed to synthesize the first prompt of a
// thread.
type Request struct {
	FileName     string
	Language     string
	StartLine    int
	EndLine      int
	SelectedText string
	Document     []string
	Question     string
	Tiers        Tiers
}

// BuildFirstPrompt synthesizes the content of a thread's first user message:
// file name and language, the numbered selection, the windowed context, the
// user's question and the replacement-only instruction.
func BuildFirstPrompt(r Request) string {
	ctx := Window(r.Document, r.StartLine, r.EndLine, r.Tiers)
	count := r.EndLine - r.StartLine + 1

	var b strings.Builder
	fmt.Fprintf(&b, "I'm reviewing code from file: **%s** (%s)\n\n", r.FileName, r.Language)

	fmt.Fprintf(&b, "**Selected lines %d-%d (%d %s to improve):**\n", r.StartLine, r.EndLine, count, plural(count, "line", "lines"))
	writeFence(&b, r.Language, AddLineNumbers(r.SelectedText, r.StartLine))

	if ctx.Text != "" {
		fmt.Fprintf(&b, "\n**Context, lines %d-%d (reference only, do NOT include in suggestions):**\n", ctx.StartLine, ctx.EndLine)
		writeFence(&b, r.Language, ctx.Text)
	}

	b.WriteString("\n**My question:**\n")
	b.WriteString(r.Question)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "IMPORTANT: if you suggest a change, the ```%s block must contain ONLY the new version of lines %d-%d. ", SuggestedTag, r.StartLine, r.EndLine)
	fmt.Fprintf(&b, "Do not include code from outside this range; the block directly replaces these %d %s.", count, plural(count, "line", "lines"))
	return b.String()
}

func writeFence(b *strings.Builder, lang, body string) {
	b.WriteString("```")
	b.WriteString(lang)
	b.WriteByte('\n')
	b.WriteString(body)
	b.WriteString("\n```\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
