package prompt

import (
	"strconv"
	"strings"
)

// AddLineNumbers prefixes every line of text with "<n>: ", counting from
// startLine.
func AddLineNumbers(text string, startLine int) string {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(startLine + i))
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

// StripLineNumbers removes a leading "<digits>:" prefix (optionally preceded
// by whitespace and followed by one space) from each line independently.
// Lines without such a prefix pass through unchanged, so model output that
// does or does not echo the numbering both clean up the same way.
func StripLineNumbers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripLineNumber(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineNumber(line string) string {
	i := 0
	for i < len(line) && isSpace(line[i]) {
		i++
	}
	digits := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == digits || i >= len(line) || line[i] != ':' {
		return line
	}
	i++
	if i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
