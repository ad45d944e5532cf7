package prompt

import (
	"github.com/nsouzaco/code-assistant/internal/config"
	"github.com/nsouzaco/code-assistant/internal/diff"
)

// Tiers are the line-count thresholds that bound the context sent to the
// model. Documents up to SmallFileLines are sent whole; up to
// MediumFileLines the focus range is padded by MediumRadius lines; larger
// documents are padded by LargeRadius lines.
type Tiers struct {
	SmallFileLines  int
	MediumFileLines int
	MediumRadius    int
	LargeRadius     int
}

// DefaultTiers are 500/2000 lines with ±100/±50 line padding.
var DefaultTiers = Tiers{
	SmallFileLines:  500,
	MediumFileLines: 2000,
	MediumRadius:    100,
	LargeRadius:     50,
}

// TiersFromConfig converts the window section of the config.
func TiersFromConfig(c config.WindowConfig) Tiers {
	return Tiers{
		SmallFileLines:  c.SmallFileLines,
		MediumFileLines: c.MediumFileLines,
		MediumRadius:    c.MediumRadius,
		LargeRadius:     c.LargeRadius,
	}
}

// Context is a bounded, line-numbered slice of a document.
type Context struct {
	StartLine int    // 1-indexed
	EndLine   int    // 1-indexed, inclusive
	Text      string // lines prefixed with "<n>: "
}

// Radius returns the padding for a document of total lines, or -1 when the
// whole document fits.
func (t Tiers) Radius(total int) int {
	switch {
	case total <= t.SmallFileLines:
		return -1
	case total <= t.MediumFileLines:
		return t.MediumRadius
	default:
		return t.LargeRadius
	}
}

// Window builds the context for the focus range [start, end] of lines.
// The result is clamped to [1, len(lines)].
func Window(lines []string, start, end int, t Tiers) Context {
	total := len(lines)
	if total == 0 {
		return Context{}
	}

	from, to := 1, total
	if r := t.Radius(total); r >= 0 {
		from = max(1, start-r)
		to = min(total, end+r)
	}
	if from > to {
		// Focus lies entirely outside the document (stale range).
		from, to = max(1, min(from, total)), total
	}

	return Context{
		StartLine: from,
		EndLine:   to,
		Text:      AddLineNumbers(diff.Extract(lines, from, to), from),
	}
}
