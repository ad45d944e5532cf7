// Package language classifies documents into the language tags stamped on
// new threads and used to pick a highlighting mode.
package language

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/bmatcuk/doublestar/v4"
)

// minContentChars is the least amount of non-space text worth scoring.
const minContentChars = 10

// minContentScore is the lowest winning score FromContent trusts.
const minContentScore = 2

// FromExtension returns the tag for the file's extension, or "".
func FromExtension(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return ""
	}
	return extensions[ext]
}

// FromFileName matches the name against the special filename globs.
func FromFileName(fileName string) string {
	if fileName == "" {
		return ""
	}
	name := strings.TrimPrefix(path.Clean(filepath.ToSlash(fileName)), "/")
	for _, g := range fileGlobs {
		if ok, err := doublestar.Match(g.pattern, name); err == nil && ok {
			return g.language
		}
	}
	return ""
}

// FromContent scores the content against the weighted pattern table and
// returns the best language, or "" when the evidence is too weak.
func FromContent(code string) string {
	if nonSpace(code) < minContentChars {
		return ""
	}

	scores := make(map[string]int)
	var order []string
	for _, cp := range contentPatterns {
		if !cp.re.MatchString(code) {
			continue
		}
		if _, seen := scores[cp.language]; !seen {
			order = append(order, cp.language)
		}
		scores[cp.language] += cp.weight
	}

	best, bestScore := "", 0
	for _, lang := range order {
		if scores[lang] > bestScore {
			best, bestScore = lang, scores[lang]
		}
	}
	if bestScore < minContentScore {
		return ""
	}
	return best
}

// Detect picks a tag using, in order: filename globs, extension, content
// scoring, chroma's lexer registry, then Default.
func Detect(fileName, content string) string {
	if lang := FromFileName(fileName); lang != "" {
		return lang
	}
	if lang := FromExtension(fileName); lang != "" {
		return lang
	}
	if lang := FromContent(content); lang != "" {
		return lang
	}
	if lang := fromLexer(fileName, content); lang != "" {
		return lang
	}
	return Default
}

// AutoDetect is the explicit "detect from what I typed" request: content
// evidence wins over the file name, which only breaks ties when the content
// is inconclusive.
func AutoDetect(fileName, content string) string {
	if lang := FromContent(content); lang != "" {
		return lang
	}
	return Detect(fileName, content)
}

// WithExtension renames fileName so its extension matches lang. Names that
// already map to lang, such as a Dockerfile, are returned unchanged.
func WithExtension(fileName, lang string) string {
	if fileName != "" && (FromFileName(fileName) == lang || FromExtension(fileName) == lang) {
		return fileName
	}
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if base == "" || strings.HasSuffix(base, "/") {
		base += "untitled"
	}
	return base + ExtensionFor(lang)
}

// Paste thresholds, in characters.
const (
	pasteMaxBefore = 50
	pasteMinAfter  = 100
	pasteMinGrowth = 50
)

// IsPaste reports whether an edit from before to after looks like code pasted
// into a nearly empty document, which is worth re-detecting.
func IsPaste(before, after string) bool {
	b, a := utf8.RuneCountInString(before), utf8.RuneCountInString(after)
	return b < pasteMaxBefore && a > pasteMinAfter && a-b > pasteMinGrowth
}

// ExtensionFor returns the preferred extension for a tag, ".txt" if unknown.
func ExtensionFor(lang string) string {
	if ext, ok := preferredExtensions[lang]; ok {
		return ext
	}
	return ".txt"
}

// chroma lexer names that differ from our tags.
var lexerAliases = map[string]string{
	"c++":           "cpp",
	"c#":            "csharp",
	"bash":          "shell",
	"sh":            "shell",
	"docker":        "dockerfile",
	"base makefile": "makefile",
	"f#":            "fsharp",
}

func fromLexer(fileName, content string) string {
	var lexer chroma.Lexer
	if fileName != "" {
		lexer = lexers.Match(filepath.Base(fileName))
	}
	if lexer == nil && nonSpace(content) >= minContentChars {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		return ""
	}
	name := strings.ToLower(lexer.Config().Name)
	if name == "plaintext" || name == "fallback" {
		return ""
	}
	if alias, ok := lexerAliases[name]; ok {
		return alias
	}
	return strings.ReplaceAll(name, " ", "-")
}

func nonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
