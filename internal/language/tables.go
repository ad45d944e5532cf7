package language

import "regexp"

// Default is returned when nothing else matches.
const Default = "typescript"

var extensions = map[string]string{
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",

	".py":  "python",
	".pyw": "python",
	".pyi": "python",

	".java":   "java",
	".kt":     "kotlin",
	".kts":    "kotlin",
	".scala":  "scala",
	".groovy": "groovy",

	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
	".hxx": "cpp",
	".cs":  "csharp",

	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".rake":  "ruby",
	".php":   "php",
	".swift": "swift",

	".sh":   "shell",
	".bash": "shell",
	".zsh":  "shell",

	".html": "html",
	".htm":  "html",
	".css":  "css",
	".scss": "scss",
	".sass": "sass",
	".less": "less",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".xml":  "xml",
	".toml": "toml",
	".sql":  "sql",
	".md":   "markdown",
	".mdx":  "markdown",

	".lua":    "lua",
	".r":      "r",
	".pl":     "perl",
	".pm":     "perl",
	".dart":   "dart",
	".ex":     "elixir",
	".exs":    "elixir",
	".erl":    "erlang",
	".hrl":    "erlang",
	".hs":     "haskell",
	".clj":    "clojure",
	".cljs":   "clojure",
	".fs":     "fsharp",
	".fsx":    "fsharp",
	".vue":    "vue",
	".svelte": "svelte",
}

// fileGlobs catch names the extension table cannot, checked in order.
var fileGlobs = []struct {
	pattern  string
	language string
}{
	{"**/Dockerfile", "dockerfile"},
	{"**/Dockerfile.*", "dockerfile"},
	{"**/*.dockerfile", "dockerfile"},
	{"**/Makefile", "makefile"},
	{"**/GNUmakefile", "makefile"},
	{"**/*.mk", "makefile"},
	{"**/CMakeLists.txt", "cmake"},
	{"**/Gemfile", "ruby"},
	{"**/Rakefile", "ruby"},
	{"**/Jenkinsfile", "groovy"},
	{"**/.{bashrc,bash_profile,zshrc,profile}", "shell"},
	{"**/*.d.ts", "typescript"},
}

var preferredExtensions = map[string]string{
	"typescript": ".ts",
	"javascript": ".js",
	"python":     ".py",
	"java":       ".java",
	"go":         ".go",
	"rust":       ".rs",
	"cpp":        ".cpp",
	"c":          ".c",
	"csharp":     ".cs",
	"ruby":       ".rb",
	"php":        ".php",
	"swift":      ".swift",
	"kotlin":     ".kt",
	"scala":      ".scala",
	"shell":      ".sh",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"yaml":       ".yaml",
	"sql":        ".sql",
	"markdown":   ".md",
}

type contentPattern struct {
	re       *regexp.Regexp
	language string
	weight   int
}

func p(expr, language string, weight int) contentPattern {
	return contentPattern{re: regexp.MustCompile(expr), language: language, weight: weight}
}

// contentPatterns is scored additively per language. Order matters for ties.
var contentPatterns = []contentPattern{
	p(`(?m)\binterface\s+\w+\s*\{`, "typescript", 3),
	p(`(?m)\btype\s+\w+\s*=`, "typescript", 2),
	p(`:\s*(string|number|boolean|any|void)\b`, "typescript", 2),
	p(`<[\w\s,]+>\s*\(`, "typescript", 2),

	p(`\bfunction\s+\w+\s*\(`, "javascript", 1),
	p(`(?m)\bconst\s+\w+\s*=\s*\(?\s*\)?\s*=>`, "javascript", 1),
	p(`\bimport\s+.*\s+from\s+['"]`, "javascript", 1),
	p(`<[A-Z]\w+[\s/>]`, "javascript", 2),

	p(`(?m)^def\s+\w+\s*\(`, "python", 3),
	p(`(?m)^class\s+\w+.*:`, "python", 3),
	p(`(?m)^import\s+\w+`, "python", 2),
	p(`(?m)^from\s+\w+\s+import`, "python", 2),
	p(`(?m)^\s*if\s+.*:\s*$`, "python", 1),
	p(`print\s*\(`, "python", 1),

	p(`(?m)^public\s+(class|interface|enum)\s+\w+`, "java", 4),
	p(`System\.out\.println`, "java", 3),
	p(`(?m)\bprivate\s+\w+\s+\w+\s*;`, "java", 2),

	p(`(?m)^package\s+\w+`, "go", 4),
	p(`(?m)^func\s+\w+\s*\(`, "go", 3),
	p(`\bfmt\.Printf?\(`, "go", 3),
	p(`\bif\s+err\s*!=\s*nil\b`, "go", 4),

	p(`(?m)^fn\s+\w+\s*\(`, "rust", 3),
	p(`\blet\s+mut\s+\w+\s*=`, "rust", 4),
	p(`\bimpl\s+\w+\s*(for\s+\w+)?\s*\{`, "rust", 4),
	p(`->.*\{`, "rust", 2),
	p(`\bprintln!\s*\(`, "rust", 4),

	p(`#include\s*<\w+>`, "cpp", 3),
	p(`\bstd::\w+`, "cpp", 3),
	p(`\bcout\s*<<`, "cpp", 4),
	p(`\bclass\s+\w+\s*\{`, "cpp", 2),

	p(`\bnamespace\s+\w+`, "csharp", 3),
	p(`\bConsole\.WriteLine`, "csharp", 4),
	p(`\bpublic\s+async\s+Task`, "csharp", 4),

	p(`(?m)^def\s+\w+`, "ruby", 2),
	p(`\bputs\s+`, "ruby", 3),
	p(`(?m)\bend\s*$`, "ruby", 1),
	p(`\brequire\s+['"]`, "ruby", 2),

	p(`<\?php`, "php", 5),
	p(`\$\w+\s*=`, "php", 2),
	p(`\becho\s+`, "php", 2),

	p(`(?m)^func\s+\w+\s*\(`, "swift", 2),
	p(`\bvar\s+\w+\s*:\s*\w+`, "swift", 2),
	p(`\bguard\s+let\b`, "swift", 4),
	p(`\bprint\(`, "swift", 1),

	p(`\bfun\s+\w+\s*\(`, "kotlin", 3),
	p(`\bval\s+\w+\s*=`, "kotlin", 2),
	p(`\bdata\s+class\b`, "kotlin", 4),

	p(`(?i)\bSELECT\s+.+\s+FROM\b`, "sql", 4),
	p(`(?i)\bCREATE\s+TABLE\b`, "sql", 4),
	p(`(?i)\bINSERT\s+INTO\b`, "sql", 4),

	p(`(?m)^#!`, "shell", 3),
	p(`\b(echo|export|if\s+\[)\b`, "shell", 2),

	p(`(?i)<html|<!DOCTYPE\s+html>`, "html", 5),
	p(`(?i)<div|<span|<p>|<body>`, "html", 2),

	p(`\{[\s\S]*?[a-z-]+\s*:\s*[^}]+\}`, "css", 1),
	p(`\.([\w-]+)\s*\{`, "css", 2),

	p(`(?m)^\s*\{\s*"[\w-]+"\s*:`, "json", 3),

	p(`(?m)^[\w-]+:\s*.+$`, "yaml", 1),
	p(`(?m)^\s*-\s+\w+:`, "yaml", 2),
}
