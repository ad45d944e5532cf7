package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/nsouzaco/code-assistant/internal/config"
	"github.com/nsouzaco/code-assistant/internal/conversation"
	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/llm"
	"github.com/nsouzaco/code-assistant/internal/prompt"
	"github.com/nsouzaco/code-assistant/internal/state"
)

//go:embed testdata/*
var testdataFS embed.FS

type testCase struct {
	name       string // display name
	source     string // file in testdata/
	expected   string // expected file in testdata/ after applying the suggestion
	start, end int    // selected lines, 1-indexed inclusive
	question   string
}

var tests = []testCase{
	{
		name:     "Guard clauses",
		source:   "01_guard.go",
		expected: "01_guard_expected.go",
		start:    19,
		end:      35,
		question: `Flatten this into guard clauses. Use exactly two if statements: the first returns ErrInvalid when a is nil or closed, the second when the email has no "@" or the balance is negative. End with return nil.`,
	},
	{
		name:     "strings.Join",
		source:   "02_join.go",
		expected: "02_join_expected.go",
		start:    7,
		end:      14,
		question: "Replace the builder loop with a single strings.Join call.",
	},
	{
		name:     "List comprehension",
		source:   "03_totals.py",
		expected: "03_totals_expected.py",
		start:    10,
		end:      14,
		question: "Rewrite the body as a single return of a list comprehension.",
	},
}

type testResult struct {
	name      string
	passed    bool
	elapsed   time.Duration
	tokens    int
	err       string // error details for failures
	reply     string
	suggested string
	diff      string
}

// logEntry is the JSON structure written to log files.
type logEntry struct {
	Model     string  `json:"model"`
	Test      string  `json:"test"`
	Passed    bool    `json:"passed"`
	Error     string  `json:"error,omitempty"`
	Elapsed   float64 `json:"elapsed_seconds"`
	Tokens    int     `json:"reply_tokens"`
	Reply     string  `json:"reply"`
	Suggested string  `json:"suggested,omitempty"`
	Diff      string  `json:"diff,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: go run ./cmd/bench <model-id> [--test=N]\n")
		fmt.Fprintf(os.Stderr, "   eg: go run ./cmd/bench gpt-4o-mini\n")
		fmt.Fprintf(os.Stderr, "   eg: go run ./cmd/bench gpt-4o-mini --test=2\n")
		os.Exit(1)
	}
	model := os.Args[1]

	testFilter := 0 // 0 = run all
	for _, arg := range os.Args[2:] {
		if strings.HasPrefix(arg, "--test=") {
			fmt.Sscanf(strings.TrimPrefix(arg, "--test="), "%d", &testFilter)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		fmt.Fprintf(os.Stderr, "error: %v\n", llm.ErrMissingAPIKey)
		os.Exit(1)
	}
	client := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, model, cfg.LLM.MaxTokens)
	tiers := prompt.TiersFromConfig(cfg.Window)

	// Create log directory
	modelSlug := strings.ReplaceAll(model, "/", "_")
	ts := time.Now().Format("20060102_150405")
	logDir := filepath.Join("cmd", "bench", "logs", fmt.Sprintf("%s_%s", ts, modelSlug))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log dir: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("suggested-block benchmark, model: %s\n", model)
	if testFilter > 0 {
		fmt.Printf("  (running test %d only)\n", testFilter)
	}
	fmt.Printf("  logs: %s/\n", logDir)
	fmt.Println(strings.Repeat("=", 54))

	passed := 0
	total := 0
	for i, tc := range tests {
		if testFilter > 0 && i+1 != testFilter {
			continue
		}
		total++
		result := runTest(client, tiers, tc, i, len(tests))
		if result.passed {
			passed++
		}
		writeLog(logDir, model, i+1, tc, result)
	}

	fmt.Println(strings.Repeat("=", 54))
	fmt.Printf("Result: %d/%d passed\n", passed, total)
}

func writeLog(logDir, model string, testNum int, tc testCase, result testResult) {
	entry := logEntry{
		Model:     model,
		Test:      fmt.Sprintf("%02d_%s", testNum, tc.name),
		Passed:    result.passed,
		Error:     result.err,
		Elapsed:   result.elapsed.Seconds(),
		Tokens:    result.tokens,
		Reply:     result.reply,
		Suggested: result.suggested,
		Diff:      result.diff,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal log entry: %v\n", err)
		return
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("%02d.json", testNum))
	if err := os.WriteFile(logPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write log: %v\n", err)
	}
}

// runTest drives one review turn through the real store and engine, applies
// the suggestion and compares the document with the expected file.
func runTest(client *llm.Client, tiers prompt.Tiers, tc testCase, index, total int) testResult {
	result := testResult{name: tc.name}

	src, err := testdataFS.ReadFile("testdata/" + tc.source)
	if err != nil {
		result.err = fmt.Sprintf("read source %s: %v", tc.source, err)
		printResult(index, total, result)
		return result
	}
	want, err := testdataFS.ReadFile("testdata/" + tc.expected)
	if err != nil {
		result.err = fmt.Sprintf("read expected %s: %v", tc.expected, err)
		printResult(index, total, result)
		return result
	}

	store := state.New()
	store.Open(tc.source, string(src))
	id, err := store.CreateThread(state.Selection{
		StartLine: tc.start,
		EndLine:   tc.end,
		Text:      diff.Extract(store.Lines(), tc.start, tc.end),
	}, "")
	if err != nil {
		result.err = fmt.Sprintf("create thread: %v", err)
		printResult(index, total, result)
		return result
	}

	engine := conversation.New(store, client,
		conversation.WithTimeout(3*time.Minute),
		conversation.WithTiers(tiers),
	)
	res, err := engine.Send(context.Background(), id, tc.question)
	if err != nil {
		result.err = fmt.Sprintf("send: %v", err)
		printResult(index, total, result)
		return result
	}
	result.elapsed = res.Duration
	result.reply = res.Content
	result.suggested = res.SuggestedCode
	if n, err := llm.EstimateTokens(res.Content); err == nil {
		result.tokens = n
	}

	switch {
	case res.Error != "":
		result.err = "api error: " + res.Error
	case res.SuggestedCode == "":
		result.err = "no suggested block in reply"
	default:
		if _, ok := store.Apply(id, res.MessageID); !ok {
			result.err = "suggestion could not be applied"
			break
		}
		result = compare(result, tc.source, store.Document(), string(want))
	}

	printResult(index, total, result)
	return result
}

// compare checks the edited document against the expected content.
func compare(result testResult, name, got, want string) testResult {
	gotNorm := normalizeContent(got)
	wantNorm := normalizeContent(want)
	if gotNorm == wantNorm {
		result.passed = true
		return result
	}
	result.err = fmt.Sprintf("%s: %s", name, describeMismatch(gotNorm, wantNorm))
	result.diff, _ = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(wantNorm),
		B:        difflib.SplitLines(gotNorm),
		FromFile: "expected",
		ToFile:   "got",
		Context:  2,
	})
	return result
}

func printResult(index, total int, r testResult) {
	label := fmt.Sprintf("[%d/%d] %s", index+1, total, r.name)

	// Pad with dots to align result
	dots := 50 - len(label)
	if dots < 3 {
		dots = 3
	}

	if r.passed {
		fmt.Printf("%s %s PASS  (%.1fs, %d tokens)\n", label, strings.Repeat(".", dots), r.elapsed.Seconds(), r.tokens)
	} else {
		fmt.Printf("%s %s FAIL  (%.1fs, %d tokens)\n", label, strings.Repeat(".", dots), r.elapsed.Seconds(), r.tokens)
		fmt.Printf("      %s\n", r.err)
	}
}

// normalizeContent trims trailing whitespace from each line and trailing
// blank lines from the document.
func normalizeContent(content string) string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// describeMismatch finds the first differing line between got and want.
func describeMismatch(got, want string) string {
	gotLines := strings.Split(got, "\n")
	wantLines := strings.Split(want, "\n")

	maxLines := max(len(gotLines), len(wantLines))
	for i := 0; i < maxLines; i++ {
		var g, w string
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if g != w {
			// Truncate long lines for display
			if len(g) > 60 {
				g = g[:57] + "..."
			}
			if len(w) > 60 {
				w = w[:57] + "..."
			}
			return fmt.Sprintf("output mismatch at line %d: got %q, want %q", i+1, g, w)
		}
	}

	return "output mismatch (unknown difference)"
}
