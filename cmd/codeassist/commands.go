package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nsouzaco/code-assistant/internal/config"
	"github.com/nsouzaco/code-assistant/internal/conversation"
	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/language"
	"github.com/nsouzaco/code-assistant/internal/state"
)

func serveCommand(cfg func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON-lines protocol on stdin/stdout for an editor plugin",
		Action: func(ctx context.Context, c *cli.Command) error {
			store := state.New()
			engine, err := newEngine(cfg(), store)
			if err != nil {
				return err
			}
			log.Info().Str("version", versionString()).Msg("serving on stdio")
			return newServer(store, engine, os.Stdout).serve(os.Stdin)
		},
	}
}

type reviewOptions struct {
	lines string
	ask   string
	apply bool
	style string
	plain bool
}

func reviewCommand(cfg func() *config.Config) *cli.Command {
	var opts reviewOptions
	return &cli.Command{
		Name:      "review",
		Usage:     "Ask one question about a line range and print the answer",
		UsageText: "codeassist review FILE --lines A-B --ask QUESTION [--apply]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "lines",
				Aliases:     []string{"l"},
				Usage:       "line range to review, e.g. 10-24 or 7",
				Required:    true,
				Destination: &opts.lines,
			},
			&cli.StringFlag{
				Name:        "ask",
				Aliases:     []string{"q"},
				Usage:       "question about the selected lines",
				Required:    true,
				Destination: &opts.ask,
			},
			&cli.BoolFlag{
				Name:        "apply",
				Usage:       "write the suggested change back to FILE",
				Destination: &opts.apply,
			},
			&cli.StringFlag{
				Name:        "style",
				Usage:       "glamour style (auto, dark, light, notty)",
				Value:       "auto",
				Destination: &opts.style,
			},
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print the raw reply without rendering",
				Destination: &opts.plain,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return cli.Exit("review takes exactly one FILE argument", 2)
			}
			store := state.New()
			engine, err := newEngine(cfg(), store)
			if err != nil {
				return err
			}
			return runReview(ctx, c.Root().Writer, store, engine, c.Args().First(), opts)
		},
	}
}

// engineSender is the part of the conversation engine review needs.
type engineSender interface {
	Send(ctx context.Context, threadID, text string) (conversation.Result, error)
}

var errReplyFailed = errors.New("the model request failed")

func runReview(ctx context.Context, w io.Writer, store *state.Store, engine engineSender, path string, opts reviewOptions) error {
	start, end, err := parseLineRange(opts.lines)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	store.Open(path, string(data))

	lines := store.Lines()
	if end > len(lines) {
		return fmt.Errorf("range %d-%d is past the end of %s (%d lines)", start, end, path, len(lines))
	}
	id, err := store.CreateThread(state.Selection{
		StartLine: start,
		EndLine:   end,
		Text:      diff.Extract(lines, start, end),
	}, "")
	if err != nil {
		return err
	}

	res, err := engine.Send(ctx, id, opts.ask)
	if err != nil {
		return err
	}

	if err := render(w, res.Content, opts); err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("%w: %s", errReplyFailed, res.Error)
	}

	if !opts.apply {
		return nil
	}
	applied, ok := store.Apply(id, res.MessageID)
	if !ok {
		fmt.Fprintln(w, "No suggested change to apply.")
		return nil
	}
	if err := os.WriteFile(path, []byte(store.Document()), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "Applied to %s: lines %d-%d are now %d-%d.\n", path, applied.StartLine, applied.OldEndLine, applied.StartLine, applied.EndLine)
	return nil
}

func render(w io.Writer, markdown string, opts reviewOptions) error {
	if opts.plain {
		_, err := fmt.Fprintln(w, markdown)
		return err
	}
	style := glamour.WithAutoStyle()
	if opts.style != "" && opts.style != "auto" {
		style = glamour.WithStylePath(opts.style)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("render reply: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}

var errBadRange = errors.New("--lines must be N or A-B with 1 <= A <= B")

// parseLineRange parses "A-B" or a single line "N".
func parseLineRange(s string) (int, int, error) {
	a, b, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, errBadRange
	}
	end := start
	if found {
		end, err = strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return 0, 0, errBadRange
		}
	}
	if start < 1 || end < start {
		return 0, 0, errBadRange
	}
	return start, end, nil
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Print the language tag for a file",
		UsageText: "codeassist detect FILE",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return cli.Exit("detect takes exactly one FILE argument", 2)
			}
			path := c.Args().First()
			var content string
			if data, err := os.ReadFile(path); err == nil {
				content = string(data)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			_, err := fmt.Fprintln(c.Root().Writer, language.Detect(path, content))
			return err
		},
	}
}
