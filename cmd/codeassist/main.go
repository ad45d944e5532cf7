package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/nsouzaco/code-assistant/internal/config"
	"github.com/nsouzaco/code-assistant/internal/logging"
)

//go:embed version.txt
var version string

// buildCommit is set via -ldflags or falls back to VCS info from debug.ReadBuildInfo.
var buildCommit string

// getBuildCommit returns the short commit hash, resolving from VCS build info if needed.
func getBuildCommit() string {
	if buildCommit != "" {
		return buildCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return ""
}

func versionString() string {
	v := strings.TrimSpace(version)
	if commit := getBuildCommit(); commit != "" {
		return v + " (" + commit + ")"
	}
	return v
}

// flags are the global options shared by every command.
type flags struct {
	configPath string
	logLevel   string
	logFile    string
}

func main() {
	var (
		f         flags
		cfg       *config.Config
		logCloser = func() {}
	)
	loadConfig := func() *config.Config { return cfg }

	app := &cli.Command{
		Name:      "codeassist",
		Usage:     "Review code a line range at a time with a chat model",
		UsageText: "codeassist [global options] command [command options]",
		Version:   versionString(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CODEASSIST_CONFIG"),
				Value:       config.DefaultPath(),
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Destination: &f.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Destination: &f.logFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			loaded, err := config.LoadFrom(f.configPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			cfg = loaded

			level, file := cfg.Log.Level, cfg.Log.File
			if f.logLevel != "" {
				level = f.logLevel
			}
			if f.logFile != "" {
				file = f.logFile
			}
			closer, err := logging.Setup(level, file)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer
			logBuildInfo()
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			logCloser()
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(loadConfig),
			reviewCommand(loadConfig),
			detectCommand(),
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					_, err := fmt.Fprintf(c.Root().Writer, "codeassist %s\n", versionString())
					return err
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "codeassist: %v\n", err)
		os.Exit(1)
	}
}

func logBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		log.Debug().Msg("build info unavailable")
		return
	}

	var revision, buildTime, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			buildTime = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}

	v := info.Main.Version
	if revision != "" {
		v = revision
	}
	if modified == "true" {
		v += " (modified)"
	}
	log.Debug().Str("build", v).Str("go", runtime.Version()).Str("time", buildTime).Msg("build info")
}
