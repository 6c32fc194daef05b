// Package cli provides the command-line interface for tokensync.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/tokensync/internal/config"
	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	return newApp(os.Stdin, os.Stdout, os.Stderr).Run(ctx, args)
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "tokensync",
		Usage:     "Detect and resolve conflicts between local and repository design tokens",
		Version:   Version,
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config file (default: ~/.tokensync/config.yaml)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return ctx, err
			}
			configureColors(cmd, cfg)
			if err := configureLogging(cmd, cfg); err != nil {
				return ctx, err
			}
			return withConfig(ctx, cfg), nil
		},
		Commands: []*cli.Command{
			versionCommand(),
			detectCommand(),
			applyCommand(),
			hashCommand(),
			configCommand(),
			backupCommand(),
		},
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFrom returns the configuration loaded by the root command, or the
// defaults when none was loaded.
func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok && cfg != nil {
		return cfg
	}
	return config.Default()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// configureColors sets up color output from CLI flags and config.
func configureColors(cmd *cli.Command, cfg *config.Config) {
	switch {
	case cmd.Bool("no-color") || cfg.Output.Color == "never":
		ui.DisableColors()
	case cfg.Output.Color == "always":
		ui.EnableColors()
	}
}

// configureLogging sets the log level from config, raised by --verbose or
// --debug.
func configureLogging(cmd *cli.Command, cfg *config.Config) error {
	opts := logging.DefaultOptions()
	opts.Output = cmd.Root().ErrWriter
	opts.JSON = cfg.Logging.JSON

	if cfg.Logging.Level != "" {
		if err := opts.Level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			return fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
		}
	}

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") || cfg.Output.Verbose {
		opts.Level = min(opts.Level, slog.LevelInfo)
	}

	logging.SetDefault(logging.New(opts))
	logging.Debug("logging configured", slog.String("level", opts.Level.String()))
	return nil
}
