package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/config"
	"github.com/klauern/tokensync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display or initialize configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := yaml.Marshal(configFrom(ctx))
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.Root().Writer.Write(data)
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "path",
				Usage: "Print the config file location",
				Action: func(_ context.Context, cmd *cli.Command) error {
					_, _ = fmt.Fprintln(cmd.Root().Writer, configPath(cmd))
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Write the config here instead of the default location",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("path")
					if path == "" {
						path = config.FilePath()
					}
					if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
						return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
					}
					if err := config.Default().SaveToPath(path); err != nil {
						return fmt.Errorf("failed to write config: %w", err)
					}
					_, _ = fmt.Fprintln(cmd.Root().Writer, ui.StatusSuccess("wrote "+path))
					return nil
				},
			},
		},
	}
}

// configPath is the --config flag if given, else the default location.
func configPath(cmd *cli.Command) string {
	if path := cmd.Root().String("config"); path != "" {
		return path
	}
	return config.FilePath()
}
