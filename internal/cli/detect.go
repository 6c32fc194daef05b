package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/tokensync/internal/report"
	"github.com/klauern/tokensync/internal/sync"
	"github.com/klauern/tokensync/internal/ui"
)

const formatTable = "table"

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "List conflicts between a local and a remote token snapshot",
		UsageText: "tokensync detect [options] <local> [remote]",
		Description: `Compare the design tool's snapshot with the repository's and report every
   token that differs, with a severity and a suggested resolution.

   Examples:
     tokensync detect local.json remote.json
     tokensync detect --format markdown local.json remote.json
     tokensync detect --repo ../design-tokens --ref main local.json tokens/snapshot.json`,
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, json, yaml, markdown (default: output.format)",
			},
			&cli.BoolFlag{
				Name:  "tokens",
				Usage: "Include local and remote tokens in json/yaml output",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(ctx)

			format := cmd.String("format")
			if format == "" {
				format = cfg.Output.Format
			}

			snaps, err := readSnapshots(ctx, cmd, cfg)
			if err != nil {
				return err
			}

			result := sync.New().Detect(snaps.local, snaps.remote)
			w := cmd.Root().Writer

			if strings.EqualFold(format, formatTable) || format == "" {
				printConflictTable(w, result)
				return nil
			}

			reportFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			opts := report.DefaultOptions()
			opts.Format = reportFormat
			opts.IncludeTokens = cmd.Bool("tokens")
			return report.New(opts).WriteDetect(result, w)
		},
	}
}

// printConflictTable writes a colored, column-aligned conflict listing.
func printConflictTable(w io.Writer, result sync.DetectResult) {
	s := result.Summary
	if !result.HasConflicts() {
		_, _ = fmt.Fprintln(w, ui.StatusSuccess(fmt.Sprintf("No conflicts (%d local, %d remote tokens)", s.LocalTokens, s.RemoteTokens)))
		return
	}

	_, _ = fmt.Fprintf(w, "%s %d conflict(s): %d auto-resolvable, %d need review, %d high severity\n\n",
		ui.Warning(ui.SymbolWarning), s.Total, s.AutoResolvable, s.RequiresManualReview, s.HighSeverity)

	_, _ = fmt.Fprintf(w, "%s %s %s %s %s\n",
		padRight(ui.Header("PATH"), "PATH", 36),
		padRight(ui.Header("KIND"), "KIND", 14),
		padRight(ui.Header("SEVERITY"), "SEVERITY", 8),
		padRight(ui.Header("SUGGESTED"), "SUGGESTED", 12),
		ui.Header("DESCRIPTION"),
	)
	for _, c := range result.Conflicts {
		_, _ = fmt.Fprintf(w, "%s %s %s %-12s %s\n",
			padRight(c.Path().String(), c.Path().String(), 36),
			padRight(ui.Kind(c.Kind()), string(c.Kind()), 14),
			padRight(ui.Severity(c.Severity), string(c.Severity), 8),
			c.Suggested,
			c.Description,
		)
	}
}

// padRight pads a possibly colored string using the width of its plain text.
func padRight(rendered, plain string, width int) string {
	if n := width - len([]rune(plain)); n > 0 {
		return rendered + strings.Repeat(" ", n)
	}
	return rendered
}
