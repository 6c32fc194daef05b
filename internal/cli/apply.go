package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/klauern/tokensync/internal/adapter"
	"github.com/klauern/tokensync/internal/backup"
	"github.com/klauern/tokensync/internal/config"
	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/progress"
	"github.com/klauern/tokensync/internal/report"
	"github.com/klauern/tokensync/internal/sync"
	"github.com/klauern/tokensync/internal/ui"
	"github.com/klauern/tokensync/internal/ui/tui"
)

func applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Merge the remote snapshot into the local one using resolutions",
		UsageText: "tokensync apply [options] <local> [remote]",
		Description: `Detect conflicts, choose a resolution for each and write the merged snapshot.

   Resolutions come from a file (--resolutions), from the suggested strategies
   (--auto) or from an interactive review (--interactive). Conflicts without a
   resolution keep the local token.

   Examples:
     tokensync apply --auto local.json remote.json > merged.json
     tokensync apply --resolutions decisions.yaml --write local.json remote.json
     tokensync apply --interactive --out merged.yaml local.json remote.json`,
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:    "resolutions",
				Aliases: []string{"r"},
				Usage:   "Read resolutions from a JSON, YAML or TOML file",
			},
			&cli.BoolFlag{
				Name:  "auto",
				Usage: "Apply the suggested resolution for every auto-resolvable conflict",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Review conflicts interactively",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Overwrite <local> with the merged snapshot",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the merged snapshot to this file",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: string(adapter.FormatJSON),
				Usage: "Encoding of the merged snapshot on stdout: json, yaml",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Print the merge outcome as json, yaml or markdown instead of a summary",
			},
			&cli.BoolFlag{
				Name:  "skip-backup",
				Usage: "Skip the backup taken before --write",
			},
		),
		Action: runApply,
	}
}

func runApply(ctx context.Context, cmd *cli.Command) error {
	cfg := configFrom(ctx)
	root := cmd.Root()

	if cmd.Bool("write") && cmd.String("out") != "" {
		return errors.New("--write and --out cannot be used together")
	}

	snaps, err := readSnapshots(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	engine := sync.New(sync.WithProgress(progress.Tracker(root.ErrWriter, "Applying resolutions")))
	detected := engine.Detect(snaps.local, snaps.remote)

	resolutions, err := chooseResolutions(cmd, cfg, detected)
	if err != nil {
		return err
	}

	result := engine.Apply(snaps.local, snaps.remote, resolutions)

	// The merged snapshot goes to stdout unless it is written to a file, in
	// which case stdout carries the summary instead.
	summaryOut := root.Writer
	switch {
	case cmd.Bool("write"):
		if err := backupHostDocument(cmd, cfg, snaps.host.Path); err != nil {
			return err
		}
		if err := snaps.host.WriteLocalSnapshot(ctx, result.Merged); err != nil {
			return err
		}
	case cmd.String("out") != "":
		if err := adapter.NewFileHost(cmd.String("out")).WriteLocalSnapshot(ctx, result.Merged); err != nil {
			return err
		}
	default:
		format := adapter.Format(cmd.String("format"))
		data, err := adapter.EncodeSnapshot(result.Merged, format)
		if err != nil {
			return err
		}
		if _, err := root.Writer.Write(data); err != nil {
			return fmt.Errorf("failed to write merged snapshot: %w", err)
		}
		summaryOut = root.ErrWriter
	}

	return writeApplySummary(summaryOut, cmd.String("report"), result)
}

// chooseResolutions picks where resolutions come from. Explicit flags are
// mutually exclusive; without any, config decides.
func chooseResolutions(cmd *cli.Command, cfg *config.Config, detected sync.DetectResult) ([]sync.Resolution, error) {
	file := cmd.String("resolutions")
	auto := cmd.Bool("auto")
	interactive := cmd.Bool("interactive")

	chosen := 0
	for _, set := range []bool{file != "", auto, interactive} {
		if set {
			chosen++
		}
	}
	if chosen > 1 {
		return nil, errors.New("use only one of --resolutions, --auto and --interactive")
	}
	if chosen == 0 {
		switch {
		case cfg.Sync.Interactive && isTerminal(cmd.Root().Reader):
			interactive = true
		case cfg.Sync.AutoResolve:
			auto = true
		default:
			return nil, errors.New("no resolutions given: use --resolutions, --auto or --interactive")
		}
	}

	switch {
	case file != "":
		return readResolutionsFile(file)
	case auto:
		return sync.SuggestResolutions(detected.Conflicts), nil
	default:
		return reviewConflicts(cmd, detected.Conflicts)
	}
}

func readResolutionsFile(path string) ([]sync.Resolution, error) {
	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolutions: %w", err)
	}
	resolutions, err := sync.DecodeResolutions(data, sync.ResolutionFormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Info("resolutions loaded", logging.Path(path), logging.Count(len(resolutions)))
	return resolutions, nil
}

// reviewConflicts opens the full-screen picker on a terminal and falls back
// to line prompts otherwise.
func reviewConflicts(cmd *cli.Command, conflicts []sync.Conflict) ([]sync.Resolution, error) {
	root := cmd.Root()
	if len(conflicts) == 0 {
		return nil, nil
	}

	if isTerminal(root.Reader) && isTerminal(root.Writer) {
		result, err := tui.RunConflictList(conflicts)
		if err != nil {
			return nil, fmt.Errorf("conflict picker failed: %w", err)
		}
		if result.Action != tui.ConflictActionResolve {
			return nil, errPromptAborted
		}
		return result.Resolutions, nil
	}

	// Prompts go to stderr so stdout stays clean for the merged snapshot.
	return NewConflictPrompter(root.Reader, root.ErrWriter).Prompt(conflicts)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 - file descriptors fit in int
}

func backupHostDocument(cmd *cli.Command, cfg *config.Config, path string) error {
	if cmd.Bool("skip-backup") || !cfg.Backup.Enabled {
		logging.Debug("backup skipped", logging.Path(path))
		return nil
	}

	store := backup.NewStore(cfg.BackupLocation())
	metadata, err := store.Create(path, backup.Options{
		Description: "before apply --write",
		Tags:        []string{"apply"},
	})
	if err != nil {
		return fmt.Errorf("failed to back up %s: %w", path, err)
	}
	if _, err := store.Prune(metadata.Document, cfg.Backup.MaxBackups); err != nil {
		logging.Warn("failed to prune old backups", logging.Err(err))
	}
	_, _ = fmt.Fprintln(cmd.Root().ErrWriter, ui.Dim("backup: "+metadata.ID))
	return nil
}

func writeApplySummary(w io.Writer, format string, result sync.ApplyResult) error {
	if format != "" {
		reportFormat, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		opts := report.DefaultOptions()
		opts.Format = reportFormat
		return report.New(opts).WriteApply(result, w)
	}

	for _, o := range result.Outcomes {
		label := o.Path.String()
		if o.Path.IsZero() {
			label = o.ConflictID
		}
		_, _ = fmt.Fprintf(w, "%s\n", ui.Outcome(o.Action, fmt.Sprintf("%s (%s): %s", label, o.Strategy, o.Message)))
	}
	_, _ = fmt.Fprint(w, result.Summary())
	return nil
}
