package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/tokensync/internal/backup"
	"github.com/klauern/tokensync/internal/ui"
)

func backupCommand() *cli.Command {
	store := func(ctx context.Context) *backup.Store {
		return backup.NewStore(configFrom(ctx).BackupLocation())
	}
	requireID := func(cmd *cli.Command) (string, error) {
		if cmd.Args().Len() != 1 {
			return "", errors.New("requires exactly 1 argument: <backup-id>")
		}
		return cmd.Args().First(), nil
	}

	return &cli.Command{
		Name:  "backup",
		Usage: "Manage backups of host documents",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List backups, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "document",
						Usage: "Only list backups of this document (file name without extension)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					backups, err := store(ctx).List(cmd.String("document"))
					if err != nil {
						return err
					}
					w := cmd.Root().Writer
					if len(backups) == 0 {
						_, _ = fmt.Fprintln(w, "No backups found.")
						return nil
					}
					_, _ = fmt.Fprintf(w, "%-28s %-20s %-20s %8s\n", "ID", "DOCUMENT", "CREATED", "SIZE")
					_, _ = fmt.Fprintf(w, "%-28s %-20s %-20s %8s\n", "--", "--------", "-------", "----")
					for _, b := range backups {
						_, _ = fmt.Fprintf(w, "%-28s %-20s %-20s %8d\n",
							b.ID, b.Document, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.Size)
					}
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "Restore a backup over its original file",
				UsageText: "tokensync backup restore [--to FILE] <backup-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: "Restore to this path instead of the original location",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					target, err := store(ctx).Restore(id, cmd.String("to"))
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.Root().Writer, ui.StatusSuccess("restored "+target))
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Check a backup against its recorded hash",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					if err := store(ctx).Verify(id); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.Root().Writer, ui.StatusSuccess(id+" ok"))
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a backup",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					if err := store(ctx).Delete(id); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.Root().Writer, ui.StatusSuccess("deleted "+id))
					return nil
				},
			},
		},
	}
}
