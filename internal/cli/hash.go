package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/tokensync/internal/adapter"
	"github.com/klauern/tokensync/internal/fingerprint"
	"github.com/klauern/tokensync/internal/model"
)

func hashCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Print the fingerprint of a token",
		UsageText: "tokensync hash [options] <file> <collection.token>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "canonical",
				Usage: "Also print the canonical serialization the fingerprint is computed from",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return errors.New("hash requires exactly 2 arguments: <file> <collection.token>")
			}

			path, err := model.ParseTokenPath(args.Get(1))
			if err != nil {
				return err
			}
			snap, err := adapter.NewFileHost(args.Get(0)).ReadLocalSnapshot(ctx)
			if err != nil {
				return err
			}
			tok, ok := snap.Lookup(path)
			if !ok {
				return fmt.Errorf("token %s not found in %s", path, args.Get(0))
			}

			w := cmd.Root().Writer
			_, _ = fmt.Fprintln(w, fingerprint.Hash(tok))
			if cmd.Bool("canonical") {
				_, _ = fmt.Fprintln(w, string(fingerprint.Canonical(tok)))
			}
			return nil
		},
	}
}
