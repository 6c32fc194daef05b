package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/klauern/tokensync/internal/adapter"
	"github.com/klauern/tokensync/internal/config"
	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// sourceFlags select where the remote snapshot is read from.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"git-repo"},
			Usage:   "Read the remote snapshot from this git clone or directory (default: repository.path)",
		},
		&cli.StringFlag{
			Name:  "ref",
			Usage: "Git revision to read the remote snapshot at (default: repository.ref)",
		},
	}
}

// snapshots holds both sides of a comparison.
type snapshots struct {
	host        *adapter.FileHost
	local       model.Snapshot
	remote      model.Snapshot
	remoteLabel string
}

// readSnapshots reads <local> from the host document and the remote side
// either from <remote> as a plain file or from a repository. With a
// repository, the optional second argument is the snapshot path inside it.
func readSnapshots(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*snapshots, error) {
	args := cmd.Args()
	if args.Len() < 1 {
		return nil, errors.New("missing <local> snapshot path")
	}

	s := &snapshots{host: adapter.NewFileHost(args.Get(0))}
	local, err := s.host.ReadLocalSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read local snapshot: %w", err)
	}
	s.local = local

	repoDir := cmd.String("repo")
	if repoDir == "" {
		repoDir = cfg.RepositoryPath("")
	}

	var (
		reader       adapter.RepositoryReader
		snapshotPath string
	)
	if repoDir == "" {
		if args.Len() < 2 {
			return nil, errors.New("missing <remote> snapshot path (or set --repo)")
		}
		remotePath := args.Get(1)
		reader = adapter.NewDirRepository(filepath.Dir(remotePath))
		snapshotPath = filepath.Base(remotePath)
		s.remoteLabel = remotePath
	} else {
		ref := cmd.String("ref")
		if ref == "" {
			ref = cfg.Repository.Ref
		}
		snapshotPath = args.Get(1)
		if snapshotPath == "" {
			snapshotPath = cfg.Repository.SnapshotPath
		}
		reader, err = adapter.OpenRepository(repoDir, ref)
		if err != nil {
			return nil, err
		}
		s.remoteLabel = fmt.Sprintf("%s@%s:%s", repoDir, ref, snapshotPath)
	}

	remote, err := reader.ReadSnapshot(ctx, snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote snapshot: %w", err)
	}
	s.remote = remote

	logging.Info("snapshots loaded",
		logging.Path(s.host.Path),
		logging.Count(local.TokenCount()+remote.TokenCount()),
	)
	return s, nil
}
