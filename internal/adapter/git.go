package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// DefaultRef is the revision read when none is configured.
const DefaultRef = "HEAD"

// GitRepository reads snapshots committed to a local git clone at a fixed
// revision. The working tree is never consulted, so uncommitted edits are
// ignored.
type GitRepository struct {
	// Ref is a branch, tag or commit hash.
	Ref string

	dir  string
	repo *git.Repository
}

// OpenGitRepository opens the clone containing dir. An empty ref reads HEAD.
func OpenGitRepository(dir, ref string) (*GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", dir, err)
	}
	if ref == "" {
		ref = DefaultRef
	}
	return &GitRepository{Ref: ref, dir: dir, repo: repo}, nil
}

// OpenRepository returns a reader for dir: a GitRepository at ref when dir
// is inside a git clone, otherwise a DirRepository over the working files.
func OpenRepository(dir, ref string) (RepositoryReader, error) {
	repo, err := OpenGitRepository(dir, ref)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}
	logging.Debug("not a git repository, reading files directly",
		logging.Path(dir),
		slog.String("ref", ref),
	)
	return NewDirRepository(dir), nil
}

// Dir returns the directory the repository was opened from.
func (r *GitRepository) Dir() string {
	return r.dir
}

// Resolve returns the commit hash the configured ref points to.
func (r *GitRepository) Resolve() (string, error) {
	commit, err := r.commit()
	if err != nil {
		return "", err
	}
	return commit.Hash.String(), nil
}

func (r *GitRepository) commit() (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(r.Ref))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", r.Ref, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return commit, nil
}

// ReadSnapshot reads the snapshot committed at path, relative to the
// repository root.
func (r *GitRepository) ReadSnapshot(ctx context.Context, snapshotPath string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	format, err := FormatFromPath(snapshotPath)
	if err != nil {
		return model.Snapshot{}, err
	}

	commit, err := r.commit()
	if err != nil {
		return model.Snapshot{}, err
	}

	// Tree paths always use forward slashes.
	treePath := path.Clean(filepath.ToSlash(snapshotPath))
	file, err := commit.File(treePath)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return model.Snapshot{}, fmt.Errorf("%w: %s at %s", ErrSnapshotNotFound, treePath, r.Ref)
		}
		return model.Snapshot{}, fmt.Errorf("failed to read %s at %s: %w", treePath, r.Ref, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read %s at %s: %w", treePath, r.Ref, err)
	}

	source := treePath + "@" + r.Ref
	snap, err := DecodeSnapshot([]byte(contents), format, source)
	if err != nil {
		return model.Snapshot{}, err
	}
	logging.Debug("read repository snapshot",
		logging.Path(source),
		slog.String("commit", commit.Hash.String()),
		logging.Count(snap.TokenCount()),
	)
	return snap, nil
}
