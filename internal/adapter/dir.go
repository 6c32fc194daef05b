package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// DirRepository reads snapshots from a plain directory.
type DirRepository struct {
	Root string
}

// NewDirRepository creates a reader rooted at root.
func NewDirRepository(root string) *DirRepository {
	return &DirRepository{Root: root}
}

// ReadSnapshot reads the snapshot at path, relative to the root.
func (r *DirRepository) ReadSnapshot(ctx context.Context, path string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	if !filepath.IsLocal(path) {
		return model.Snapshot{}, fmt.Errorf("snapshot path %q must stay inside %s", path, r.Root)
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return model.Snapshot{}, err
	}

	full := filepath.Join(r.Root, path)
	// #nosec G304 - path is checked to stay inside the root
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, full)
		}
		return model.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := DecodeSnapshot(data, format, full)
	if err != nil {
		return model.Snapshot{}, err
	}
	logging.Debug("read repository snapshot",
		logging.Path(full),
		logging.Count(snap.TokenCount()),
	)
	return snap, nil
}
