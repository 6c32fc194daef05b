package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// FileHost is a host document stored as a JSON or YAML file.
type FileHost struct {
	Path string
}

// NewFileHost creates a host adapter for the file at path.
func NewFileHost(path string) *FileHost {
	return &FileHost{Path: path}
}

// ReadLocalSnapshot reads and decodes the host document.
func (h *FileHost) ReadLocalSnapshot(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	format, err := FormatFromPath(h.Path)
	if err != nil {
		return model.Snapshot{}, err
	}

	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read host document: %w", err)
	}

	snap, err := DecodeSnapshot(data, format, h.Path)
	if err != nil {
		return model.Snapshot{}, err
	}
	logging.Debug("read host document",
		logging.Path(h.Path),
		logging.Count(snap.TokenCount()),
	)
	return snap, nil
}

// WriteLocalSnapshot replaces the host document. The new content is written
// to a temporary file in the same directory and renamed over the original,
// so readers never see a partial document.
func (h *FileHost) WriteLocalSnapshot(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format, err := FormatFromPath(h.Path)
	if err != nil {
		return err
	}
	data, err := EncodeSnapshot(snap, format)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(h.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write host document: %w", err)
	}
	logging.Debug("wrote host document",
		logging.Path(h.Path),
		logging.Count(snap.TokenCount()),
	)
	return nil
}

// WriteFileAtomic writes data to path through a temporary file and rename.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
