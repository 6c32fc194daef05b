// Package backup keeps copies of host documents before a merge overwrites them.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauern/tokensync/internal/logging"
)

const (
	// BackupDirPerm is the permission for backup directories (rwxr-x---)
	BackupDirPerm = 0o750
	// BackupFilePerm is the permission for backup files (rw-r-----)
	BackupFilePerm = 0o640
)

// ErrNotFound is returned when no backup has the requested ID.
var ErrNotFound = errors.New("backup not found")

// ErrCorrupted is returned when a backup file no longer matches its hash.
var ErrCorrupted = errors.New("backup file corrupted")

// Options configures a single backup.
type Options struct {
	// Description is a human-readable note, e.g. the command that triggered it.
	Description string
	// Tags categorize the backup.
	Tags []string
}

// Store manages backups under a root directory.
type Store struct {
	Root string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// DocumentName is the name backups of path are grouped under: its base name
// without extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Create copies sourcePath into the store and records it in the index.
func (s *Store) Create(sourcePath string, opts Options) (*Metadata, error) {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source path %q: %w", sourcePath, err)
	}

	// #nosec G304 - sourcePath is the host document chosen by the user
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %q: %w", sourcePath, err)
	}

	hashStr := hashContent(content)
	created := s.now()
	backupID := created.Format("20060102-150405-") + hashStr[:8]
	document := DocumentName(sourcePath)

	docDir := filepath.Join(s.Root, document)
	if err := os.MkdirAll(docDir, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	backupPath := filepath.Join(docDir, backupID+filepath.Ext(sourcePath))
	if err := os.WriteFile(backupPath, content, BackupFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		absSource = sourcePath
	}

	metadata := &Metadata{
		ID:          backupID,
		Document:    document,
		SourcePath:  absSource,
		BackupPath:  backupPath,
		CreatedAt:   created,
		ModifiedAt:  sourceInfo.ModTime(),
		Hash:        hashStr,
		Size:        sourceInfo.Size(),
		Description: opts.Description,
		Tags:        opts.Tags,
	}

	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	index.Add(*metadata)
	if err := s.SaveIndex(index); err != nil {
		return nil, fmt.Errorf("failed to add backup to index: %w", err)
	}

	logging.Debug("backup created",
		logging.Path(sourcePath),
		logging.Operation("backup"),
	)
	return metadata, nil
}

func (s *Store) lookup(backupID string) (*Index, Metadata, error) {
	index, err := s.LoadIndex()
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, exists := index.Backups[backupID]
	if !exists {
		return nil, Metadata{}, fmt.Errorf("%w: %q", ErrNotFound, backupID)
	}
	return index, metadata, nil
}

func (s *Store) readVerified(metadata Metadata) ([]byte, error) {
	content, err := os.ReadFile(metadata.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if got := hashContent(content); got != metadata.Hash {
		return nil, fmt.Errorf("%w: hash mismatch (expected %s, got %s)", ErrCorrupted, metadata.Hash, got)
	}
	return content, nil
}

// Restore writes a backup back to targetPath, or to its original location
// when targetPath is empty. The backup is verified first.
func (s *Store) Restore(backupID, targetPath string) (string, error) {
	_, metadata, err := s.lookup(backupID)
	if err != nil {
		return "", err
	}
	content, err := s.readVerified(metadata)
	if err != nil {
		return "", err
	}

	if targetPath == "" {
		targetPath = metadata.SourcePath
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), BackupDirPerm); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	// #nosec G306 - restored host documents keep ordinary file permissions
	if err := os.WriteFile(targetPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write target file: %w", err)
	}

	logging.Info("backup restored",
		logging.Path(targetPath),
		logging.Operation("restore"),
	)
	return targetPath, nil
}

// Verify checks that a backup file is present and matches its hash.
func (s *Store) Verify(backupID string) error {
	_, metadata, err := s.lookup(backupID)
	if err != nil {
		return err
	}
	_, err = s.readVerified(metadata)
	return err
}

// List returns backups newest first, optionally limited to one document.
func (s *Store) List(document string) ([]Metadata, error) {
	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := index.List()
	if document == "" {
		return backups, nil
	}
	filtered := make([]Metadata, 0, len(backups))
	for _, b := range backups {
		if b.Document == document {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// Delete removes a backup file and its index entry.
func (s *Store) Delete(backupID string) error {
	index, metadata, err := s.lookup(backupID)
	if err != nil {
		return err
	}
	if err := os.Remove(metadata.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	delete(index.Backups, backupID)
	if err := s.SaveIndex(index); err != nil {
		return fmt.Errorf("failed to remove backup from index: %w", err)
	}
	return nil
}

// Prune keeps the newest keep backups of document and deletes the rest.
// A keep of zero or less keeps everything.
func (s *Store) Prune(document string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := s.List(document)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, b := range backups[min(keep, len(backups)):] {
		if err := s.Delete(b.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %q: %w", b.ID, err)
		}
		deleted = append(deleted, b.ID)
	}
	if len(deleted) > 0 {
		logging.Debug("pruned backups",
			logging.Operation("backup"),
			logging.Count(len(deleted)),
		)
	}
	return deleted, nil
}
