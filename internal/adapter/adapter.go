// Package adapter connects the sync engine to the places snapshots live: the
// design tool's host document and the repository holding the canonical copy.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// ErrUnsupportedFormat is returned for snapshot files that are neither JSON
// nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// ErrSnapshotNotFound is returned when a repository has no snapshot at the
// requested path.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// HostAdapter reads and writes the design tool's own token state.
type HostAdapter interface {
	ReadLocalSnapshot(ctx context.Context) (model.Snapshot, error)
	WriteLocalSnapshot(ctx context.Context, snap model.Snapshot) error
}

// RepositoryReader reads a snapshot committed to a repository.
type RepositoryReader interface {
	ReadSnapshot(ctx context.Context, path string) (model.Snapshot, error)
}

// Format is a snapshot file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (use .json, .yaml or .yml)", ErrUnsupportedFormat, path)
	}
}

// DecodeSnapshot parses snapshot data. Malformed entries are skipped and
// logged; the skip count is attached to the log under source.
func DecodeSnapshot(data []byte, format Format, source string) (model.Snapshot, error) {
	var (
		snap   model.Snapshot
		report model.DecodeReport
		err    error
	)
	switch format {
	case FormatJSON:
		snap, report, err = model.DecodeSnapshot(data)
	case FormatYAML:
		snap, report, err = model.DecodeSnapshotYAML(data)
	default:
		return model.Snapshot{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode %s: %w", source, err)
	}
	if len(report.Skipped) > 0 {
		logging.Warn("snapshot had malformed entries",
			logging.Path(source),
			logging.Count(len(report.Skipped)),
		)
	}
	return snap, nil
}

// EncodeSnapshot renders a snapshot in the given encoding. JSON is indented
// with two spaces and ends with a newline.
func EncodeSnapshot(snap model.Snapshot, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
