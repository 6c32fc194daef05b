package sync

import (
	"slices"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// Entry is one token in a flattened snapshot.
type Entry struct {
	Token          model.Token
	CollectionName string
	Path           model.TokenPath
}

// PathIndex maps token paths to their entries.
type PathIndex map[model.TokenPath]Entry

// Index flattens a snapshot into a path index. Collections or tokens with an
// empty name are skipped. If two collections share a name, the later one
// wins for any token name they both define.
func Index(snap model.Snapshot) PathIndex {
	idx := make(PathIndex, snap.TokenCount())
	for i, c := range snap.Collections {
		if c.Name == "" {
			logging.Warn("skipping collection without a name",
				logging.Operation("index"),
				logging.Count(i),
			)
			continue
		}
		for name, tok := range c.Variables {
			if name == "" {
				logging.Warn("skipping token without a name",
					logging.Operation("index"),
					logging.Collection(c.Name),
				)
				continue
			}
			path := model.NewTokenPath(c.Name, name)
			if _, dup := idx[path]; dup {
				logging.Debug("duplicate token path, later collection wins",
					logging.Path(path.String()),
				)
			}
			idx[path] = Entry{Token: tok, CollectionName: c.Name, Path: path}
		}
	}
	return idx
}

// Paths returns the index's paths in sorted order.
func (idx PathIndex) Paths() []model.TokenPath {
	paths := make([]model.TokenPath, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, comparePaths)
	return paths
}

func comparePaths(a, b model.TokenPath) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
