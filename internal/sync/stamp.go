package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/klauern/tokensync/internal/fingerprint"
	"github.com/klauern/tokensync/internal/model"
)

// Stamper attaches provenance to tokens. It never mutates its inputs.
type Stamper struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// NewID mints sync identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// NewStamper creates a stamper using the wall clock and random UUIDs.
func NewStamper() *Stamper {
	return &Stamper{
		Clock: time.Now,
		NewID: uuid.NewString,
	}
}

func (s *Stamper) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}

func (s *Stamper) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

// Stamp recomputes the hash, bumps the version (1 on first stamp), keeps or
// mints the sync ID, and marks the token as modified now by side.
func (s *Stamper) Stamp(t model.Token, side model.Side) model.Token {
	out := t.Clone()
	md := model.SyncMetadata{
		Source:       side,
		Hash:         fingerprint.Hash(t),
		Version:      1,
		LastModified: s.now(),
	}
	if prev := t.SyncMetadata; prev != nil {
		md.Version = prev.Version + 1
		md.SyncID = prev.SyncID
	}
	if md.SyncID == "" {
		md.SyncID = s.newID()
	}
	out.SyncMetadata = &md
	return out
}

// Refresh recomputes the hash without inventing history. A token whose
// content still matches its recorded hash keeps its version and
// modification time; a token edited since its last stamp gets a new version
// and is marked modified now. A token without metadata starts at version 1
// with an unknown modification time.
func (s *Stamper) Refresh(t model.Token, side model.Side) model.Token {
	out := t.Clone()
	hash := fingerprint.Hash(t)
	md := model.SyncMetadata{Source: side, Hash: hash, Version: 1}

	if prev := t.SyncMetadata; prev != nil {
		md.SyncID = prev.SyncID
		md.Version = max(prev.Version, 1)
		md.LastModified = prev.LastModified
		if prev.Hash != hash {
			md.Version = prev.Version + 1
			md.LastModified = s.now()
		}
	}
	if md.SyncID == "" {
		md.SyncID = s.newID()
	}
	out.SyncMetadata = &md
	return out
}

// StampSnapshot stamps every token in the snapshot.
func (s *Stamper) StampSnapshot(snap model.Snapshot, side model.Side) model.Snapshot {
	return mapTokens(snap, func(t model.Token) model.Token { return s.Stamp(t, side) })
}

// RefreshSnapshot refreshes every token in the snapshot.
func (s *Stamper) RefreshSnapshot(snap model.Snapshot, side model.Side) model.Snapshot {
	return mapTokens(snap, func(t model.Token) model.Token { return s.Refresh(t, side) })
}

// StripSnapshot returns a copy of the snapshot without any sync metadata.
func StripSnapshot(snap model.Snapshot) model.Snapshot {
	return mapTokens(snap, model.Token.WithoutMetadata)
}

func mapTokens(snap model.Snapshot, fn func(model.Token) model.Token) model.Snapshot {
	out := model.Snapshot{Collections: make([]model.Collection, len(snap.Collections))}
	for i, c := range snap.Collections {
		nc := model.Collection{Name: c.Name, Variables: make(map[string]model.Token, len(c.Variables))}
		if c.Modes != nil {
			nc.Modes = append([]model.Mode(nil), c.Modes...)
		}
		for name, tok := range c.Variables {
			nc.Variables[name] = fn(tok)
		}
		out.Collections[i] = nc
	}
	return out
}
