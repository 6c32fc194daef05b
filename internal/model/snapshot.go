package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/logging"
)

// ErrNotSnapshot is returned when input is not snapshot-shaped at all.
var ErrNotSnapshot = errors.New("input is not a snapshot")

// Mode is one of the modes a collection defines (e.g. light, dark).
type Mode struct {
	ModeID string `json:"modeId" yaml:"modeId"`
	Name   string `json:"name" yaml:"name"`
}

// Collection is a named group of tokens sharing a mode set.
type Collection struct {
	Name      string
	Modes     []Mode
	Variables map[string]Token
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := Collection{Name: c.Name}
	if c.Modes != nil {
		out.Modes = append([]Mode(nil), c.Modes...)
	}
	if c.Variables != nil {
		out.Variables = make(map[string]Token, len(c.Variables))
		for name, tok := range c.Variables {
			out.Variables[name] = tok.Clone()
		}
	}
	return out
}

// Snapshot is one side's full state: an ordered list of collections.
type Snapshot struct {
	Collections []Collection
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Collections: make([]Collection, len(s.Collections))}
	for i, c := range s.Collections {
		out.Collections[i] = c.Clone()
	}
	return out
}

// Collection returns the first collection with the given name.
func (s *Snapshot) Collection(name string) (*Collection, bool) {
	for i := range s.Collections {
		if s.Collections[i].Name == name {
			return &s.Collections[i], true
		}
	}
	return nil, false
}

// Lookup returns the token at path. When several collections share a name,
// the last one defining the token wins.
func (s Snapshot) Lookup(path TokenPath) (Token, bool) {
	var (
		found Token
		ok    bool
	)
	for _, c := range s.Collections {
		if c.Name != path.Collection {
			continue
		}
		if tok, exists := c.Variables[path.Name]; exists {
			found, ok = tok, true
		}
	}
	return found, ok
}

// TokenCount returns the number of tokens across all collections.
func (s Snapshot) TokenCount() int {
	n := 0
	for _, c := range s.Collections {
		n += len(c.Variables)
	}
	return n
}

// DecodeReport lists entries skipped while decoding a snapshot.
type DecodeReport struct {
	Skipped []string
}

func (r *DecodeReport) skip(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Skipped = append(r.Skipped, msg)
	logging.Warn("skipping malformed snapshot entry",
		logging.Operation("decode"),
		slog.String("reason", msg),
	)
}

// DecodeSnapshot parses a snapshot in its JSON wire shape.
// Malformed collections or tokens are skipped and listed in the report;
// only input that is not an array fails.
func DecodeSnapshot(data []byte) (Snapshot, DecodeReport, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, DecodeReport{}, fmt.Errorf("%w: %w", ErrNotSnapshot, err)
	}
	return SnapshotFromValue(raw)
}

// DecodeSnapshotYAML parses a snapshot written as YAML.
func DecodeSnapshotYAML(data []byte) (Snapshot, DecodeReport, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, DecodeReport{}, fmt.Errorf("%w: %w", ErrNotSnapshot, err)
	}
	// Normalize YAML scalars (ints, timestamps) to their JSON shapes.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return Snapshot{}, DecodeReport{}, fmt.Errorf("%w: %w", ErrNotSnapshot, err)
	}
	return DecodeSnapshot(normalized)
}

// SnapshotFromValue builds a snapshot from a decoded JSON value.
func SnapshotFromValue(raw any) (Snapshot, DecodeReport, error) {
	var report DecodeReport

	entries, ok := raw.([]any)
	if !ok {
		return Snapshot{}, report, fmt.Errorf("%w: expected an array of collections, got %s", ErrNotSnapshot, describeKind(raw))
	}

	snap := Snapshot{Collections: make([]Collection, 0, len(entries))}
	for i, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			report.skip("entry %d: expected object, got %s", i, describeKind(entry))
			continue
		}
		if len(obj) != 1 {
			report.skip("entry %d: expected exactly one collection key, got %d", i, len(obj))
			continue
		}
		for name, body := range obj {
			c, ok := collectionFromValue(name, body, &report)
			if ok {
				snap.Collections = append(snap.Collections, c)
			}
		}
	}
	return snap, report, nil
}

func collectionFromValue(name string, body any, report *DecodeReport) (Collection, bool) {
	if name == "" {
		report.skip("collection with empty name")
		return Collection{}, false
	}
	obj, ok := body.(map[string]any)
	if !ok {
		report.skip("collection %q: expected object, got %s", name, describeKind(body))
		return Collection{}, false
	}
	vars, ok := obj["variables"].(map[string]any)
	if !ok {
		report.skip("collection %q: missing variables object", name)
		return Collection{}, false
	}

	c := Collection{Name: name, Variables: make(map[string]Token, len(vars))}

	if rawModes, ok := obj["modes"].([]any); ok {
		for i, rm := range rawModes {
			m, ok := rm.(map[string]any)
			if !ok {
				report.skip("collection %q: mode %d is not an object", name, i)
				continue
			}
			id, _ := m["modeId"].(string)
			modeName, _ := m["name"].(string)
			c.Modes = append(c.Modes, Mode{ModeID: id, Name: modeName})
		}
	}

	for tokName, rawTok := range vars {
		if tokName == "" {
			report.skip("collection %q: token with empty name", name)
			continue
		}
		tok, err := TokenFromValue(rawTok)
		if err != nil {
			report.skip("token %s: %v", NewTokenPath(name, tokName), err)
			continue
		}
		c.Variables[tokName] = tok
	}
	return c, true
}

// UnmarshalJSON decodes a snapshot, skipping malformed entries.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	snap, _, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	*s = snap
	return nil
}

type wireCollection struct {
	Modes     []Mode           `json:"modes,omitempty" yaml:"modes,omitempty"`
	Variables map[string]Token `json:"variables" yaml:"variables"`
}

func (s Snapshot) wire() []map[string]wireCollection {
	out := make([]map[string]wireCollection, 0, len(s.Collections))
	for _, c := range s.Collections {
		vars := c.Variables
		if vars == nil {
			vars = map[string]Token{}
		}
		out = append(out, map[string]wireCollection{
			c.Name: {Modes: c.Modes, Variables: vars},
		})
	}
	return out
}

// MarshalJSON encodes the snapshot in its wire shape.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// MarshalYAML encodes the snapshot in its wire shape.
func (s Snapshot) MarshalYAML() (any, error) {
	return s.wire(), nil
}
