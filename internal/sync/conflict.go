package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/tokensync/internal/model"
)

// ConflictKind identifies the kind of divergence detected at a path.
type ConflictKind string

const (
	// KindValueChange means both sides have the token with different content.
	KindValueChange ConflictKind = "value-change"

	// KindTypeChange means both sides have the token with different types.
	KindTypeChange ConflictKind = "type-change"

	// KindAddition means only the remote side has the token.
	KindAddition ConflictKind = "addition"

	// KindDeletion means only the local side has the token.
	KindDeletion ConflictKind = "deletion"

	// KindNameConflict means distinct tokens render to the same dotted path.
	KindNameConflict ConflictKind = "name-conflict"
)

// IsValid returns true if the kind is recognized.
func (k ConflictKind) IsValid() bool {
	switch k {
	case KindValueChange, KindTypeChange, KindAddition, KindDeletion, KindNameConflict:
		return true
	default:
		return false
	}
}

// AllKinds returns every conflict kind.
func AllKinds() []ConflictKind {
	return []ConflictKind{KindValueChange, KindTypeChange, KindAddition, KindDeletion, KindNameConflict}
}

// Severity ranks how risky a conflict is to settle.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities: low < medium < high.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Detail carries the data specific to one kind of conflict.
// The set of implementations is closed.
type Detail interface {
	Kind() ConflictKind
	sealed()
}

// ValueChange is a content difference between two tokens of the same type.
type ValueChange struct {
	Local  model.Token
	Remote model.Token
	// ValueDiffers is true when the primary value differs; false means only
	// per-mode values diverge.
	ValueDiffers bool
	// ModeDiffs lists the mode names whose values differ, sorted.
	ModeDiffs []string
}

// TypeChange is a difference in the tokens' type tags.
type TypeChange struct {
	Local  model.Token
	Remote model.Token
}

// Addition is a token present only remotely.
type Addition struct {
	Remote model.Token
}

// Deletion is a token present only locally.
type Deletion struct {
	Local model.Token
}

// NameConflict lists distinct paths that share one dotted rendering.
type NameConflict struct {
	Paths []model.TokenPath
}

func (ValueChange) Kind() ConflictKind  { return KindValueChange }
func (TypeChange) Kind() ConflictKind   { return KindTypeChange }
func (Addition) Kind() ConflictKind     { return KindAddition }
func (Deletion) Kind() ConflictKind     { return KindDeletion }
func (NameConflict) Kind() ConflictKind { return KindNameConflict }

func (ValueChange) sealed()  {}
func (TypeChange) sealed()   {}
func (Addition) sealed()     {}
func (Deletion) sealed()     {}
func (NameConflict) sealed() {}

// ErrInvalidConflictID is returned when a conflict ID does not match
// conflict_<kind>_<collection>.<token>_<epochMillis>.
var ErrInvalidConflictID = errors.New("invalid conflict id")

const conflictIDPrefix = "conflict_"

// ConflictID identifies a conflict. Kind and Path form the stable identity;
// GeneratedAt only records when the detection pass ran.
type ConflictID struct {
	Kind        ConflictKind
	Path        model.TokenPath
	GeneratedAt time.Time
}

// Key returns the stable identity, equal across detection passes over the
// same inputs.
func (id ConflictID) Key() string {
	return string(id.Kind) + ":" + id.Path.String()
}

// String renders the wire form conflict_<kind>_<path>_<epochMillis>.
func (id ConflictID) String() string {
	return fmt.Sprintf("%s%s_%s_%d", conflictIDPrefix, id.Kind, id.Path, id.GeneratedAt.UnixMilli())
}

// ParseConflictID parses the wire form. The kind ends at the first
// underscore after the prefix and the timestamp starts after the last one,
// so token names may contain underscores and dots. A kind that is not
// recognized is rejected rather than guessed at.
func ParseConflictID(s string) (ConflictID, error) {
	rest, ok := strings.CutPrefix(s, conflictIDPrefix)
	if !ok {
		return ConflictID{}, fmt.Errorf("%w: %q: missing %q prefix", ErrInvalidConflictID, s, conflictIDPrefix)
	}

	kind, rest, ok := strings.Cut(rest, "_")
	if !ok {
		return ConflictID{}, fmt.Errorf("%w: %q: missing kind separator", ErrInvalidConflictID, s)
	}
	if !ConflictKind(kind).IsValid() {
		return ConflictID{}, fmt.Errorf("%w: %q: unknown kind %q", ErrInvalidConflictID, s, kind)
	}

	sep := strings.LastIndex(rest, "_")
	if sep < 0 {
		return ConflictID{}, fmt.Errorf("%w: %q: missing timestamp", ErrInvalidConflictID, s)
	}
	millis, err := strconv.ParseInt(rest[sep+1:], 10, 64)
	if err != nil || millis < 0 {
		return ConflictID{}, fmt.Errorf("%w: %q: bad timestamp", ErrInvalidConflictID, s)
	}

	path, err := model.ParseTokenPath(rest[:sep])
	if err != nil {
		return ConflictID{}, fmt.Errorf("%w: %q: %w", ErrInvalidConflictID, s, err)
	}

	return ConflictID{
		Kind:        ConflictKind(kind),
		Path:        path,
		GeneratedAt: time.UnixMilli(millis).UTC(),
	}, nil
}

// Conflict is one divergent or one-sided path between two snapshots.
type Conflict struct {
	ID             ConflictID
	Severity       Severity
	Description    string
	AutoResolvable bool
	Suggested      Strategy
	Detail         Detail
}

// Kind returns the conflict's kind.
func (c Conflict) Kind() ConflictKind {
	return c.ID.Kind
}

// Path returns the conflicting token path.
func (c Conflict) Path() model.TokenPath {
	return c.ID.Path
}

// Decidable reports whether a side can be picked for the conflict. A name
// conflict spans several token paths, so neither side identifies one token.
func (c Conflict) Decidable() bool {
	return c.Kind() != KindNameConflict
}

// LocalToken returns the local token, if this kind carries one.
func (c Conflict) LocalToken() (model.Token, bool) {
	switch d := c.Detail.(type) {
	case ValueChange:
		return d.Local, true
	case TypeChange:
		return d.Local, true
	case Deletion:
		return d.Local, true
	default:
		return model.Token{}, false
	}
}

// RemoteToken returns the remote token, if this kind carries one.
func (c Conflict) RemoteToken() (model.Token, bool) {
	switch d := c.Detail.(type) {
	case ValueChange:
		return d.Remote, true
	case TypeChange:
		return d.Remote, true
	case Addition:
		return d.Remote, true
	default:
		return model.Token{}, false
	}
}

// Summary returns a one-line description of the conflict.
func (c Conflict) Summary() string {
	return fmt.Sprintf("%s: %s", c.ID.Path, c.Description)
}

type wireConflict struct {
	ConflictID          string            `json:"conflictId" yaml:"conflictId"`
	Type                ConflictKind      `json:"type" yaml:"type"`
	Severity            Severity          `json:"severity" yaml:"severity"`
	Path                string            `json:"path" yaml:"path"`
	CollectionName      string            `json:"collectionName" yaml:"collectionName"`
	TokenName           string            `json:"tokenName" yaml:"tokenName"`
	LocalToken          *model.Token      `json:"localToken,omitempty" yaml:"localToken,omitempty"`
	RemoteToken         *model.Token      `json:"remoteToken,omitempty" yaml:"remoteToken,omitempty"`
	Description         string            `json:"description" yaml:"description"`
	AutoResolvable      bool              `json:"autoResolvable" yaml:"autoResolvable"`
	SuggestedResolution Strategy          `json:"suggestedResolution" yaml:"suggestedResolution"`
	ModeDiffs           []string          `json:"modeDiffs,omitempty" yaml:"modeDiffs,omitempty"`
	AmbiguousPaths      []model.TokenPath `json:"ambiguousPaths,omitempty" yaml:"ambiguousPaths,omitempty"`
}

func (c Conflict) wire() wireConflict {
	w := wireConflict{
		ConflictID:          c.ID.String(),
		Type:                c.ID.Kind,
		Severity:            c.Severity,
		Path:                c.ID.Path.String(),
		CollectionName:      c.ID.Path.Collection,
		TokenName:           c.ID.Path.Name,
		Description:         c.Description,
		AutoResolvable:      c.AutoResolvable,
		SuggestedResolution: c.Suggested,
	}
	if tok, ok := c.LocalToken(); ok {
		w.LocalToken = &tok
	}
	if tok, ok := c.RemoteToken(); ok {
		w.RemoteToken = &tok
	}
	switch d := c.Detail.(type) {
	case ValueChange:
		w.ModeDiffs = d.ModeDiffs
	case NameConflict:
		w.AmbiguousPaths = d.Paths
	}
	return w
}

// MarshalJSON encodes the conflict in its wire shape.
func (c Conflict) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wire())
}

// MarshalYAML encodes the conflict in its wire shape.
func (c Conflict) MarshalYAML() (any, error) {
	return c.wire(), nil
}
