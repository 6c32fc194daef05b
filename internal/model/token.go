package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/klauern/tokensync/internal/logging"
)

// Side identifies which snapshot a token came from.
type Side string

const (
	// SideLocal is the design tool's document.
	SideLocal Side = "local"
	// SideRemote is the version-controlled repository.
	SideRemote Side = "remote"
)

// IsValid returns true if the side is recognized.
func (s Side) IsValid() bool {
	return s == SideLocal || s == SideRemote
}

// String returns the string representation of the side.
func (s Side) String() string {
	return string(s)
}

// SyncMetadata records the provenance of a token.
type SyncMetadata struct {
	// Source is the side that last stamped the token.
	Source Side `json:"source" yaml:"source"`
	// Hash is the content fingerprint at stamping time.
	Hash string `json:"hash" yaml:"hash"`
	// Version starts at 1 and increments on every stamp that changes content.
	Version int `json:"version" yaml:"version"`
	// LastModified is zero when unknown.
	LastModified time.Time `json:"lastModified,omitzero" yaml:"lastModified,omitempty"`
	// SyncID is an opaque identifier that stays with the token across syncs.
	SyncID string `json:"syncId" yaml:"syncId"`
}

// Token is a single named design value.
//
// Value and the entries of ValuesByMode hold JSON-shaped data: strings,
// float64, bool, nil, map[string]any or []any.
type Token struct {
	Type         string
	Value        any
	Description  string
	ValuesByMode map[string]any
	SyncMetadata *SyncMetadata

	// Extensions holds any other "$"-prefixed keys (for example $extensions).
	// They round-trip unchanged and never affect the fingerprint.
	Extensions map[string]any
}

const (
	keyType         = "$type"
	keyValue        = "$value"
	keyDescription  = "$description"
	keyValuesByMode = "valuesByMode"
	keySyncMetadata = "syncMetadata"
)

// HasModes returns true if the token defines per-mode values.
func (t Token) HasModes() bool {
	return len(t.ValuesByMode) > 0
}

// Clone returns a deep copy of the token.
func (t Token) Clone() Token {
	out := Token{
		Type:        t.Type,
		Value:       CloneValue(t.Value),
		Description: t.Description,
	}
	if t.ValuesByMode != nil {
		out.ValuesByMode = make(map[string]any, len(t.ValuesByMode))
		for k, v := range t.ValuesByMode {
			out.ValuesByMode[k] = CloneValue(v)
		}
	}
	if t.SyncMetadata != nil {
		md := *t.SyncMetadata
		out.SyncMetadata = &md
	}
	if t.Extensions != nil {
		out.Extensions = make(map[string]any, len(t.Extensions))
		for k, v := range t.Extensions {
			out.Extensions[k] = CloneValue(v)
		}
	}
	return out
}

// WithoutMetadata returns a deep copy with SyncMetadata cleared.
func (t Token) WithoutMetadata() Token {
	out := t.Clone()
	out.SyncMetadata = nil
	return out
}

// MarshalJSON encodes the token in its wire shape.
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.wireMap())
}

// MarshalYAML encodes the token in its wire shape.
func (t Token) MarshalYAML() (any, error) {
	return t.wireMap(), nil
}

func (t Token) wireMap() map[string]any {
	m := make(map[string]any, 5+len(t.Extensions))
	for k, v := range t.Extensions {
		m[k] = v
	}
	m[keyType] = t.Type
	m[keyValue] = t.Value
	if t.Description != "" {
		m[keyDescription] = t.Description
	}
	if len(t.ValuesByMode) > 0 {
		m[keyValuesByMode] = t.ValuesByMode
	}
	if t.SyncMetadata != nil {
		m[keySyncMetadata] = t.SyncMetadata
	}
	return m
}

// UnmarshalJSON decodes a token from its wire shape.
func (t *Token) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tok, err := TokenFromValue(raw)
	if err != nil {
		return err
	}
	*t = tok
	return nil
}

// TokenFromValue builds a token from a decoded JSON value.
// It fails if the value is not an object or a known key has the wrong shape.
func TokenFromValue(raw any) (Token, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Token{}, fmt.Errorf("token must be an object, got %s", describeKind(raw))
	}

	var tok Token
	for k, v := range obj {
		switch k {
		case keyType:
			s, ok := v.(string)
			if !ok {
				return Token{}, fmt.Errorf("%s must be a string, got %s", keyType, describeKind(v))
			}
			tok.Type = s
		case keyValue:
			tok.Value = v
		case keyDescription:
			s, ok := v.(string)
			if !ok && v != nil {
				return Token{}, fmt.Errorf("%s must be a string, got %s", keyDescription, describeKind(v))
			}
			tok.Description = s
		case keyValuesByMode:
			if v == nil {
				continue
			}
			modes, ok := v.(map[string]any)
			if !ok {
				return Token{}, fmt.Errorf("%s must be an object, got %s", keyValuesByMode, describeKind(v))
			}
			tok.ValuesByMode = modes
		case keySyncMetadata:
			if v == nil {
				continue
			}
			md, err := metadataFromValue(v)
			if err != nil {
				logging.Warn("dropping malformed sync metadata",
					logging.Operation("decode"),
					logging.Err(err),
				)
				continue
			}
			tok.SyncMetadata = md
		default:
			if strings.HasPrefix(k, "$") {
				if tok.Extensions == nil {
					tok.Extensions = make(map[string]any)
				}
				tok.Extensions[k] = v
			}
		}
	}
	return tok, nil
}

// metadataFromValue decodes provenance. lastModified may be an RFC 3339
// string or epoch milliseconds.
func metadataFromValue(v any) (*SyncMetadata, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object, got %s", keySyncMetadata, describeKind(v))
	}

	var md SyncMetadata
	for k, field := range obj {
		if field == nil {
			continue
		}
		var err error
		switch k {
		case "source":
			var src string
			src, err = stringField(k, field)
			md.Source = Side(src)
		case "hash":
			md.Hash, err = stringField(k, field)
		case "syncId":
			md.SyncID, err = stringField(k, field)
		case "version":
			var n int64
			n, err = integerField(k, field)
			md.Version = int(n)
		case "lastModified":
			md.LastModified, err = timeField(k, field)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", keySyncMetadata, err)
		}
	}
	return &md, nil
}

func stringField(name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %s", name, describeKind(v))
	}
	return s, nil
}

func integerField(name string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %s", name, describeKind(v))
	}
}

func timeField(name string, v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", name, err)
		}
		return parsed, nil
	default:
		millis, err := integerField(name, v)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(millis).UTC(), nil
	}
}

// IsScalar reports whether v is a non-structured value.
func IsScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

// CloneValue deep-copies JSON-shaped data.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

func describeKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
