package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// Resolution is a decision on how to settle one conflict.
type Resolution struct {
	// ConflictID is the wire identifier of the conflict being resolved.
	ConflictID string

	// Strategy selects how the conflict is settled.
	Strategy Strategy

	// Token is a full replacement, used with StrategyManual.
	Token *model.Token

	// ManualValue replaces only the token's value, used with StrategyManual
	// when Token is nil. HasManualValue distinguishes an explicit null.
	ManualValue    any
	HasManualValue bool

	// Path addresses the token directly. When set it takes precedence over
	// the path embedded in ConflictID.
	Path *model.TokenPath
}

type wireResolution struct {
	ConflictID     string       `json:"conflictId"`
	Strategy       Strategy     `json:"strategy"`
	Token          *model.Token `json:"token,omitempty"`
	ManualValue    any          `json:"manualValue,omitempty"`
	CollectionName string       `json:"collectionName,omitempty"`
	TokenName      string       `json:"tokenName,omitempty"`
}

// MarshalJSON encodes the resolution in its wire shape.
func (r Resolution) MarshalJSON() ([]byte, error) {
	w := wireResolution{
		ConflictID: r.ConflictID,
		Strategy:   r.Strategy,
		Token:      r.Token,
	}
	if r.Path != nil {
		w.CollectionName = r.Path.Collection
		w.TokenName = r.Path.Name
	}
	if !r.HasManualValue {
		return json.Marshal(w)
	}
	// omitempty would drop an explicit null or zero manual value.
	type withValue struct {
		wireResolution
		ManualValue any `json:"manualValue"`
	}
	return json.Marshal(withValue{wireResolution: w, ManualValue: r.ManualValue})
}

// UnmarshalJSON decodes a resolution from its wire shape.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res, err := resolutionFromValue(raw)
	if err != nil {
		return err
	}
	*r = res
	return nil
}

func resolutionFromValue(raw any) (Resolution, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Resolution{}, errors.New("resolution must be an object")
	}

	var res Resolution
	res.ConflictID, _ = obj["conflictId"].(string)
	if s, ok := obj["strategy"].(string); ok {
		res.Strategy = Strategy(strings.ToLower(strings.TrimSpace(s)))
	}
	if v, ok := obj["manualValue"]; ok {
		res.ManualValue = v
		res.HasManualValue = true
	}
	if v, ok := obj["token"]; ok && v != nil {
		tok, err := model.TokenFromValue(v)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolution %q: %w", res.ConflictID, err)
		}
		res.Token = &tok
	}
	collection, _ := obj["collectionName"].(string)
	name, _ := obj["tokenName"].(string)
	if collection != "" && name != "" {
		path := model.NewTokenPath(collection, name)
		res.Path = &path
	}
	return res, nil
}

// ResolutionFormat is the encoding of a resolutions document.
type ResolutionFormat string

const (
	ResolutionFormatJSON ResolutionFormat = "json"
	ResolutionFormatYAML ResolutionFormat = "yaml"
	ResolutionFormatTOML ResolutionFormat = "toml"
)

// ResolutionFormatFromPath picks a format from a file extension, defaulting
// to JSON.
func ResolutionFormatFromPath(path string) ResolutionFormat {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return ResolutionFormatYAML
	case strings.HasSuffix(lower, ".toml"):
		return ResolutionFormatTOML
	default:
		return ResolutionFormatJSON
	}
}

// DecodeResolutions parses a resolutions document. JSON and YAML accept
// either a bare list or an object with a "resolutions" list; TOML uses a
// [[resolution]] table array. Entries that are not well-formed objects are
// skipped with a warning.
func DecodeResolutions(data []byte, format ResolutionFormat) ([]Resolution, error) {
	var raw any
	switch format {
	case ResolutionFormatJSON, "":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse resolutions: %w", err)
		}
	case ResolutionFormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse resolutions: %w", err)
		}
	case ResolutionFormatTOML:
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse resolutions: %w", err)
		}
		raw = doc
	default:
		return nil, fmt.Errorf("unsupported resolutions format %q", format)
	}

	// Round-trip through JSON so every format yields the same value shapes.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize resolutions: %w", err)
	}
	var generic any
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return nil, fmt.Errorf("failed to normalize resolutions: %w", err)
	}

	var items []any
	switch v := generic.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := v["resolutions"].([]any)
		if !ok {
			list, ok = v["resolution"].([]any)
		}
		if !ok {
			return nil, errors.New("resolutions document has no resolutions list")
		}
		items = list
	default:
		return nil, errors.New("resolutions document must be a list or an object")
	}

	resolutions := make([]Resolution, 0, len(items))
	for i, item := range items {
		res, err := resolutionFromValue(item)
		if err != nil {
			logging.Warn("skipping malformed resolution",
				logging.Operation("decode_resolutions"),
				slog.Int("index", i),
				logging.Err(err),
			)
			continue
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}
