// Package fingerprint computes change-detection hashes for design tokens.
//
// A fingerprint covers a token's semantic content only (type, value,
// description and per-mode values). Provenance never feeds into it, so
// stamping a token cannot change its own hash. The digest is not
// cryptographic; it is a change flag, not a content address.
package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/klauern/tokensync/internal/model"
)

// undefined stands in for an absent field so that gaining or losing a field
// always changes the canonical form.
var undefined = map[string]bool{"$undefined": true}

// Canonical returns the canonical serialization of the token's content.
// Object keys are sorted at every depth.
func Canonical(t model.Token) []byte {
	content := map[string]any{
		"type":         t.Type,
		"value":        orUndefined(t.Value),
		"description":  undefined,
		"valuesByMode": undefined,
	}
	if t.Description != "" {
		content["description"] = t.Description
	}
	if len(t.ValuesByMode) > 0 {
		modes := make(map[string]any, len(t.ValuesByMode))
		for k, v := range t.ValuesByMode {
			modes[k] = orUndefined(v)
		}
		content["valuesByMode"] = modes
	}
	return canonicalJSON(content)
}

// Hash returns the fingerprint of the token as 16 lowercase hex characters.
func Hash(t model.Token) string {
	sum := xxhash.Sum64(Canonical(t))
	s := strconv.FormatUint(sum, 16)
	if len(s) < 16 {
		s = string(bytes.Repeat([]byte{'0'}, 16-len(s))) + s
	}
	return s
}

// Equal reports whether two JSON-shaped values are structurally equal.
func Equal(a, b any) bool {
	return bytes.Equal(canonicalJSON(a), canonicalJSON(b))
}

func orUndefined(v any) any {
	if v == nil {
		return undefined
	}
	return v
}

// canonicalJSON relies on encoding/json sorting map keys. Values that cannot
// be encoded fall back to their %v rendering so hashing never fails.
func canonicalJSON(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return []byte(strconv.Quote(fmt.Sprintf("%v", v)))
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
