package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a string cannot be split into a token path.
var ErrInvalidPath = errors.New("invalid token path")

// TokenPath identifies a token across snapshots.
//
// Collection and Name are kept apart through the whole pipeline; the joined
// form is only for display and for conflict identifiers.
type TokenPath struct {
	Collection string `json:"collectionName" yaml:"collectionName"`
	Name       string `json:"tokenName" yaml:"tokenName"`
}

// NewTokenPath creates a token path.
func NewTokenPath(collection, name string) TokenPath {
	return TokenPath{Collection: collection, Name: name}
}

// String joins the path as "collection.name".
func (p TokenPath) String() string {
	return p.Collection + "." + p.Name
}

// IsZero returns true if neither part is set.
func (p TokenPath) IsZero() bool {
	return p.Collection == "" && p.Name == ""
}

// Less orders paths by collection, then token name.
func (p TokenPath) Less(other TokenPath) bool {
	if p.Collection != other.Collection {
		return p.Collection < other.Collection
	}
	return p.Name < other.Name
}

// ParseTokenPath splits s on its first dot. Everything after the first dot,
// including further dots, is the token name.
func ParseTokenPath(s string) (TokenPath, error) {
	collection, name, ok := strings.Cut(s, ".")
	if !ok || collection == "" || name == "" {
		return TokenPath{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	return TokenPath{Collection: collection, Name: name}, nil
}
