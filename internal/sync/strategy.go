package sync

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned when a strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown resolution strategy")

// Strategy defines how a single conflict is settled.
type Strategy string

const (
	// StrategyTakeLocal keeps the design tool's version.
	StrategyTakeLocal Strategy = "take-local"

	// StrategyTakeRemote replaces the local token with the repository's version.
	StrategyTakeRemote Strategy = "take-remote"

	// StrategyManual writes a caller-supplied token or value.
	StrategyManual Strategy = "manual"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyTakeLocal, StrategyTakeRemote, StrategyManual:
		return true
	default:
		return false
	}
}

// AllStrategies returns all supported resolution strategies.
func AllStrategies() []Strategy {
	return []Strategy{StrategyTakeLocal, StrategyTakeRemote, StrategyManual}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyTakeLocal:
		return "Keep the local (design tool) version"
	case StrategyTakeRemote:
		return "Use the remote (repository) version"
	case StrategyManual:
		return "Apply a manually chosen token or value"
	default:
		return "Unknown strategy"
	}
}

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	strategy := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !strategy.IsValid() {
		return "", fmt.Errorf("%w: %q (valid: take-local, take-remote, manual)", ErrUnknownStrategy, s)
	}
	return strategy, nil
}
