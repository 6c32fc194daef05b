package sync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/klauern/tokensync/internal/fingerprint"
	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// Detector compares a local and a remote snapshot and classifies every
// divergent path.
type Detector struct {
	stamper *Stamper
}

// NewDetector creates a detector. A nil stamper uses NewStamper().
func NewDetector(stamper *Stamper) *Detector {
	if stamper == nil {
		stamper = NewStamper()
	}
	return &Detector{stamper: stamper}
}

// Detect returns the conflicts between local and remote. Inputs are not
// modified. Conflicts are ordered: local paths in sorted order (deletions and
// changes), then remote-only paths (additions), then name conflicts.
func (d *Detector) Detect(local, remote model.Snapshot) DetectResult {
	defer logging.Timer("detect")()

	generatedAt := d.stamper.now()

	localIdx := Index(d.stamper.RefreshSnapshot(local, model.SideLocal))
	remoteIdx := Index(d.stamper.RefreshSnapshot(remote, model.SideRemote))

	logging.Debug("indexed snapshots",
		logging.Operation("detect"),
		slog.Int("local_tokens", len(localIdx)),
		slog.Int("remote_tokens", len(remoteIdx)),
	)

	var conflicts []Conflict

	for _, path := range localIdx.Paths() {
		le := localIdx[path]
		re, ok := remoteIdx[path]
		if !ok {
			conflicts = append(conflicts, newDeletion(le, generatedAt))
			continue
		}
		if tokenHash(le.Token) == tokenHash(re.Token) {
			continue
		}
		conflicts = append(conflicts, classify(le, re, generatedAt))
	}

	for _, path := range remoteIdx.Paths() {
		if _, ok := localIdx[path]; ok {
			continue
		}
		conflicts = append(conflicts, newAddition(remoteIdx[path], generatedAt))
	}

	conflicts = append(conflicts, findNameConflicts(localIdx, remoteIdx, generatedAt)...)

	for _, c := range conflicts {
		logging.Debug("conflict detected",
			logging.ConflictID(c.ID.String()),
			logging.Kind(string(c.Kind())),
			slog.String("severity", string(c.Severity)),
			slog.Bool("auto_resolvable", c.AutoResolvable),
		)
	}

	result := DetectResult{
		Conflicts:   conflicts,
		GeneratedAt: generatedAt,
		Summary:     summarize(conflicts, len(localIdx), len(remoteIdx)),
	}

	logging.Info("conflict detection completed",
		logging.Operation("detect"),
		logging.Count(len(conflicts)),
		slog.Int("auto_resolvable", result.Summary.AutoResolvable),
		slog.Int("manual", result.Summary.RequiresManualReview),
	)

	return result
}

func tokenHash(t model.Token) string {
	if t.SyncMetadata != nil && t.SyncMetadata.Hash != "" {
		return t.SyncMetadata.Hash
	}
	return fingerprint.Hash(t)
}

func newDeletion(le Entry, at time.Time) Conflict {
	return Conflict{
		ID:             ConflictID{Kind: KindDeletion, Path: le.Path, GeneratedAt: at},
		Severity:       SeverityMedium,
		Description:    fmt.Sprintf("%s exists locally but not in the repository", le.Path),
		AutoResolvable: false,
		Suggested:      StrategyManual,
		Detail:         Deletion{Local: le.Token},
	}
}

func newAddition(re Entry, at time.Time) Conflict {
	return Conflict{
		ID:             ConflictID{Kind: KindAddition, Path: re.Path, GeneratedAt: at},
		Severity:       SeverityLow,
		Description:    fmt.Sprintf("%s was added in the repository", re.Path),
		AutoResolvable: true,
		Suggested:      suggestStrategy(true, nil, re.Token.SyncMetadata),
		Detail:         Addition{Remote: re.Token},
	}
}

// classify handles a path present on both sides with different hashes.
func classify(le, re Entry, at time.Time) Conflict {
	lt, rt := le.Token, re.Token

	if lt.Type != rt.Type {
		return Conflict{
			ID:             ConflictID{Kind: KindTypeChange, Path: le.Path, GeneratedAt: at},
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("type changed from %q to %q", lt.Type, rt.Type),
			AutoResolvable: false,
			Suggested:      StrategyManual,
			Detail:         TypeChange{Local: lt, Remote: rt},
		}
	}

	valueDiffers := !fingerprint.Equal(lt.Value, rt.Value)
	modeDiffs := diffModes(lt.ValuesByMode, rt.ValuesByMode)

	var desc string
	switch {
	case valueDiffers:
		desc = fmt.Sprintf("value changed: local %s, remote %s", renderValue(lt), renderValue(rt))
	case len(modeDiffs) > 0:
		desc = fmt.Sprintf("%d mode value(s) differ: %s", len(modeDiffs), strings.Join(modeDiffs, ", "))
	default:
		desc = "description changed"
	}

	auto := model.IsScalar(lt.Value) && model.IsScalar(rt.Value) && len(modeDiffs) == 0

	return Conflict{
		ID:             ConflictID{Kind: KindValueChange, Path: le.Path, GeneratedAt: at},
		Severity:       severityForType(lt.Type),
		Description:    desc,
		AutoResolvable: auto,
		Suggested:      suggestStrategy(auto, lt.SyncMetadata, rt.SyncMetadata),
		Detail: ValueChange{
			Local:        lt,
			Remote:       rt,
			ValueDiffers: valueDiffers,
			ModeDiffs:    modeDiffs,
		},
	}
}

// severityForType applies to value changes. Type changes are always high.
func severityForType(tokenType string) Severity {
	switch strings.ToLower(tokenType) {
	case "color", "spacing", "sizing", "dimension":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// diffModes returns the sorted mode names present on only one side or with
// different values on each side.
func diffModes(local, remote map[string]any) []string {
	var diffs []string
	for name, lv := range local {
		rv, ok := remote[name]
		if !ok || !fingerprint.Equal(lv, rv) {
			diffs = append(diffs, name)
		}
	}
	for name := range remote {
		if _, ok := local[name]; !ok {
			diffs = append(diffs, name)
		}
	}
	slices.Sort(diffs)
	return diffs
}

const maxRenderedValue = 40

func renderValue(t model.Token) string {
	if t.HasModes() && t.Value == nil {
		return fmt.Sprintf("%d mode values", len(t.ValuesByMode))
	}
	var s string
	switch v := t.Value.(type) {
	case nil:
		s = "(none)"
	case string:
		s = fmt.Sprintf("%q", v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(data)
		}
	default:
		s = fmt.Sprintf("%v", v)
	}
	if runes := []rune(s); len(runes) > maxRenderedValue {
		s = string(runes[:maxRenderedValue-3]) + "..."
	}
	if t.HasModes() {
		s += fmt.Sprintf(" (%d mode values)", len(t.ValuesByMode))
	}
	return s
}

// findNameConflicts reports dotted paths that more than one distinct token
// path renders to, across both snapshots.
func findNameConflicts(local, remote PathIndex, at time.Time) []Conflict {
	byDisplay := make(map[string][]model.TokenPath)
	seen := make(map[model.TokenPath]bool)
	for _, idx := range []PathIndex{local, remote} {
		for path := range idx {
			if seen[path] {
				continue
			}
			seen[path] = true
			display := path.String()
			byDisplay[display] = append(byDisplay[display], path)
		}
	}

	displays := make([]string, 0)
	for display, paths := range byDisplay {
		if len(paths) > 1 {
			displays = append(displays, display)
		}
	}
	slices.Sort(displays)

	conflicts := make([]Conflict, 0, len(displays))
	for _, display := range displays {
		paths := byDisplay[display]
		slices.SortFunc(paths, comparePaths)
		canonical, err := model.ParseTokenPath(display)
		if err != nil {
			canonical = paths[0]
		}
		logging.Warn("ambiguous token path",
			logging.Path(display),
			logging.Count(len(paths)),
		)
		conflicts = append(conflicts, Conflict{
			ID:             ConflictID{Kind: KindNameConflict, Path: canonical, GeneratedAt: at},
			Severity:       SeverityHigh,
			Description:    fmt.Sprintf("%d tokens share the path %s", len(paths), display),
			AutoResolvable: false,
			Suggested:      StrategyManual,
			Detail:         NameConflict{Paths: paths},
		})
	}
	return conflicts
}
