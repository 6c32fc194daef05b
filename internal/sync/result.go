package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/klauern/tokensync/internal/model"
)

// Summary counts the conflicts from one detection pass.
type Summary struct {
	Total                int                  `json:"total" yaml:"total"`
	AutoResolvable       int                  `json:"autoResolvable" yaml:"autoResolvable"`
	RequiresManualReview int                  `json:"requiresManualReview" yaml:"requiresManualReview"`
	HighSeverity         int                  `json:"highSeverity" yaml:"highSeverity"`
	LocalTokens          int                  `json:"localTokens" yaml:"localTokens"`
	RemoteTokens         int                  `json:"remoteTokens" yaml:"remoteTokens"`
	ByKind               map[ConflictKind]int `json:"byKind,omitempty" yaml:"byKind,omitempty"`
}

func summarize(conflicts []Conflict, localTokens, remoteTokens int) Summary {
	s := Summary{
		Total:        len(conflicts),
		LocalTokens:  localTokens,
		RemoteTokens: remoteTokens,
		ByKind:       make(map[ConflictKind]int),
	}
	for _, c := range conflicts {
		if c.AutoResolvable {
			s.AutoResolvable++
		} else {
			s.RequiresManualReview++
		}
		if c.Severity == SeverityHigh {
			s.HighSeverity++
		}
		s.ByKind[c.Kind()]++
	}
	return s
}

// DetectResult is the output of a detection pass.
type DetectResult struct {
	Conflicts   []Conflict `json:"conflicts" yaml:"conflicts"`
	Summary     Summary    `json:"summary" yaml:"summary"`
	GeneratedAt time.Time  `json:"generatedAt" yaml:"generatedAt"`
}

// HasConflicts returns true if any conflict was found.
func (r *DetectResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// AutoResolvable returns the conflicts that can be settled without review.
func (r *DetectResult) AutoResolvable() []Conflict {
	return r.filter(func(c Conflict) bool { return c.AutoResolvable })
}

// ManualReview returns the conflicts that need a human decision.
func (r *DetectResult) ManualReview() []Conflict {
	return r.filter(func(c Conflict) bool { return !c.AutoResolvable })
}

// ByKind returns the conflicts of one kind.
func (r *DetectResult) ByKind(kind ConflictKind) []Conflict {
	return r.filter(func(c Conflict) bool { return c.Kind() == kind })
}

// Find returns the conflict with the given stable key or wire ID.
func (r *DetectResult) Find(id string) (Conflict, bool) {
	for _, c := range r.Conflicts {
		if c.ID.String() == id || c.ID.Key() == id {
			return c, true
		}
	}
	return Conflict{}, false
}

func (r *DetectResult) filter(keep func(Conflict) bool) []Conflict {
	var filtered []Conflict
	for _, c := range r.Conflicts {
		if keep(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Action is what the applier did with one resolution.
type Action string

const (
	// ActionApplied means the resolution changed the merge base.
	ActionApplied Action = "applied"

	// ActionNoOp means the resolution was valid but left the base as it was.
	ActionNoOp Action = "no-op"

	// ActionSkipped means the resolution could not be applied.
	ActionSkipped Action = "skipped"
)

// Outcome records the result of applying one resolution.
type Outcome struct {
	ConflictID string          `json:"conflictId" yaml:"conflictId"`
	Path       model.TokenPath `json:"path" yaml:"path"`
	Strategy   Strategy        `json:"strategy" yaml:"strategy"`
	Action     Action          `json:"action" yaml:"action"`
	Message    string          `json:"message,omitempty" yaml:"message,omitempty"`
}

// ApplyResult is the output of a merge.
type ApplyResult struct {
	// Merged is the merged snapshot, free of sync metadata.
	Merged model.Snapshot

	// Outcomes has one entry per resolution, in input order.
	Outcomes []Outcome

	// Provenance holds the metadata stamped on each token a resolution wrote,
	// before it was stripped from Merged.
	Provenance map[model.TokenPath]model.SyncMetadata
}

// Applied returns the resolutions that changed the merge base.
func (r *ApplyResult) Applied() []Outcome {
	return r.filterByAction(ActionApplied)
}

// Skipped returns the resolutions that could not be applied.
func (r *ApplyResult) Skipped() []Outcome {
	return r.filterByAction(ActionSkipped)
}

// NoOps returns the resolutions that left the merge base unchanged.
func (r *ApplyResult) NoOps() []Outcome {
	return r.filterByAction(ActionNoOp)
}

func (r *ApplyResult) filterByAction(action Action) []Outcome {
	var filtered []Outcome
	for _, o := range r.Outcomes {
		if o.Action == action {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// Success returns true if no resolution was skipped.
func (r *ApplyResult) Success() bool {
	return len(r.Skipped()) == 0
}

// Summary returns a human-readable summary of the merge.
func (r *ApplyResult) Summary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Applied %d resolution(s) to %d token(s)\n",
		len(r.Outcomes), r.Merged.TokenCount()))
	sb.WriteString(fmt.Sprintf("  Applied: %d\n", len(r.Applied())))
	sb.WriteString(fmt.Sprintf("  No-op:   %d\n", len(r.NoOps())))
	sb.WriteString(fmt.Sprintf("  Skipped: %d\n", len(r.Skipped())))

	if !r.Success() {
		sb.WriteString("\nSkipped resolutions:\n")
		for _, o := range r.Skipped() {
			label := o.ConflictID
			if !o.Path.IsZero() {
				label = o.Path.String()
			}
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", label, o.Message))
		}
	}

	return sb.String()
}
