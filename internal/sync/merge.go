package sync

import (
	"fmt"
	"log/slog"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// Applier merges resolutions onto the local snapshot.
type Applier struct {
	// Progress, when set, is called after each resolution with the number
	// handled so far and the total.
	Progress func(done, total int)

	stamper *Stamper
}

// NewApplier creates an applier. A nil stamper uses NewStamper().
func NewApplier(stamper *Stamper) *Applier {
	if stamper == nil {
		stamper = NewStamper()
	}
	return &Applier{stamper: stamper}
}

// Apply merges resolutions onto a copy of local. Paths without a resolution
// keep the local token. A resolution that cannot be applied is skipped and
// recorded in the outcomes; it never aborts the merge. The merged snapshot
// carries no sync metadata.
func (a *Applier) Apply(local, remote model.Snapshot, resolutions []Resolution) ApplyResult {
	defer logging.Timer("apply")()

	base := a.stamper.StampSnapshot(local, model.SideLocal)
	result := ApplyResult{
		Outcomes:   make([]Outcome, 0, len(resolutions)),
		Provenance: make(map[model.TokenPath]model.SyncMetadata),
	}

	for i, res := range resolutions {
		outcome := a.applyOne(&base, remote, res, result.Provenance)
		result.Outcomes = append(result.Outcomes, outcome)
		if a.Progress != nil {
			a.Progress(i+1, len(resolutions))
		}
	}

	result.Merged = StripSnapshot(base)

	logging.Info("merge completed",
		logging.Operation("apply"),
		logging.Count(len(resolutions)),
		slog.Int("applied", len(result.Applied())),
		slog.Int("skipped", len(result.Skipped())),
	)

	return result
}

func (a *Applier) applyOne(base *model.Snapshot, remote model.Snapshot, res Resolution, provenance map[model.TokenPath]model.SyncMetadata) Outcome {
	outcome := Outcome{ConflictID: res.ConflictID, Strategy: res.Strategy}

	path, err := resolutionPath(res)
	if err != nil {
		return skip(outcome, err.Error())
	}
	outcome.Path = path

	switch res.Strategy {
	case StrategyTakeLocal:
		outcome.Action = ActionNoOp
		outcome.Message = "kept local token"
		logging.Debug("kept local token",
			logging.Path(path.String()),
			logging.Strategy(string(res.Strategy)),
		)
		return outcome

	case StrategyTakeRemote:
		tok, ok := remote.Lookup(path)
		if !ok {
			return skip(outcome, "token not found in remote snapshot")
		}
		var modes []model.Mode
		if c, ok := remote.Collection(path.Collection); ok {
			modes = c.Modes
		}
		stamped := a.stamper.Stamp(tok, model.SideRemote)
		writeToken(base, path, stamped, modes)
		provenance[path] = *stamped.SyncMetadata
		return applied(outcome, "wrote remote token")

	case StrategyManual:
		if res.Token != nil {
			stamped := a.stamper.Stamp(*res.Token, model.SideLocal)
			writeToken(base, path, stamped, nil)
			provenance[path] = *stamped.SyncMetadata
			return applied(outcome, "wrote replacement token")
		}
		if !res.HasManualValue {
			return skip(outcome, "manual resolution has neither a token nor a value")
		}
		current, ok := base.Lookup(path)
		if !ok {
			outcome.Action = ActionNoOp
			outcome.Message = "no base token to override"
			logging.Warn("manual value has no base token",
				logging.ConflictID(res.ConflictID),
				logging.Path(path.String()),
			)
			return outcome
		}
		updated := current.Clone()
		updated.Value = model.CloneValue(res.ManualValue)
		stamped := a.stamper.Stamp(updated, model.SideLocal)
		writeToken(base, path, stamped, nil)
		provenance[path] = *stamped.SyncMetadata
		return applied(outcome, "replaced value")

	default:
		return skip(outcome, fmt.Sprintf("unknown strategy %q", res.Strategy))
	}
}

// resolutionPath prefers the structured path and falls back to the one
// embedded in the conflict ID.
func resolutionPath(res Resolution) (model.TokenPath, error) {
	if res.Path != nil && res.Path.Collection != "" && res.Path.Name != "" {
		return *res.Path, nil
	}
	id, err := ParseConflictID(res.ConflictID)
	if err != nil {
		return model.TokenPath{}, err
	}
	return id.Path, nil
}

func skip(o Outcome, reason string) Outcome {
	o.Action = ActionSkipped
	o.Message = reason
	attrs := []any{
		logging.ConflictID(o.ConflictID),
		logging.Strategy(string(o.Strategy)),
		slog.String("reason", reason),
	}
	if !o.Path.IsZero() {
		attrs = append(attrs, logging.Path(o.Path.String()))
	}
	logging.Warn("skipping resolution", attrs...)
	return o
}

func applied(o Outcome, msg string) Outcome {
	o.Action = ActionApplied
	o.Message = msg
	logging.Debug("resolution applied",
		logging.Path(o.Path.String()),
		logging.Strategy(string(o.Strategy)),
	)
	return o
}

// writeToken stores tok at path. It replaces the token where Lookup would
// find it, else adds it to the first collection with that name, else creates
// the collection with the given modes.
func writeToken(base *model.Snapshot, path model.TokenPath, tok model.Token, modes []model.Mode) {
	target := -1
	for i := range base.Collections {
		c := &base.Collections[i]
		if c.Name != path.Collection {
			continue
		}
		if _, ok := c.Variables[path.Name]; ok || target < 0 {
			target = i
		}
	}

	if target < 0 {
		c := model.Collection{
			Name:      path.Collection,
			Variables: make(map[string]model.Token),
		}
		if modes != nil {
			c.Modes = append([]model.Mode(nil), modes...)
		}
		base.Collections = append(base.Collections, c)
		target = len(base.Collections) - 1
		logging.Debug("created collection in merge base", logging.Collection(path.Collection))
	}

	c := &base.Collections[target]
	if c.Variables == nil {
		c.Variables = make(map[string]model.Token)
	}
	c.Variables[path.Name] = tok
}
