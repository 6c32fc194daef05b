package sync

import (
	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// suggestStrategy picks a default for a conflict. Conflicts that need review
// get manual. Otherwise the side modified strictly later wins; a missing
// timestamp or a tie goes to the repository.
func suggestStrategy(auto bool, local, remote *model.SyncMetadata) Strategy {
	if !auto {
		return StrategyManual
	}
	if local == nil || remote == nil || local.LastModified.IsZero() || remote.LastModified.IsZero() {
		return StrategyTakeRemote
	}
	if local.LastModified.After(remote.LastModified) {
		return StrategyTakeLocal
	}
	return StrategyTakeRemote
}

// SuggestResolutions returns one resolution per auto-resolvable conflict,
// using each conflict's suggested strategy. Conflicts needing manual review
// are left out so the merge keeps the local token for them.
func SuggestResolutions(conflicts []Conflict) []Resolution {
	resolutions := make([]Resolution, 0, len(conflicts))
	for _, c := range conflicts {
		if !c.AutoResolvable || c.Suggested == StrategyManual {
			continue
		}
		path := c.ID.Path
		resolutions = append(resolutions, Resolution{
			ConflictID: c.ID.String(),
			Strategy:   c.Suggested,
			Path:       &path,
		})
	}
	logging.Debug("suggested resolutions",
		logging.Operation("suggest"),
		logging.Count(len(resolutions)),
	)
	return resolutions
}
