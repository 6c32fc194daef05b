// Package sync detects and settles conflicts between two snapshots of design
// tokens: a local one read from the design tool and a remote one read from a
// repository.
//
// # Pipeline
//
// Detection refreshes provenance on both snapshots, flattens them into path
// indexes and classifies every path that differs:
//
//   - value-change: same type, different value, description or mode values
//   - type-change: different type tags, always high severity
//   - addition: present only remotely
//   - deletion: present only locally
//   - name-conflict: distinct tokens whose dotted paths collide
//
// Each conflict carries a severity, whether it can be settled without review,
// and a suggested strategy. A conflict is auto-resolvable only when both
// values are scalars and no per-mode values differ.
//
// # Merging
//
// Resolutions are applied onto a copy of the local snapshot:
//
//	engine := sync.New()
//	detected := engine.Detect(local, remote)
//	resolutions := sync.SuggestResolutions(detected.Conflicts)
//	merged := engine.Apply(local, remote, resolutions)
//
// A resolution that cannot be applied is skipped and reported in the
// outcomes. The merged snapshot never carries sync metadata.
package sync
