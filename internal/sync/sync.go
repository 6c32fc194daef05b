package sync

import (
	"time"

	"github.com/klauern/tokensync/internal/logging"
	"github.com/klauern/tokensync/internal/model"
)

// Engine detects conflicts between a local and a remote snapshot and merges
// resolutions back onto the local side. It holds no state between calls.
type Engine struct {
	stamper  *Stamper
	detector *Detector
	applier  *Applier
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for provenance timestamps and conflict IDs.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.stamper.Clock = clock
	}
}

// WithIDGenerator sets the function that mints sync IDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.stamper.NewID = newID
	}
}

// WithProgress registers a callback invoked after each resolution is
// applied.
func WithProgress(fn func(done, total int)) Option {
	return func(e *Engine) {
		e.applier.Progress = fn
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	stamper := NewStamper()
	e := &Engine{
		stamper:  stamper,
		detector: NewDetector(stamper),
		applier:  NewApplier(stamper),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stamper returns the stamper shared by detection and merge.
func (e *Engine) Stamper() *Stamper {
	return e.stamper
}

// Detect returns the conflicts between local and remote.
func (e *Engine) Detect(local, remote model.Snapshot) DetectResult {
	return e.detector.Detect(local, remote)
}

// Apply merges resolutions onto local.
func (e *Engine) Apply(local, remote model.Snapshot, resolutions []Resolution) ApplyResult {
	return e.applier.Apply(local, remote, resolutions)
}

// AutoMerge detects conflicts and applies the suggested strategy for every
// auto-resolvable one. Conflicts needing review keep the local token.
func (e *Engine) AutoMerge(local, remote model.Snapshot) (DetectResult, ApplyResult) {
	detected := e.Detect(local, remote)
	resolutions := SuggestResolutions(detected.Conflicts)
	logging.Debug("auto merge",
		logging.Operation("auto_merge"),
		logging.Count(len(resolutions)),
	)
	return detected, e.Apply(local, remote, resolutions)
}
