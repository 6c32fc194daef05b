package sync

import (
	"testing"

	"github.com/klauern/tokensync/internal/model"
)

func TestEngine_AutoMerge(t *testing.T) {
	engine := New(WithClock(fixedClock), WithIDGenerator(func() string { return "fixed" }))

	local := snapshot(collection("primitive", map[string]model.Token{
		"color.red": token("color", "#f00"),
		"space.sm":  token("spacing", 4.0),
		"legacy":    token("color", "#999"),
	}))
	remote := snapshot(collection("primitive", map[string]model.Token{
		"color.red": token("color", "#e00"),
		"space.sm":  token("string", "4px"),
		"color.new": token("color", "#0f0"),
	}))

	detected, merged := engine.AutoMerge(local, remote)

	if detected.Summary.Total != 4 {
		t.Fatalf("Total = %d, want 4", detected.Summary.Total)
	}
	if len(merged.Outcomes) != 2 {
		t.Errorf("auto resolutions = %d, want 2 (value change and addition)", len(merged.Outcomes))
	}

	want := map[string]any{
		"color.red": "#e00",
		"color.new": "#0f0",
		"space.sm":  4.0,
		"legacy":    "#999",
	}
	for name, value := range want {
		tok, ok := merged.Merged.Lookup(path("primitive", name))
		if !ok {
			t.Errorf("%s missing from merge", name)
			continue
		}
		if tok.Value != value {
			t.Errorf("%s = %v, want %v", name, tok.Value, value)
		}
	}
}

func TestEngine_DetectUsesClock(t *testing.T) {
	engine := New(WithClock(fixedClock))

	result := engine.Detect(
		snapshot(collection("c", map[string]model.Token{"a": token("color", "#f00")})),
		snapshot(),
	)

	if !result.GeneratedAt.Equal(fixedTime) {
		t.Errorf("GeneratedAt = %v, want %v", result.GeneratedAt, fixedTime)
	}
	if got := result.Conflicts[0].ID.String(); got != "conflict_deletion_c.a_1700000000000" {
		t.Errorf("conflict id = %q", got)
	}
}

func TestEngine_WithProgress(t *testing.T) {
	var calls [][2]int
	engine := New(WithClock(fixedClock), WithProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}))

	local := snapshot(collection("c", map[string]model.Token{"a": token("color", "#f00")}))
	engine.Apply(local, local, []Resolution{
		{ConflictID: "bad", Strategy: StrategyTakeLocal},
		{ConflictID: "conflict_value-change_c.a_1", Strategy: StrategyTakeLocal},
	})

	if len(calls) != 2 || calls[0] != [2]int{1, 2} || calls[1] != [2]int{2, 2} {
		t.Errorf("progress calls = %v, want [[1 2] [2 2]]", calls)
	}
}

func TestSuggestResolutions(t *testing.T) {
	conflicts := []Conflict{
		{ID: ConflictID{Kind: KindAddition, Path: path("c", "a"), GeneratedAt: fixedTime}, AutoResolvable: true, Suggested: StrategyTakeRemote},
		{ID: ConflictID{Kind: KindTypeChange, Path: path("c", "b"), GeneratedAt: fixedTime}, Suggested: StrategyManual},
		{ID: ConflictID{Kind: KindValueChange, Path: path("c", "d"), GeneratedAt: fixedTime}, AutoResolvable: true, Suggested: StrategyTakeLocal},
	}

	got := SuggestResolutions(conflicts)
	if len(got) != 2 {
		t.Fatalf("got %d resolutions, want 2", len(got))
	}
	if got[0].ConflictID != "conflict_addition_c.a_1700000000000" || got[0].Strategy != StrategyTakeRemote {
		t.Errorf("resolution 0 = %+v", got[0])
	}
	if got[1].Path == nil || *got[1].Path != path("c", "d") || got[1].Strategy != StrategyTakeLocal {
		t.Errorf("resolution 1 = %+v", got[1])
	}
}
