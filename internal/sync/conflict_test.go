package sync

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/klauern/tokensync/internal/model"
)

func TestConflictID_String(t *testing.T) {
	id := ConflictID{Kind: KindValueChange, Path: path("primitive", "color.red"), GeneratedAt: fixedTime}

	want := "conflict_value-change_primitive.color.red_1700000000000"
	if got := id.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := id.Key(); got != "value-change:primitive.color.red" {
		t.Errorf("Key() = %q", got)
	}
}

func TestParseConflictID(t *testing.T) {
	tests := map[string]struct {
		input    string
		wantKind ConflictKind
		wantPath model.TokenPath
		wantErr  bool
	}{
		"dotted token name": {
			input:    "conflict_value-change_primitive.color.red_1700000000000",
			wantKind: KindValueChange,
			wantPath: path("primitive", "color.red"),
		},
		"underscores in token name": {
			input:    "conflict_addition_semantic.bg_primary_1700000000000",
			wantKind: KindAddition,
			wantPath: path("semantic", "bg_primary"),
		},
		"name conflict kind": {
			input:    "conflict_name-conflict_a.b.c_1",
			wantKind: KindNameConflict,
			wantPath: path("a", "b.c"),
		},
		"missing prefix":    {input: "value-change_primitive.red_1", wantErr: true},
		"unknown kind":      {input: "conflict_value_change_primitive.red_1", wantErr: true},
		"missing timestamp": {input: "conflict_deletion_primitive.red", wantErr: true},
		"non-numeric time":  {input: "conflict_deletion_primitive.red_abc", wantErr: true},
		"path without dot":  {input: "conflict_deletion_primitive_1", wantErr: true},
		"empty":             {input: "", wantErr: true},
		"empty token name":  {input: "conflict_deletion_primitive._1", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseConflictID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConflictID) {
					t.Errorf("ParseConflictID(%q) error = %v, want ErrInvalidConflictID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConflictID(%q) unexpected error: %v", tt.input, err)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %+v, want %+v", got.Path, tt.wantPath)
			}
		})
	}
}

func TestParseConflictID_RoundTrip(t *testing.T) {
	for _, kind := range AllKinds() {
		id := ConflictID{Kind: kind, Path: path("semantic", "text.on_primary"), GeneratedAt: fixedTime}
		got, err := ParseConflictID(id.String())
		if err != nil {
			t.Fatalf("ParseConflictID(%q) error: %v", id, err)
		}
		if got.Key() != id.Key() || !got.GeneratedAt.Equal(id.GeneratedAt) {
			t.Errorf("round trip of %q = %+v", id, got)
		}
	}
}

func TestConflict_MarshalJSON(t *testing.T) {
	c := Conflict{
		ID:             ConflictID{Kind: KindValueChange, Path: path("primitive", "color.red"), GeneratedAt: fixedTime},
		Severity:       SeverityMedium,
		Description:    "value changed",
		AutoResolvable: true,
		Suggested:      StrategyTakeRemote,
		Detail: ValueChange{
			Local:        token("color", "#f00"),
			Remote:       token("color", "#e00"),
			ValueDiffers: true,
		},
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	checks := map[string]any{
		"conflictId":          "conflict_value-change_primitive.color.red_1700000000000",
		"type":                "value-change",
		"severity":            "medium",
		"path":                "primitive.color.red",
		"collectionName":      "primitive",
		"tokenName":           "color.red",
		"autoResolvable":      true,
		"suggestedResolution": "take-remote",
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
	local, ok := got["localToken"].(map[string]any)
	if !ok || local["$value"] != "#f00" {
		t.Errorf("localToken = %v", got["localToken"])
	}
	if strings.Contains(string(data), "ambiguousPaths") {
		t.Error("value change should not carry ambiguousPaths")
	}
}

func TestConflict_SideTokens(t *testing.T) {
	add := Conflict{Detail: Addition{Remote: token("color", "#e00")}}
	if _, ok := add.LocalToken(); ok {
		t.Error("addition should have no local token")
	}
	if tok, ok := add.RemoteToken(); !ok || tok.Value != "#e00" {
		t.Errorf("addition RemoteToken() = %v, %v", tok, ok)
	}

	del := Conflict{Detail: Deletion{Local: token("color", "#f00")}}
	if _, ok := del.RemoteToken(); ok {
		t.Error("deletion should have no remote token")
	}
	if tok, ok := del.LocalToken(); !ok || tok.Value != "#f00" {
		t.Errorf("deletion LocalToken() = %v, %v", tok, ok)
	}
}

func TestConflict_Decidable(t *testing.T) {
	for _, kind := range AllKinds() {
		c := Conflict{ID: ConflictID{Kind: kind, Path: path("c", "a.b")}}
		if got, want := c.Decidable(), kind != KindNameConflict; got != want {
			t.Errorf("%s: Decidable() = %v, want %v", kind, got, want)
		}
	}
}

func TestSeverity_Rank(t *testing.T) {
	if !(SeverityLow.Rank() < SeverityMedium.Rank() && SeverityMedium.Rank() < SeverityHigh.Rank()) {
		t.Error("severity ranks are not ordered low < medium < high")
	}
	if Severity("unknown").Rank() != 0 {
		t.Error("unknown severity should rank 0")
	}
}
