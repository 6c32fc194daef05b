package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauern/tokensync/internal/backup"
	"github.com/klauern/tokensync/internal/fingerprint"
	"github.com/klauern/tokensync/internal/model"
	"github.com/klauern/tokensync/internal/util"
)

const localSnapshot = `[
  {"colors": {
    "modes": [{"modeId": "1:0", "name": "light"}],
    "variables": {
      "color.primary": {"$type": "color", "$value": "#f00"},
      "color.secondary": {"$type": "color", "$value": "#0f0"}
    }
  }}
]`

const remoteSnapshot = `[
  {"colors": {
    "modes": [{"modeId": "1:0", "name": "light"}],
    "variables": {
      "color.primary": {"$type": "color", "$value": "#e00"},
      "color.secondary": {"$type": "color", "$value": "#0f0"},
      "color.accent": {"$type": "color", "$value": "#00f"}
    }
  }}
]`

type runResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs the app against in-memory streams with an isolated config home.
func runCLI(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(context.Background(), append([]string{"tokensync", "--no-color"}, args...))
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// writeSnapshots writes both fixture snapshots into a fresh directory.
func writeSnapshots(t *testing.T) (local, remote string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(util.HomeEnv, filepath.Join(dir, "home"))
	local = filepath.Join(dir, "local.json")
	remote = filepath.Join(dir, "remote.json")
	util.WriteFile(t, local, localSnapshot)
	util.WriteFile(t, remote, remoteSnapshot)
	return local, remote
}

func decodeMerged(t *testing.T, data string) model.Snapshot {
	t.Helper()
	snap, _, err := model.DecodeSnapshot([]byte(data))
	if err != nil {
		t.Fatalf("merged output is not a snapshot: %v\n%s", err, data)
	}
	return snap
}

func lookupValue(t *testing.T, snap model.Snapshot, collection, name string) any {
	t.Helper()
	tok, ok := snap.Lookup(model.NewTokenPath(collection, name))
	if !ok {
		t.Fatalf("token %s.%s missing", collection, name)
	}
	return tok.Value
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, "", "version")
	util.AssertNoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines of output, got %d: %q", len(lines), res.stdout)
	}
	if !strings.HasPrefix(lines[0], "tokensync version ") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	for i, label := range []string{"commit:", "built:", "go:"} {
		if !strings.Contains(lines[i+1], label) {
			t.Errorf("line %d = %q, want label %q", i+2, lines[i+1], label)
		}
	}
}

func TestDetectCommand(t *testing.T) {
	local, remote := writeSnapshots(t)

	t.Run("table", func(t *testing.T) {
		res := runCLI(t, "", "detect", local, remote)
		util.AssertNoError(t, res.err)
		for _, want := range []string{"2 conflict(s)", "colors.color.primary", "value-change", "colors.color.accent", "addition", "take-remote"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("output missing %q:\n%s", want, res.stdout)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		res := runCLI(t, "", "detect", "--format", "json", local, remote)
		util.AssertNoError(t, res.err)

		var report struct {
			Summary struct {
				Total          int `json:"total"`
				AutoResolvable int `json:"autoResolvable"`
			} `json:"summary"`
			Conflicts []struct {
				Type string `json:"type"`
				Path string `json:"path"`
			} `json:"conflicts"`
		}
		if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
			t.Fatalf("invalid json: %v\n%s", err, res.stdout)
		}
		util.AssertEqual(t, report.Summary.Total, 2)
		util.AssertEqual(t, report.Summary.AutoResolvable, 2)
		util.AssertEqual(t, len(report.Conflicts), 2)
	})

	t.Run("markdown", func(t *testing.T) {
		res := runCLI(t, "", "detect", "--format", "md", local, remote)
		util.AssertNoError(t, res.err)
		if !strings.HasPrefix(res.stdout, "# Token Conflicts") {
			t.Errorf("unexpected markdown:\n%s", res.stdout)
		}
	})

	t.Run("no conflicts", func(t *testing.T) {
		res := runCLI(t, "", "detect", local, local)
		util.AssertNoError(t, res.err)
		if !strings.Contains(res.stdout, "No conflicts") {
			t.Errorf("unexpected output %q", res.stdout)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := map[string][]string{
			"missing remote": {"detect", local},
			"missing local":  {"detect"},
			"bad format":     {"detect", "--format", "csv", local, remote},
			"unreadable":     {"detect", local, filepath.Join(filepath.Dir(local), "nope.json")},
		}
		for name, args := range tests {
			t.Run(name, func(t *testing.T) {
				if res := runCLI(t, "", args...); res.err == nil {
					t.Errorf("expected error for %v", args)
				}
			})
		}
	})
}

func TestDetectFromRepositoryDirectory(t *testing.T) {
	local, _ := writeSnapshots(t)
	repo := t.TempDir()
	util.WriteFile(t, filepath.Join(repo, "tokens", "snapshot.json"), remoteSnapshot)

	// Without an explicit path the configured default snapshot path is used.
	res := runCLI(t, "", "detect", "--repo", repo, "--format", "json", local)
	util.AssertNoError(t, res.err)
	if !strings.Contains(res.stdout, `"total": 2`) {
		t.Errorf("expected two conflicts from the repository snapshot:\n%s", res.stdout)
	}
}

func TestApplyAutoToStdout(t *testing.T) {
	local, remote := writeSnapshots(t)

	res := runCLI(t, "", "apply", "--auto", local, remote)
	util.AssertNoError(t, res.err)

	merged := decodeMerged(t, res.stdout)
	util.AssertEqual(t, merged.TokenCount(), 3)
	util.AssertEqual(t, lookupValue(t, merged, "colors", "color.primary"), any("#e00"))
	util.AssertEqual(t, lookupValue(t, merged, "colors", "color.accent"), any("#00f"))

	if strings.Contains(res.stdout, "syncMetadata") {
		t.Errorf("merged snapshot must not carry sync metadata")
	}
	if !strings.Contains(res.stderr, "Applied: 2") {
		t.Errorf("summary should go to stderr, got %q", res.stderr)
	}

	original, err := os.ReadFile(local)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(original), localSnapshot)
}

func TestApplyResolutionsFile(t *testing.T) {
	local, remote := writeSnapshots(t)
	dir := filepath.Dir(local)

	resolutions := filepath.Join(dir, "decisions.yaml")
	util.WriteFile(t, resolutions, `resolutions:
  - conflictId: conflict_value-change_colors.color.primary_1700000000000
    strategy: take-local
  - conflictId: conflict_addition_colors.color.accent_1700000000000
    strategy: Take-Remote
  - conflictId: not-a-conflict
    strategy: take-remote
`)
	out := filepath.Join(dir, "merged.yaml")

	res := runCLI(t, "", "apply", "--resolutions", resolutions, "--out", out, local, remote)
	util.AssertNoError(t, res.err)

	data, err := os.ReadFile(out)
	util.AssertNoError(t, err)
	snap, _, err := model.DecodeSnapshotYAML(data)
	util.AssertNoError(t, err)
	util.AssertEqual(t, lookupValue(t, snap, "colors", "color.primary"), any("#f00"))
	util.AssertEqual(t, lookupValue(t, snap, "colors", "color.accent"), any("#00f"))

	for _, want := range []string{"Applied: 1", "No-op:   1", "Skipped: 1"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("summary missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestApplyWriteBacksUp(t *testing.T) {
	local, remote := writeSnapshots(t)

	res := runCLI(t, "", "apply", "--auto", "--write", local, remote)
	util.AssertNoError(t, res.err)

	data, err := os.ReadFile(local)
	util.AssertNoError(t, err)
	util.AssertEqual(t, decodeMerged(t, string(data)).TokenCount(), 3)

	store := backup.NewStore(util.TokensyncBackupsPath())
	backups, err := store.List("local")
	util.AssertNoError(t, err)
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	saved, err := os.ReadFile(backups[0].BackupPath)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(saved), localSnapshot)

	list := runCLI(t, "", "backup", "list")
	util.AssertNoError(t, list.err)
	if !strings.Contains(list.stdout, backups[0].ID) {
		t.Errorf("backup list missing %s:\n%s", backups[0].ID, list.stdout)
	}

	restore := runCLI(t, "", "backup", "restore", backups[0].ID)
	util.AssertNoError(t, restore.err)
	data, err = os.ReadFile(local)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(data), localSnapshot)
}

func TestApplyWriteSkipBackup(t *testing.T) {
	local, remote := writeSnapshots(t)

	res := runCLI(t, "", "apply", "--auto", "--write", "--skip-backup", local, remote)
	util.AssertNoError(t, res.err)

	backups, err := backup.NewStore(util.TokensyncBackupsPath()).List("")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(backups), 0)
}

func TestApplyInteractivePrompt(t *testing.T) {
	local, remote := writeSnapshots(t)

	// Changed paths come before additions: primary, then accent.
	res := runCLI(t, "1\n4\n", "apply", "--interactive", local, remote)
	util.AssertNoError(t, res.err)

	merged := decodeMerged(t, res.stdout)
	util.AssertEqual(t, merged.TokenCount(), 2)
	util.AssertEqual(t, lookupValue(t, merged, "colors", "color.primary"), any("#f00"))
	if !strings.Contains(res.stderr, "Conflict Resolution") {
		t.Errorf("prompt should be written to stderr")
	}
}

func TestApplyErrors(t *testing.T) {
	local, remote := writeSnapshots(t)

	tests := map[string]struct {
		stdin string
		args  []string
	}{
		"no resolution source": {args: []string{"apply", local, remote}},
		"conflicting sources":  {args: []string{"apply", "--auto", "--interactive", local, remote}},
		"write and out":        {args: []string{"apply", "--auto", "--write", "--out", "x.json", local, remote}},
		"missing file":         {args: []string{"apply", "--resolutions", "nope.json", local, remote}},
		"prompt aborted":       {stdin: "q\n", args: []string{"apply", "--interactive", local, remote}},
		"prompt eof":           {stdin: "", args: []string{"apply", "--interactive", local, remote}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if res := runCLI(t, tt.stdin, tt.args...); res.err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}

	data, err := os.ReadFile(local)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(data), localSnapshot)
}

func TestHashCommand(t *testing.T) {
	local, _ := writeSnapshots(t)

	res := runCLI(t, "", "hash", "--canonical", local, "colors.color.primary")
	util.AssertNoError(t, res.err)

	want := fingerprint.Hash(model.Token{Type: "color", Value: "#f00"})
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	util.AssertEqual(t, lines[0], want)
	util.AssertEqual(t, len(lines), 2)

	for name, args := range map[string][]string{
		"unknown token": {"hash", local, "colors.nope"},
		"bad path":      {"hash", local, "nodot"},
		"missing args":  {"hash", local},
	} {
		t.Run(name, func(t *testing.T) {
			if res := runCLI(t, "", args...); res.err == nil {
				t.Errorf("expected error for %v", args)
			}
		})
	}
}

func TestConfigCommand(t *testing.T) {
	t.Setenv(util.HomeEnv, t.TempDir())

	res := runCLI(t, "", "config")
	util.AssertNoError(t, res.err)
	for _, want := range []string{"auto_resolve:", "snapshot_path: tokens/snapshot.json", "max_backups: 10"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("config output missing %q:\n%s", want, res.stdout)
		}
	}

	initRes := runCLI(t, "", "config", "init")
	util.AssertNoError(t, initRes.err)
	if _, err := os.Stat(filepath.Join(util.TokensyncConfigPath(), "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	if again := runCLI(t, "", "config", "init"); again.err == nil {
		t.Error("expected error when config already exists")
	}

	custom := filepath.Join(t.TempDir(), "nested", "tokensync.yaml")
	util.AssertNoError(t, runCLI(t, "", "config", "init", "--path", custom).err)
	pathRes := runCLI(t, "", "--config", custom, "config", "path")
	util.AssertNoError(t, pathRes.err)
	util.AssertEqual(t, strings.TrimSpace(pathRes.stdout), custom)
}

func TestConfigFlag(t *testing.T) {
	local, remote := writeSnapshots(t)
	cfgPath := filepath.Join(filepath.Dir(local), "custom.yaml")
	util.WriteFile(t, cfgPath, "sync:\n  auto_resolve: true\n")

	res := runCLI(t, "", "--config", cfgPath, "apply", local, remote)
	util.AssertNoError(t, res.err)
	util.AssertEqual(t, decodeMerged(t, res.stdout).TokenCount(), 3)

	bad := runCLI(t, "", "--config", filepath.Join(filepath.Dir(local), "missing.yaml"), "version")
	if bad.err == nil {
		t.Error("expected error for missing explicit config")
	}
}
