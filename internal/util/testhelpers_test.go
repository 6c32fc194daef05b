//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateTempDir(t *testing.T) {
	dir := CreateTempDir(t)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("CreateTempDir() did not create a directory: %v", err)
	}
	if !strings.Contains(filepath.Base(dir), "tokensync-test-") {
		t.Errorf("unexpected temp dir name %q", dir)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(CreateTempDir(t), "nested", "tokens.json")

	WriteFile(t, path, `[]`)

	got, err := os.ReadFile(path) //nolint:gosec // G304 - temp directory
	AssertNoError(t, err)
	AssertEqual(t, string(got), `[]`)
}
