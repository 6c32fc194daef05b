package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the tokensync home directory.
const HomeEnv = "TOKENSYNC_HOME"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// TokensyncConfigPath returns the tokensync configuration directory,
// $TOKENSYNC_HOME if set, otherwise ~/.tokensync.
func TokensyncConfigPath() string {
	if v := os.Getenv(HomeEnv); v != "" {
		return v
	}
	return filepath.Join(HomeDir(), ".tokensync")
}

// TokensyncBackupsPath returns the directory holding host document backups.
func TokensyncBackupsPath() string {
	return filepath.Join(TokensyncConfigPath(), "backups")
}

// ExpandPath expands a leading ~ and resolves relative paths against baseDir.
// An empty path stays empty.
func ExpandPath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(HomeDir(), rest)
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}
