// Package statepaths resolves on-disk locations under file_state_dir.
package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultStateDir     = "~/.feedbackbot"
	SessionFilename     = "reply_session.json"
	PebbleDirname       = "pebble"
	ConfigFilename      = "config.yaml"
	LockFilename        = "feedbackbot.lck"
	stateDirPermissions = 0o700
)

func FileStateDir() string {
	return ResolveStateDir(viper.GetString("file_state_dir"))
}

// SessionPath is session.path when set, otherwise <file_state_dir>/reply_session.json.
func SessionPath() string {
	if p := strings.TrimSpace(viper.GetString("session.path")); p != "" {
		return ExpandHomePath(p)
	}
	return filepath.Join(FileStateDir(), SessionFilename)
}

// PebbleDir is store.pebble.dir when set, otherwise <file_state_dir>/pebble.
func PebbleDir() string {
	if p := strings.TrimSpace(viper.GetString("store.pebble.dir")); p != "" {
		return ExpandHomePath(p)
	}
	return filepath.Join(FileStateDir(), PebbleDirname)
}

// LockPath is the single-instance lock guarding file_state_dir.
func LockPath() string {
	return filepath.Join(FileStateDir(), LockFilename)
}

// EnsureStateDir creates file_state_dir with owner-only permissions.
func EnsureStateDir() (string, error) {
	dir := FileStateDir()
	if err := os.MkdirAll(dir, stateDirPermissions); err != nil {
		return "", err
	}
	return dir, nil
}

func ResolveStateDir(dir string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultStateDir
	}
	return filepath.Clean(ExpandHomePath(dir))
}

// ExpandHomePath replaces a leading "~" with the user's home directory.
func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
