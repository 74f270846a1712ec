package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Store is the local state directory: UI state and the edit journal.
// Records themselves live on the backend.
type Store struct {
	Dir string
}

// DefaultDir is the config dir; local state lives next to config.json unless
// --dir says otherwise.
func DefaultDir() (string, error) {
	return ConfigDir()
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: missing dir")
	}
	return os.MkdirAll(filepath.Clean(s.Dir), 0o755)
}

// writeFileAtomic writes via a temp file and rename so readers never see a
// half-written file.
func writeFileAtomic(path string, b []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
