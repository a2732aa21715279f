// Package sessionstate stores small JSON documents that must survive a restart.
package sessionstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath = errors.New("sessionstate: invalid path")
	ErrWriteFailed = errors.New("sessionstate: write failed")
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// File is one JSON document on disk. The zero value and an empty path are valid and do nothing.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: strings.TrimSpace(path)}
}

func (f *File) Enabled() bool {
	return f != nil && f.path != ""
}

func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Load decodes the document into out. found is false when the file is missing or empty.
func (f *File) Load(out any) (bool, error) {
	if !f.Enabled() {
		return false, nil
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return true, nil
}

// Save replaces the document with v using a temp file and rename.
func (f *File) Save(v any) error {
	if !f.Enabled() {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	return replaceFile(f.path, append(data, '\n'))
}

// Remove deletes the document; a missing file is not an error.
func (f *File) Remove() error {
	if !f.Enabled() {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}

func replaceFile(path string, content []byte) error {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasSuffix(path, string(os.PathSeparator)) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	dir := filepath.Dir(clean)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWriteFailed, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(clean)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrWriteFailed, clean, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWriteFailed, tmpPath, err)
	}
	if err := os.Rename(tmpPath, clean); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrWriteFailed, clean, err)
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
