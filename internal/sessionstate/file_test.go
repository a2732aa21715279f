package sessionstate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type snapshot struct {
	UserID    int64 `json:"user_id"`
	MessageID int64 `json:"message_id"`
}

func TestFileSaveLoadRemove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f := NewFile(path)

	var out snapshot
	found, err := f.Load(&out)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Fatalf("Load() found = true before Save()")
	}

	if err := f.Save(snapshot{UserID: 42, MessageID: 7}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	found, err = f.Load(&out)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found || out.UserID != 42 || out.MessageID != 7 {
		t.Fatalf("Load() = %+v found=%v", out, found)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePerm {
		t.Fatalf("file perm = %o, want %o", perm, filePerm)
	}

	if err := f.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := f.Remove(); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	found, err = f.Load(&out)
	if err != nil || found {
		t.Fatalf("Load() after Remove() found=%v err=%v", found, err)
	}
}

func TestFileDisabledIsNoop(t *testing.T) {
	t.Parallel()

	for _, f := range []*File{nil, NewFile(""), NewFile("   ")} {
		if f.Enabled() {
			t.Fatalf("Enabled() = true for %+v", f)
		}
		if err := f.Save(snapshot{UserID: 1}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		var out snapshot
		if found, err := f.Load(&out); err != nil || found {
			t.Fatalf("Load() found=%v err=%v", found, err)
		}
	}
}

func TestFileLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var out snapshot
	if _, err := NewFile(path).Load(&out); err == nil {
		t.Fatalf("Load() error = nil, want decode error")
	}
}

func TestFileSaveRejectsDirectoryPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir() + string(os.PathSeparator)
	err := NewFile(dir).Save(snapshot{})
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Save() error = %v, want ErrInvalidPath", err)
	}
}
