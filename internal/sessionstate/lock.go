package sessionstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrLocked means another process holds the instance lock.
var ErrLocked = errors.New("sessionstate: instance lock held by another process")

// InstanceLock is an exclusive, non-blocking lock on a file, held until Release.
type InstanceLock struct {
	path    string
	file    *os.File
	release func() error
}

type lockOwner struct {
	PID        int    `json:"pid"`
	Hostname   string `json:"hostname"`
	AcquiredAt string `json:"acquired_at"`
}

// AcquireInstanceLock takes the lock at path or fails fast with ErrLocked.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	path = strings.TrimSpace(path)
	if path == "" || strings.HasSuffix(path, string(os.PathSeparator)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("sessionstate lock dir: %w", err)
	}
	l, err := lockFile(path)
	if err != nil {
		return nil, err
	}
	writeLockOwner(l.file)
	return l, nil
}

func (l *InstanceLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release is safe to call more than once.
func (l *InstanceLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.release()
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	return err
}

func writeLockOwner(file *os.File) {
	host, _ := os.Hostname()
	data, err := json.Marshal(lockOwner{
		PID:        os.Getpid(),
		Hostname:   host,
		AcquiredAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = file.Write(append(data, '\n'))
	_ = file.Sync()
}
