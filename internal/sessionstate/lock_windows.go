//go:build windows

package sessionstate

import (
	"errors"
	"fmt"
	"os"
)

func lockFile(path string) (*InstanceLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("sessionstate open lock %s: %w", path, err)
	}
	return &InstanceLock{
		path: path,
		file: file,
		release: func() error {
			_ = file.Close()
			return os.Remove(path)
		},
	}, nil
}
