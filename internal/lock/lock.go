// Package lock implements the daemon's single-instance advisory file lock.
package lock

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrHeld is returned by Acquire when another process already holds the lock.
var ErrHeld = errors.New("lock: another instance is already running")

// Lock is an exclusive advisory file lock taken on minecraftd.lock inside the
// runtime directory. Release drops the lock; it is safe to call once.
type Lock struct {
	file *os.File
}

// Path returns the lock file path for a given runtime directory.
func Path(runtimeDir string) string {
	return runtimeDir + "/minecraftd.lock"
}

// Acquire creates (if needed) and exclusively locks the lock file at path.
// It fails with ErrHeld if another process holds the lock.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lock: open %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("lock: flock %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call multiple times.
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	l.file = nil
}
</content>
