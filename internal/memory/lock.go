package memory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// CompactionLock provides cross-process advisory locking around a
// compactor run, so that two `coderag compact run` invocations against
// the same store directory don't race on the same memories.
type CompactionLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewCompactionLock creates a lock for the given store directory. The lock
// file is created at <dir>/.compaction.lock.
func NewCompactionLock(dir string) *CompactionLock {
	lockPath := filepath.Join(dir, ".compaction.lock")
	return &CompactionLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking. Returns false,
// nil if another process already holds it.
func (l *CompactionLock) TryLock() (bool, error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire compaction lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times.
func (l *CompactionLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release compaction lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the path to the lock file.
func (l *CompactionLock) Path() string {
	return l.path
}
