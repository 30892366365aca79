package refresh

import (
	"fmt"

	"github.com/gofrs/flock"
)

// RunLock is the run-in-progress guard. Refresh, the watched sweep and
// the played sync all mutate the same data files, so every operation
// takes the lock first; a second concurrent invocation fails fast
// instead of corrupting state.
type RunLock struct {
	lock *flock.Flock
}

// NewRunLock creates a lock backed by the given lock file.
func NewRunLock(path string) *RunLock {
	return &RunLock{lock: flock.New(path)}
}

// Acquire takes the lock without blocking. It fails when another
// operation holds it.
func (l *RunLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another operation is already running against %s", l.lock.Path())
	}
	return nil
}

// Release drops the lock.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
