package refresh_test

import (
	"path/filepath"
	"testing"

	"blurn/internal/refresh"
)

func TestRunLockExcludesSecondHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blurn.lock")

	first := refresh.NewRunLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	second := refresh.NewRunLock(path)
	if err := second.Acquire(); err == nil {
		second.Release()
		t.Fatal("expected the second acquire to fail while the lock is held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Released locks can be taken again.
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}
