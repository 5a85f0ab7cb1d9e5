package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("Path = %q", lock.Path())
	}
	h := ReadHolder(lock.Path())
	if h.PID != os.Getpid() || !h.Running || h.Started.IsZero() {
		t.Errorf("holder = %+v", h)
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir)
	if err == nil {
		second.Release()
		t.Fatal("second Acquire succeeded while the lock was held")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %T, want *LockError", err)
	}
	if lockErr.Holder.PID != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", lockErr.Holder.PID, os.Getpid())
	}
	if !strings.Contains(err.Error(), "running") {
		t.Errorf("error should describe the holder: %v", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Errorf("lock file not removed: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again.Release()
}

func TestStaleLockFileIsTakenOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	if err := os.WriteFile(path, []byte("pid=999999999\nstarted=2026-10-01T08:00:00Z\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := ReadHolder(path)
	if h.PID != 999999999 || h.Running {
		t.Errorf("stale holder = %+v", h)
	}
	if !strings.Contains(h.String(), "stale") {
		t.Errorf("String() = %q", h.String())
	}

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire over stale file: %v", err)
	}
	defer lock.Release()
	if got := ReadHolder(path).PID; got != os.Getpid() {
		t.Errorf("pid after takeover = %d", got)
	}
}

func TestReadHolderMissingFile(t *testing.T) {
	h := ReadHolder(filepath.Join(t.TempDir(), "missing.lock"))
	if h.PID != 0 || h.String() != "unknown process" {
		t.Errorf("holder = %+v (%s)", h, h)
	}
}
