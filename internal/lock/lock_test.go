package lock

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	first := ForSession(dir, "claude-pipe")
	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}

	second := ForSession(dir, "claude-pipe")
	err := second.TryLock()
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("second TryLock err = %v, want ErrSessionBusy", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := second.TryLock(); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	_ = second.Unlock()
}

func TestSessionLocksAreIndependent(t *testing.T) {
	dir := t.TempDir()

	a := ForSession(dir, "work")
	b := ForSession(dir, "play")
	if err := a.TryLock(); err != nil {
		t.Fatal(err)
	}
	defer a.Unlock()
	if err := b.TryLock(); err != nil {
		t.Fatalf("different session blocked: %v", err)
	}
	defer b.Unlock()
}

func TestLockPathIsSanitized(t *testing.T) {
	dir := t.TempDir()
	l := ForSession(dir, "../we ird/name")
	if filepath.Dir(l.Path()) != filepath.Join(dir, "locks") {
		t.Fatalf("lock escaped lock dir: %s", l.Path())
	}
	if strings.ContainsAny(filepath.Base(l.Path()), "/ ") {
		t.Fatalf("unsanitized lock name: %s", l.Path())
	}
}
