package session

import (
	"context"
	"os"
	"testing"
	"time"

	"shuttle/internal/bridge"
)

func TestLockKeeperWritesAndRemovesRecord(t *testing.T) {
	b := bridge.New(t.TempDir())
	ident := Identity{ID: "sess-1", PID: os.Getpid()}
	k := NewLockKeeper(b, ident, time.Hour, false, nil)

	before := time.Now().UnixMilli()
	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rec, obs, err := b.ObserveLock("sess-1")
	if err != nil || obs != bridge.Valid {
		t.Fatalf("lock record not written: obs=%v err=%v", obs, err)
	}
	if rec.ProcessID != os.Getpid() {
		t.Fatalf("processId mismatch: got %d, want %d", rec.ProcessID, os.Getpid())
	}
	if rec.SessionID != "sess-1" {
		t.Fatalf("sessionId mismatch: %q", rec.SessionID)
	}
	if rec.WrittenAtEpochMs < before {
		t.Fatalf("timestamp predates Start: %d < %d", rec.WrittenAtEpochMs, before)
	}

	k.Stop()
	if _, obs, _ := b.ObserveLock("sess-1"); obs != bridge.Absent {
		t.Fatalf("lock record not removed on Stop: %v", obs)
	}
}

func TestLockKeeperDegradedStaysIdle(t *testing.T) {
	b := bridge.New(t.TempDir())
	k := NewLockKeeper(b, Identity{PID: os.Getpid()}, time.Hour, false, nil)

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer k.Stop()

	if _, obs, _ := b.ObserveLock(""); obs != bridge.Absent {
		t.Fatalf("degraded keeper wrote a record: %v", obs)
	}
}

func TestLockKeeperRefreshesRecord(t *testing.T) {
	b := bridge.New(t.TempDir())
	ident := Identity{ID: "sess-1", PID: os.Getpid()}
	k := NewLockKeeper(b, ident, 20*time.Millisecond, false, nil)

	if err := k.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer k.Stop()

	first, _, err := b.ObserveLock("sess-1")
	if err != nil {
		t.Fatalf("ObserveLock failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, obs, err := b.ObserveLock("sess-1")
		if err == nil && obs == bridge.Valid && current.WrittenAtEpochMs > first.WrittenAtEpochMs {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("lock record never refreshed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExclusiveKeeperRefusesSecondOwner(t *testing.T) {
	b := bridge.New(t.TempDir())
	ident := Identity{ID: "sess-1", PID: os.Getpid()}

	first := NewLockKeeper(b, ident, time.Hour, true, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	second := NewLockKeeper(b, ident, time.Hour, true, nil)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second keeper acquired an exclusively owned session")
	}

	first.Stop()

	// Ownership is reacquirable once released.
	third := NewLockKeeper(b, ident, time.Hour, true, nil)
	if err := third.Start(context.Background()); err != nil {
		t.Fatalf("third Start failed after release: %v", err)
	}
	third.Stop()
}

func TestAdvisoryKeepersCoexist(t *testing.T) {
	b := bridge.New(t.TempDir())
	ident := Identity{ID: "sess-1", PID: os.Getpid()}

	first := NewLockKeeper(b, ident, time.Hour, false, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer first.Stop()

	second := NewLockKeeper(b, ident, time.Hour, false, nil)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("advisory keeper refused to coexist: %v", err)
	}
	second.Stop()
}
