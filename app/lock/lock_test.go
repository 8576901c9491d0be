package lock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLockerRejectsOverlap(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "ingest")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := locker.Acquire(ctx, "ingest"); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked while held, got: %v", err)
	}

	otherRelease, err := locker.Acquire(ctx, "reconcile")
	if err != nil {
		t.Errorf("Expected independent lock names, got: %v", err)
	} else {
		otherRelease()
	}

	release()
	release()

	again, err := locker.Acquire(ctx, "ingest")
	if err != nil {
		t.Fatalf("Expected lock to be free after release, got: %v", err)
	}
	again()
}

func TestLocalLockerHonoursCancelledContext(t *testing.T) {
	locker := NewLocalLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := locker.Acquire(ctx, "ingest"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestKey(t *testing.T) {
	if key := Key("ingest"); key != "sinkhole-watch:lock:ingest" {
		t.Errorf("Expected key 'sinkhole-watch:lock:ingest', got '%s'", key)
	}
}

func TestNewRedisLockerUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	locker, err := NewRedisLocker(ctx, "127.0.0.1:1", "", time.Minute)
	if err == nil {
		locker.Close()
		t.Fatal("Expected connection error for unreachable Redis")
	}
}
