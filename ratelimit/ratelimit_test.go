package ratelimit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestThrottle_NoWaitFailsWhenHot(t *testing.T) {
	dir := t.TempDir()
	l, err := New(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := l.Throttle(ctx, "k", time.Hour, true); err != nil {
		t.Fatalf("first Throttle: %v", err)
	}
	if err := l.Throttle(ctx, "k", time.Hour, false); !errors.Is(err, ErrMustWait) {
		t.Fatalf("second Throttle error = %v, want ErrMustWait", err)
	}
}

func TestThrottle_WaitSleeps(t *testing.T) {
	dir := t.TempDir()
	l, err := New(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := l.Throttle(ctx, "k", 50*time.Millisecond, true); err != nil {
		t.Fatalf("first: %v", err)
	}
	start := time.Now()
	if err := l.Throttle(ctx, "k", 50*time.Millisecond, true); err != nil {
		t.Fatalf("second: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("Throttle returned too early, expected to wait out remainder")
	}
}

func TestThrottle_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	ctx := context.Background()

	l1, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l1.Throttle(ctx, "k", time.Hour, true); err != nil {
		t.Fatalf("l1.Throttle: %v", err)
	}

	l2, err := New(path)
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if err := l2.Throttle(ctx, "k", time.Hour, false); !errors.Is(err, ErrMustWait) {
		t.Fatalf("reloaded limiter should still be hot, err = %v", err)
	}
}

func TestThrottle_DifferentKeysIndependent(t *testing.T) {
	dir := t.TempDir()
	l, err := New(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := l.Throttle(ctx, "a", time.Hour, true); err != nil {
		t.Fatalf("a: %v", err)
	}
	if err := l.Throttle(ctx, "b", time.Hour, false); err != nil {
		t.Fatalf("b should be unaffected by a's throttle: %v", err)
	}
}
