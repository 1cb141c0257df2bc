package diskcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type payload struct {
	A string
	B int
}

func TestSetGet(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := payload{A: "x", B: 7}
	if err := c.Set("k", want, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got payload
	found, err := c.Get("k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || got != want {
		t.Errorf("Get = (%v, %v), want (%v, true)", got, found, want)
	}
}

func TestGet_Absent(t *testing.T) {
	c, _ := New(t.TempDir())
	var got payload
	found, err := c.Get("missing", &got)
	if err != nil || found {
		t.Errorf("Get(missing) = (%v, %v), want (false, nil)", found, err)
	}
}

func TestGet_Expired(t *testing.T) {
	c, _ := New(t.TempDir())
	if err := c.Set("k", payload{A: "x"}, time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	var got payload
	found, err := c.Get("k", &got)
	if err != nil || found {
		t.Errorf("Get(expired) = (%v, %v), want (false, nil)", found, err)
	}
}

func TestGet_CorruptEntryDeleted(t *testing.T) {
	dir := t.TempDir()
	c, _ := New(dir)
	if err := c.Set("k", payload{A: "x"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	path := c.pathFor("k")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}
	var got payload
	found, err := c.Get("k", &got)
	if err != nil || found {
		t.Errorf("Get(corrupt) = (%v, %v), want (false, nil)", found, err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("corrupt entry file should have been deleted")
	}
}

func TestNoTTL_NeverExpires(t *testing.T) {
	c, _ := New(t.TempDir())
	if err := c.Set("k", payload{A: "forever"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got payload
	found, _ := c.Get("k", &got)
	if !found {
		t.Error("entry with zero ttl should not expire")
	}
}

func TestRootDirIsolation(t *testing.T) {
	c, _ := New(filepath.Join(t.TempDir(), "sub", "dir"))
	if err := c.Set("k", payload{A: "y"}, time.Hour); err != nil {
		t.Fatalf("Set into nested root: %v", err)
	}
}
