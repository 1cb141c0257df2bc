package userconfig

import (
	"testing"

	"github.com/monoledger/monoledger/cryptocodec"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	codec, err := cryptocodec.New("test-key")
	if err != nil {
		t.Fatalf("cryptocodec.New: %v", err)
	}
	s, err := New(t.TempDir(), codec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func strPtr(s string) *string { return &s }
func i64Ptr(i int64) *int64   { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(1, Update{
		MonoToken:          strPtr("secret-token"),
		SelectedAccountIDs: &[]string{"acc1", "acc2"},
		ChatID:             i64Ptr(555),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg, err := s.Load(1)
	if err != nil || cfg == nil {
		t.Fatalf("Load = (%v, %v)", cfg, err)
	}
	if cfg.MonoToken != "secret-token" {
		t.Errorf("MonoToken = %q, want %q", cfg.MonoToken, "secret-token")
	}
	if len(cfg.SelectedAccountIDs) != 2 {
		t.Errorf("SelectedAccountIDs = %v, want 2 entries", cfg.SelectedAccountIDs)
	}
	if cfg.ChatID == nil || *cfg.ChatID != 555 {
		t.Errorf("ChatID = %v, want 555", cfg.ChatID)
	}
	if !cfg.AutojobsEnabled {
		t.Error("AutojobsEnabled should default true on first save")
	}
}

func TestSave_PartialUpdatePreservesOtherFields(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(1, Update{MonoToken: strPtr("tok"), SelectedAccountIDs: &[]string{"a"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(1, Update{AutojobsEnabled: boolPtr(false)}); err != nil {
		t.Fatalf("Save (partial): %v", err)
	}

	cfg, err := s.Load(1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MonoToken != "tok" {
		t.Errorf("MonoToken lost after partial update: %q", cfg.MonoToken)
	}
	if cfg.AutojobsEnabled {
		t.Error("AutojobsEnabled should be false after partial update")
	}
}

func TestLoad_Absent(t *testing.T) {
	s := newTestStore(t)
	cfg, err := s.Load(999)
	if err != nil || cfg != nil {
		t.Errorf("Load(absent) = (%v, %v), want (nil, nil)", cfg, err)
	}
}

func TestIterAll(t *testing.T) {
	s := newTestStore(t)
	s.Save(1, Update{MonoToken: strPtr("a")})
	s.Save(2, Update{MonoToken: strPtr("b")})

	all, err := s.IterAll()
	if err != nil {
		t.Fatalf("IterAll: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
}
