// Package userconfig is the per-user config store: opaque-encrypted
// upstream token, selected accounts, chat id, autojobs flag. Grounded in
// storage/user_store.py, with cryptocodec substituting for Fernet.
package userconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/monoledger/monoledger/cryptocodec"
)

// Config is the decrypted, in-memory view of one user's settings.
type Config struct {
	TelegramUserID     int64    `json:"telegram_user_id"`
	MonoToken          string   `json:"mono_token"`
	SelectedAccountIDs []string `json:"selected_account_ids"`
	ChatID             *int64   `json:"chat_id,omitempty"`
	AutojobsEnabled    bool     `json:"autojobs_enabled"`
	UpdatedAt          float64  `json:"updated_at"`
}

type onDiskConfig struct {
	TelegramUserID     int64    `json:"telegram_user_id"`
	MonoToken          string   `json:"mono_token"`
	SelectedAccountIDs []string `json:"selected_account_ids"`
	ChatID             *int64   `json:"chat_id,omitempty"`
	AutojobsEnabled    bool     `json:"autojobs_enabled"`
	UpdatedAt          float64  `json:"updated_at"`
}

// Store is a directory-backed user config store.
type Store struct {
	rootDir string
	codec   *cryptocodec.Codec
}

// New creates a Store rooted at rootDir, using codec to encrypt/decrypt
// tokens at rest.
func New(rootDir string, codec *cryptocodec.Codec) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{rootDir: rootDir, codec: codec}, nil
}

func (s *Store) path(userID int64) string {
	return filepath.Join(s.rootDir, strconv.FormatInt(userID, 10)+".json")
}

func (s *Store) loadOnDisk(userID int64) (*onDiskConfig, bool, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var raw onDiskConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, nil
	}
	return &raw, true, nil
}

func (s *Store) writeOnDisk(userID int64, raw *onDiskConfig) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Update applies a partial update: any nil/non-nil pointer field left
// unset preserves the existing value. Passing a non-nil token re-encrypts
// and stores it.
type Update struct {
	MonoToken          *string
	SelectedAccountIDs *[]string
	ChatID             *int64
	AutojobsEnabled    *bool
}

// Save applies upd on top of the existing record (or a fresh one),
// encrypting the token before writing.
func (s *Store) Save(userID int64, upd Update) error {
	existing, _, err := s.loadOnDisk(userID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &onDiskConfig{TelegramUserID: userID, AutojobsEnabled: true}
	}

	if upd.MonoToken != nil {
		enc, err := s.codec.Encrypt(*upd.MonoToken)
		if err != nil {
			return err
		}
		existing.MonoToken = enc
	}
	if upd.SelectedAccountIDs != nil {
		existing.SelectedAccountIDs = *upd.SelectedAccountIDs
	}
	if upd.ChatID != nil {
		existing.ChatID = upd.ChatID
	}
	if upd.AutojobsEnabled != nil {
		existing.AutojobsEnabled = *upd.AutojobsEnabled
	}
	existing.TelegramUserID = userID
	existing.UpdatedAt = float64(time.Now().UnixMilli()) / 1000.0

	return s.writeOnDisk(userID, existing)
}

// Load returns the decrypted config for userID, or nil if none exists.
// A stored token lacking the codec signature is migrated (re-encrypted in
// place) on this read.
func (s *Store) Load(userID int64) (*Config, error) {
	raw, ok, err := s.loadOnDisk(userID)
	if err != nil || !ok {
		return nil, err
	}

	tokenStored := raw.MonoToken
	if tokenStored != "" && !cryptocodec.IsEncrypted(tokenStored) {
		enc, err := s.codec.Encrypt(tokenStored)
		if err != nil {
			return nil, err
		}
		raw.MonoToken = enc
		if err := s.writeOnDisk(userID, raw); err != nil {
			return nil, err
		}
		tokenStored = enc
	}

	var tokenPlain string
	if tokenStored != "" {
		tokenPlain, err = s.codec.Decrypt(tokenStored)
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		TelegramUserID:     raw.TelegramUserID,
		MonoToken:          tokenPlain,
		SelectedAccountIDs: raw.SelectedAccountIDs,
		ChatID:             raw.ChatID,
		AutojobsEnabled:    raw.AutojobsEnabled,
		UpdatedAt:          raw.UpdatedAt,
	}, nil
}

// IterAll yields every stored user config, in arbitrary order; used only
// by the scheduler.
func (s *Store) IterAll() ([]*Config, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, err
	}
	var out []*Config
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		idStr := name[:len(name)-len(".json")]
		userID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		cfg, err := s.Load(userID)
		if err != nil || cfg == nil {
			continue
		}
		out = append(out, cfg)
	}
	return out, nil
}
