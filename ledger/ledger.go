// Package ledger is the per-user, per-account append-only transaction log
// plus per-account watermark meta, grounded in storage/tx_store.py and
// storage/ledger_meta_store.py: JSONL data files, an atomically-replaced
// JSON meta file, id-based dedup, and a fast/cold-path last_ts lookup.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Record is one normalized transaction row, immutable once appended.
type Record struct {
	ID           string `json:"id"`
	Time         int64  `json:"time"`
	AccountID    string `json:"account_id"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	MCC          *int   `json:"mcc,omitempty"`
	CurrencyCode *int   `json:"currencyCode,omitempty"`
}

// Store is a directory-backed ledger for all users.
type Store struct {
	rootDir string
	meta    *metaStore
}

// New creates a Store rooted at rootDir (e.g. "<cache-dir>/tx").
func New(rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{rootDir: rootDir, meta: newMetaStore(rootDir)}, nil
}

func (s *Store) userDir(userID int64) string {
	d := filepath.Join(s.rootDir, strconv.FormatInt(userID, 10))
	os.MkdirAll(d, 0o755)
	return d
}

func (s *Store) path(userID int64, accountID string) string {
	return filepath.Join(s.userDir(userID), accountID+".jsonl")
}

// LastTS returns the highest appended timestamp for (user, account), or
// false if there are none. Fast path reads meta; cold path scans the log
// once and backfills meta for future calls.
func (s *Store) LastTS(userID int64, accountID string) (int64, bool, error) {
	if ts, ok := s.meta.Get(userID, accountID); ok {
		return ts, true, nil
	}

	path := s.path(userID, accountID)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	var last int64
	found := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if !found || rec.Time > last {
			last = rec.Time
			found = true
		}
	}

	if found {
		if err := s.meta.Update(userID, accountID, last); err != nil {
			return 0, false, err
		}
	}
	return last, found, nil
}

func (s *Store) loadIDs(userID int64, accountID string) (map[string]bool, error) {
	ids := map[string]bool{}
	f, err := os.Open(s.path(userID, accountID))
	if os.IsNotExist(err) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.ID != "" {
			ids[rec.ID] = true
		}
	}
	return ids, nil
}

// AppendMany appends rows not already present (by id), returning the count
// actually appended. On success the account watermark is advanced to the
// max appended timestamp, monotonically.
func (s *Store) AppendMany(userID int64, accountID string, rows []Record) (int, error) {
	ids, err := s.loadIDs(userID, accountID)
	if err != nil {
		return 0, err
	}

	path := s.path(userID, accountID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("ledger: open for append: %w", err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	appended := 0
	var maxTS int64
	haveMax := false

	for _, row := range rows {
		if row.ID == "" || ids[row.ID] {
			continue
		}
		data, err := json.Marshal(row)
		if err != nil {
			return appended, fmt.Errorf("ledger: marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return appended, fmt.Errorf("ledger: write row: %w", err)
		}
		if _, err := writer.WriteString("\n"); err != nil {
			return appended, fmt.Errorf("ledger: write newline: %w", err)
		}
		ids[row.ID] = true
		appended++
		if !haveMax || row.Time > maxTS {
			maxTS = row.Time
			haveMax = true
		}
	}
	if err := writer.Flush(); err != nil {
		return appended, fmt.Errorf("ledger: flush: %w", err)
	}

	if appended > 0 {
		if err := s.meta.Update(userID, accountID, maxTS); err != nil {
			return appended, err
		}
	}
	return appended, nil
}

// LoadRange returns records across accountIDs within [fromTs, toTs]
// inclusive, sorted ascending by timestamp. Corrupt lines are skipped.
func (s *Store) LoadRange(userID int64, accountIDs []string, fromTs, toTs int64) ([]Record, error) {
	var out []Record
	for _, accountID := range accountIDs {
		f, err := os.Open(s.path(userID, accountID))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec Record
			if err := json.Unmarshal(line, &rec); err != nil {
				continue
			}
			if rec.Time < fromTs || rec.Time > toTs {
				continue
			}
			out = append(out, rec)
		}
		f.Close()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
