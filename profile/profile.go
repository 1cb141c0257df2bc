// Package profile builds and persists each user's long-term spending
// profile: average real-spend check, 90-day totals, and top categories and
// merchants. Grounded in analytics/profile.py and storage/profile_store.py.
package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/ledger"
)

// NamedAmount pairs a label with a major-unit amount, used for the top-5
// lists.
type NamedAmount struct {
	Name      string  `json:"name"`
	AmountUAH float64 `json:"amount_uah"`
}

// Profile is one user's long-term spending snapshot.
type Profile struct {
	AvgCheckUAH            float64       `json:"avg_check_uah"`
	TotalRealSpendUAH      float64       `json:"total_real_spend_uah"`
	RealSpendTxCount       int           `json:"real_spend_tx_count"`
	TopCategoriesLongTerm  []NamedAmount `json:"top_categories_long_term"`
	TopMerchantsLongTerm   []NamedAmount `json:"top_merchants_long_term"`
}

func top5(amounts map[string]float64) []NamedAmount {
	out := make([]NamedAmount, 0, len(amounts))
	for k, v := range amounts {
		out = append(out, NamedAmount{Name: k, AmountUAH: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AmountUAH != out[j].AmountUAH {
			return out[i].AmountUAH > out[j].AmountUAH
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// Build derives a Profile from a wide slice of ledger records (typically a
// 90-day window). Returns a zero Profile for an empty slice, robust to
// users with no history yet.
func Build(records []ledger.Record) Profile {
	if len(records) == 0 {
		return Profile{}
	}

	rows := analytics.ClassifyRows(records)
	facts := analytics.ComputeFacts(rows)

	spendCount := 0
	for _, r := range rows {
		if r.Kind == analytics.KindSpend {
			spendCount++
		}
	}

	var avgCheck float64
	if spendCount > 0 {
		avgCheck = facts.Totals.RealSpendTotalUAH / float64(spendCount)
	}

	merchantsUAH := map[string]float64{}
	for _, e := range facts.TopMerchantsRealSpend {
		merchantsUAH[e.Label] = e.AmountUAH
	}

	return Profile{
		AvgCheckUAH:           avgCheck,
		TotalRealSpendUAH:     facts.Totals.RealSpendTotalUAH,
		RealSpendTxCount:      spendCount,
		TopCategoriesLongTerm: top5(facts.CategoriesRealSpendUAH),
		TopMerchantsLongTerm:  top5(merchantsUAH),
	}
}

// Store is a directory-backed, one-file-per-user profile cache.
type Store struct {
	rootDir string
}

// New creates a Store rooted at rootDir.
func New(rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{rootDir: rootDir}, nil
}

func (s *Store) path(userID int64) string {
	return filepath.Join(s.rootDir, strconv.FormatInt(userID, 10)+".json")
}

// Save atomically persists p for userID.
func (s *Store) Save(userID int64, p Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
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

// Load returns userID's cached profile, or nil if none has been saved yet.
func (s *Store) Load(userID int64) (*Profile, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil
	}
	return &p, nil
}
