// Package diskcache is a minimal TTL'd JSON blob cache keyed by an opaque
// string: hash-named files on disk, each holding {expires_at, value}.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Cache stores opaque JSON-encodable values under hashed filenames.
type Cache struct {
	rootDir string
}

type entry struct {
	ExpiresAt *int64          `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// New creates a Cache rooted at rootDir, creating it if necessary.
func New(rootDir string) (*Cache, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{rootDir: rootDir}, nil
}

func (c *Cache) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.rootDir, hex.EncodeToString(sum[:])+".json")
}

// Get decodes the cached value for key into dest. It reports found=false
// when the key is absent, expired, or the blob is corrupt — in the last two
// cases the entry is deleted.
func (c *Cache) Get(key string, dest any) (found bool, err error) {
	path := c.pathFor(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		os.Remove(path)
		return false, nil
	}
	if e.ExpiresAt != nil && time.Now().Unix() >= *e.ExpiresAt {
		os.Remove(path)
		return false, nil
	}
	if err := json.Unmarshal(e.Value, dest); err != nil {
		os.Remove(path)
		return false, nil
	}
	return true, nil
}

// Set stores value under key. A zero ttl means the entry never expires.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var expires *int64
	if ttl > 0 {
		t := time.Now().Add(ttl).Unix()
		expires = &t
	}
	data, err := json.Marshal(entry{ExpiresAt: expires, Value: raw})
	if err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(key), data, 0o644)
}

// Delete removes the cache entry for key, if any.
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.pathFor(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
