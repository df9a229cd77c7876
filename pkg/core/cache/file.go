package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// File keeps entries as JSON files under a directory, one per key. It is the
// local fallback when no Redis server is configured.
type File struct {
	dir string
	now func() time.Time
}

type fileEntry struct {
	Key       string          `json:"key"`
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// NewFile creates the cache directory. An empty dir means .cache/ratio_screener.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		dir = filepath.Join(".cache", "ratio_screener")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &File{dir: dir, now: time.Now}, nil
}

func (c *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".json")
}

func (c *File) Get(_ context.Context, key string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		return nil, false
	}
	if !e.ExpiresAt.IsZero() && c.now().After(e.ExpiresAt) {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return e.Value, true
}

// Set stores value, which must be JSON as produced by Memoize. A zero ttl
// never expires.
func (c *File) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	e := fileEntry{Key: key, Value: value}
	if ttl > 0 {
		e.ExpiresAt = c.now().Add(ttl)
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry not encodable")
		return
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
	}
}
