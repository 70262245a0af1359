package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Cache stores opaque byte values with a per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key. The id is hashed so any string
// (DOIs, URLs) is safe to use as a file name.
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "attributa-v1-" + namespace + "-" + hex.EncodeToString(hash[:16])
}

// DefaultDir returns the per-user cache directory
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "attributa")
}

// New builds the cache described by the arguments: a layered memory+disk
// cache when dir is set, otherwise memory only.
func New(memoryTTL time.Duration, dir string, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}
