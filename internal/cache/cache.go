package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ppiankov/evidenceview/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// MatchKey generates the cache key for a match's evidence list
func MatchKey(matchID string) string {
	hash := sha256.Sum256([]byte(matchID))
	return "evidenceview:v1:match:" + hex.EncodeToString(hash[:])
}

// New builds the cache backend selected in cfg
func New(cfg model.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), nil
	case "layered", "":
		return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.DiskTTL)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
