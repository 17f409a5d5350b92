package source

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/evidenceview/internal/cache"
	"github.com/ppiankov/evidenceview/internal/model"
)

// Fetcher retrieves the raw evidence list for a match
type Fetcher interface {
	FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error)
}

// CachedFetcher serves evidence lists from a cache, falling back to the
// wrapped fetcher on a miss. Failed fetches are never cached.
type CachedFetcher struct {
	next   Fetcher
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedFetcher wraps next with cache c. A zero ttl uses the cache default.
func NewCachedFetcher(next Fetcher, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{next: next, cache: c, ttl: ttl, logger: logger}
}

// FetchEvidences returns the cached list for matchID or fetches and stores it
func (f *CachedFetcher) FetchEvidences(ctx context.Context, matchID string) ([]model.Evidence, error) {
	key := cache.MatchKey(matchID)

	if data, ok := f.cache.Get(key); ok {
		var evidences []model.Evidence
		if err := json.Unmarshal(data, &evidences); err == nil {
			f.logger.Debug("evidence cache hit", zap.String("match_id", matchID))
			return evidences, nil
		}
		_ = f.cache.Delete(key)
	}

	evidences, err := f.next.FetchEvidences(ctx, matchID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(evidences)
	if err == nil {
		if err := f.cache.Set(key, data, f.ttl); err != nil {
			f.logger.Warn("evidence cache write failed", zap.String("match_id", matchID), zap.Error(err))
		}
	}
	return evidences, nil
}

// Invalidate drops the cached list for matchID so the next fetch goes
// to the wrapped fetcher
func (f *CachedFetcher) Invalidate(matchID string) {
	_ = f.cache.Delete(cache.MatchKey(matchID))
}
