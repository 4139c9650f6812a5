package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-finance/internal/analytics"
)

const defaultReportTTL = 5 * time.Minute

// ReportCacheService caches computed finance reports. Every read and write is
// best-effort: Redis failures are logged and treated as a miss.
type ReportCacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// CachedReport represents the cached report data
type CachedReport struct {
	Report   *analytics.Report `json:"report"`
	CachedAt time.Time         `json:"cached_at"`
}

// NewReportCacheService creates a new report cache service. A nil client
// disables caching.
func NewReportCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *ReportCacheService {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether a Redis client is configured.
func (s *ReportCacheService) Enabled() bool {
	return s != nil && s.redis != nil
}

// ReportKey identifies a cached report. Reports are scoped to the access
// token that fetched them, so a hit is only served to the same credential.
type ReportKey struct {
	Shop        string
	AccessToken string
	StartDate   string
	EndDate     string
	Zone        string
}

// tokenDigest returns the hex SHA-256 of an access token. The raw token never
// reaches Redis.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// cacheKey generates a cache key for a report
func (s *ReportCacheService) cacheKey(k ReportKey) string {
	return fmt.Sprintf("finance:report:%s:%s:%s:%s:%s", k.Shop, tokenDigest(k.AccessToken), k.StartDate, k.EndDate, k.Zone)
}

// Get retrieves a cached report. A miss returns nil.
func (s *ReportCacheService) Get(ctx context.Context, k ReportKey) *CachedReport {
	if !s.Enabled() {
		return nil
	}

	key := s.cacheKey(k)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to get report from cache", zap.Error(err), zap.String("key", key))
		}
		return nil
	}

	var cached CachedReport
	if err := json.Unmarshal(data, &cached); err != nil || cached.Report == nil {
		s.logger.Warn("failed to unmarshal cached report", zap.Error(err), zap.String("key", key))
		return nil
	}

	s.logger.Debug("cache hit for report", zap.String("key", key))
	return &cached
}

// Set stores a report in cache. Failures are logged and otherwise ignored.
func (s *ReportCacheService) Set(ctx context.Context, k ReportKey, report *analytics.Report) {
	if !s.Enabled() {
		return
	}

	key := s.cacheKey(k)
	data, err := json.Marshal(&CachedReport{Report: report, CachedAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to marshal report for cache", zap.Error(err))
		return
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to set report in cache", zap.Error(err), zap.String("key", key))
		return
	}

	s.logger.Debug("cached report", zap.String("key", key), zap.Duration("ttl", s.ttl))
}

// Invalidate removes every cached report for a shop
func (s *ReportCacheService) Invalidate(ctx context.Context, shop string) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}

	pattern := fmt.Sprintf("finance:report:%s:*", shop)
	var keys []string
	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("failed to find cache keys to invalidate", zap.Error(err))
		return 0, err
	}

	if len(keys) > 0 {
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("failed to invalidate report cache", zap.Error(err))
			return 0, err
		}
		s.logger.Debug("invalidated report cache", zap.String("shop", shop), zap.Int("keys_removed", len(keys)))
	}

	return len(keys), nil
}
