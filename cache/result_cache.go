package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"webpage-auditor/config"
	"webpage-auditor/internal/audit"
)

const keyPrefix = "auditor:result:v1:"

// ResultCache keeps findings of successful checks in Redis. Cache errors are
// logged and treated as misses.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewResultCache returns nil when Redis is disabled or the TTL is not positive.
func NewResultCache(client *redis.Client, cfg *config.Config, log *zap.SugaredLogger) audit.ResultCache {
	if client == nil || cfg.Audit.CacheTTL <= 0 {
		return nil
	}
	return &ResultCache{client: client, ttl: cfg.Audit.CacheTTL, log: log}
}

func Key(kind audit.CheckKind, url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + string(kind) + ":" + hex.EncodeToString(sum[:])
}

func (c *ResultCache) Get(ctx context.Context, kind audit.CheckKind, url string) ([]audit.Finding, bool) {
	raw, err := c.client.Get(ctx, Key(kind, url)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("result_cache_get_failed", "check", kind, "err", err)
		}
		return nil, false
	}

	var findings []audit.Finding
	if err := json.Unmarshal(raw, &findings); err != nil {
		c.log.Warnw("result_cache_decode_failed", "check", kind, "err", err)
		return nil, false
	}
	return findings, true
}

func (c *ResultCache) Set(ctx context.Context, kind audit.CheckKind, url string, findings []audit.Finding) {
	raw, err := json.Marshal(findings)
	if err != nil {
		c.log.Warnw("result_cache_encode_failed", "check", kind, "err", err)
		return
	}
	if err := c.client.Set(ctx, Key(kind, url), raw, c.ttl).Err(); err != nil {
		c.log.Warnw("result_cache_set_failed", "check", kind, "err", err)
	}
}
