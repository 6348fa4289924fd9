package database

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const assetTypesCacheKey = "aiof-asset:asset-types"

// TypeCache holds the reference asset type list. Misses and cache failures
// fall through to the table.
type TypeCache interface {
	GetTypes(context.Context) ([]usecase.AssetType, bool)
	SetTypes(context.Context, []usecase.AssetType)
}

type RedisTypeCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisTypeCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisTypeCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTypeCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *RedisTypeCache) GetTypes(ctx context.Context) ([]usecase.AssetType, bool) {
	b, err := c.rdb.Get(ctx, assetTypesCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "asset type cache read failed", slog.String("err", err.Error()))
		return nil, false
	}

	var types []usecase.AssetType
	if err := json.Unmarshal(b, &types); err != nil {
		c.logger.WarnContext(ctx, "asset type cache entry is corrupt", slog.String("err", err.Error()))
		return nil, false
	}
	return types, true
}

func (c *RedisTypeCache) SetTypes(ctx context.Context, types []usecase.AssetType) {
	b, err := json.Marshal(types)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, assetTypesCacheKey, b, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "asset type cache write failed", slog.String("err", err.Error()))
	}
}
