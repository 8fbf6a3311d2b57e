package utils

import (
	"context"
	"log"
	"time"

	"agendly/config"

	"github.com/go-redis/redis/v8"
)

var (
	// StateCacheClient holds per-conversation dialogue state.
	StateCacheClient *redis.Client
	// CacheClient is the generic cache client (directory snapshots).
	CacheClient *redis.Client
)

// InitStateCache initializes the Redis client for dialogue state.
func InitStateCache() {
	StateCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisStateDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := StateCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (State): %v", err)
	}
}

// GetStateCacheClient returns the Redis client for dialogue state.
func GetStateCacheClient() *redis.Client {
	if StateCacheClient == nil {
		InitStateCache()
	}
	return StateCacheClient
}

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}
