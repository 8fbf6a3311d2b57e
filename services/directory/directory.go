package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	directoryRepo "agendly/database/repository/directory"
	"agendly/models"

	"github.com/go-redis/redis/v8"
)

const cacheKey = "directory:v1"

// DirectoryService hands out the read-only people/services snapshot a turn
// needs. The engine never touches storage for this; the caller owns
// refreshing and caching (per-turn injection).
type DirectoryService interface {
	Snapshot(ctx context.Context) (models.Directory, error)
}

// CachedDirectoryService fronts the directory repository with a short-lived
// Redis cache so webhook turns do not hit Mongo on every message.
type CachedDirectoryService struct {
	Repo  directoryRepo.DirectoryRepository
	Cache *redis.Client
	TTL   time.Duration
}

func NewCachedDirectoryService(repo directoryRepo.DirectoryRepository, cache *redis.Client, ttl time.Duration) *CachedDirectoryService {
	return &CachedDirectoryService{Repo: repo, Cache: cache, TTL: ttl}
}

func (s *CachedDirectoryService) Snapshot(ctx context.Context) (models.Directory, error) {
	if data, err := s.Cache.Get(ctx, cacheKey).Result(); err == nil {
		var dir models.Directory
		if err := json.Unmarshal([]byte(data), &dir); err == nil {
			return dir, nil
		}
		// A corrupt cache entry falls through to a fresh load.
	}

	dir, err := s.Repo.LoadDirectory(ctx)
	if err != nil {
		return models.Directory{}, fmt.Errorf("failed to load directory: %w", err)
	}

	if data, err := json.Marshal(dir); err == nil {
		_ = s.Cache.Set(ctx, cacheKey, data, s.TTL).Err()
	}
	return dir, nil
}
