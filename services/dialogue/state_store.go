package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agendly/models"

	"github.com/go-redis/redis/v8"
)

const statePrefix = "dlg:state:"

// RedisStateStore keeps the dialogue state blob in Redis with a TTL, so
// abandoned conversations expire on their own.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl}
}

func (s *RedisStateStore) Load(ctx context.Context, conversationID string) (*models.DialogueState, error) {
	data, err := s.client.Get(ctx, statePrefix+conversationID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dialogue state: %w", err)
	}
	var state models.DialogueState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to parse dialogue state: %w", err)
	}
	return &state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, conversationID string, state *models.DialogueState) error {
	key := statePrefix + conversationID
	if state == nil {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear dialogue state: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal dialogue state: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store dialogue state: %w", err)
	}
	return nil
}
