package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

const (
	recipeKeyPrefix  = "recipes:"
	historyKeyPrefix = "history:"
)

// RedisStore backs the Store interface with Redis so several API
// instances share one recipe cache and one show history.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	common.LogInfo(fmt.Sprintf("Connected to Redis at %s", addr))
	return &RedisStore{client: client, ttl: ttl}, nil
}

// GetRecipes returns the cached batch for a fingerprint, if any.
func (s *RedisStore) GetRecipes(ctx context.Context, fingerprint string) ([]recipe.CanonicalRecipe, bool, error) {
	data, err := s.client.Get(ctx, recipeKeyPrefix+fingerprint).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var recipes []recipe.CanonicalRecipe
	if err := common.ParseJSON(data, &recipes); err != nil {
		// a corrupt entry behaves like a miss so it can be overwritten
		return nil, false, nil
	}
	return recipes, true, nil
}

// PutRecipes stores a batch with SET NX so the first writer wins when
// several instances race on the same fingerprint.
func (s *RedisStore) PutRecipes(ctx context.Context, fingerprint string, recipes []recipe.CanonicalRecipe) (bool, error) {
	data, err := common.ToJSON(recipes)
	if err != nil {
		return false, fmt.Errorf("marshal recipes failed: %w", err)
	}

	stored, err := s.client.SetNX(ctx, recipeKeyPrefix+fingerprint, data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return stored, nil
}

// SeenIDs returns the recipe ids already shown to a user for a
// fingerprint.
func (s *RedisStore) SeenIDs(ctx context.Context, userID, fingerprint string) (map[string]struct{}, error) {
	ids, err := s.client.SMembers(ctx, historyKeyPrefix+historyKey(userID, fingerprint)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// MarkSeen unions ids into the user's shown set.
func (s *RedisStore) MarkSeen(ctx context.Context, userID, fingerprint string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	key := historyKeyPrefix + historyKey(userID, fingerprint)
	if err := s.client.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("redis sadd failed: %w", err)
	}
	if s.ttl > 0 {
		// history expires together with the recipe batch it tracks
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire failed: %w", err)
		}
	}
	return nil
}

// Close shuts down the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
