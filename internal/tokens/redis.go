package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_storefront/internal/domain"
)

// Sessions live for 24 hours; redis expiry is the sole revocation-by-age
// mechanism, there is no refresh.
const sessionTTL = 24 * time.Hour

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    sessionTTL,
	}
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *RedisStore) Issue(ctx context.Context, user domain.User) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal session user failed: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set failed: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (*domain.User, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var user domain.User
	if err2 := json.Unmarshal(data, &user); err2 != nil {
		return nil, fmt.Errorf("unmarshal session user failed: %w", err2)
	}
	return &user, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
