package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "taskforge:refresh:"

// RefreshStore keeps opaque refresh tokens in Redis with a TTL. Tokens
// are single-use: a refresh rotates the token and revokes the old one.
type RefreshStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefreshStore constructs a store backed by the provided client.
func NewRefreshStore(client *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{client: client, ttl: ttl}
}

// Mint creates and stores a fresh refresh token for userID.
func (s *RefreshStore) Mint(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.client.Set(ctx, refreshKeyPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Redeem returns the user a refresh token belongs to and revokes it.
func (s *RefreshStore) Redeem(ctx context.Context, token string) (string, error) {
	key := refreshKeyPrefix + token
	userID, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke drops a refresh token, e.g. on logout. Unknown tokens are not
// an error.
func (s *RefreshStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+token).Err()
}
